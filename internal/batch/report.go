// Package batch grades a set of uploads and aggregates the results in upload order.
package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gonum.org/v1/gonum/stat"

	"reticulin-grading/internal/core"
	"reticulin-grading/internal/grading"
)

// Status marks an item as graded or failed
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Item is the per-image report record
type Item struct {
	Index        int            `json:"index"`
	Filename     string         `json:"filename"`
	Status       Status         `json:"status"`
	FiberPercent float64        `json:"fiber_percent"`
	MFGrade      grading.Grade  `json:"mf_grade,omitempty"`
	MFLevel      float64        `json:"mf_level"`
	ImagePath    string         `json:"image_path,omitempty"`
	Renderer     string         `json:"renderer,omitempty"`
	ErrorKind    core.ErrorKind `json:"error_kind,omitempty"`
	Error        string         `json:"error,omitempty"`
}

func (it Item) OK() bool {
	return it.Status == StatusOK
}

// Summary condenses a batch for display
type Summary struct {
	Total              int                   `json:"total"`
	Succeeded          int                   `json:"succeeded"`
	Failed             int                   `json:"failed"`
	GradeCounts        map[grading.Grade]int `json:"grade_counts"`
	MeanFiberPercent   float64               `json:"mean_fiber_percent"`
	StdDevFiberPercent float64               `json:"stddev_fiber_percent"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d of %d images graded successfully", s.Succeeded, s.Total)
}

// Report is the immutable outcome of one batch run
type Report struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	OutputDir   string    `json:"output_dir"`
	ArchivePath string    `json:"archive_path,omitempty"`
	Summary     Summary   `json:"summary"`
	items       []Item
}

// Items returns a copy of the records in upload order
func (r *Report) Items() []Item {
	out := make([]Item, len(r.items))
	copy(out, r.items)
	return out
}

// Succeeded returns only the graded records
func (r *Report) Succeeded() []Item {
	var out []Item
	for _, it := range r.items {
		if it.OK() {
			out = append(out, it)
		}
	}
	return out
}

// MarshalJSON includes the unexported item list
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		*alias
		Items []Item `json:"items"`
	}{
		alias: (*alias)(r),
		Items: r.Items(),
	})
}

// WriteJSON writes the report to path
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return core.IOError("encode report", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return core.IOError("write report", err)
	}
	return nil
}

// WriteText renders the report for a terminal
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Batch %s: %s\n", r.ID, r.Summary); err != nil {
		return err
	}

	for _, it := range r.items {
		var err error
		if it.OK() {
			_, err = fmt.Fprintf(w, "  [ok]     %s\n           Reticulin Area: %.2f%%  MF Grade: %s  MF Level (0-3): %.2f\n           %s\n",
				it.Filename, it.FiberPercent, it.MFGrade, it.MFLevel, it.ImagePath)
		} else {
			_, err = fmt.Fprintf(w, "  [FAILED] %s\n           %s error: %s\n", it.Filename, it.ErrorKind, it.Error)
		}
		if err != nil {
			return err
		}
	}

	if r.Summary.Succeeded > 0 {
		grades := make([]string, 0, len(r.Summary.GradeCounts))
		for _, g := range grading.Grades() {
			grades = append(grades, fmt.Sprintf("%s=%d", g, r.Summary.GradeCounts[g]))
		}
		if _, err := fmt.Fprintf(w, "Grades: %v  mean area %.2f%% (sd %.2f)\n",
			grades, r.Summary.MeanFiberPercent, r.Summary.StdDevFiberPercent); err != nil {
			return err
		}
	}
	if r.ArchivePath != "" {
		if _, err := fmt.Fprintf(w, "Archive: %s\n", r.ArchivePath); err != nil {
			return err
		}
	}
	return nil
}

// Aggregator collects items by upload index; safe for concurrent Add
type Aggregator struct {
	items []Item
	set   []bool
}

func NewAggregator(n int) *Aggregator {
	return &Aggregator{
		items: make([]Item, n),
		set:   make([]bool, n),
	}
}

// Add stores the item at its index. Each index is written by exactly one worker.
func (a *Aggregator) Add(item Item) {
	a.items[item.Index] = item
	a.set[item.Index] = true
}

// Items returns the collected records in upload order
func (a *Aggregator) Items() []Item {
	out := make([]Item, 0, len(a.items))
	for i, it := range a.items {
		if a.set[i] {
			out = append(out, it)
		}
	}
	return out
}

// Summarize computes counts and fiber statistics over successful items
func Summarize(items []Item) Summary {
	s := Summary{
		Total:       len(items),
		GradeCounts: make(map[grading.Grade]int),
	}

	var percents []float64
	for _, it := range items {
		if !it.OK() {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.GradeCounts[it.MFGrade]++
		percents = append(percents, it.FiberPercent)
	}

	switch len(percents) {
	case 0:
	case 1:
		s.MeanFiberPercent = percents[0]
	default:
		s.MeanFiberPercent, s.StdDevFiberPercent = stat.MeanStdDev(percents, nil)
	}

	return s
}
