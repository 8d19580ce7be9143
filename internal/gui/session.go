package gui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"reticulin-grading/internal/batch"
	imgio "reticulin-grading/internal/io"
	"reticulin-grading/internal/storage"
)

// Session holds the queued uploads and the outcome of the last batch run.
// It is shared between the UI thread and the batch goroutine.
type Session struct {
	mu        sync.Mutex
	runner    *batch.Runner
	outputDir string
	keep      bool
	logger    *logrus.Logger

	paths   []string
	running bool
	store   *storage.DirStore
	report  *batch.Report
}

func NewSession(runner *batch.Runner, outputDir string, keep bool, logger *logrus.Logger) *Session {
	return &Session{
		runner:    runner,
		outputDir: outputDir,
		keep:      keep,
		logger:    logger,
	}
}

// AddPaths queues supported image files and returns how many were added
func (s *Session) AddPaths(paths ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, p := range paths {
		if !imgio.IsSupportedImageFile(p) {
			s.logger.WithField("path", p).Debug("Skipping unsupported file")
			continue
		}
		s.paths = append(s.paths, p)
		added++
	}
	return added
}

// Paths returns the queued uploads in the order they were added
func (s *Session) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Clear drops the queue and the previous results
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths = nil
	s.report = nil
	s.releaseStore()
}

// Run grades the queued uploads. Artifacts of the previous run are released
// first. The queue stays editable while the batch runs.
func (s *Session) Run(ctx context.Context) (*batch.Report, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("a batch is already running")
	}
	if len(s.paths) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("no images queued")
	}
	inputs := make([]batch.Input, len(s.paths))
	for i, p := range s.paths {
		inputs[i] = batch.FileInput(p)
	}
	s.running = true
	s.report = nil
	s.releaseStore()
	s.mu.Unlock()

	report, store, err := s.grade(ctx, inputs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if err != nil {
		return nil, err
	}
	s.store = store
	s.report = report
	return report, nil
}

func (s *Session) grade(ctx context.Context, inputs []batch.Input) (*batch.Report, *storage.DirStore, error) {
	store, err := storage.NewDirStore(s.outputDir, s.keep, s.logger)
	if err != nil {
		return nil, nil, err
	}

	report, err := s.runner.Run(ctx, inputs, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return report, store, nil
}

// Running reports whether a batch is in progress
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Report is the last successful run, or nil
func (s *Session) Report() *batch.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// SaveArchive streams the successful artifacts of the last run as a ZIP
func (s *Session) SaveArchive(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report == nil {
		return fmt.Errorf("no batch has been run")
	}
	succeeded := s.report.Succeeded()
	if len(succeeded) == 0 {
		return fmt.Errorf("no image was graded successfully")
	}

	entries := make([]storage.ArchiveEntry, 0, len(succeeded))
	for _, it := range succeeded {
		entries = append(entries, storage.ArchiveEntry{
			Name: filepath.Base(it.ImagePath),
			Path: it.ImagePath,
		})
	}
	return storage.WriteArchive(w, entries)
}

// Close releases the artifacts of the last run
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseStore()
}

func (s *Session) releaseStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.WithError(err).Warn("Failed to release batch artifacts")
	}
	s.store = nil
}

// itemLabel is the one-line list entry for a report item
func itemLabel(it batch.Item) string {
	if it.OK() {
		return fmt.Sprintf("✅ %s  %s (%.2f)  %.2f%%", it.Filename, it.MFGrade, it.MFLevel, it.FiberPercent)
	}
	return fmt.Sprintf("❌ %s  %s error", it.Filename, it.ErrorKind)
}

// itemDetail is the multi-line description shown next to the preview
func itemDetail(it batch.Item) string {
	if it.OK() {
		return fmt.Sprintf("%s\n\nReticulin Area: %.2f%%\nMF Grade: %s\nMF Level (0-3): %.2f\n\nRenderer: %s\n%s",
			it.Filename, it.FiberPercent, it.MFGrade, it.MFLevel, it.Renderer, it.ImagePath)
	}
	return fmt.Sprintf("%s\n\nFAILED (%s)\n%s", it.Filename, it.ErrorKind, it.Error)
}
