// Batch results: item list, annotated preview and summary
package gui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"reticulin-grading/internal/batch"
	"reticulin-grading/internal/grading"
)

// ResultsPanel shows one batch report
type ResultsPanel struct {
	logger *logrus.Logger

	container *fyne.Container

	items   []batch.Item
	list    *widget.List
	preview *canvas.Image
	detail  *widget.Label

	summaryCard    *widget.Card
	summaryContent *widget.Label
}

func NewResultsPanel(logger *logrus.Logger) *ResultsPanel {
	panel := &ResultsPanel{logger: logger}
	panel.initializeUI()
	return panel
}

func (rp *ResultsPanel) initializeUI() {
	rp.list = widget.NewList(
		func() int { return len(rp.items) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(rp.items) {
				obj.(*widget.Label).SetText(itemLabel(rp.items[id]))
			}
		},
	)
	rp.list.OnSelected = rp.showItem

	rp.preview = canvas.NewImageFromResource(nil)
	rp.preview.FillMode = canvas.ImageFillContain
	rp.preview.SetMinSize(fyne.NewSize(480, 360))

	rp.detail = widget.NewLabel("Select an image to see its grade.")
	rp.detail.Wrapping = fyne.TextWrapWord

	rp.summaryContent = widget.NewLabel("No batch run yet.")
	rp.summaryCard = widget.NewCard("📊 Summary", "", rp.summaryContent)

	previewSplit := container.NewVSplit(
		container.NewPadded(rp.preview),
		container.NewScroll(rp.detail),
	)
	previewSplit.SetOffset(0.7)

	listAndPreview := container.NewHSplit(
		widget.NewCard("🧪 Results", "", rp.list),
		previewSplit,
	)
	listAndPreview.SetOffset(0.35)

	rp.container = container.NewBorder(nil, rp.summaryCard, nil, nil, listAndPreview)
}

func (rp *ResultsPanel) GetContainer() fyne.CanvasObject {
	return rp.container
}

// SetReport replaces the displayed results; must run on the UI thread
func (rp *ResultsPanel) SetReport(report *batch.Report) {
	rp.list.UnselectAll()
	rp.clearPreview()

	if report == nil {
		rp.items = nil
		rp.summaryContent.SetText("No batch run yet.")
		rp.list.Refresh()
		return
	}

	rp.items = report.Items()
	rp.summaryContent.SetText(summaryText(report))
	rp.list.Refresh()

	if len(rp.items) > 0 {
		rp.list.Select(0)
	}
}

func (rp *ResultsPanel) showItem(id widget.ListItemID) {
	if id < 0 || id >= len(rp.items) {
		return
	}
	it := rp.items[id]
	rp.detail.SetText(itemDetail(it))

	if !it.OK() {
		rp.preview.File = ""
		rp.preview.Resource = nil
		rp.preview.Refresh()
		return
	}

	rp.logger.WithField("path", it.ImagePath).Debug("Showing annotated preview")
	rp.preview.Resource = nil
	rp.preview.File = it.ImagePath
	rp.preview.Refresh()
}

func (rp *ResultsPanel) clearPreview() {
	rp.preview.File = ""
	rp.preview.Resource = nil
	rp.preview.Refresh()
	rp.detail.SetText("Select an image to see its grade.")
}

func summaryText(report *batch.Report) string {
	s := report.Summary
	var b strings.Builder
	b.WriteString(s.String())

	if s.Succeeded > 0 {
		counts := make([]string, 0, len(s.GradeCounts))
		for _, g := range grading.Grades() {
			counts = append(counts, fmt.Sprintf("%s: %d", g, s.GradeCounts[g]))
		}
		fmt.Fprintf(&b, "\n%s\nMean area %.2f%% (sd %.2f)", strings.Join(counts, "   "),
			s.MeanFiberPercent, s.StdDevFiberPercent)
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, "\n%d failed", s.Failed)
	}
	return b.String()
}
