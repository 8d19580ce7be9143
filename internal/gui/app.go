// Desktop portal: queue images, grade them, review and export the results
package gui

import (
	"context"
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

const AppTitle = "Reticulin MF Grading"

// Application represents the main window
type Application struct {
	app       fyne.App
	window    fyne.Window
	logger    *logrus.Logger
	debugMode bool

	session     *Session
	menuHandler *MenuHandler
	results     *ResultsPanel

	queueLabel *widget.Label
	runButton  *widget.Button
	saveButton *widget.Button
	progress   *widget.ProgressBarInfinite
	statusCard *widget.Card

	cancel context.CancelFunc
}

func NewApplication(app fyne.App, session *Session, logger *logrus.Logger, debugMode bool) *Application {
	window := app.NewWindow(AppTitle)
	window.Resize(fyne.NewSize(1400, 900))
	window.CenterOnScreen()

	a := &Application{
		app:       app,
		window:    window,
		logger:    logger,
		debugMode: debugMode,
		session:   session,
	}

	a.initializeGUI()
	a.setupLayout()
	a.setupCallbacks()

	return a
}

func (a *Application) initializeGUI() {
	a.menuHandler = NewMenuHandler(a.window, a.session, a.logger)
	a.results = NewResultsPanel(a.logger)

	a.queueLabel = widget.NewLabel("")
	a.runButton = widget.NewButtonWithIcon("Grade", theme.MediaPlayIcon(), a.runBatch)
	a.saveButton = widget.NewButtonWithIcon("Save ZIP", theme.DocumentSaveIcon(), a.menuHandler.saveArchive)
	a.saveButton.Disable()
	a.progress = widget.NewProgressBarInfinite()
	a.progress.Stop()
	a.progress.Hide()

	a.statusCard = widget.NewCard("Status", "", widget.NewLabel("Add images to start"))
	a.refreshQueue()
}

func (a *Application) setupLayout() {
	toolbar := container.NewHBox(
		widget.NewButtonWithIcon("Add Image", theme.FileImageIcon(), a.menuHandler.addImage),
		widget.NewButtonWithIcon("Add Folder", theme.FolderOpenIcon(), a.menuHandler.addFolder),
		widget.NewSeparator(),
		a.runButton,
		a.saveButton,
		widget.NewSeparator(),
		a.queueLabel,
	)

	top := container.NewVBox(toolbar, a.progress, widget.NewSeparator())

	content := container.NewBorder(
		top,          // top
		a.statusCard, // bottom
		nil,          // left
		nil,          // right
		a.results.GetContainer(),
	)

	a.window.SetMainMenu(a.menuHandler.GetMainMenu())
	a.window.SetContent(content)
}

func (a *Application) setupCallbacks() {
	a.menuHandler.SetCallbacks(
		// onQueueChanged
		func() {
			a.refreshQueue()
			if a.session.Report() == nil {
				a.results.SetReport(nil)
				a.saveButton.Disable()
			}
		},
		// onRun
		a.runBatch,
		// onArchiveSaved
		func(path string) {
			a.showInfo("Archive Saved", fmt.Sprintf("Annotated images saved to:\n%s", path))
			a.updateStatusMessage(fmt.Sprintf("💾 Saved: %s", filepath.Base(path)))
		},
	)
}

func (a *Application) refreshQueue() {
	n := len(a.session.Paths())
	a.queueLabel.SetText(fmt.Sprintf("%d image(s) queued", n))
	if n == 0 || a.session.Running() {
		a.runButton.Disable()
	} else {
		a.runButton.Enable()
	}
}

// runBatch grades the queue off the UI thread
func (a *Application) runBatch() {
	if len(a.session.Paths()) == 0 {
		a.showError("Nothing to Grade", fmt.Errorf("add at least one image"))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.runButton.Disable()
	a.saveButton.Disable()
	a.progress.Show()
	a.progress.Start()
	a.updateStatusMessage("⏳ Grading...")

	go func() {
		defer cancel()
		report, err := a.session.Run(ctx)

		fyne.Do(func() {
			a.progress.Stop()
			a.progress.Hide()
			a.refreshQueue()

			if err != nil {
				a.results.SetReport(nil)
				a.showError("Batch Failed", err)
				return
			}

			a.results.SetReport(report)
			if report.Summary.Succeeded > 0 {
				a.saveButton.Enable()
				a.updateStatusMessage("✅ " + report.Summary.String())
			} else {
				a.updateStatusMessage("❌ " + report.Summary.String())
			}
		})
	}()
}

func (a *Application) updateStatusMessage(message string) {
	if a.statusCard != nil {
		a.statusCard.SetContent(widget.NewLabel(message))
	}
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main application window")

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	a.window.ShowAndRun()
}

func (a *Application) cleanup() {
	a.logger.Info("Cleaning up application resources")
	if a.cancel != nil {
		a.cancel()
	}
	a.session.Close()
}

func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error(title)
	dialog.ShowError(err, a.window)
	a.updateStatusMessage(fmt.Sprintf("❌ Error: %s", err.Error()))
}

func (a *Application) showInfo(title, message string) {
	a.logger.WithField("message", message).Info(title)
	dialog.ShowInformation(title, message, a.window)
}
