// Menu handler for application actions
package gui

import (
	"fmt"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"reticulin-grading/internal/batch"
	imgio "reticulin-grading/internal/io"
)

// MenuHandler handles menu actions
type MenuHandler struct {
	window  fyne.Window
	session *Session
	logger  *logrus.Logger

	onQueueChanged func()
	onRun          func()
	onArchiveSaved func(string)
}

func NewMenuHandler(window fyne.Window, session *Session, logger *logrus.Logger) *MenuHandler {
	return &MenuHandler{
		window:  window,
		session: session,
		logger:  logger,
	}
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Add Image...", mh.addImage),
		fyne.NewMenuItem("Add Folder...", mh.addFolder),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Archive...", mh.saveArchive),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Exit", func() {
			mh.window.Close()
		}),
	)

	batchMenu := fyne.NewMenu("Batch",
		fyne.NewMenuItem("Run Grading", func() {
			if mh.onRun != nil {
				mh.onRun()
			}
		}),
		fyne.NewMenuItem("Clear", func() {
			mh.session.Clear()
			mh.logger.Info("Batch queue cleared")
			mh.queueChanged()
		}),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mh.showAbout),
	)

	return fyne.NewMainMenu(fileMenu, batchMenu, helpMenu)
}

func (mh *MenuHandler) addImage() {
	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		path := reader.URI().Path()
		if mh.session.AddPaths(path) == 0 {
			mh.showError("Unsupported File", fmt.Errorf("%s is not a PNG, JPEG or TIFF image", path))
			return
		}

		mh.logger.WithField("path", path).Info("Image queued")
		mh.queueChanged()
	}, mh.window)

	fileDialog.SetFilter(storage.NewExtensionFileFilter(imgio.SupportedExtensions()))
	fileDialog.Show()
}

func (mh *MenuHandler) addFolder() {
	folderDialog := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			mh.showError("Folder Dialog Error", err)
			return
		}
		if dir == nil {
			return
		}

		uris, err := dir.List()
		if err != nil {
			mh.showError("Cannot Read Folder", err)
			return
		}

		paths := make([]string, 0, len(uris))
		for _, u := range uris {
			paths = append(paths, u.Path())
		}
		sort.Strings(paths)
		added := mh.session.AddPaths(paths...)

		mh.logger.WithFields(logrus.Fields{
			"folder": dir.Path(),
			"added":  added,
		}).Info("Folder queued")
		mh.queueChanged()
	}, mh.window)

	folderDialog.Show()
}

func (mh *MenuHandler) saveArchive() {
	report := mh.session.Report()
	if report == nil || len(report.Succeeded()) == 0 {
		mh.showError("Nothing to Save", fmt.Errorf("run a batch with at least one graded image first"))
		return
	}

	fileDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if writer == nil {
			return
		}

		path := writer.URI().Path()
		if err := writeArchive(mh.session, writer, storage.Delete); err != nil {
			mh.showError("Failed to Save Archive", err)
			return
		}

		mh.logger.WithField("path", path).Info("Archive saved")
		if mh.onArchiveSaved != nil {
			mh.onArchiveSaved(path)
		}
	}, mh.window)

	fileDialog.SetFileName(batch.DefaultArchiveName)
	fileDialog.SetFilter(storage.NewExtensionFileFilter([]string{".zip"}))
	fileDialog.Show()
}

// writeArchive saves the last run into w. On failure the partial file is
// removed so a truncated ZIP is never left at the chosen location.
func writeArchive(session *Session, w fyne.URIWriteCloser, remove func(fyne.URI) error) error {
	err := session.SaveArchive(w)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		return nil
	}

	if removeErr := remove(w.URI()); removeErr != nil {
		session.logger.WithFields(logrus.Fields{
			"path":  w.URI().Path(),
			"error": removeErr,
		}).Warn("Partial archive could not be removed")
	}
	return err
}

func (mh *MenuHandler) showAbout() {
	content := container.NewVBox(
		widget.NewLabel(AppTitle),
		widget.NewSeparator(),
		widget.NewLabel("Estimates myelofibrosis grade (MF-0 to MF-3)"),
		widget.NewLabel("from reticulin-stained microscope images."),
		widget.NewSeparator(),
		widget.NewLabel("Research use only. Not a diagnostic device."),
		widget.NewLabel("Built with Go, Fyne v2.6 and OpenCV"),
	)

	aboutDialog := dialog.NewCustom("About", "Close", content, mh.window)
	aboutDialog.Resize(fyne.NewSize(400, 260))
	aboutDialog.Show()
}

func (mh *MenuHandler) queueChanged() {
	if mh.onQueueChanged != nil {
		mh.onQueueChanged()
	}
}

func (mh *MenuHandler) showError(title string, err error) {
	mh.logger.WithError(err).Error(title)
	dialog.ShowError(err, mh.window)
}

func (mh *MenuHandler) SetCallbacks(onQueueChanged, onRun func(), onArchiveSaved func(string)) {
	mh.onQueueChanged = onQueueChanged
	mh.onRun = onRun
	mh.onArchiveSaved = onArchiveSaved
}
