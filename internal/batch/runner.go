package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reticulin-grading/internal/annotate"
	"reticulin-grading/internal/core"
	imgio "reticulin-grading/internal/io"
	"reticulin-grading/internal/storage"
)

// DefaultArchiveName is the batch download name
const DefaultArchiveName = "mf_batch_results.zip"

// Input is one upload. Load is called once, when the item is processed.
type Input struct {
	Filename string
	Load     func() ([]byte, error)
}

// FileInput reads the file lazily so a missing file fails only its own item
func FileInput(path string) Input {
	return Input{
		Filename: filepath.Base(path),
		Load:     func() ([]byte, error) { return os.ReadFile(path) },
	}
}

// Runner carries everything one batch run needs; it holds no per-run state
type Runner struct {
	loader      *imgio.ImageLoader
	pipeline    *core.Pipeline
	annotator   *annotate.Annotator
	logger      *logrus.Logger
	workers     int
	archiveName string
}

// Options tune a Runner
type Options struct {
	Workers     int
	ArchiveName string
}

func NewRunner(loader *imgio.ImageLoader, pipeline *core.Pipeline, annotator *annotate.Annotator, opts Options, logger *logrus.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ArchiveName == "" {
		opts.ArchiveName = DefaultArchiveName
	}
	return &Runner{
		loader:      loader,
		pipeline:    pipeline,
		annotator:   annotator,
		logger:      logger,
		workers:     opts.Workers,
		archiveName: opts.ArchiveName,
	}
}

// Run grades every input into store and builds the archive when at least one
// item succeeded. Per-item failures are recorded in the report; only an
// archive failure is returned as an error.
func (r *Runner) Run(ctx context.Context, inputs []Input, store storage.ArtifactStore) (*Report, error) {
	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		OutputDir: store.Dir(),
	}
	log := r.logger.WithField("batch", report.ID)
	log.WithFields(logrus.Fields{
		"inputs":  len(inputs),
		"workers": r.workers,
	}).Info("Batch started")

	agg := NewAggregator(len(inputs))
	if r.workers == 1 {
		for i, in := range inputs {
			agg.Add(r.processItem(ctx, i, in, store))
		}
	} else {
		sem := make(chan struct{}, r.workers)
		var wg sync.WaitGroup
		for i, in := range inputs {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, in Input) {
				defer wg.Done()
				defer func() { <-sem }()
				agg.Add(r.processItem(ctx, i, in, store))
			}(i, in)
		}
		wg.Wait()
	}

	report.items = agg.Items()
	report.Summary = Summarize(report.items)

	if succeeded := report.Succeeded(); len(succeeded) > 0 {
		archivePath := filepath.Join(store.Dir(), r.archiveName)
		entries := make([]storage.ArchiveEntry, 0, len(succeeded))
		for _, it := range succeeded {
			entries = append(entries, storage.ArchiveEntry{
				Name: filepath.Base(it.ImagePath),
				Path: it.ImagePath,
			})
		}
		if err := storage.CreateArchive(archivePath, entries); err != nil {
			log.WithError(err).Error("Archive creation failed")
			return nil, fmt.Errorf("batch %s: %w", report.ID, err)
		}
		report.ArchivePath = archivePath
	} else {
		log.Warn("No image graded successfully, archive skipped")
	}

	report.FinishedAt = time.Now()
	log.WithFields(logrus.Fields{
		"succeeded":   report.Summary.Succeeded,
		"failed":      report.Summary.Failed,
		"archive":     report.ArchivePath,
		"duration_ms": report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	}).Info("Batch finished: " + report.Summary.String())

	return report, nil
}

// processItem runs one upload end to end and never panics
func (r *Runner) processItem(ctx context.Context, index int, in Input, store storage.ArtifactStore) (item Item) {
	item = Item{Index: index, Filename: in.Filename}
	log := r.logger.WithFields(logrus.Fields{
		"index":    index,
		"filename": in.Filename,
	})

	defer func() {
		if rec := recover(); rec != nil {
			item = failed(item, core.ProcessingError("process", fmt.Errorf("panic: %v", rec)))
		}
		if !item.OK() {
			log.WithFields(logrus.Fields{
				"kind":  item.ErrorKind,
				"error": item.Error,
			}).Warn("Image failed")
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(item, core.ProcessingError("process", err))
	}

	if in.Load == nil {
		return failed(item, core.IOError("read", fmt.Errorf("no data source")))
	}
	data, err := in.Load()
	if err != nil {
		return failed(item, core.IOError("read", err))
	}

	src, err := r.loader.Decode(data, in.Filename)
	if err != nil {
		return failed(item, err)
	}
	defer src.Close()

	m, err := r.pipeline.Measure(src)
	if err != nil {
		return failed(item, err)
	}

	ann, err := r.annotator.Annotate(src, m.FiberPercent, m.Grade)
	if err != nil {
		return failed(item, err)
	}
	defer ann.Image.Close()

	png, err := r.loader.EncodePNG(ann.Image)
	if err != nil {
		return failed(item, err)
	}

	path, err := store.Put(storage.AnnotatedName(in.Filename), png)
	if err != nil {
		return failed(item, err)
	}

	item.Status = StatusOK
	item.FiberPercent = m.FiberPercent
	item.MFGrade = m.Grade.Grade
	item.MFLevel = m.Grade.Level
	item.ImagePath = path
	item.Renderer = ann.Renderer
	return item
}

func failed(item Item, err error) Item {
	item.Status = StatusFailed
	item.ErrorKind = core.KindOf(err)
	item.Error = err.Error()
	item.FiberPercent = 0
	item.MFGrade = ""
	item.MFLevel = 0
	item.ImagePath = ""
	return item
}
