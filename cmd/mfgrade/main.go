// Batch reticulin grading from the command line
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"reticulin-grading/internal/annotate"
	"reticulin-grading/internal/batch"
	"reticulin-grading/internal/config"
	"reticulin-grading/internal/core"
	imgio "reticulin-grading/internal/io"
	"reticulin-grading/internal/storage"
)

const (
	AppName    = "mfgrade"
	AppVersion = "1.0.0"
)

const (
	exitOK        = 0
	exitFatal     = 1
	exitAllFailed = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "YAML configuration file")
	outputDir := flag.String("output", "", "Directory for annotated images, archive and report (default: temp dir)")
	workers := flag.Int("workers", 0, "Images graded in parallel (overrides config)")
	method := flag.String("method", "", "Threshold method: fixed or otsu (overrides config)")
	threshold := flag.Float64("threshold", -1, "Fixed threshold; intensities below it are fiber (overrides config)")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this path and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <image|dir>...\n", AppName)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFatal
		}
		return exitOK
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFatal
	}
	applyFlags(cfg, *outputDir, *workers, *method, *threshold, *debugMode)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFatal
	}

	logger := initLogger(cfg.Logging.Debug)
	logger.WithFields(logrus.Fields{
		"version": AppVersion,
		"config":  *configPath,
		"method":  cfg.Segmentation.Method,
		"workers": cfg.Processing.Workers,
	}).Info("Starting MF grading")

	paths, err := collectInputs(flag.Args())
	if err != nil {
		logger.WithError(err).Error("Cannot collect inputs")
		return exitFatal
	}
	if len(paths) == 0 {
		logger.Warn("No input images given")
		flag.Usage()
		return exitOK
	}

	pipeline, err := core.NewPipeline(cfg.SegmentationParams(), logger)
	if err != nil {
		logger.WithError(err).Error("Invalid pipeline configuration")
		return exitFatal
	}
	annotator := annotate.NewAnnotator(cfg.Style(), cfg.Overlay.FontPath, logger)
	runner := batch.NewRunner(imgio.NewImageLoader(logger), pipeline, annotator, batch.Options{
		Workers:     cfg.Processing.Workers,
		ArchiveName: cfg.Output.ArchiveName,
	}, logger)

	store, err := storage.NewDirStore(cfg.Output.Dir, cfg.Output.Keep, logger)
	if err != nil {
		logger.WithError(err).Error("Cannot prepare output directory")
		return exitFatal
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Output cleanup failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	inputs := make([]batch.Input, len(paths))
	for i, p := range paths {
		inputs[i] = batch.FileInput(p)
	}

	report, err := runner.Run(ctx, inputs, store)
	if err != nil {
		logger.WithError(err).Error("Batch failed")
		return exitFatal
	}

	reportPath := filepath.Join(store.Dir(), cfg.Output.ReportName)
	if err := report.WriteJSON(reportPath); err != nil {
		logger.WithError(err).Error("Cannot write report")
		return exitFatal
	}
	logger.WithField("path", reportPath).Info("Report written")

	if err := report.WriteText(os.Stdout); err != nil {
		logger.WithError(err).Warn("Cannot print report")
	}

	if report.Summary.Succeeded == 0 {
		return exitAllFailed
	}
	return exitOK
}

// applyFlags lets explicitly set flags win over the config file. The report
// and archive are the command's output, so a temp output dir is always kept.
func applyFlags(cfg *config.Config, outputDir string, workers int, method string, threshold float64, debug bool) {
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if workers > 0 {
		cfg.Processing.Workers = workers
	}
	if method != "" {
		cfg.Segmentation.Method = method
	}
	if threshold >= 0 {
		cfg.Segmentation.Threshold = threshold
	}
	cfg.Output.Keep = true
	if debug {
		cfg.Logging.Debug = true
	}
}

// collectInputs expands directories to their supported images, sorted by name.
// Plain file arguments are kept as given so an unreadable file fails its own item.
func collectInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				paths = append(paths, arg)
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && imgio.IsSupportedImageFile(e.Name()) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
