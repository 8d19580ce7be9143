// Reticulin MF grading desktop portal
package main

import (
	"flag"
	"fmt"
	"os"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"reticulin-grading/internal/annotate"
	"reticulin-grading/internal/batch"
	"reticulin-grading/internal/config"
	"reticulin-grading/internal/core"
	"reticulin-grading/internal/gui"
	imgio "reticulin-grading/internal/io"
)

const (
	AppID      = "org.reticulin.mfgrading"
	AppVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *debugMode {
		cfg.Logging.Debug = true
	}

	logger := initLogger(cfg.Logging.Debug)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": cfg.Logging.Debug,
	}).Info("Starting MF grading portal")

	pipeline, err := core.NewPipeline(cfg.SegmentationParams(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Invalid pipeline configuration")
	}
	annotator := annotate.NewAnnotator(cfg.Style(), cfg.Overlay.FontPath, logger)
	runner := batch.NewRunner(imgio.NewImageLoader(logger), pipeline, annotator, batch.Options{
		Workers:     cfg.Processing.Workers,
		ArchiveName: cfg.Output.ArchiveName,
	}, logger)
	session := gui.NewSession(runner, cfg.Output.Dir, cfg.Output.Keep, logger)

	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.DocumentIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp := gui.NewApplication(myApp, session, logger, cfg.Logging.Debug)
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

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
