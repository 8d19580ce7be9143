// Grading pipeline: grayscale, equalize, threshold, open, measure, grade
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"reticulin-grading/internal/algorithms"
	"reticulin-grading/internal/grading"
	"reticulin-grading/internal/metrics"
)

// Segmentation methods
const (
	MethodFixed = "fixed"
	MethodOtsu  = "otsu"
)

// ProcessingStep represents a sequential processing step
type ProcessingStep struct {
	Algorithm  string
	Parameters map[string]interface{}
	Enabled    bool
}

// SegmentationParams selects the binarization and cleanup settings
type SegmentationParams struct {
	Method     string
	Threshold  float64
	KernelSize int
}

// DefaultSegmentationParams is a fixed cut at 50 and a 2x2 opening
func DefaultSegmentationParams() SegmentationParams {
	return SegmentationParams{
		Method:     MethodFixed,
		Threshold:  algorithms.DefaultThreshold,
		KernelSize: algorithms.DefaultKernelSize,
	}
}

// Measurement is everything the pipeline derives from one image
type Measurement struct {
	FiberPercent float64
	FiberPixels  int
	TotalPixels  int
	Grade        grading.Result
	Duration     time.Duration
}

// Pipeline is stateless across images and safe for concurrent use
type Pipeline struct {
	preprocess  []ProcessingStep
	segment     []ProcessingStep
	metricsEval *metrics.Evaluator
	logger      *logrus.Logger
}

// NewPipeline validates params against the algorithm registry
func NewPipeline(params SegmentationParams, logger *logrus.Logger) (*Pipeline, error) {
	threshold := ProcessingStep{Enabled: true}
	switch params.Method {
	case MethodFixed, "":
		threshold.Algorithm = algorithms.NameFixedThreshold
		threshold.Parameters = map[string]interface{}{"threshold": params.Threshold}
	case MethodOtsu:
		threshold.Algorithm = algorithms.NameOtsuThreshold
		threshold.Parameters = map[string]interface{}{}
	default:
		return nil, fmt.Errorf("unknown segmentation method: %s", params.Method)
	}

	p := &Pipeline{
		preprocess: []ProcessingStep{
			{Algorithm: algorithms.NameGrayscale, Enabled: true},
			{Algorithm: algorithms.NameEqualize, Enabled: true},
		},
		segment: []ProcessingStep{
			threshold,
			{
				Algorithm:  algorithms.NameOpening,
				Parameters: map[string]interface{}{"kernel_size": float64(params.KernelSize)},
				Enabled:    true,
			},
		},
		metricsEval: metrics.NewEvaluator(),
		logger:      logger,
	}

	for _, steps := range [][]ProcessingStep{p.preprocess, p.segment} {
		if err := resolveSteps(steps, logger); err != nil {
			return nil, err
		}
	}

	logger.WithFields(logrus.Fields{
		"method":      params.Method,
		"threshold":   params.Threshold,
		"kernel_size": params.KernelSize,
	}).Debug("PIPELINE: configured")

	return p, nil
}

// resolveSteps fills each step's parameters from the algorithm defaults and validates them
func resolveSteps(steps []ProcessingStep, logger *logrus.Logger) error {
	for i := range steps {
		step := &steps[i]
		algorithm, ok := algorithms.Get(step.Algorithm)
		if !ok {
			return fmt.Errorf("unknown algorithm: %s (registered: %s)", step.Algorithm, strings.Join(algorithms.Names(), ", "))
		}

		step.Parameters = algorithms.WithDefaults(algorithm, step.Parameters)
		if err := algorithm.Validate(step.Parameters); err != nil {
			return fmt.Errorf("invalid parameters for %s: %w", step.Algorithm, err)
		}

		logger.WithFields(logrus.Fields{
			"algorithm":   algorithm.GetName(),
			"description": algorithm.GetDescription(),
			"parameters":  step.Parameters,
		}).Debug("PIPELINE: step ready")
	}
	return nil
}

// Preprocess returns the equalized grayscale image; the caller owns it
func (p *Pipeline) Preprocess(src gocv.Mat) (gocv.Mat, error) {
	return p.processSequential(src, p.preprocess)
}

// Segment returns the cleaned binary mask (0 or 255); the caller owns it
func (p *Pipeline) Segment(gray gocv.Mat) (gocv.Mat, error) {
	if gray.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("segmentation needs a grayscale image, got %d channels", gray.Channels())
	}
	return p.processSequential(gray, p.segment)
}

// Measure runs the full pipeline on a source image. Native panics surface as processing errors.
func (p *Pipeline) Measure(src *SourceImage) (m Measurement, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ProcessingError("measure", fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now()
	log := p.logger.WithField("filename", src.Filename())

	gray, err := p.Preprocess(src.Mat())
	if err != nil {
		return Measurement{}, ProcessingError("preprocess", err)
	}
	mask, err := p.Segment(gray)
	gray.Close()
	if err != nil {
		return Measurement{}, ProcessingError("segment", err)
	}
	defer mask.Close()

	values, err := p.metricsEval.CalculateAll(mask)
	if err != nil {
		return Measurement{}, ProcessingError("measure", err)
	}
	percent := values[metrics.NameFiberPercent]

	m = Measurement{
		FiberPercent: percent,
		FiberPixels:  int(values[metrics.NameFiberPixels]),
		TotalPixels:  mask.Rows() * mask.Cols(),
		Grade:        grading.Map(percent),
		Duration:     time.Since(start),
	}

	log.WithFields(logrus.Fields{
		"fiber_percent": m.FiberPercent,
		"mf_grade":      m.Grade.Grade,
		"mf_level":      m.Grade.Level,
		"duration_ms":   m.Duration.Milliseconds(),
	}).Info("PIPELINE: image graded")

	return m, nil
}

// processSequential applies steps in order, closing every intermediate Mat
func (p *Pipeline) processSequential(input gocv.Mat, steps []ProcessingStep) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	current := input.Clone()
	for i, step := range steps {
		if !step.Enabled {
			p.logger.WithField("algorithm", step.Algorithm).Debug("PIPELINE: skipping disabled step")
			continue
		}

		result, err := algorithms.Apply(step.Algorithm, current, step.Parameters)
		current.Close()
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"step":      i,
				"algorithm": step.Algorithm,
				"error":     err,
			}).Error("PIPELINE: step failed")
			return gocv.NewMat(), fmt.Errorf("%s: %w", step.Algorithm, err)
		}
		current = result
	}

	return current, nil
}
