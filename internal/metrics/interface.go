// Mask metrics for fiber quantification
package metrics

import (
	"fmt"

	"gocv.io/x/gocv"
)

// MaskStats holds the pixel counts of one binary mask
type MaskStats struct {
	FiberPixels int
	TotalPixels int
}

// Count reads the mask once. Masks only hold 0 and 255.
func Count(mask gocv.Mat) (MaskStats, error) {
	if mask.Empty() {
		return MaskStats{}, fmt.Errorf("mask is empty")
	}
	if mask.Channels() != 1 {
		return MaskStats{}, fmt.Errorf("mask must be single channel, got %d", mask.Channels())
	}
	return MaskStats{
		FiberPixels: gocv.CountNonZero(mask),
		TotalPixels: mask.Rows() * mask.Cols(),
	}, nil
}

// Metric derives a value from mask counts
type Metric interface {
	Calculate(stats MaskStats) float64
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates a new metrics evaluator
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}

	e.RegisterDefaultMetrics()

	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register(NameFiberPercent, FiberPercent{})
	e.Register(NameFiberPixels, FiberPixels{})
}

// Register registers a metric, replacing any metric of the same name
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// CalculateAll counts the mask once and evaluates every registered metric on the result
func (e *Evaluator) CalculateAll(mask gocv.Mat) (map[string]float64, error) {
	stats, err := Count(mask)
	if err != nil {
		return nil, err
	}

	results := make(map[string]float64, len(e.metrics))
	for name, metric := range e.metrics {
		results[name] = metric.Calculate(stats)
	}

	return results, nil
}
