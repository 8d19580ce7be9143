package metrics

const (
	NameFiberPercent = "fiber_percent"
	NameFiberPixels  = "fiber_pixels"
)

// FiberPercent is 100 * fiber pixels / total pixels
type FiberPercent struct{}

func (FiberPercent) Calculate(stats MaskStats) float64 {
	if stats.TotalPixels == 0 {
		return 0
	}
	return float64(stats.FiberPixels) / float64(stats.TotalPixels) * 100
}

// FiberPixels is the absolute count of fiber pixels
type FiberPixels struct{}

func (FiberPixels) Calculate(stats MaskStats) float64 {
	return float64(stats.FiberPixels)
}
