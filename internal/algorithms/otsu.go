// Binarization with inverted polarity: dark pixels become foreground (255)
package algorithms

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

const (
	DefaultThreshold = 50.0
	foregroundValue  = 255.0
)

// FixedThreshold marks pixels strictly below the threshold as foreground
type FixedThreshold struct{}

func NewFixedThreshold() *FixedThreshold {
	return &FixedThreshold{}
}

func (f *FixedThreshold) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}
	if input.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("thresholding needs a single channel image, got %d", input.Channels())
	}

	threshold := floatParam(params, "threshold", DefaultThreshold)

	// THRESH_BINARY_INV keeps src <= cut. For 8-bit intensities, src < threshold
	// is src <= ceil(threshold)-1, which also holds for fractional thresholds.
	output := gocv.NewMat()
	gocv.Threshold(input, &output, float32(math.Ceil(threshold)-1), foregroundValue, gocv.ThresholdBinaryInv)

	return output, nil
}

func (f *FixedThreshold) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"threshold": DefaultThreshold,
	}
}

func (f *FixedThreshold) GetName() string {
	return "Fixed Threshold (inverted)"
}

func (f *FixedThreshold) GetDescription() string {
	return "Global fixed threshold; intensities below the cut are fiber"
}

func (f *FixedThreshold) Validate(params map[string]interface{}) error {
	return checkRange(params, "threshold", 0, 256)
}

// OtsuThreshold picks the cut that maximizes between-class variance
type OtsuThreshold struct{}

func NewOtsuThreshold() *OtsuThreshold {
	return &OtsuThreshold{}
}

func (o *OtsuThreshold) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}
	if input.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("thresholding needs a single channel image, got %d", input.Channels())
	}

	output := gocv.NewMat()
	gocv.Threshold(input, &output, 0, foregroundValue, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	return output, nil
}

func (o *OtsuThreshold) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (o *OtsuThreshold) GetName() string {
	return "Otsu Threshold (inverted)"
}

func (o *OtsuThreshold) GetDescription() string {
	return "Automatic global threshold; pixels at or below the Otsu level are fiber"
}

func (o *OtsuThreshold) Validate(params map[string]interface{}) error {
	return nil
}
