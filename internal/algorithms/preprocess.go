// Grayscale conversion and contrast normalization
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Grayscale converts BGR input with the standard luminance weights (0.299, 0.587, 0.114)
type Grayscale struct{}

func NewGrayscale() *Grayscale {
	return &Grayscale{}
}

func (g *Grayscale) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	output := gocv.NewMat()
	switch input.Channels() {
	case 1:
		input.CopyTo(&output)
	case 3:
		gocv.CvtColor(input, &output, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(input, &output, gocv.ColorBGRAToGray)
	default:
		output.Close()
		return gocv.NewMat(), fmt.Errorf("unsupported channel count: %d", input.Channels())
	}

	return output, nil
}

func (g *Grayscale) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (g *Grayscale) GetName() string {
	return "Grayscale"
}

func (g *Grayscale) GetDescription() string {
	return "Luminance-weighted grayscale conversion"
}

func (g *Grayscale) Validate(params map[string]interface{}) error {
	return nil
}

// EqualizeHist remaps intensities so the cumulative distribution is close to uniform
type EqualizeHist struct{}

func NewEqualizeHist() *EqualizeHist {
	return &EqualizeHist{}
}

func (e *EqualizeHist) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}
	if input.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("histogram equalization needs a single channel image, got %d", input.Channels())
	}

	// A uniform image keeps its intensity
	output := gocv.NewMat()
	gocv.EqualizeHist(input, &output)

	return output, nil
}

func (e *EqualizeHist) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (e *EqualizeHist) GetName() string {
	return "Histogram Equalization"
}

func (e *EqualizeHist) GetDescription() string {
	return "Global histogram equalization to normalize staining contrast"
}

func (e *EqualizeHist) Validate(params map[string]interface{}) error {
	return nil
}
