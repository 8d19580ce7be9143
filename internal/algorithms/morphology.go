// Morphological operations algorithms
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DefaultKernelSize is the side of the square structuring element used to clean fiber masks
const DefaultKernelSize = 2

// Opening implements morphological opening (erosion followed by dilation)
type Opening struct{}

// NewOpening creates a new opening algorithm
func NewOpening() *Opening {
	return &Opening{}
}

func (o *Opening) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	return applyMorphology(input, params, gocv.MorphOpen)
}

func (o *Opening) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": float64(DefaultKernelSize),
		"iterations":  1.0,
	}
}

func (o *Opening) GetName() string {
	return "Opening"
}

func (o *Opening) GetDescription() string {
	return "Morphological opening to remove speckle while keeping fiber structures"
}

func (o *Opening) Validate(params map[string]interface{}) error {
	return validateMorphology(params)
}

func applyMorphology(input gocv.Mat, params map[string]interface{}, op gocv.MorphType) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	kernelSize := intParam(params, "kernel_size", DefaultKernelSize)
	iterations := intParam(params, "iterations", 1)
	if kernelSize < 1 || iterations < 1 {
		return gocv.NewMat(), fmt.Errorf("invalid morphology parameters: kernel_size=%d iterations=%d", kernelSize, iterations)
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	output := gocv.NewMat()
	gocv.MorphologyEx(input, &output, op, kernel)

	for i := 1; i < iterations; i++ {
		temp := gocv.NewMat()
		gocv.MorphologyEx(output, &temp, op, kernel)
		output.Close()
		output = temp
	}

	return output, nil
}

func validateMorphology(params map[string]interface{}) error {
	if err := checkRange(params, "kernel_size", 1, 15); err != nil {
		return err
	}
	return checkRange(params, "iterations", 1, 10)
}
