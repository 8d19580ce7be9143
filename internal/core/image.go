// Decoded source image shared read-only by every pipeline stage
package core

import (
	"fmt"

	"gocv.io/x/gocv"
)

const maxDimension = 16384

// SourceImage is an immutable decoded image in canonical 3-channel BGR order
type SourceImage struct {
	mat      gocv.Mat
	filename string
}

// NewSourceImage takes ownership of mat and validates it as a canonical source
func NewSourceImage(mat gocv.Mat, filename string) (*SourceImage, error) {
	if err := ValidateImage(mat); err != nil {
		return nil, err
	}
	if mat.Channels() != 3 || mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("source image must be 8-bit 3-channel, got type %v", mat.Type())
	}

	return &SourceImage{mat: mat, filename: filename}, nil
}

// Mat exposes the pixel buffer. Callers must not write to it.
func (s *SourceImage) Mat() gocv.Mat {
	return s.mat
}

// Clone returns an independent copy of the pixel buffer owned by the caller
func (s *SourceImage) Clone() gocv.Mat {
	return s.mat.Clone()
}

func (s *SourceImage) Filename() string {
	return s.filename
}

func (s *SourceImage) Width() int {
	return s.mat.Cols()
}

func (s *SourceImage) Height() int {
	return s.mat.Rows()
}

// Close releases the native buffer
func (s *SourceImage) Close() error {
	if s == nil {
		return nil
	}
	return s.mat.Close()
}

// ValidateImage validates an OpenCV Mat for basic requirements
func ValidateImage(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("image is empty")
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", mat.Cols(), mat.Rows())
	}

	channels := mat.Channels()
	if channels < 1 || channels > 4 {
		return fmt.Errorf("unsupported channel count: %d", channels)
	}

	// Check for reasonable size limits (prevent memory issues)
	if mat.Cols() > maxDimension || mat.Rows() > maxDimension {
		return fmt.Errorf("image too large: %dx%d (max: %d)", mat.Cols(), mat.Rows(), maxDimension)
	}

	return nil
}
