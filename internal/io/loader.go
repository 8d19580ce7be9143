// Image decoding into the canonical BGR representation and PNG encoding
package io

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"

	"reticulin-grading/internal/core"
)

var supportedFormats = map[string]bool{
	"png":  true,
	"jpeg": true,
	"tiff": true,
}

var supportedExtensions = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif"}

// ImageLoader handles image decoding and encoding
type ImageLoader struct {
	logger *logrus.Logger
}

func NewImageLoader(logger *logrus.Logger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// Decode turns raw upload bytes into a SourceImage. Every failure is a decode error.
func (il *ImageLoader) Decode(data []byte, filename string) (*core.SourceImage, error) {
	log := il.logger.WithField("filename", filename)
	log.WithField("bytes", len(data)).Debug("Decoding image")

	if len(data) == 0 {
		return nil, core.DecodeError(filename, fmt.Errorf("empty input"))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, core.DecodeError(filename, err)
	}
	if !supportedFormats[format] {
		return nil, core.DecodeError(filename, fmt.Errorf("unsupported image format: %s", format))
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, core.DecodeError(filename, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy()))
	}

	mat, err := toBGRMat(img)
	if err != nil {
		return nil, core.DecodeError(filename, err)
	}

	src, err := core.NewSourceImage(mat, filename)
	if err != nil {
		mat.Close()
		return nil, core.DecodeError(filename, err)
	}

	log.WithFields(logrus.Fields{
		"format": format,
		"width":  src.Width(),
		"height": src.Height(),
		"model":  colorModelName(img.ColorModel()),
	}).Info("Image decoded")

	return src, nil
}

// EncodePNG encodes a Mat as PNG bytes
func (il *ImageLoader) EncodePNG(mat gocv.Mat) ([]byte, error) {
	if mat.Empty() {
		return nil, core.IOError("encode png", fmt.Errorf("cannot encode empty image"))
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, core.IOError("encode png", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory released by Close
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())

	il.logger.WithFields(logrus.Fields{
		"width":  mat.Cols(),
		"height": mat.Rows(),
		"bytes":  len(out),
	}).Debug("Image encoded as PNG")

	return out, nil
}

// IsSupportedImageFile reports whether the extension is one the loader accepts
func IsSupportedImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range supportedExtensions {
		if ext == format {
			return true
		}
	}
	return false
}

func SupportedExtensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}

// toBGRMat normalizes any decoded colour model to 8-bit BGR. Alpha is dropped
// without compositing, so an RGBA pixel keeps its straight RGB values.
func toBGRMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	data := make([]byte, 0, w*h*3)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := src.Pix[off : off+w*4]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+4]
				data = append(data, p[2], p[1], p[0])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := src.Pix[off : off+w]
			for _, v := range row {
				data = append(data, v, v, v)
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				data = append(data, c.B, c.G, c.R)
			}
		}
	}

	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, data)
}

func colorModelName(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "paletted"
	}
	switch m {
	case color.RGBAModel:
		return "rgba"
	case color.RGBA64Model:
		return "rgba64"
	case color.NRGBAModel:
		return "nrgba"
	case color.NRGBA64Model:
		return "nrgba64"
	case color.GrayModel:
		return "gray"
	case color.Gray16Model:
		return "gray16"
	case color.CMYKModel:
		return "cmyk"
	case color.YCbCrModel:
		return "ycbcr"
	default:
		return "other"
	}
}
