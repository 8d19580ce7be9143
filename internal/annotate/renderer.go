// Text renderers used to stamp grading results onto images
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Style controls where and how the overlay is drawn
type Style struct {
	Origin      image.Point
	Color       color.RGBA
	FontSize    float64
	LineSpacing float64 // multiple of the font line height
}

// DefaultStyle matches the historical overlay: red 24px text at (10,10)
func DefaultStyle() Style {
	return Style{
		Origin:      image.Pt(10, 10),
		Color:       color.RGBA{R: 255, A: 255},
		FontSize:    24,
		LineSpacing: 1.0,
	}
}

// Renderer draws text lines in place on a BGR Mat
type Renderer interface {
	Name() string
	Draw(dst *gocv.Mat, lines []string, style Style) error
}

// TrueTypeRenderer draws with an OpenType face through x/image/font
type TrueTypeRenderer struct {
	name string
	mu   sync.Mutex // faces cache glyphs and are not safe for concurrent use
	face font.Face
}

// NewTrueTypeRenderer parses font data and builds a face at the given pixel size
func NewTrueTypeRenderer(name string, data []byte, size float64) (*TrueTypeRenderer, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face %s: %w", name, err)
	}

	return &TrueTypeRenderer{name: name, face: face}, nil
}

// LoadTrueTypeFile loads a font file, trying the bare path first and then the system font dirs
func LoadTrueTypeFile(path string, size float64) (*TrueTypeRenderer, error) {
	if path == "" {
		return nil, fmt.Errorf("no font path configured")
	}

	for _, candidate := range fontCandidates(path) {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		return NewTrueTypeRenderer(candidate, data, size)
	}

	return nil, fmt.Errorf("font not found: %s", path)
}

// NewBuiltinRenderer uses the Go Regular face compiled into the binary
func NewBuiltinRenderer(size float64) (*TrueTypeRenderer, error) {
	return NewTrueTypeRenderer("go-regular", goregular.TTF, size)
}

func (r *TrueTypeRenderer) Name() string {
	return r.name
}

func (r *TrueTypeRenderer) Draw(dst *gocv.Mat, lines []string, style Style) error {
	if dst.Empty() {
		return fmt.Errorf("destination image is empty")
	}

	img, err := dst.ToImage()
	if err != nil {
		return fmt.Errorf("convert mat to image: %w", err)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	r.mu.Lock()
	metrics := r.face.Metrics()
	step := fixed.Int26_6(float64(metrics.Height) * spacing(style))
	drawer := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(style.Color),
		Face: r.face,
	}
	baseline := fixed.I(style.Origin.Y) + metrics.Ascent
	for i, line := range lines {
		drawer.Dot = fixed.Point26_6{
			X: fixed.I(style.Origin.X),
			Y: baseline + fixed.Int26_6(i)*step,
		}
		drawer.DrawString(line)
	}
	r.mu.Unlock()

	out, err := gocv.ImageToMatRGB(rgba)
	if err != nil {
		return fmt.Errorf("convert image to mat: %w", err)
	}
	defer out.Close()

	out.CopyTo(dst)
	return nil
}

// HersheyRenderer uses OpenCV's built-in vector font. It needs no resources.
type HersheyRenderer struct{}

func NewHersheyRenderer() *HersheyRenderer {
	return &HersheyRenderer{}
}

func (h *HersheyRenderer) Name() string {
	return "hershey-simplex"
}

func (h *HersheyRenderer) Draw(dst *gocv.Mat, lines []string, style Style) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in PutText: %v", r)
		}
	}()

	if dst.Empty() {
		return fmt.Errorf("destination image is empty")
	}

	const face = gocv.FontHersheySimplex
	// Simplex glyphs are roughly 30px tall at scale 1
	scale := style.FontSize / 30
	if scale <= 0 {
		scale = 0.8
	}
	thickness := 1
	if style.FontSize >= 20 {
		thickness = 2
	}

	lineHeight := 0
	for _, line := range lines {
		if sz := gocv.GetTextSize(line, face, scale, thickness); sz.Y > lineHeight {
			lineHeight = sz.Y
		}
	}
	step := int(float64(lineHeight) * 1.5 * spacing(style))

	y := style.Origin.Y + lineHeight
	for _, line := range lines {
		gocv.PutText(dst, line, image.Pt(style.Origin.X, y), face, scale, style.Color, thickness)
		y += step
	}
	return nil
}

func spacing(style Style) float64 {
	if style.LineSpacing <= 0 {
		return 1
	}
	return style.LineSpacing
}

var fontDirs = []string{
	"/usr/share/fonts/truetype/msttcorefonts",
	"/usr/share/fonts/truetype/dejavu",
	"/usr/share/fonts/TTF",
	"/usr/share/fonts",
	"/Library/Fonts",
	"/System/Library/Fonts/Supplemental",
	`C:\Windows\Fonts`,
}

func fontCandidates(path string) []string {
	candidates := []string{path}
	if filepath.IsAbs(path) {
		return candidates
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".fonts", path), filepath.Join(home, ".local", "share", "fonts", path))
	}
	for _, dir := range fontDirs {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	return candidates
}
