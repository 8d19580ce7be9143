package io

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	stdio "io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"reticulin-grading/internal/core"
)

func newTestLoader() *ImageLoader {
	logger := logrus.New()
	logger.SetOutput(stdio.Discard)
	return NewImageLoader(logger)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// bgrAt reads the three channels at (x, y) of the decoded source
func bgrAt(src *core.SourceImage, x, y int) [3]uint8 {
	m := src.Mat()
	v := m.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

func TestDecodePNGToBGR(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.Set(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	img.Set(3, 2, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	src, err := newTestLoader().Decode(encodePNG(t, img), "slide.png")
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 4, src.Width())
	assert.Equal(t, 3, src.Height())
	srcMat := src.Mat()
	assert.Equal(t, 3, srcMat.Channels())
	assert.Equal(t, [3]uint8{50, 100, 200}, bgrAt(src, 0, 0))
	assert.Equal(t, [3]uint8{3, 2, 1}, bgrAt(src, 3, 2))
	assert.Equal(t, "slide.png", src.Filename())
}

func TestDecodeDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 0})

	src, err := newTestLoader().Decode(encodePNG(t, img), "alpha.png")
	require.NoError(t, err)
	defer src.Close()

	srcMat := src.Mat()
	assert.Equal(t, 3, srcMat.Channels())
	assert.Equal(t, [3]uint8{30, 20, 10}, bgrAt(src, 1, 1))
}

func TestDecodeGrayAndPaletted(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 3))
	gray.SetGray(1, 2, color.Gray{Y: 77})

	src, err := newTestLoader().Decode(encodePNG(t, gray), "gray.png")
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{77, 77, 77}, bgrAt(src, 1, 2))
	src.Close()

	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{
		color.RGBA{A: 255},
		color.RGBA{R: 0, G: 128, B: 255, A: 255},
	})
	pal.SetColorIndex(0, 1, 1)

	src, err = newTestLoader().Decode(encodePNG(t, pal), "paletted.png")
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, [3]uint8{255, 128, 0}, bgrAt(src, 0, 1))
	assert.Equal(t, [3]uint8{0, 0, 0}, bgrAt(src, 1, 1))
}

func TestDecodeJPEGAndTIFF(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}

	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, img, &jpeg.Options{Quality: 95}))
	src, err := newTestLoader().Decode(jpg.Bytes(), "slide.jpg")
	require.NoError(t, err)
	assert.Equal(t, 16, src.Width())
	assert.Equal(t, 8, src.Height())
	src.Close()

	var tif bytes.Buffer
	require.NoError(t, tiff.Encode(&tif, img, nil))
	src, err = newTestLoader().Decode(tif.Bytes(), "slide.tif")
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, [3]uint8{128, 128, 128}, bgrAt(src, 5, 5))
}

func TestDecodeFailuresAreDecodeErrors(t *testing.T) {
	var gifBuf bytes.Buffer
	require.NoError(t, gif.Encode(&gifBuf, image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White}), nil))

	valid := encodePNG(t, image.NewGray(image.Rect(0, 0, 8, 8)))

	cases := map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("definitely not an image"),
		"truncated": valid[:len(valid)/2],
		"gif":       gifBuf.Bytes(),
	}

	loader := newTestLoader()
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			src, err := loader.Decode(data, name)
			assert.Nil(t, src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrDecode), "got %v", err)
		})
	}
}

func TestEncodePNGRoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	img.Set(2, 2, color.NRGBA{R: 9, G: 99, B: 199, A: 255})

	loader := newTestLoader()
	src, err := loader.Decode(encodePNG(t, img), "in.png")
	require.NoError(t, err)
	defer src.Close()

	out, err := loader.EncodePNG(src.Mat())
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	r, g, b, _ := decoded.At(2, 2).RGBA()
	assert.Equal(t, []uint32{9, 99, 199}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestSupportedFiles(t *testing.T) {
	assert.True(t, IsSupportedImageFile("a/b/slide.TIF"))
	assert.True(t, IsSupportedImageFile("slide.jpeg"))
	assert.False(t, IsSupportedImageFile("slide.gif"))
	assert.False(t, IsSupportedImageFile("notes"))
	assert.Contains(t, SupportedExtensions(), ".png")
}
