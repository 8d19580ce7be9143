package annotate

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"reticulin-grading/internal/core"
	"reticulin-grading/internal/grading"
)

type failingRenderer struct {
	calls int
}

func (f *failingRenderer) Name() string { return "broken" }

func (f *failingRenderer) Draw(dst *gocv.Mat, lines []string, style Style) error {
	f.calls++
	// scribble first so a leaked partial draw would be visible
	dst.SetTo(gocv.NewScalar(0, 0, 0, 0))
	return errors.New("glyph cache exploded")
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func whiteSource(t *testing.T, w, h int) *core.SourceImage {
	t.Helper()
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), h, w, gocv.MatTypeCV8UC3)
	src, err := core.NewSourceImage(mat, "white.png")
	require.NoError(t, err)
	return src
}

func changedPixels(t *testing.T, a, b gocv.Mat) int {
	t.Helper()
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)
	g := gocv.NewMat()
	defer g.Close()
	gocv.CvtColor(diff, &g, gocv.ColorBGRToGray)
	return gocv.CountNonZero(g)
}

func TestLines(t *testing.T) {
	lines := Lines(12.3456, grading.Result{Grade: grading.MF1, Level: 1.23})
	assert.Equal(t, []string{
		"Reticulin Area: 12.35%",
		"MF Grade: MF-1",
		"MF Level: 1.23",
	}, lines)
}

func TestBuiltinRendererDraws(t *testing.T) {
	src := whiteSource(t, 400, 120)
	defer src.Close()

	r, err := NewBuiltinRenderer(24)
	require.NoError(t, err)
	a := NewAnnotatorWithRenderers(DefaultStyle(), quietLogger(), r)

	ann, err := a.Annotate(src, 42, grading.Map(42))
	require.NoError(t, err)
	defer ann.Image.Close()

	assert.Equal(t, "go-regular", ann.Renderer)
	assert.Equal(t, src.Width(), ann.Image.Cols())
	assert.Equal(t, src.Height(), ann.Image.Rows())
	assert.Equal(t, 3, ann.Image.Channels())
	assert.Greater(t, changedPixels(t, src.Mat(), ann.Image), 0)

	// text is red: somewhere a pixel lost blue and green but kept red
	found := false
	for y := 0; y < ann.Image.Rows() && !found; y++ {
		for x := 0; x < ann.Image.Cols(); x++ {
			v := ann.Image.GetVecbAt(y, x)
			if v[2] > 200 && v[0] < 80 && v[1] < 80 {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "expected red text pixels")
}

func TestFallbackAfterRendererFailure(t *testing.T) {
	src := whiteSource(t, 300, 100)
	defer src.Close()

	broken := &failingRenderer{}
	a := NewAnnotatorWithRenderers(DefaultStyle(), quietLogger(), broken)
	assert.Equal(t, []string{"broken", "hershey-simplex"}, a.RendererNames())

	ann, err := a.Annotate(src, 3.5, grading.Map(3.5))
	require.NoError(t, err)
	defer ann.Image.Close()

	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, "hershey-simplex", ann.Renderer)

	changed := changedPixels(t, src.Mat(), ann.Image)
	assert.Greater(t, changed, 0)
	assert.Less(t, changed, 300*100, "the failed renderer's scribble must not leak")
}

func TestAnnotateLeavesSourceUntouched(t *testing.T) {
	src := whiteSource(t, 200, 80)
	defer src.Close()
	before := src.Clone()
	defer before.Close()

	a := NewAnnotator(DefaultStyle(), "", quietLogger())
	ann, err := a.Annotate(src, 50, grading.Map(50))
	require.NoError(t, err)
	ann.Image.Close()

	srcMat := src.Mat()
	assert.Equal(t, before.ToBytes(), srcMat.ToBytes())
}

func TestMissingFontFallsBackToBuiltin(t *testing.T) {
	a := NewAnnotator(DefaultStyle(), "no-such-font-anywhere.ttf", quietLogger())
	assert.Equal(t, []string{"go-regular", "hershey-simplex"}, a.RendererNames())

	_, err := LoadTrueTypeFile("", 12)
	assert.Error(t, err)
}

func TestAnnotateEmptySource(t *testing.T) {
	a := NewAnnotator(DefaultStyle(), "", quietLogger())
	ann, err := a.Annotate(nil, 0, grading.Map(0))
	defer ann.Image.Close()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrProcessing))
}

func TestNewTrueTypeRendererRejectsGarbage(t *testing.T) {
	_, err := NewTrueTypeRenderer("junk", []byte("not a font"), 12)
	assert.Error(t, err)
}
