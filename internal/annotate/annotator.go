// Package annotate overlays grading results on a copy of the source image.
package annotate

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"reticulin-grading/internal/core"
	"reticulin-grading/internal/grading"
)

// Annotator holds the renderer chain resolved at construction time
type Annotator struct {
	style     Style
	renderers []Renderer
	logger    *logrus.Logger
}

// Annotation is the rendered copy plus the renderer that produced it
type Annotation struct {
	Image    gocv.Mat
	Renderer string
}

// NewAnnotator resolves the renderer chain: the configured font file, the
// built-in Go font, then the Hershey vector font which is always available.
func NewAnnotator(style Style, fontPath string, logger *logrus.Logger) *Annotator {
	a := &Annotator{style: style, logger: logger}

	if fontPath != "" {
		if r, err := LoadTrueTypeFile(fontPath, style.FontSize); err == nil {
			a.renderers = append(a.renderers, r)
		} else {
			logger.WithFields(logrus.Fields{
				"font":  fontPath,
				"error": err,
			}).Warn("Configured font unavailable, using built-in font")
		}
	}

	if r, err := NewBuiltinRenderer(style.FontSize); err == nil {
		a.renderers = append(a.renderers, r)
	} else {
		logger.WithError(err).Warn("Built-in font unavailable, using Hershey font")
	}

	a.renderers = append(a.renderers, NewHersheyRenderer())

	logger.WithField("renderers", a.RendererNames()).Debug("Annotator ready")
	return a
}

// NewAnnotatorWithRenderers builds an annotator over an explicit chain
func NewAnnotatorWithRenderers(style Style, logger *logrus.Logger, renderers ...Renderer) *Annotator {
	chain := append([]Renderer{}, renderers...)
	chain = append(chain, NewHersheyRenderer())
	return &Annotator{style: style, renderers: chain, logger: logger}
}

// Lines is the three-line overlay text
func Lines(fiberPercent float64, result grading.Result) []string {
	return []string{
		fmt.Sprintf("Reticulin Area: %.2f%%", fiberPercent),
		fmt.Sprintf("MF Grade: %s", result.Grade),
		fmt.Sprintf("MF Level: %.2f", result.Level),
	}
}

// Annotate draws on a fresh copy of src. Renderer failures are logged as
// render errors and the next renderer is tried; src is never modified.
func (a *Annotator) Annotate(src *core.SourceImage, fiberPercent float64, result grading.Result) (Annotation, error) {
	if src == nil {
		return Annotation{Image: gocv.NewMat()}, core.ProcessingError("annotate", fmt.Errorf("source image is empty"))
	}
	if srcMat := src.Mat(); srcMat.Empty() {
		return Annotation{Image: gocv.NewMat()}, core.ProcessingError("annotate", fmt.Errorf("source image is empty"))
	}

	lines := Lines(fiberPercent, result)
	log := a.logger.WithField("filename", src.Filename())

	for _, r := range a.renderers {
		out := src.Clone()
		if err := r.Draw(&out, lines, a.style); err != nil {
			out.Close()
			log.WithFields(logrus.Fields{
				"renderer": r.Name(),
				"error":    core.RenderError(r.Name(), err),
			}).Warn("Renderer failed, falling back")
			continue
		}

		log.WithField("renderer", r.Name()).Debug("Annotation rendered")
		return Annotation{Image: out, Renderer: r.Name()}, nil
	}

	log.Error("All renderers failed, returning unannotated copy")
	return Annotation{Image: src.Clone(), Renderer: "none"}, nil
}

// RendererNames lists the chain in priority order
func (a *Annotator) RendererNames() []string {
	names := make([]string, len(a.renderers))
	for i, r := range a.renderers {
		names[i] = r.Name()
	}
	return names
}
