// Algorithm registry for the grading pipeline stages
package algorithms

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Algorithm defines the interface for image processing algorithms
type Algorithm interface {
	Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
}

// Registered algorithm names
const (
	NameGrayscale      = "grayscale"
	NameEqualize       = "equalize_hist"
	NameFixedThreshold = "fixed_threshold"
	NameOtsuThreshold  = "otsu_threshold"
	NameOpening        = "opening"
)

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

func Apply(name string, input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("algorithm not found: %s", name)
	}

	return algorithm.Apply(input, params)
}

// Names returns registered algorithm names in sorted order
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithDefaults overlays params on the algorithm's defaults. Neither map is modified.
func WithDefaults(algorithm Algorithm, params map[string]interface{}) map[string]interface{} {
	merged := algorithm.GetDefaultParams()
	if merged == nil {
		merged = make(map[string]interface{}, len(params))
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// intParam reads a numeric parameter, accepting the float64 values YAML and JSON produce
func intParam(params map[string]interface{}, key string, def int) int {
	val, ok := params[key]
	if !ok {
		return def
	}
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func floatParam(params map[string]interface{}, key string, def float64) float64 {
	val, ok := params[key]
	if !ok {
		return def
	}
	switch v := val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

func checkRange(params map[string]interface{}, key string, min, max float64) error {
	if _, ok := params[key]; !ok {
		return nil
	}
	v := floatParam(params, key, min-1)
	if v < min || v > max {
		return fmt.Errorf("%s must be between %v and %v", key, min, max)
	}
	return nil
}

func init() {
	Register(NameGrayscale, NewGrayscale())
	Register(NameEqualize, NewEqualizeHist())

	Register(NameFixedThreshold, NewFixedThreshold())
	Register(NameOtsuThreshold, NewOtsuThreshold())

	Register(NameOpening, NewOpening())
}
