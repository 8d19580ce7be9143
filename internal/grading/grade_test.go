package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapBands(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		grade   Grade
		level   float64
	}{
		{"zero", 0, MF0, 0},
		{"low mf0", 2.5, MF0, 0.25},
		{"mf0 edge", 5, MF0, 0.5},
		{"just above mf0", 5.01, MF1, 0.5},
		{"mid mf1", 10, MF1, 1.0},
		{"mf1 edge", 15, MF1, 1.5},
		{"mid mf2", 20, MF2, 1.83},
		{"mf2 edge", 30, MF2, 2.5},
		{"low mf3", 45, MF3, 3.0},
		{"mf3 partial", 36, MF3, 2.7},
		{"full", 100, MF3, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Map(tt.percent)
			assert.Equal(t, tt.grade, got.Grade)
			assert.InDelta(t, tt.level, got.Level, 1e-9)
		})
	}
}

func TestMapMF0Formula(t *testing.T) {
	for i := 0; i <= 100; i++ {
		p := float64(i) / 20
		got := Map(p)
		assert.Equal(t, MF0, got.Grade, "percent %v", p)
		assert.InDelta(t, p/10, got.Level, 0.005+1e-12, "percent %v", p)
	}
}

// Levels are rounded from the stored double, so a product like 0.75/10
// (0.07499...) rounds down.
func TestMapLevelRounding(t *testing.T) {
	tests := []struct {
		fiber, total int
		level        float64
	}{
		{3, 400, 0.07},    // p = 0.75
		{5, 400, 0.12},    // p = 1.25
		{17, 400, 0.42},   // p = 4.25
		{25, 400, 0.62},   // p = 6.25
		{1, 8, 1.25},      // p = 12.5
		{1, 3, 2.61},      // p = 33.33...
		{20, 100, 1.83},
	}

	for _, tt := range tests {
		p := float64(tt.fiber) / float64(tt.total) * 100
		assert.Equal(t, tt.level, Map(p).Level, "%d of %d (p=%v)", tt.fiber, tt.total, p)
	}
}

func TestRound2(t *testing.T) {
	tests := map[float64]float64{
		0.075:  0.07,
		0.125:  0.12,
		0.375:  0.38,
		0.625:  0.62,
		1.005:  1,
		2.675:  2.67,
		0.4:    0.4,
		1.8333: 1.83,
		3:      3,
	}
	for in, want := range tests {
		assert.Equal(t, want, round2(in), "round2(%v)", in)
	}
}

func TestMapBoundaryContinuity(t *testing.T) {
	edges := []struct {
		edge  float64
		level float64
		lower Grade
		upper Grade
	}{
		{MF0Upper, 0.5, MF0, MF1},
		{MF1Upper, 1.5, MF1, MF2},
		{MF2Upper, 2.5, MF2, MF3},
	}

	for _, e := range edges {
		at := Map(e.edge)
		assert.Equal(t, e.lower, at.Grade, "edge %v belongs to the lower grade", e.edge)
		assert.InDelta(t, e.level, at.Level, 1e-9)

		above := Map(math.Nextafter(e.edge, math.Inf(1)))
		assert.Equal(t, e.upper, above.Grade)
		assert.InDelta(t, e.level, above.Level, 1e-9)
	}
}

func TestMapSaturates(t *testing.T) {
	for _, p := range []float64{60, 90, 100, 300, 1e6, math.Inf(1)} {
		got := Map(p)
		assert.Equal(t, MF3, got.Grade)
		assert.Equal(t, MaxLevel, got.Level)
	}
}

func TestMapMonotonic(t *testing.T) {
	rank := map[Grade]int{}
	for i, g := range Grades() {
		rank[g] = i
	}

	prev := Map(0)
	for i := 1; i <= 10000; i++ {
		p := float64(i) / 100
		cur := Map(p)
		assert.GreaterOrEqual(t, cur.Level, prev.Level, "level decreased at %v", p)
		assert.GreaterOrEqual(t, rank[cur.Grade], rank[prev.Grade], "grade decreased at %v", p)
		prev = cur
	}
}

func TestMapInvalidInput(t *testing.T) {
	assert.Equal(t, Result{Grade: MF0, Level: 0}, Map(-3))
	assert.Equal(t, Result{Grade: MF0, Level: 0}, Map(math.NaN()))
}

func TestGradesAscending(t *testing.T) {
	assert.Equal(t, []Grade{MF0, MF1, MF2, MF3}, Grades())
	assert.Equal(t, "MF-2", MF2.String())
}
