// Package grading maps fiber area to the MF-0..MF-3 reticulin fibrosis scale.
package grading

import (
	"math"
	"strconv"
)

// Grade is the ordinal MF grade
type Grade string

const (
	MF0 Grade = "MF-0"
	MF1 Grade = "MF-1"
	MF2 Grade = "MF-2"
	MF3 Grade = "MF-3"
)

// Band edges in percent. An edge belongs to the lower grade.
const (
	MF0Upper = 5.0
	MF1Upper = 15.0
	MF2Upper = 30.0

	MaxLevel = 3.0
)

// Result is the grade and the continuous level in [0, 3]
type Result struct {
	Grade Grade   `json:"mf_grade" yaml:"mf_grade"`
	Level float64 `json:"mf_level" yaml:"mf_level"`
}

func (g Grade) String() string {
	return string(g)
}

// Grades lists the scale in ascending order
func Grades() []Grade {
	return []Grade{MF0, MF1, MF2, MF3}
}

// Map grades a fiber percentage. Negative and NaN inputs count as 0.
//
//	[0, 5]    MF-0  p/10
//	(5, 15]   MF-1  0.5 + (p-5)/10
//	(15, 30]  MF-2  1.5 + (p-15)/15
//	(30, inf) MF-3  min(2.5 + (p-30)/30, 3)
func Map(fiberPercent float64) Result {
	p := fiberPercent
	if math.IsNaN(p) || p < 0 {
		p = 0
	}

	switch {
	case p <= MF0Upper:
		return Result{Grade: MF0, Level: round2(p / 10)}
	case p <= MF1Upper:
		return Result{Grade: MF1, Level: round2(0.5 + (p-MF0Upper)/10)}
	case p <= MF2Upper:
		return Result{Grade: MF2, Level: round2(1.5 + (p-MF1Upper)/15)}
	default:
		return Result{Grade: MF3, Level: round2(math.Min(2.5+(p-MF2Upper)/30, MaxLevel))}
	}
}

// round2 rounds the exact binary value to two decimals, ties to even.
// Scaling by 100 first would round 0.075 (stored as 0.07499...) up.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
