// Package snowday scores the chance that school closes for winter weather.
//
// The score is a weighted sum of independent factors, scaled by how well the
// district usually copes and clamped to [0, 100].
package snowday

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConditions is returned by Conditions.Validate.
var ErrInvalidConditions = errors.New("invalid conditions")

// Preparedness describes how well a district handles snow.
type Preparedness string

const (
	PreparednessLow    Preparedness = "low"
	PreparednessMedium Preparedness = "medium"
	PreparednessHigh   Preparedness = "high"
)

var preparednessMultiplier = map[Preparedness]float64{
	PreparednessLow:    1.4,
	PreparednessMedium: 1.0,
	PreparednessHigh:   0.7,
}

// Conditions is the forecast for the night before a school day.
type Conditions struct {
	SnowfallInches float64      `json:"snowfallInches" yaml:"snowfallInches"`
	IceInches      float64      `json:"iceInches" yaml:"iceInches"`
	LowTempF       *float64     `json:"lowTempF,omitempty" yaml:"lowTempF,omitempty"`
	WindMPH        float64      `json:"windMph" yaml:"windMph"`
	Overnight      bool         `json:"overnight" yaml:"overnight"` // heaviest snow falls overnight or before the morning commute
	Preparedness   Preparedness `json:"preparedness,omitempty" yaml:"preparedness,omitempty"`
	PriorSnowDays  int          `json:"priorSnowDays" yaml:"priorSnowDays"`
}

// Factor is one contribution to the score, before the preparedness multiplier.
type Factor struct {
	Name   string  `json:"name" yaml:"name"`
	Points float64 `json:"points" yaml:"points"`
}

// Result is the estimate.
type Result struct {
	Probability int      `json:"probability" yaml:"probability"`
	Category    string   `json:"category" yaml:"category"`
	Multiplier  float64  `json:"multiplier" yaml:"multiplier"`
	Factors     []Factor `json:"factors" yaml:"factors"`
}

// Validate rejects negative amounts and unknown preparedness levels.
func (c Conditions) Validate() error {
	switch {
	case c.SnowfallInches < 0 || math.IsNaN(c.SnowfallInches):
		return fmt.Errorf("%w: snowfall must not be negative", ErrInvalidConditions)
	case c.IceInches < 0 || math.IsNaN(c.IceInches):
		return fmt.Errorf("%w: ice must not be negative", ErrInvalidConditions)
	case c.WindMPH < 0 || math.IsNaN(c.WindMPH):
		return fmt.Errorf("%w: wind speed must not be negative", ErrInvalidConditions)
	case c.PriorSnowDays < 0:
		return fmt.Errorf("%w: prior snow days must not be negative", ErrInvalidConditions)
	}
	if _, err := ParsePreparedness(string(c.Preparedness)); err != nil {
		return err
	}
	return nil
}

// ParsePreparedness accepts low, medium or high; empty means medium.
func ParsePreparedness(s string) (Preparedness, error) {
	p := Preparedness(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PreparednessMedium, nil
	}
	if _, ok := preparednessMultiplier[p]; !ok {
		return "", fmt.Errorf("%w: unknown preparedness %q", ErrInvalidConditions, s)
	}
	return p, nil
}

// Estimate scores c. Call Validate first; unknown preparedness is treated as medium.
func Estimate(c Conditions) Result {
	factors := []Factor{
		{Name: "snowfall", Points: math.Min(c.SnowfallInches*10, 60)},
		{Name: "ice", Points: math.Min(c.IceInches*150, 35)},
		{Name: "cold", Points: coldPoints(c.LowTempF)},
		{Name: "wind", Points: windPoints(c.WindMPH)},
	}
	if c.Overnight {
		factors = append(factors, Factor{Name: "overnight timing", Points: 10})
	}
	if c.PriorSnowDays > 0 {
		factors = append(factors, Factor{Name: "prior snow days", Points: -math.Min(float64(c.PriorSnowDays)*3, 15)})
	}

	sum := 0.0
	for _, f := range factors {
		sum += f.Points
	}

	p, err := ParsePreparedness(string(c.Preparedness))
	if err != nil {
		p = PreparednessMedium
	}
	mult := preparednessMultiplier[p]

	prob := int(math.Round(clamp(sum*mult, 0, 100)))
	return Result{
		Probability: prob,
		Category:    category(prob),
		Multiplier:  mult,
		Factors:     factors,
	}
}

func coldPoints(lowF *float64) float64 {
	if lowF == nil {
		return 0
	}
	switch t := *lowF; {
	case t <= 0:
		return 15
	case t <= 15:
		return 8
	case t <= 25:
		return 3
	}
	return 0
}

func windPoints(mph float64) float64 {
	switch {
	case mph >= 30:
		return 10
	case mph >= 20:
		return 5
	}
	return 0
}

func category(prob int) string {
	switch {
	case prob < 10:
		return "No chance"
	case prob < 30:
		return "Unlikely"
	case prob < 55:
		return "Possible"
	case prob < 80:
		return "Likely"
	}
	return "Very likely"
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
