// Package convert holds the length conversions shared by the unit converter
// and the board-foot calculator. All conversions go through inches.
package convert

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownUnit is returned for a unit name that is not recognized.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrInvalidDPI is returned when a pixel conversion has a non-positive DPI.
	ErrInvalidDPI = errors.New("dpi must be positive")
)

// Unit is a length unit.
type Unit string

const (
	Inch       Unit = "in"
	Foot       Unit = "ft"
	Yard       Unit = "yd"
	Millimeter Unit = "mm"
	Centimeter Unit = "cm"
	Meter      Unit = "m"
	Pixel      Unit = "px"
)

// DefaultDPI is the CSS reference pixel density.
const DefaultDPI = 96.0

var inchesPer = map[Unit]float64{
	Inch:       1,
	Foot:       12,
	Yard:       36,
	Millimeter: 1 / 25.4,
	Centimeter: 1 / 2.54,
	Meter:      1 / 0.0254,
}

var unitAliases = map[string]Unit{
	"in": Inch, "inch": Inch, "inches": Inch, `"`: Inch,
	"ft": Foot, "foot": Foot, "feet": Foot, "'": Foot,
	"yd": Yard, "yard": Yard, "yards": Yard,
	"mm": Millimeter, "millimeter": Millimeter, "millimeters": Millimeter,
	"cm": Centimeter, "centimeter": Centimeter, "centimeters": Centimeter,
	"m": Meter, "meter": Meter, "meters": Meter,
	"px": Pixel, "pixel": Pixel, "pixels": Pixel,
}

// Units lists the supported units in display order.
func Units() []Unit {
	return []Unit{Inch, Foot, Yard, Millimeter, Centimeter, Meter, Pixel}
}

// ParseUnit accepts a symbol or a singular/plural name, case-insensitively.
func ParseUnit(s string) (Unit, error) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
	return u, nil
}

func (u Unit) factor(dpi float64) (float64, error) {
	if u == Pixel {
		if dpi <= 0 || math.IsNaN(dpi) || math.IsInf(dpi, 0) {
			return 0, fmt.Errorf("%w: got %v", ErrInvalidDPI, dpi)
		}
		return 1 / dpi, nil
	}
	f, ok := inchesPer[u]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, string(u))
	}
	return f, nil
}

// ToInches converts v in unit u to inches. dpi is only used for pixels.
func ToInches(v float64, u Unit, dpi float64) (float64, error) {
	f, err := u.factor(dpi)
	if err != nil {
		return 0, err
	}
	return v * f, nil
}

// FromInches converts v inches to unit u. dpi is only used for pixels.
func FromInches(v float64, u Unit, dpi float64) (float64, error) {
	f, err := u.factor(dpi)
	if err != nil {
		return 0, err
	}
	return v / f, nil
}

// Convert converts v between two units.
func Convert(v float64, from, to Unit, dpi float64) (float64, error) {
	in, err := ToInches(v, from, dpi)
	if err != nil {
		return 0, err
	}
	return FromInches(in, to, dpi)
}

// Round rounds half-up to the given number of decimal places by
// multiplying, flooring x+0.5 and dividing back.
func Round(x float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Floor(x*f+0.5) / f
}
