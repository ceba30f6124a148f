package convert

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidDimension is returned for a non-positive dimension or quantity.
	ErrInvalidDimension = errors.New("invalid dimension")

	// ErrInvalidPrecision is returned for a precision outside 0-3.
	ErrInvalidPrecision = errors.New("precision must be between 0 and 3")
)

const (
	// DefaultPrecision is the number of decimals shown by the calculator.
	DefaultPrecision = 2
	// MaxPrecision is the largest supported number of decimals.
	MaxPrecision = 3

	cubicInchesPerBoardFoot = 144
)

// Dimension is a length with its own unit. An empty unit means inches.
type Dimension struct {
	Value float64 `json:"value" yaml:"value"`
	Unit  Unit    `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// BoardInput describes one board-foot calculation.
type BoardInput struct {
	Length            Dimension `json:"length" yaml:"length"`
	Width             Dimension `json:"width" yaml:"width"`
	Thickness         Dimension `json:"thickness" yaml:"thickness"`
	Quantity          int       `json:"quantity" yaml:"quantity"` // zero means one piece
	Precision         int       `json:"precision" yaml:"precision"`
	PricePerBoardFoot float64   `json:"pricePerBoardFoot,omitempty" yaml:"pricePerBoardFoot,omitempty"`
}

// BoardResult is the outcome of a board-foot calculation.
type BoardResult struct {
	LengthIn    float64  `json:"lengthIn" yaml:"lengthIn"`
	WidthIn     float64  `json:"widthIn" yaml:"widthIn"`
	ThicknessIn float64  `json:"thicknessIn" yaml:"thicknessIn"`
	Quantity    int      `json:"quantity" yaml:"quantity"`
	PerPiece    float64  `json:"perPiece" yaml:"perPiece"`
	BoardFeet   float64  `json:"boardFeet" yaml:"boardFeet"`
	TotalCost   *float64 `json:"totalCost,omitempty" yaml:"totalCost,omitempty"`
}

// BoardFeet computes (L×W×T)/144 × quantity with every dimension converted
// to inches, rounded half-up to in.Precision decimals.
func BoardFeet(in BoardInput) (BoardResult, error) {
	if in.Precision < 0 || in.Precision > MaxPrecision {
		return BoardResult{}, fmt.Errorf("%w: got %d", ErrInvalidPrecision, in.Precision)
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return BoardResult{}, fmt.Errorf("%w: quantity %d", ErrInvalidDimension, qty)
	}
	if in.PricePerBoardFoot < 0 || math.IsNaN(in.PricePerBoardFoot) {
		return BoardResult{}, fmt.Errorf("%w: price per board foot %v", ErrInvalidDimension, in.PricePerBoardFoot)
	}

	l, err := dimensionInches("length", in.Length)
	if err != nil {
		return BoardResult{}, err
	}
	w, err := dimensionInches("width", in.Width)
	if err != nil {
		return BoardResult{}, err
	}
	t, err := dimensionInches("thickness", in.Thickness)
	if err != nil {
		return BoardResult{}, err
	}

	perPiece := l * w * t / cubicInchesPerBoardFoot
	total := perPiece * float64(qty)

	res := BoardResult{
		LengthIn:    l,
		WidthIn:     w,
		ThicknessIn: t,
		Quantity:    qty,
		PerPiece:    Round(perPiece, in.Precision),
		BoardFeet:   Round(total, in.Precision),
	}
	if in.PricePerBoardFoot > 0 {
		cost := Round(total*in.PricePerBoardFoot, 2)
		res.TotalCost = &cost
	}
	return res, nil
}

func dimensionInches(name string, d Dimension) (float64, error) {
	if d.Value <= 0 || math.IsNaN(d.Value) || math.IsInf(d.Value, 0) {
		return 0, fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidDimension, name, d.Value)
	}
	u := Inch
	if d.Unit != "" {
		var err error
		if u, err = ParseUnit(string(d.Unit)); err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
	}
	if u == Pixel {
		return 0, fmt.Errorf("%w: %s cannot be measured in pixels", ErrUnknownUnit, name)
	}
	return ToInches(d.Value, u, DefaultDPI)
}
