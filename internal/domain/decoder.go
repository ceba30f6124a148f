package domain

import (
	"context"
	"errors"
)

var (
	// ErrInvalidVIN is returned for input that is not a well-formed 17-character VIN.
	ErrInvalidVIN = errors.New("invalid VIN")

	// ErrVINNotFound is returned when the decoder has no make or model for a VIN.
	ErrVINNotFound = errors.New("VIN not found")

	// ErrMalformedRequest is returned for a decode request body that is not valid JSON.
	ErrMalformedRequest = errors.New("malformed decode request")
)

// Decoder resolves a normalized VIN to vehicle details.
type Decoder interface {
	Decode(ctx context.Context, vin string) (Vehicle, error)
}
