package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// decodeRequest is the JSON form of a batch decode request.
type decodeRequest struct {
	VIN string `json:"vin"`
}

// ParseDecodeRequest extracts a normalized, validated VIN from a message value.
// The value is either {"vin": "..."}, a JSON string, or the bare VIN.
func ParseDecodeRequest(value []byte) (string, error) {
	value = bytes.TrimSpace(value)

	var vin string
	switch {
	case len(value) == 0:
		return "", fmt.Errorf("%w: empty decode request", ErrInvalidVIN)
	case value[0] == '{':
		var req decodeRequest
		if err := json.Unmarshal(value, &req); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedRequest, err)
		}
		vin = req.VIN
	case value[0] == '"':
		if err := json.Unmarshal(value, &vin); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedRequest, err)
		}
	default:
		vin = string(value)
	}

	vin = NormalizeVIN(vin)
	if err := ValidateVIN(vin); err != nil {
		return "", err
	}
	return vin, nil
}
