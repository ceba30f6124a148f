package domain

import (
	"fmt"
	"time"
)

// Vehicle is the decoded result for a single VIN.
type Vehicle struct {
	VIN             string `json:"vin" yaml:"vin"`
	Make            string `json:"make" yaml:"make"`
	Model           string `json:"model" yaml:"model"`
	Year            string `json:"year" yaml:"year"`
	Trim            string `json:"trim,omitempty" yaml:"trim,omitempty"`
	Series          string `json:"series,omitempty" yaml:"series,omitempty"`
	Manufacturer    string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	VehicleType     string `json:"vehicleType,omitempty" yaml:"vehicleType,omitempty"`
	BodyClass       string `json:"bodyClass,omitempty" yaml:"bodyClass,omitempty"`
	DriveType       string `json:"driveType,omitempty" yaml:"driveType,omitempty"`
	FuelType        string `json:"fuelType,omitempty" yaml:"fuelType,omitempty"`
	EngineCylinders string `json:"engineCylinders,omitempty" yaml:"engineCylinders,omitempty"`
	DisplacementL   string `json:"displacementL,omitempty" yaml:"displacementL,omitempty"`
	Transmission    string `json:"transmission,omitempty" yaml:"transmission,omitempty"`
	Doors           string `json:"doors,omitempty" yaml:"doors,omitempty"`
	PlantCity       string `json:"plantCity,omitempty" yaml:"plantCity,omitempty"`
	PlantCountry    string `json:"plantCountry,omitempty" yaml:"plantCountry,omitempty"`
	ErrorCode       string `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`
	ErrorText       string `json:"errorText,omitempty" yaml:"errorText,omitempty"`
}

// HistoryItem is one entry of the recent-lookups list. Make, model and year
// are copied out of the payload so the list can be shown without re-decoding.
type HistoryItem struct {
	ID        string  `json:"id" yaml:"id"`
	VIN       string  `json:"vin" yaml:"vin"`
	Make      string  `json:"make" yaml:"make"`
	Model     string  `json:"model" yaml:"model"`
	Year      string  `json:"year" yaml:"year"`
	Timestamp int64   `json:"timestamp" yaml:"timestamp"` // epoch milliseconds
	Vehicle   Vehicle `json:"vehicle" yaml:"vehicle"`
}

// NewHistoryItem builds a history entry for v recorded at the given time.
func NewHistoryItem(v Vehicle, at time.Time) HistoryItem {
	ms := at.UnixMilli()
	return HistoryItem{
		ID:        fmt.Sprintf("%s-%d", v.VIN, ms),
		VIN:       v.VIN,
		Make:      v.Make,
		Model:     v.Model,
		Year:      v.Year,
		Timestamp: ms,
		Vehicle:   v,
	}
}

// Valid reports whether every field needed to display and re-open the item is
// present. A make or a model is enough, the same rule the decoder applies.
func (h HistoryItem) Valid() bool {
	return h.ID != "" && h.VIN != "" && (h.Make != "" || h.Model != "") && h.Timestamp > 0 && h.Vehicle.VIN != ""
}

// Lookup sources.
const (
	SourceCache = "cache"
	SourceAPI   = "api"
)

// LookupResult is what a VIN lookup hands back to callers.
type LookupResult struct {
	Vehicle         Vehicle `json:"vehicle" yaml:"vehicle"`
	Source          string  `json:"source" yaml:"source"`
	CheckDigitValid bool    `json:"checkDigitValid" yaml:"checkDigitValid"`
}

// LookupEvent is published for every successful lookup.
type LookupEvent struct {
	VIN        string    `json:"vin" yaml:"vin"`
	Vehicle    Vehicle   `json:"vehicle" yaml:"vehicle"`
	Source     string    `json:"source" yaml:"source"`
	LookedUpAt time.Time `json:"looked_up_at" yaml:"looked_up_at"`
}
