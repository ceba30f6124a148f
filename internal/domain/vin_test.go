package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVIN(t *testing.T) {
	assert.Equal(t, "1HGCM82633A004352", NormalizeVIN("  1hgcm82633a004352\n"))
	assert.Equal(t, "", NormalizeVIN("   "))
}

func TestValidateVIN(t *testing.T) {
	tests := []struct {
		name    string
		vin     string
		wantErr bool
	}{
		{name: "valid honda", vin: "1HGCM82633A004352"},
		{name: "valid with X check digit", vin: "1M8GDM9AXKP042788"},
		{name: "too short", vin: "1HGCM82633A00435", wantErr: true},
		{name: "too long", vin: "1HGCM82633A0043521", wantErr: true},
		{name: "contains I", vin: "1HGCM82633AI04352", wantErr: true},
		{name: "contains O", vin: "1HGCM82633AO04352", wantErr: true},
		{name: "contains Q", vin: "1HGCM82633AQ04352", wantErr: true},
		{name: "lowercase not normalized", vin: "1hgcm82633a004352", wantErr: true},
		{name: "empty", vin: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVIN(tt.vin)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidVIN)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, byte('3'), CheckDigit("1HGCM82633A004352"))
	assert.Equal(t, byte('X'), CheckDigit("1M8GDM9AXKP042788"))
	assert.Equal(t, byte('1'), CheckDigit("JH4KA7561PC008269"))
}

func TestCheckDigitValid(t *testing.T) {
	assert.True(t, CheckDigitValid("1HGCM82633A004352"))
	assert.True(t, CheckDigitValid("1M8GDM9AXKP042788"))
	// European VINs commonly ignore the check digit.
	assert.False(t, CheckDigitValid("WBA3A5C51CF256551"))
	assert.False(t, CheckDigitValid("short"))
}

func TestNewHistoryItem(t *testing.T) {
	at := time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)
	v := Vehicle{VIN: "1HGCM82633A004352", Make: "HONDA", Model: "Accord", Year: "2003"}

	item := NewHistoryItem(v, at)

	assert.Equal(t, "1HGCM82633A004352-1714144200000", item.ID)
	assert.Equal(t, "HONDA", item.Make)
	assert.Equal(t, "Accord", item.Model)
	assert.Equal(t, "2003", item.Year)
	assert.Equal(t, at.UnixMilli(), item.Timestamp)
	assert.Equal(t, v, item.Vehicle)
	assert.True(t, item.Valid())
}

func TestHistoryItem_Valid(t *testing.T) {
	good := NewHistoryItem(Vehicle{VIN: "1HGCM82633A004352", Make: "HONDA"}, time.Unix(1, 0))

	missingID := good
	missingID.ID = ""
	modelOnly := NewHistoryItem(Vehicle{VIN: "1HGCM82633A004352", Model: "Sprinter"}, time.Unix(1, 0))
	noMakeOrModel := good
	noMakeOrModel.Make = ""
	missingPayload := good
	missingPayload.Vehicle = Vehicle{}
	zeroTime := good
	zeroTime.Timestamp = 0

	assert.True(t, good.Valid())
	assert.False(t, missingID.Valid())
	assert.True(t, modelOnly.Valid())
	assert.False(t, noMakeOrModel.Valid())
	assert.False(t, missingPayload.Valid())
	assert.False(t, zeroTime.Valid())
}
