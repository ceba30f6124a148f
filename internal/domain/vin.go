package domain

import (
	"fmt"
	"strings"
)

// VINLength is the number of characters in a modern (1981+) VIN.
const VINLength = 17

var vinWeights = [VINLength]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// NormalizeVIN trims surrounding whitespace and upper-cases the VIN. It is
// also the key normalization used by the cache, history and deduplicator.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// ValidateVIN checks length and alphabet of an already-normalized VIN.
func ValidateVIN(vin string) error {
	if len(vin) != VINLength {
		return fmt.Errorf("%w: must be %d characters, got %d", ErrInvalidVIN, VINLength, len(vin))
	}
	for i := 0; i < len(vin); i++ {
		if _, ok := transliterate(vin[i]); !ok {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidVIN, vin[i], i+1)
		}
	}
	return nil
}

// CheckDigit computes the expected position-9 check digit. The VIN must already be valid.
func CheckDigit(vin string) byte {
	sum := 0
	for i := 0; i < VINLength; i++ {
		v, _ := transliterate(vin[i])
		sum += v * vinWeights[i]
	}
	r := sum % 11
	if r == 10 {
		return 'X'
	}
	return byte('0' + r)
}

// CheckDigitValid reports whether position 9 matches the computed check digit.
func CheckDigitValid(vin string) bool {
	if ValidateVIN(vin) != nil {
		return false
	}
	return vin[8] == CheckDigit(vin)
}

func transliterate(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'H':
		return int(c-'A') + 1, true
	case c >= 'J' && c <= 'N':
		return int(c-'J') + 1, true
	case c == 'P':
		return 7, true
	case c == 'R':
		return 9, true
	case c >= 'S' && c <= 'Z':
		return int(c-'S') + 2, true
	}
	return 0, false
}
