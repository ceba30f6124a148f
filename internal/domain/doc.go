// Package domain models vehicle identification data decoded from the NHTSA
// vPIC (Vehicle Product Information Catalog) database.
//
// # VIN Structure
//
// A Vehicle Identification Number is 17 characters drawn from the digits and
// the uppercase Latin letters excluding I, O and Q (which read too easily as
// 1 and 0):
//
//	1HG CM8263 3 A 004352
//	│   │      │ │ └ positions 12–17: production sequence number
//	│   │      │ └── position 10: model year code, position 11: plant code
//	│   │      └──── position 9: check digit
//	│   └─────────── positions 4–8: vehicle descriptor section
//	└─────────────── positions 1–3: world manufacturer identifier (WMI)
//
// Input is normalized by trimming whitespace and upper-casing before any
// lookup, so "1hgcm82633a004352 " and "1HGCM82633A004352" share cache and
// history entries. See [NormalizeVIN].
//
// # Check Digit
//
// North American VINs carry a check digit at position 9. Each character is
// transliterated to a number (digits as-is; A=1 … H=8, J=1 … R=9, S=2 … Z=9),
// multiplied by a positional weight (8,7,6,5,4,3,2,10,0,9,8,7,6,5,4,3,2), and
// the sum taken modulo 11, with 10 written as "X". VINs from other regions
// often ignore the rule, so a mismatch is reported by [CheckDigitValid] but
// does not reject the VIN.
//
// # vPIC Conventions
//
// The DecodeVinValues endpoint returns one flat record per VIN with every
// attribute as a string. Unknown attributes are empty strings. ErrorCode "0"
// means a clean decode; other codes are warnings (for example "1 - Check
// Digit (9th position) does not calculate properly") and the record may
// still be usable. A record with neither make nor model is treated as
// [ErrVINNotFound].
package domain
