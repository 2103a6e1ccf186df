// Package phone normalizes phone numbers to E.164.
package phone

import (
	"errors"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers written without a country code.
const DefaultRegion = "US"

// ErrInvalid is returned for input that cannot be coerced to E.164.
var ErrInvalid = errors.New("invalid phone number")

// Normalize coerces raw to E.164. Numbers without a leading + are parsed as
// DefaultRegion numbers. Only the length is checked against the numbering
// plan, so reserved ranges such as 555-01xx are accepted.
func Normalize(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", ErrInvalid
	}

	if !phonenumbers.IsPossibleNumber(num) {
		return "", ErrInvalid
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Equal reports whether a and b normalize to the same number.
func Equal(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}

	nb, err := Normalize(b)
	if err != nil {
		return false
	}

	return na == nb
}
