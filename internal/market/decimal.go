package market

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yanun0323/decimal"

	"trader/pkg/exception"
)

// decimal.Decimal is a string underneath and JSON decoding copies the raw
// text into it, so every literal is checked against this grammar before use.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseDecimal parses a plain decimal literal such as "0.015".
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !decimalLiteral.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", exception.ErrInvalidDecimal, s)
	}
	d, err := decimal.New(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", exception.ErrInvalidDecimal, s, err)
	}
	return d, nil
}

// ParsePositiveDecimal is ParseDecimal that also rejects values <= 0.
func ParsePositiveDecimal(s string) (decimal.Decimal, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return d, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q must be > 0", exception.ErrInvalidDecimal, strings.TrimSpace(s))
	}
	return d, nil
}

// CheckDecimal validates a value that was decoded straight from JSON.
// An absent field decodes to "" and counts as zero.
func CheckDecimal(d decimal.Decimal) error {
	if len(d) == 0 {
		return nil
	}
	_, err := ParseDecimal(string(d))
	return err
}

// MustDecimal is ParseDecimal for literals known to be valid.
func MustDecimal(s string) decimal.Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}
