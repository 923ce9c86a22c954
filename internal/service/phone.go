package service

import "strings"

const (
	countryPrefix = "250"
	msisdnLength  = 12
)

// NormalizeMSISDN strips everything but digits and requires the Rwandan
// 250XXXXXXXXX form. The local trunk form 07XXXXXXXX is rewritten to it.
func NormalizeMSISDN(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == msisdnLength-len(countryPrefix)+1 && digits[0] == '0' {
		digits = countryPrefix + digits[1:]
	}
	if !strings.HasPrefix(digits, countryPrefix) || len(digits) != msisdnLength {
		return "", &ValidationError{Reason: ErrInvalidPhoneFormat}
	}
	return digits, nil
}
