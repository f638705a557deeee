package flow

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m3rciful/shopbot/internal/shop"
)

const (
	nameMinRunes    = 2
	nameMaxRunes    = 64
	addressMinRunes = 10
	phoneMinDigits  = 7
	phoneMaxDigits  = 15
	commentMaxRunes = 1000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func invalid(field, reason string) error {
	return &shop.ValidationError{Field: field, Reason: reason}
}

// ValidateComment trims a review comment and rejects one over
// commentMaxRunes instead of cutting it.
func ValidateComment(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > commentMaxRunes {
		return "", invalid("comment", shop.ReasonTooLong)
	}
	return s, nil
}

// ValidateName trims s and checks its length in runes.
func ValidateName(s string) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	switch {
	case n < nameMinRunes:
		return "", invalid("name", shop.ReasonTooShort)
	case n > nameMaxRunes:
		return "", invalid("name", shop.ReasonTooLong)
	}
	return s, nil
}

// NormalizePhone keeps a leading plus and the digits of s, dropping spaces,
// dashes and parentheses.
func NormalizePhone(s string) (string, error) {
	s = strings.TrimSpace(s)
	var b strings.Builder
	digits := 0
	for i, r := range s {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case unicode.IsDigit(r) && r < utf8.RuneSelf:
			b.WriteRune(r)
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", invalid("phone", shop.ReasonInvalidPhone)
		}
	}
	if digits < phoneMinDigits || digits > phoneMaxDigits {
		return "", invalid("phone", shop.ReasonInvalidPhone)
	}
	return b.String(), nil
}

// ValidateEmail checks the local@domain.tld shape and lowercases the result.
func ValidateEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !emailPattern.MatchString(s) {
		return "", invalid("email", shop.ReasonInvalidEmail)
	}
	return strings.ToLower(s), nil
}

// ValidateAddress requires a reasonably complete delivery address.
func ValidateAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < addressMinRunes {
		return "", invalid("address", shop.ReasonTooShort)
	}
	return s, nil
}

// ParseStars accepts 1 to 5, optionally followed by star emoji.
func ParseStars(s string) (int, error) {
	s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "⭐"))
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 5 {
		return 0, invalid("stars", shop.ReasonOutOfRange)
	}
	return n, nil
}

// ParseOrderRef accepts an order number with an optional leading '#'.
func ParseOrderRef(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("order_ref", shop.ReasonNotNumber)
	}
	return id, nil
}
