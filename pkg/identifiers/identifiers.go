package identifiers

import (
	"strings"
	"unicode"
)

// NormalizeISBN strips an optional "ISBN" prefix, hyphens and spaces from
// value and reports whether what remains is a valid ISBN-10 or ISBN-13.
func NormalizeISBN(value string) (string, bool) {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "ISBN-13:")
	value = strings.TrimPrefix(value, "ISBN-10:")
	value = strings.TrimPrefix(value, "ISBN:")
	value = strings.TrimPrefix(value, "ISBN")

	var b strings.Builder
	for _, r := range value {
		switch {
		case unicode.IsDigit(r), r == 'X':
			b.WriteRune(r)
		case r == '-', unicode.IsSpace(r):
		default:
			return "", false
		}
	}
	isbn := b.String()

	switch len(isbn) {
	case 10:
		return isbn, ValidateISBN10(isbn)
	case 13:
		return isbn, ValidateISBN13(isbn)
	}
	return "", false
}

// ValidateISBN10 checks the mod-11 check digit. X is only allowed last.
func ValidateISBN10(isbn string) bool {
	if len(isbn) != 10 {
		return false
	}

	sum := 0
	for i, r := range isbn {
		var digit int
		switch {
		case r == 'X' && i == 9:
			digit = 10
		case r >= '0' && r <= '9':
			digit = int(r - '0')
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

// ValidateISBN13 checks the alternating 1/3 weighted check digit.
func ValidateISBN13(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}

	sum := 0
	for i, r := range isbn {
		if r < '0' || r > '9' {
			return false
		}
		digit := int(r - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	return sum%10 == 0
}

// ToISBN13 converts a valid ISBN-10 into its 978-prefixed ISBN-13 form.
// ISBN-13 values are returned unchanged.
func ToISBN13(isbn string) string {
	if len(isbn) != 10 {
		return isbn
	}
	body := "978" + isbn[:9]
	sum := 0
	for i, r := range body {
		digit := int(r - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	check := (10 - sum%10) % 10
	return body + string(rune('0'+check))
}
