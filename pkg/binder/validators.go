package binder

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shishobooks/bookhub/pkg/identifiers"
)

var (
	dateRE = regexp.MustCompile(`^\d{4}-(0[0-9]|1[0-2])-(0[0-9]|1[0-9]|2[0-9]|3[0-1])$`)
)

// dateValidator ensures the value matches the format YYYY-MM-DD or the empty
// string. The empty string is allowed so the field can be cleared; add `ne=` to
// the validate tag when it must be set.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return dateRE.MatchString(value)
}

// isbnValidator accepts the empty string or any ISBN-10/ISBN-13 with a valid
// check digit. Hyphens and spaces are ignored.
func isbnValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, ok := identifiers.NormalizeISBN(value)
	return ok
}

// trimmedLengthValidator checks the rune length of the trimmed value against
// a "min-max" param, e.g. `trimmedlen=2-50`.
func trimmedLengthValidator(fl validator.FieldLevel) bool {
	bounds := strings.SplitN(fl.Param(), "-", 2)
	if len(bounds) != 2 {
		return false
	}
	lo, err := strconv.Atoi(bounds[0])
	if err != nil {
		return false
	}
	hi, err := strconv.Atoi(bounds[1])
	if err != nil {
		return false
	}
	n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
	return n >= lo && n <= hi
}
