// Package plate provides license plate text normalisation, validation and
// crop region helpers.
package plate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/stat"
)

// ErrInvalidPlate is returned when plate text fails validation
var ErrInvalidPlate = errors.New("invalid plate text")

// DefaultAllowlist is the set of characters accepted on a plate
const DefaultAllowlist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Allowlist is the set of characters accepted in plate text
type Allowlist map[rune]bool

// ParseAllowlist creates an Allowlist from a string of characters where
// ranges can be written as "0-9A-Z"
func ParseAllowlist(spec string) (Allowlist, error) {

	runes := []rune(spec)
	allow := make(Allowlist)

	for i := 0; i < len(runes); i++ {
		// range such as A-Z
		if i+2 < len(runes) && runes[i+1] == '-' {
			from, to := runes[i], runes[i+2]

			if from > to {
				return nil, fmt.Errorf("invalid allowlist range %c-%c", from, to)
			}

			for r := from; r <= to; r++ {
				allow[r] = true
			}

			i += 2
			continue
		}

		allow[runes[i]] = true
	}

	if len(allow) == 0 {
		return nil, errors.New("empty allowlist")
	}

	return allow, nil
}

// Filter returns the text with all characters not in the allowlist removed
func (a Allowlist) Filter(text string) string {
	return strings.Map(func(r rune) rune {
		if a[r] {
			return r
		}
		return -1
	}, text)
}

// Format normalises raw OCR text to uppercase alphanumeric characters,
// eg: "xyz-456!" becomes "XYZ456"
func Format(text string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return -1
	}, text)
}

// Validate checks the plate text length is within [minLen, maxLen], it is
// alphanumeric only and contains at least one letter and one digit
func Validate(text string, minLen, maxLen int) error {

	n := len([]rune(text))

	if n < minLen || n > maxLen {
		return fmt.Errorf("%w: length %d outside %d-%d", ErrInvalidPlate,
			n, minLen, maxLen)
	}

	hasLetter := false
	hasDigit := false

	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			return fmt.Errorf("%w: character %q is not alphanumeric",
				ErrInvalidPlate, r)
		}
	}

	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: needs a letter and a digit", ErrInvalidPlate)
	}

	return nil
}

// Segment is one piece of recognised text with its confidence score
type Segment struct {
	Text       string
	Confidence float64
}

// Combine joins the recognised segments of a plate into a single reading.
// Segments are uppercased and filtered by the allowlist, empty segments are
// dropped and the confidence is the mean of the remaining segments.  Returns
// false if nothing is left
func Combine(segments []Segment, allow Allowlist) (string, float64, bool) {

	var sb strings.Builder
	confs := make([]float64, 0, len(segments))

	for _, seg := range segments {
		text := allow.Filter(strings.ToUpper(seg.Text))

		if text == "" {
			continue
		}

		sb.WriteString(text)
		confs = append(confs, seg.Confidence)
	}

	if len(confs) == 0 {
		return "", 0, false
	}

	return Format(sb.String()), AverageConfidence(confs), true
}

// AverageConfidence returns the mean of the confidence scores, or zero for
// none
func AverageConfidence(confs []float64) float64 {

	if len(confs) == 0 {
		return 0
	}

	return stat.Mean(confs, nil)
}
