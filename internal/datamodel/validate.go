package datamodel

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/scormrte/internal/errorstate"
)

var (
	integerPattern = regexp.MustCompile(`^-?\d+$`)
	decimalPattern = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)
	booleanPattern = regexp.MustCompile(`^(true|false|unknown)$`)

	// ISO 8601 duration as SCORM constrains it: P[nY][nM][nD][T[nH][nM][n[.nn]S]]
	timeIntervalPattern = regexp.MustCompile(`^P(\d+Y)?(\d+M)?(\d+D)?(T(\d+H)?(\d+M)?(\d+(\.\d{1,2})?S)?)?$`)

	// ISO 8601 timestamp truncatable after any component, optional zone.
	timePattern = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2}(T\d{2}(:\d{2}(:\d{2}(\.\d{1,2})?)?)?)?)?)?(Z|[+-]\d{2}(:\d{2})?)?$`)

	// {target=ID}choice / {target=ID}jump
	navTargetPattern = regexp.MustCompile(`^\{target=[^{}\s]+\}(choice|jump)$`)
)

// charLength counts characters the way SCORM's SPM limits are expressed:
// code points after NFC normalisation.
func charLength(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}

// Validate checks value against the schema of element without applying
// access rules. It returns an *ElementError on failure.
func Validate(element, value string) error {
	addr, err := Parse(element)
	if err != nil {
		return &ElementError{Code: errorstate.UndefinedElement, Element: element, Diagnostic: err.Error()}
	}
	if code, diag := validateValue(element, addr.Spec(), value); code != errorstate.NoError {
		return &ElementError{Code: code, Element: element, Diagnostic: diag}
	}
	return nil
}

// validateValue applies the generic validation pipeline for spec:
// vocabulary membership, string length, numeric range, type format.
// Returns NoError or the failing code with a diagnostic.
func validateValue(element string, spec ElementSpec, value string) (errorstate.Code, string) {
	if spec.Type == TypeVocabulary && !vocabularyAccepts(element, spec, value) {
		return errorstate.TypeMismatch,
			fmt.Sprintf("%q is not a valid value for %s", value, element)
	}

	if spec.MaxLength > 0 {
		if n := charLength(value); n > spec.MaxLength {
			return errorstate.ValueOutOfRange,
				fmt.Sprintf("%s accepts at most %d characters, got %d", element, spec.MaxLength, n)
		}
	}

	if spec.Range != nil && spec.Type == TypeDecimal {
		if f, err := strconv.ParseFloat(value, 64); err == nil && !spec.Range.Contains(f) {
			return errorstate.ValueOutOfRange,
				fmt.Sprintf("%s must be within %s, got %s", element, describeRange(spec.Range), value)
		}
	}

	if ok := formatAccepts(spec.Type, value); !ok {
		return errorstate.TypeMismatch,
			fmt.Sprintf("%q is not a valid %s for %s", value, spec.Type, element)
	}

	if spec.Identifier {
		if strings.TrimSpace(value) == "" {
			return errorstate.TypeMismatch, fmt.Sprintf("%s must not be empty", element)
		}
		if n := charLength(value); n > MaxIdentifierLength {
			return errorstate.ValueOutOfRange,
				fmt.Sprintf("%s accepts at most %d characters, got %d", element, MaxIdentifierLength, n)
		}
	}

	return errorstate.NoError, ""
}

func vocabularyAccepts(element string, spec ElementSpec, value string) bool {
	if slices.Contains(spec.Vocabulary, value) {
		return true
	}
	if spec.AllowDecimal && decimalPattern.MatchString(value) {
		return true
	}
	if element == "adl.nav.request" && navTargetPattern.MatchString(value) {
		return true
	}
	return false
}

func formatAccepts(t ValueType, value string) bool {
	switch t {
	case TypeInteger:
		return integerPattern.MatchString(value)
	case TypeDecimal:
		return decimalPattern.MatchString(value)
	case TypeBoolean:
		return booleanPattern.MatchString(value)
	case TypeTimeInterval:
		return validTimeInterval(value)
	case TypeTime:
		return timePattern.MatchString(value)
	default:
		return true
	}
}

func validTimeInterval(value string) bool {
	if value == "P" || strings.HasSuffix(value, "T") {
		return false
	}
	return timeIntervalPattern.MatchString(value)
}

func describeRange(r *Range) string {
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = strconv.FormatFloat(*r.Min, 'f', -1, 64)
	}
	if r.Max != nil {
		hi = strconv.FormatFloat(*r.Max, 'f', -1, 64)
	}
	return "[" + lo + ", " + hi + "]"
}
