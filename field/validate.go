package field

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const defaultSSNPattern = `^\d{3}-\d{2}-\d{4}$`

var (
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

// Validate checks a candidate value against the field's type and validation
// rules. It returns (true, "") when valid, otherwise (false, message) with
// the first violated rule's message. When the field declares a
// custom_message it replaces the rule message. Validate never mutates the
// field; the tool-call processor applies the outcome.
func Validate(f *Field, v Value) (bool, string) {
	if v.IsNull() || v.Text() == "" {
		if f.Required {
			return false, fmt.Sprintf("%s is required.", f.DisplayName())
		}
		return true, ""
	}

	ok, msg := validateByType(f, v)
	if !ok {
		if custom := stringRule(f.Validation, "custom_message"); custom != "" {
			return false, custom
		}
		return false, msg
	}
	return true, ""
}

func validateByType(f *Field, v Value) (bool, string) {
	switch f.Type {
	case TypeText, TypeTextarea:
		return validateText(f, v)
	case TypeEmail:
		return validateEmail(f, v)
	case TypePhone:
		return validatePhone(f, v)
	case TypeSSN:
		return validateSSN(f, v)
	case TypeNumber, TypeCurrency:
		return validateNumber(f, v)
	case TypeSelect:
		return validateSelect(f, v)
	case TypeCheckbox:
		return validateCheckbox(f, v)
	case TypeDate:
		return validateDate(f, v)
	default:
		return true, ""
	}
}

func validateText(f *Field, v Value) (bool, string) {
	s := v.Text()
	length := utf8.RuneCountInString(s)
	if min, ok := intRule(f.Validation, "min_length"); ok && length < min {
		return false, fmt.Sprintf("%s must be at least %d characters.", f.DisplayName(), min)
	}
	if max, ok := intRule(f.Validation, "max_length"); ok && length > max {
		return false, fmt.Sprintf("%s must be at most %d characters.", f.DisplayName(), max)
	}
	if pattern := stringRule(f.Validation, "pattern"); pattern != "" {
		if !fullMatch(pattern, s) {
			return false, fmt.Sprintf("%s format is invalid.", f.DisplayName())
		}
	}
	return true, ""
}

func validateEmail(f *Field, v Value) (bool, string) {
	if !emailRe.MatchString(v.Text()) {
		return false, fmt.Sprintf("%s must be a valid email address.", f.DisplayName())
	}
	return validateText(f, v)
}

func validatePhone(f *Field, v Value) (bool, string) {
	s := v.Text()
	if pattern := stringRule(f.Validation, "pattern"); pattern != "" {
		if !fullMatch(pattern, s) {
			return false, fmt.Sprintf("%s format is invalid.", f.DisplayName())
		}
		return true, ""
	}
	digits := nonDigitRe.ReplaceAllString(s, "")
	if len(digits) < 10 {
		return false, fmt.Sprintf("%s must have at least 10 digits.", f.DisplayName())
	}
	return true, ""
}

func validateSSN(f *Field, v Value) (bool, string) {
	pattern := stringRule(f.Validation, "pattern")
	if pattern == "" {
		pattern = defaultSSNPattern
	}
	if !fullMatch(pattern, v.Text()) {
		return false, fmt.Sprintf("%s must be in format XXX-XX-XXXX.", f.DisplayName())
	}
	return true, ""
}

func validateNumber(f *Field, v Value) (bool, string) {
	n, ok := v.AsNumber()
	if !ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Text()), 64)
		if err != nil {
			return false, fmt.Sprintf("%s must be a number.", f.DisplayName())
		}
		n = parsed
	}
	if min, ok := floatRule(f.Validation, "min_value"); ok && n < min {
		return false, fmt.Sprintf("%s must be at least %s.", f.DisplayName(), formatNumber(min))
	}
	if max, ok := floatRule(f.Validation, "max_value"); ok && n > max {
		return false, fmt.Sprintf("%s must be at most %s.", f.DisplayName(), formatNumber(max))
	}
	return true, ""
}

func validateSelect(f *Field, v Value) (bool, string) {
	if len(f.Options) == 0 {
		return true, ""
	}
	s := v.Text()
	labels := make([]string, 0, len(f.Options))
	for _, opt := range f.Options {
		if opt.Value == s {
			return true, ""
		}
		if opt.Label != "" {
			labels = append(labels, opt.Label)
		} else {
			labels = append(labels, opt.Value)
		}
	}
	return false, fmt.Sprintf("%s must be one of: %s.", f.DisplayName(), strings.Join(labels, ", "))
}

func validateCheckbox(f *Field, v Value) (bool, string) {
	if _, ok := v.AsBool(); !ok {
		return false, fmt.Sprintf("%s must be true or false.", f.DisplayName())
	}
	return true, ""
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func validateDate(f *Field, v Value) (bool, string) {
	s := v.Text()
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, ""
		}
	}
	return false, fmt.Sprintf("%s must be a valid date (YYYY-MM-DD).", f.DisplayName())
}

// fullMatch requires the pattern to cover the whole string. The form
// definitions assume full-string semantics whether or not a pattern
// carries its own anchors, so every pattern is wrapped; redundant inner
// anchors still match at string boundaries.
func fullMatch(pattern, s string) bool {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func stringRule(rules map[string]any, key string) string {
	if s, ok := rules[key].(string); ok {
		return s
	}
	return ""
}

func intRule(rules map[string]any, key string) (int, bool) {
	switch n := rules[key].(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func floatRule(rules map[string]any, key string) (float64, bool) {
	switch n := rules[key].(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
