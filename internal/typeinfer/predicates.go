package typeinfer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

// Regular expressions for the pattern-based predicates. These are
// deliberately strict: a loose match inflates a type's vote share and
// misleads the validity scorer downstream.
var (
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	urlRe    = regexp.MustCompile(`^(https?|ftp)://[^\s]+$`)
	phoneRe  = regexp.MustCompile(`^\+?[0-9][0-9 ()\-\.]{6,18}[0-9]$`)
	postalRe = regexp.MustCompile(`^([0-9]{4,5}(-[0-9]{4})?|[A-Za-z][0-9][A-Za-z] ?[0-9][A-Za-z][0-9]|[A-Za-z]{1,2}[0-9][A-Za-z0-9]? ?[0-9][A-Za-z]{2})$`)
)

func isInteger(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	t := strings.TrimSpace(s)
	if _, err := strconv.ParseFloat(t, 64); err != nil {
		return false
	}
	// Reject non-finite spellings; they are not column data.
	lower := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(t, "+"), "-"))
	return !strings.HasPrefix(lower, "inf")
}

func isCurrency(s string, c value.Caster) bool {
	t := strings.TrimSpace(s)
	hasSymbol := false
	for _, sym := range []string{"$", "€", "£", "¥"} {
		if strings.Contains(t, sym) {
			hasSymbol = true
			break
		}
	}
	if !hasSymbol {
		return false
	}
	return c.Cast(t).Kind == value.Number
}

// isNumericLoose accepts anything the caster turns into a number,
// including thousands separators and accounting negatives.
func isNumericLoose(s string, c value.Caster) bool {
	v := c.Cast(s)
	return v.Kind == value.Number
}

func isBoolean(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "yes", "no", "y", "n", "t", "f":
		return true
	}
	return false
}

// isDate returns the matched display format when s parses as a date.
func isDate(s string, c value.Caster) (string, bool) {
	v := c.Cast(s)
	if v.Kind != value.Date {
		return "", false
	}
	return v.DateFormat, true
}

func isEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

func isURL(s string) bool {
	return urlRe.MatchString(strings.TrimSpace(s))
}

func isPhone(s string) bool {
	t := strings.TrimSpace(s)
	if !phoneRe.MatchString(t) {
		return false
	}
	digits := 0
	for _, r := range t {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

func isPostalCode(s string) bool {
	t := strings.TrimSpace(s)
	// Pure numerics are handled by the numeric predicates; only treat a
	// token as postal when it is short and not a plausible year.
	if len(t) < 3 || len(t) > 10 {
		return false
	}
	return postalRe.MatchString(t)
}
