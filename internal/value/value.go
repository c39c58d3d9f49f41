// Package value defines the closed tagged variant a raw field is cast
// into (null, bool, number, date, or text) and the casting rules the
// streaming pipeline applies to every field. Downstream accumulators
// switch exhaustively on Kind instead of probing runtime types.
package value

import (
	"strconv"
	"strings"
	"time"
)

// Kind tags a cast value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	Date
	Text
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case Date:
		return "date"
	default:
		return "text"
	}
}

// Value is one cast field. Str always carries the trimmed literal the
// value was cast from (empty for nulls); the other fields are
// meaningful only for the matching Kind.
type Value struct {
	Kind Kind
	B    bool
	Num  float64
	Time time.Time
	Str  string

	// DateFormat is the display format the date matched (e.g.
	// "YYYY-MM-DD"). Set only when Kind == Date.
	DateFormat string

	// Decimals is the number of fractional digits the literal carried.
	// Set only when Kind == Number.
	Decimals int
}

// nullTokens are the blank-equivalent tokens treated as null, compared
// case-insensitively after trimming.
var nullTokens = map[string]struct{}{
	"":     {},
	"null": {},
	"nil":  {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"none": {},
	"-":    {},
}

// boolTokens maps boolean-lexicon tokens to their value.
var boolTokens = map[string]bool{
	"true": true, "false": false,
	"yes": true, "no": false,
	"y": true, "n": false,
	"t": true, "f": false,
}

// currencySymbols are stripped from the front of numeric-looking tokens.
var currencySymbols = []string{"$", "€", "£", "¥", "A$", "C$", "US$"}

// dateLayout pairs a Go time layout with its display notation.
type dateLayout struct {
	layout  string
	display string
	// ambiguous marks numeric day/month layouts subject to the
	// day-first preference.
	ambiguous bool
	dayFirst  bool
}

// dateLayouts is ordered: unambiguous ISO forms first, then the
// day-first/month-first pairs whose precedence Caster.DayFirst controls.
var dateLayouts = []dateLayout{
	{layout: "2006-01-02", display: "YYYY-MM-DD"},
	{layout: "2006-01-02 15:04:05", display: "YYYY-MM-DD HH:MM:SS"},
	{layout: "2006-01-02T15:04:05", display: "YYYY-MM-DDTHH:MM:SS"},
	{layout: "2006-01-02T15:04:05Z07:00", display: "YYYY-MM-DDTHH:MM:SSZ"},
	{layout: "2006/01/02", display: "YYYY/MM/DD"},
	{layout: "02/01/2006", display: "DD/MM/YYYY", ambiguous: true, dayFirst: true},
	{layout: "01/02/2006", display: "MM/DD/YYYY", ambiguous: true, dayFirst: false},
	{layout: "02-01-2006", display: "DD-MM-YYYY", ambiguous: true, dayFirst: true},
	{layout: "01-02-2006", display: "MM-DD-YYYY", ambiguous: true, dayFirst: false},
	{layout: "02.01.2006", display: "DD.MM.YYYY", ambiguous: true, dayFirst: true},
	{layout: "2 Jan 2006", display: "D MMM YYYY"},
	{layout: "02 Jan 2006", display: "DD MMM YYYY"},
	{layout: "Jan 2, 2006", display: "MMM D, YYYY"},
	{layout: "January 2, 2006", display: "MMMM D, YYYY"},
}

// Caster applies the documented casting rules. The zero value uses
// day-first interpretation for ambiguous numeric dates, matching the
// documented default policy.
type Caster struct {
	// MonthFirst flips the ambiguous-date preference to MM/DD/YYYY.
	// Day-first is the default; this is a policy choice, not a fix:
	// "04/05/2024" has no universally correct reading.
	MonthFirst bool
}

// Cast converts a raw field into a tagged Value. It never fails: any
// token that matches no rule is returned as trimmed text.
func (c Caster) Cast(raw string) Value {
	s := strings.TrimSpace(raw)

	if _, ok := nullTokens[strings.ToLower(s)]; ok {
		return Value{Kind: Null}
	}

	if b, ok := boolTokens[strings.ToLower(s)]; ok {
		return Value{Kind: Bool, B: b, Str: s}
	}

	if v, ok := c.castNumber(s); ok {
		v.Str = s
		return v
	}

	if v, ok := c.castDate(s); ok {
		v.Str = s
		return v
	}

	return Value{Kind: Text, Str: s}
}

// castNumber handles plain numerics plus currency prefixes and
// thousands separators ("$1,234.56" → 1234.56).
func (c Caster) castNumber(s string) (Value, bool) {
	t := s

	negated := false
	// Accounting negatives: "(123.45)".
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		t = t[1 : len(t)-1]
		negated = true
	}

	for _, sym := range currencySymbols {
		if strings.HasPrefix(t, sym) {
			t = strings.TrimSpace(strings.TrimPrefix(t, sym))
			break
		}
	}

	if hasThousandsSeparators(t) {
		t = strings.ReplaceAll(t, ",", "")
	}

	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return Value{}, false
	}
	if negated {
		f = -f
	}

	return Value{Kind: Number, Num: f, Decimals: countDecimals(t)}, true
}

// hasThousandsSeparators reports whether s is a digit-grouped numeric
// literal like "1,234" or "12,345,678.90".
func hasThousandsSeparators(s string) bool {
	body := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if !strings.Contains(body, ",") {
		return false
	}
	groups := strings.Split(body, ",")
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for i, g := range groups[1:] {
		// The final group may carry a decimal part.
		if i == len(groups)-2 {
			if dot := strings.IndexByte(g, '.'); dot >= 0 {
				g = g[:dot]
			}
		}
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return allDigits(strings.SplitN(body, ",", 2)[0])
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func countDecimals(s string) int {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	n := 0
	for _, r := range s[dot+1:] {
		if r < '0' || r > '9' {
			break
		}
		n++
	}
	return n
}

// castDate tries the layout table. For ambiguous numeric dates where
// both components parse under either ordering, the caster's preference
// decides; otherwise the ordering that actually parses wins.
func (c Caster) castDate(s string) (Value, bool) {
	if len(s) < 6 || len(s) > 35 {
		return Value{}, false
	}

	preferDayFirst := !c.MonthFirst

	var fallback *Value
	for _, dl := range dateLayouts {
		t, err := time.Parse(dl.layout, s)
		if err != nil {
			continue
		}
		v := Value{Kind: Date, Time: t, DateFormat: dl.display}

		if !dl.ambiguous || dl.dayFirst == preferDayFirst {
			return v, true
		}
		// Matched only the non-preferred ordering; keep as fallback in
		// case the preferred ordering never parses (e.g. day > 12).
		if fallback == nil {
			fallback = &v
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Value{}, false
}

// IsNullToken reports whether a raw field is blank or a null-equivalent
// token, without performing a full cast.
func IsNullToken(raw string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}
