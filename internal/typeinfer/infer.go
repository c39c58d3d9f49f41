// Package typeinfer votes among candidate semantic types for each
// column from a bounded sample of raw values. Inference is best-effort
// and never blocks the pipeline: a column with no majority type falls
// back to text.
package typeinfer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

// Engine runs the voting scheme. The zero value is usable.
type Engine struct {
	// Caster supplies the date/number parsing policy (day-first etc).
	Caster value.Caster

	// MaxSampleValues bounds the example values kept on each profile.
	// Default 5.
	MaxSampleValues int
}

// candidate indexes into the per-column vote table.
type candidate int

const (
	candInteger candidate = iota
	candFloat
	candCurrency
	candDate
	candBoolean
	candEmail
	candURL
	candPhone
	candPostal
	candCount
)

// tieOrder resolves equal vote counts; more structured types win over
// looser pattern matches.
var tieOrder = []struct {
	cand candidate
	typ  model.ColumnType
}{
	{candDate, model.TypeDate},
	{candBoolean, model.TypeBoolean},
	{candEmail, model.TypeEmail},
	{candURL, model.TypeURL},
	{candPostal, model.TypePostalCode},
	{candPhone, model.TypePhone},
}

// InferColumns evaluates one bounded sample (rows of raw fields) and
// produces a read-only profile per column. totalRows is the caller's
// best estimate of sampled row count used for cardinality ratios; when
// zero, len(rows) is used.
func (e *Engine) InferColumns(headers []string, rows [][]string, totalRows int) []model.ColumnProfile {
	if totalRows <= 0 {
		totalRows = len(rows)
	}
	maxExamples := e.MaxSampleValues
	if maxExamples <= 0 {
		maxExamples = 5
	}

	profiles := make([]model.ColumnProfile, len(headers))
	for col, name := range headers {
		profiles[col] = e.inferColumn(name, col, columnValues(rows, col), totalRows, maxExamples)
	}
	return profiles
}

func columnValues(rows [][]string, col int) []string {
	vals := make([]string, 0, len(rows))
	for _, row := range rows {
		if col < len(row) {
			vals = append(vals, row[col])
		}
	}
	return vals
}

func (e *Engine) inferColumn(name string, index int, vals []string, totalRows, maxExamples int) model.ColumnProfile {
	p := model.ColumnProfile{Name: name, Index: index, Type: model.TypeText}

	var votes [candCount]int
	dateFormats := make(map[string]int)
	distinct := make(map[string]struct{})
	matchedAny := 0
	nonNull := 0

	var numMin, numMax float64
	var dateMin, dateMax time.Time
	numSeen, dateSeen := false, false

	for _, raw := range vals {
		if value.IsNullToken(raw) {
			p.NullCount++
			continue
		}
		nonNull++
		trimmed := strings.TrimSpace(raw)
		distinct[trimmed] = struct{}{}
		if len(p.SampleValues) < maxExamples {
			p.SampleValues = append(p.SampleValues, trimmed)
		}

		matched := false
		if isInteger(trimmed) {
			votes[candInteger]++
			matched = true
		} else if isFloat(trimmed) {
			votes[candFloat]++
			matched = true
		} else if isCurrency(trimmed, e.Caster) {
			votes[candCurrency]++
			matched = true
		} else if isNumericLoose(trimmed, e.Caster) {
			// Thousands-separated plain numbers count as float.
			votes[candFloat]++
			matched = true
		}

		if v := e.Caster.Cast(trimmed); v.Kind == value.Number {
			if !numSeen || v.Num < numMin {
				numMin = v.Num
			}
			if !numSeen || v.Num > numMax {
				numMax = v.Num
			}
			numSeen = true
		}

		if format, ok := isDate(trimmed, e.Caster); ok && !matched {
			votes[candDate]++
			dateFormats[format]++
			matched = true

			t := e.Caster.Cast(trimmed).Time
			if !dateSeen || t.Before(dateMin) {
				dateMin = t
			}
			if !dateSeen || t.After(dateMax) {
				dateMax = t
			}
			dateSeen = true
		}

		if isBoolean(trimmed) {
			votes[candBoolean]++
			matched = true
		}
		if isEmail(trimmed) {
			votes[candEmail]++
			matched = true
		}
		if isURL(trimmed) {
			votes[candURL]++
			matched = true
		}
		if isPhone(trimmed) {
			votes[candPhone]++
			matched = true
		}
		if isPostalCode(trimmed) && !isInteger(trimmed) {
			votes[candPostal]++
			matched = true
		}

		if matched {
			matchedAny++
		}
	}

	total := nonNull + int(p.NullCount)
	if total > 0 {
		p.NullPercent = 100 * float64(p.NullCount) / float64(total)
	}
	if nonNull == 0 {
		p.Confidence = 0
		return p
	}

	// Numeric sub-types are merged for the vote and re-split after:
	// a valid column can mix "5" and "5.5" representations.
	numericVotes := votes[candInteger] + votes[candFloat] + votes[candCurrency]

	bestVotes := numericVotes
	bestType := model.TypeFloat
	if numericVotes > 0 {
		switch {
		case votes[candCurrency]*2 >= numericVotes:
			bestType = model.TypeCurrency
		case votes[candFloat] == 0 && votes[candCurrency] == 0:
			bestType = model.TypeInteger
		}
	}
	for _, tc := range tieOrder {
		if votes[tc.cand] > bestVotes {
			bestVotes = votes[tc.cand]
			bestType = tc.typ
		}
	}

	share := float64(bestVotes) / float64(nonNull)
	if share > 0.5 {
		p.Type = bestType
		p.Confidence = share
	} else {
		// No majority: fall back to text, confidence = the share of
		// values that matched no predicate at all.
		p.Type = model.TypeText
		p.Confidence = float64(nonNull-matchedAny) / float64(nonNull)
	}

	rows := totalRows
	if rows < nonNull {
		rows = nonNull
	}
	if rows > 0 {
		p.DistinctRatio = float64(len(distinct)) / float64(rows)
		if p.DistinctRatio > 1 {
			p.DistinctRatio = 1
		}
	}

	e.applyCardinality(&p, len(distinct), nonNull, totalRows, distinctList(distinct))

	switch {
	case p.Type.Numeric() && numSeen:
		p.MinValue = strconv.FormatFloat(numMin, 'g', -1, 64)
		p.MaxValue = strconv.FormatFloat(numMax, 'g', -1, 64)
	case p.Type == model.TypeDate && dateSeen:
		p.MinValue = dateMin.Format("2006-01-02")
		p.MaxValue = dateMax.Format("2006-01-02")
	}

	if p.Type == model.TypeDate {
		p.DateFormats = sortedFormats(dateFormats)
	}

	return p
}

// applyCardinality settles categorical vs identifier vs free text for
// columns that voted text: a small distinct set is a category domain, a
// near-unique set is an identifier, anything else stays as voted.
func (e *Engine) applyCardinality(p *model.ColumnProfile, cardinality, nonNull, totalRows int, values []string) {
	if p.Type != model.TypeText || nonNull == 0 {
		return
	}

	rows := totalRows
	if rows < nonNull {
		rows = nonNull
	}
	catCeiling := rows / 10
	if catCeiling > 20 {
		catCeiling = 20
	}

	switch {
	case cardinality < catCeiling:
		p.Type = model.TypeCategorical
		p.Categories = values
		p.Confidence = 1.0
	case float64(cardinality) > 0.95*float64(rows):
		p.Type = model.TypeIdentifier
		p.Confidence = float64(cardinality) / float64(rows)
		if p.Confidence > 1 {
			p.Confidence = 1
		}
	}
}

func distinctList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sortedFormats(counts map[string]int) []string {
	type fc struct {
		format string
		n      int
	}
	list := make([]fc, 0, len(counts))
	for f, n := range counts {
		list = append(list, fc{f, n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].n != list[j].n {
			return list[i].n > list[j].n
		}
		return list[i].format < list[j].format
	})
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = f.format
	}
	return out
}

// Describe renders a compact one-line profile summary, handy in logs.
func Describe(p model.ColumnProfile) string {
	return fmt.Sprintf("%s: %s (%.0f%% confident, %d%% null)", p.Name, p.Type, p.Confidence*100, int(p.NullPercent))
}
