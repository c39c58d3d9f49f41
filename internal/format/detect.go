// Package format infers byte encoding, field delimiter, and header
// presence from a bounded file prefix. Detection is best-effort and
// fails soft: on any failure it falls back to UTF-8 and comma so the
// pipeline can always proceed.
package format

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

// Encoding names the detected byte encoding.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF16LE Encoding = "utf-16le"
	EncodingUTF16BE Encoding = "utf-16be"
)

// HeaderMode lets the caller override the header heuristic.
type HeaderMode int

const (
	HeaderAuto HeaderMode = iota
	HeaderPresent
	HeaderAbsent
)

// Options constrain detection.
type Options struct {
	// Delimiter forces the field delimiter when non-zero.
	Delimiter rune
	// Header overrides the header heuristic.
	Header HeaderMode
}

// Detection is the result of inspecting a prefix.
type Detection struct {
	Encoding  Encoding
	BOMLength int
	Delimiter rune
	HasHeader bool
}

// candidateDelims are tried in order; the order breaks count ties.
var candidateDelims = []rune{',', ';', '\t', '|'}

// maxDetectLines caps how many prefix lines the delimiter vote inspects.
const maxDetectLines = 10

// Detect inspects a raw byte prefix (a few KB read once by the caller)
// and returns encoding, delimiter, and header presence. It never returns
// an error: anything undecidable falls back to UTF-8 / comma / header.
func Detect(prefix []byte, opts Options) Detection {
	d := Detection{
		Encoding:  EncodingUTF8,
		Delimiter: ',',
		HasHeader: true,
	}

	d.Encoding, d.BOMLength = sniffBOM(prefix)

	text := decodePrefix(prefix[d.BOMLength:], d.Encoding)
	lines := nonEmptyLines(text, maxDetectLines)

	if opts.Delimiter != 0 {
		d.Delimiter = opts.Delimiter
	} else if delim, ok := detectDelimiter(lines); ok {
		d.Delimiter = delim
	}

	switch opts.Header {
	case HeaderPresent:
		d.HasHeader = true
	case HeaderAbsent:
		d.HasHeader = false
	default:
		d.HasHeader = detectHeader(lines, d.Delimiter)
	}

	return d
}

// sniffBOM checks the byte-order-mark signatures. Absent a BOM the file
// is assumed UTF-8; CSV in other encodings without a BOM is rare enough
// that full statistical charset inference is not worth its cost here.
func sniffBOM(b []byte) (Encoding, int) {
	switch {
	case len(b) >= 3 && bytes.Equal(b[:3], []byte{0xEF, 0xBB, 0xBF}):
		return EncodingUTF8, 3
	case len(b) >= 2 && bytes.Equal(b[:2], []byte{0xFF, 0xFE}):
		return EncodingUTF16LE, 2
	case len(b) >= 2 && bytes.Equal(b[:2], []byte{0xFE, 0xFF}):
		return EncodingUTF16BE, 2
	default:
		return EncodingUTF8, 0
	}
}

// NewReader wraps r so the pipeline reads UTF-8 text regardless of the
// detected encoding. The caller must have positioned r at byte 0; the
// BOM, when present, is consumed by the decoder.
func NewReader(r io.Reader, enc Encoding) io.Reader {
	switch enc {
	case EncodingUTF16LE:
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(r, dec)
	case EncodingUTF16BE:
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		return transform.NewReader(r, dec)
	default:
		dec := unicode.UTF8BOM.NewDecoder()
		return transform.NewReader(r, dec)
	}
}

func decodePrefix(b []byte, enc Encoding) string {
	if enc == EncodingUTF8 {
		return string(b)
	}
	endian := unicode.LittleEndian
	if enc == EncodingUTF16BE {
		endian = unicode.BigEndian
	}
	decoded, _, err := transform.Bytes(unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder(), b)
	if err != nil {
		return ""
	}
	return string(decoded)
}

func nonEmptyLines(text string, max int) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == max {
			break
		}
	}
	// The final line of a prefix is usually truncated mid-record; drop
	// it when we have enough lines to vote without it.
	if len(lines) > 2 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// detectDelimiter picks the candidate whose per-line occurrence count
// (outside quoted spans) is high and consistent across lines.
func detectDelimiter(lines []string) (rune, bool) {
	if len(lines) == 0 {
		return 0, false
	}

	bestScore := 0.0
	var best rune
	for _, cand := range candidateDelims {
		counts := make([]int, len(lines))
		for i, line := range lines {
			counts[i] = countOutsideQuotes(line, cand)
		}

		first := counts[0]
		if first == 0 {
			continue
		}
		consistent := 0
		for _, c := range counts {
			if c == first {
				consistent++
			}
		}
		// Score favors both frequency and cross-line consistency.
		score := float64(first) * float64(consistent) / float64(len(lines))
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}

	if bestScore == 0 {
		return 0, false
	}
	return best, true
}

func countOutsideQuotes(line string, delim rune) int {
	n := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			n++
		}
	}
	return n
}

// detectHeader trusts a header by default, and only rejects one when the
// first line itself looks like data: any field parses as a number or a
// date, or a field repeats.
func detectHeader(lines []string, delim rune) bool {
	if len(lines) == 0 {
		return true
	}

	fields := splitSimple(lines[0], delim)
	seen := make(map[string]struct{}, len(fields))
	var caster value.Caster
	for _, f := range fields {
		f = strings.TrimSpace(strings.Trim(strings.TrimSpace(f), `"`))
		if f == "" {
			continue
		}
		if _, err := strconv.ParseFloat(f, 64); err == nil {
			return false
		}
		if v := caster.Cast(f); v.Kind == value.Date || v.Kind == value.Number {
			return false
		}
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

// splitSimple splits on the delimiter respecting double-quoted spans.
// Good enough for the header heuristic; real parsing uses encoding/csv.
func splitSimple(line string, delim rune) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
