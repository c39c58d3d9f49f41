// Package report renders a finished analysis as markdown, JSON, or
// YAML. Rendering is pure: it consumes the plain-data model and writes
// to the supplied writer.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
)

// Format names an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat maps a user-supplied format string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("report: unknown format %q", s)
	}
}

// Render writes the analysis to w in the given format.
func Render(w io.Writer, a *model.Analysis, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(a), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return eris.Wrap(enc.Encode(a), "report: encode yaml")
	case FormatMarkdown:
		return renderMarkdown(w, a)
	default:
		return eris.Errorf("report: unknown format %q", f)
	}
}

func renderMarkdown(w io.Writer, a *model.Analysis) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Analysis: %s\n\n", a.Source)
	fmt.Fprintf(&b, "Run `%s`, %s to %s.\n\n", a.ID,
		a.StartedAt.Format("2006-01-02 15:04:05"),
		a.FinishedAt.Format("15:04:05 MST"))

	fmt.Fprintf(&b, "## Input\n\n")
	fmt.Fprintf(&b, "- Encoding: %s\n", a.Format.Encoding)
	fmt.Fprintf(&b, "- Delimiter: `%s`\n", printableDelimiter(a.Format.Delimiter))
	fmt.Fprintf(&b, "- Header row: %t\n", a.Format.HasHeader)
	fmt.Fprintf(&b, "- Rows read: %d (sampled %d, method %s", a.RowsRead, a.RowsSampled, a.Sampling.Method)
	if a.Sampling.Method == "fixed-rate" {
		fmt.Fprintf(&b, ", rate %.4f", a.Sampling.Rate)
	}
	if a.Sampling.Degraded {
		b.WriteString(", degraded under memory pressure")
	}
	b.WriteString(")\n")
	if a.Issues.SkippedRows > 0 {
		fmt.Fprintf(&b, "- Skipped rows: %d\n", a.Issues.SkippedRows)
		for _, ex := range a.Issues.Examples {
			fmt.Fprintf(&b, "  - %s\n", ex)
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Columns\n\n")
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Name\tType\tConfidence\tNulls")
	for _, c := range a.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.1f%%\n", c.Name, c.Type, c.Confidence, c.NullPercent)
	}
	tw.Flush()
	b.WriteString("\n")

	if numeric := numericStats(a); len(numeric) > 0 {
		fmt.Fprintf(&b, "## Statistics\n\n")
		tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Column\tCount\tMean\tStdDev\tMin\tMedian\tMax\tSkew")
		for _, s := range numeric {
			fmt.Fprintf(tw, "%s\t%d\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.3f\n",
				s.Column, s.Count, s.Mean, s.StdDev, s.Min, s.Median, s.Max, s.Skewness)
		}
		tw.Flush()
		b.WriteString("\n")
	}

	if len(a.Correlations) > 0 {
		fmt.Fprintf(&b, "## Correlations\n\n")
		tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Pair\tr\tn\tSignificant")
		for _, c := range a.Correlations {
			fmt.Fprintf(tw, "%s / %s\t%.4f\t%d\t%t\n", c.Column1, c.Column2, c.R, c.N, c.Significant)
		}
		tw.Flush()
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Quality\n\n")
	fmt.Fprintf(&b, "Composite score: **%.1f / 100**\n\n", a.Quality.Composite)
	tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Dimension\tScore\tRationale")
	for _, d := range a.Quality.Dimensions {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\n", d.Dimension, d.Score, d.Rationale)
	}
	tw.Flush()

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write markdown")
}

// numericStats filters the stats rows that carry moments.
func numericStats(a *model.Analysis) []model.DescriptiveStats {
	var out []model.DescriptiveStats
	for i, c := range a.Columns {
		if i >= len(a.Stats) {
			break
		}
		if c.Type.Numeric() || c.Type == model.TypeDate {
			out = append(out, a.Stats[i])
		}
	}
	return out
}

func printableDelimiter(d string) string {
	if d == "\t" {
		return "\\t"
	}
	return d
}
