package pipeline

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/Mrassimo/datapilot-sub008/internal/format"
)

// RowSource yields one physical row of raw fields per call and io.EOF
// at end of stream. Implementations must be safe to call until the
// first io.EOF; Next after EOF keeps returning io.EOF.
type RowSource interface {
	Next() ([]string, error)
}

// CSVSource reads delimited rows through the decoding reader chosen by
// format detection. Field counts are not enforced here; the pipeline
// applies its own column-count tolerance.
type CSVSource struct {
	r    *csv.Reader
	done bool
}

// NewCSVSource wraps r with the detected encoding decoder and delimiter.
func NewCSVSource(r io.Reader, det format.Detection) *CSVSource {
	cr := csv.NewReader(format.NewReader(r, det.Encoding))
	cr.Comma = det.Delimiter
	cr.FieldsPerRecord = -1
	return &CSVSource{r: cr}
}

// Next returns the next row. Malformed-quoting rows surface as
// *csv.ParseError; the reader recovers and subsequent calls continue
// with the following row.
func (s *CSVSource) Next() ([]string, error) {
	if s.done {
		return nil, io.EOF
	}
	row, err := s.r.Read()
	if err == io.EOF {
		s.done = true
	}
	return row, err
}

// IsRowError reports whether err affects a single row rather than the
// whole stream.
func IsRowError(err error) bool {
	var pe *csv.ParseError
	return errors.As(err, &pe)
}
