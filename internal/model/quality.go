package model

// QualityDimension names one of the ten scored quality dimensions.
type QualityDimension string

const (
	DimCompleteness     QualityDimension = "completeness"
	DimValidity         QualityDimension = "validity"
	DimUniqueness       QualityDimension = "uniqueness"
	DimConsistency      QualityDimension = "consistency"
	DimAccuracy         QualityDimension = "accuracy"
	DimTimeliness       QualityDimension = "timeliness"
	DimIntegrity        QualityDimension = "integrity"
	DimReasonableness   QualityDimension = "reasonableness"
	DimPrecision        QualityDimension = "precision"
	DimRepresentational QualityDimension = "representational_form"
)

// DimensionScore is one dimension's score in [0, 100] with a short
// human-readable rationale.
type DimensionScore struct {
	Dimension QualityDimension `json:"dimension" yaml:"dimension"`
	Score     float64          `json:"score" yaml:"score"`
	Rationale string           `json:"rationale" yaml:"rationale"`
}

// QualityReport is the weighted aggregate of all dimension scores.
type QualityReport struct {
	Composite  float64          `json:"composite" yaml:"composite"`
	Dimensions []DimensionScore `json:"dimensions" yaml:"dimensions"`
}

// Dimension returns the score entry for the named dimension, or nil.
func (q *QualityReport) Dimension(name QualityDimension) *DimensionScore {
	for i := range q.Dimensions {
		if q.Dimensions[i].Dimension == name {
			return &q.Dimensions[i]
		}
	}
	return nil
}
