package evaluation

import (
	"fmt"
	"math"
)

// LabeledPair is one ground-truth row: a pair of variants, whether they are
// the same product (1) or not (0), and the category the pair belongs to.
type LabeledPair struct {
	VariantID1 int64  `json:"variantid1"`
	VariantID2 int64  `json:"variantid2"`
	Target     int    `json:"target"`
	Category   string `json:"category"`
}

// Prediction is the matcher's score for a pair of variants.
type Prediction struct {
	VariantID1 int64   `json:"variantid1"`
	VariantID2 int64   `json:"variantid2"`
	Score      float64 `json:"scores"`
}

// JoinedRow is a ground-truth row matched with its prediction.
type JoinedRow struct {
	VariantID1 int64
	VariantID2 int64
	Target     int
	Category   string
	Score      float64
}

// NaNPolicy decides what happens to a category whose integrated area is NaN.
type NaNPolicy string

const (
	// NaNZero scores the category 0 and keeps its weight, the same as an
	// integration error.
	NaNZero NaNPolicy = "zero"
	// NaNDrop removes the category's value and weight from the average.
	NaNDrop NaNPolicy = "drop"
)

// Options configures the macro PR-AUC computation.
type Options struct {
	// PrecisionLevel is the precision floor. Recall beyond the last point
	// that still meets it is discarded.
	PrecisionLevel float64 `json:"precision_level"`

	// CategoryColumn names the ground-truth column holding the category.
	// Only table readers consult it; rows already carry their category.
	CategoryColumn string `json:"category_column"`

	// Workers bounds how many categories are scored in parallel.
	Workers int `json:"workers"`

	// NaNPolicy handles NaN areas.
	NaNPolicy NaNPolicy `json:"nan_policy"`

	// Symmetric joins (a, b) with (b, a).
	Symmetric bool `json:"symmetric"`
}

// DefaultOptions returns the standard evaluation settings.
func DefaultOptions() Options {
	return Options{
		PrecisionLevel: 0.75,
		CategoryColumn: "cat3_grouped",
		Workers:        4,
		NaNPolicy:      NaNZero,
	}
}

// Validate checks the options before any data is touched.
func (o Options) Validate() error {
	if math.IsNaN(o.PrecisionLevel) || o.PrecisionLevel < 0 || o.PrecisionLevel > 1 {
		return fmt.Errorf("precision level must be within [0, 1], got %v", o.PrecisionLevel)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", o.Workers)
	}
	switch o.NaNPolicy {
	case "", NaNZero, NaNDrop:
	default:
		return fmt.Errorf("unknown nan policy %q (must be zero or drop)", o.NaNPolicy)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.NaNPolicy == "" {
		o.NaNPolicy = NaNZero
	}
	if o.CategoryColumn == "" {
		o.CategoryColumn = DefaultOptions().CategoryColumn
	}
	return o
}

// CategoryStatus explains how a category's PR-AUC was obtained.
type CategoryStatus string

const (
	StatusScored           CategoryStatus = "scored"
	StatusNoPositives      CategoryStatus = "no_positives"
	StatusBelowPrecision   CategoryStatus = "below_precision"
	StatusIntegrationError CategoryStatus = "integration_error"
	StatusNaN              CategoryStatus = "nan"
)

// CategoryResult is the outcome for one category.
type CategoryResult struct {
	Category  string         `json:"category"`
	Count     int            `json:"count"`
	Positives int            `json:"positives"`
	Weight    float64        `json:"weight"`
	PRAUC     float64        `json:"pr_auc"`
	Status    CategoryStatus `json:"status"`
}

// Report is the full result of a macro PR-AUC computation.
type Report struct {
	Score          float64          `json:"score"`
	PrecisionLevel float64          `json:"precision_level"`
	CategoryColumn string           `json:"category_column"`
	Rows           int              `json:"rows"`
	Categories     []CategoryResult `json:"categories"`
}
