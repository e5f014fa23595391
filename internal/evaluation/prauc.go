package evaluation

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

// PRAUCMacro returns the category-weighted, precision-gated PR-AUC of preds
// against truth.
func PRAUCMacro(truth []LabeledPair, preds []Prediction, opts Options) (float64, error) {
	rep, err := PRAUCMacroReport(context.Background(), truth, preds, opts)
	if err != nil {
		return math.NaN(), err
	}
	return rep.Score, nil
}

// PRAUCMacroReport is PRAUCMacro with the per-category breakdown.
func PRAUCMacroReport(ctx context.Context, truth []LabeledPair, preds []Prediction, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}
	if err := ValidateRows(truth, preds); err != nil {
		return nil, err
	}

	rows := InnerJoin(truth, preds, opts.Symmetric)
	return MacroFromRows(ctx, rows, opts)
}

type categoryRows struct {
	name   string
	labels []int
	scores []float64
}

// MacroFromRows scores already joined rows. Categories are independent and
// are scored in parallel, bounded by opts.Workers.
func MacroFromRows(ctx context.Context, rows []JoinedRow, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}
	opts = opts.withDefaults()
	if len(rows) == 0 {
		return nil, apperrors.NoDataError("no ground-truth row matched a prediction")
	}

	cats := partition(rows)
	results := make([]CategoryResult, len(cats))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, c := range cats {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			value, status := CategoryPRAUC(c.labels, c.scores, opts.PrecisionLevel)
			positives := 0
			for _, l := range c.labels {
				positives += l
			}
			results[i] = CategoryResult{
				Category:  c.name,
				Count:     len(c.labels),
				Positives: positives,
				Weight:    float64(len(c.labels)) / float64(len(rows)),
				PRAUC:     value,
				Status:    status,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	score, err := weightedAverage(results, opts.NaNPolicy)
	if err != nil {
		return nil, err
	}

	return &Report{
		Score:          score,
		PrecisionLevel: opts.PrecisionLevel,
		CategoryColumn: opts.CategoryColumn,
		Rows:           len(rows),
		Categories:     results,
	}, nil
}

// partition splits rows by category. Categories come out sorted by name.
func partition(rows []JoinedRow) []categoryRows {
	index := make(map[string]int)
	var cats []categoryRows
	for _, r := range rows {
		i, ok := index[r.Category]
		if !ok {
			i = len(cats)
			index[r.Category] = i
			cats = append(cats, categoryRows{name: r.Category})
		}
		cats[i].labels = append(cats[i].labels, r.Target)
		cats[i].scores = append(cats[i].scores, r.Score)
	}
	slices.SortFunc(cats, func(a, b categoryRows) int {
		return cmp.Compare(a.name, b.name)
	})
	return cats
}

// CategoryPRAUC scores a single category.
//
// The curve is walked from recall 0 upwards and cut at the last point whose
// precision still reaches level; dips below the floor before that point are
// kept. A curve where only the recall-0 point qualifies scores 0.
func CategoryPRAUC(labels []int, scores []float64, level float64) (float64, CategoryStatus) {
	positives := 0
	for _, l := range labels {
		positives += l
	}
	if positives == 0 {
		return 0, StatusNoPositives
	}

	precision, recall, _, err := PrecisionRecallCurve(labels, scores)
	if err != nil {
		return 0, StatusIntegrationError
	}
	slices.Reverse(precision)
	slices.Reverse(recall)

	last, qualifying := -1, 0
	for i, p := range precision {
		if p >= level {
			last = i
			qualifying++
		}
	}
	if qualifying <= 1 {
		return 0, StatusBelowPrecision
	}

	area, err := AUC(recall[:last+1], precision[:last+1])
	if err != nil {
		return 0, StatusIntegrationError
	}
	if math.IsNaN(area) {
		return math.NaN(), StatusNaN
	}
	return area, StatusScored
}

// weightedAverage folds category results into one score. NaN results are
// replaced or dropped according to policy; results is updated in place so
// the report shows the value that was averaged.
func weightedAverage(results []CategoryResult, policy NaNPolicy) (float64, error) {
	var sum, weights float64
	for i := range results {
		r := &results[i]
		if r.Status == StatusNaN {
			if policy == NaNDrop {
				r.PRAUC = 0
				r.Weight = 0
				continue
			}
			r.PRAUC = 0
		}
		sum += r.Weight * r.PRAUC
		weights += r.Weight
	}
	if weights == 0 {
		return math.NaN(), apperrors.NoDataError(fmt.Sprintf("no category left to average (%d dropped)", len(results)))
	}
	return sum / weights, nil
}
