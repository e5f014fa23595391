package evaluation

import (
	"fmt"
	"math"

	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

type pairKey struct {
	a, b int64
}

func keyOf(id1, id2 int64, symmetric bool) pairKey {
	if symmetric && id2 < id1 {
		id1, id2 = id2, id1
	}
	return pairKey{id1, id2}
}

// InnerJoin matches ground-truth rows with predictions on the
// (variantid1, variantid2) pair. Rows without a counterpart are dropped and
// duplicate keys produce every combination. Output follows truth order.
func InnerJoin(truth []LabeledPair, preds []Prediction, symmetric bool) []JoinedRow {
	byKey := make(map[pairKey][]float64, len(preds))
	for _, p := range preds {
		k := keyOf(p.VariantID1, p.VariantID2, symmetric)
		byKey[k] = append(byKey[k], p.Score)
	}

	rows := make([]JoinedRow, 0, len(truth))
	for _, t := range truth {
		for _, score := range byKey[keyOf(t.VariantID1, t.VariantID2, symmetric)] {
			rows = append(rows, JoinedRow{
				VariantID1: t.VariantID1,
				VariantID2: t.VariantID2,
				Target:     t.Target,
				Category:   t.Category,
				Score:      score,
			})
		}
	}
	return rows
}

// ValidateRows rejects labels outside {0, 1} and non-finite scores.
func ValidateRows(truth []LabeledPair, preds []Prediction) error {
	for i, t := range truth {
		if t.Target != 0 && t.Target != 1 {
			return apperrors.ValidationError("target must be 0 or 1").
				WithDetail("row", fmt.Sprintf("%d", i)).
				WithDetail("value", fmt.Sprintf("%d", t.Target))
		}
	}
	for i, p := range preds {
		if math.IsNaN(p.Score) || math.IsInf(p.Score, 0) {
			return apperrors.ValidationError("score must be a finite number").
				WithDetail("row", fmt.Sprintf("%d", i))
		}
	}
	return nil
}
