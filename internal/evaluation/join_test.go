package evaluation

import (
	"math"
	"testing"

	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

func TestInnerJoin(t *testing.T) {
	truth := []LabeledPair{
		{VariantID1: 1, VariantID2: 2, Target: 1, Category: "A"},
		{VariantID1: 3, VariantID2: 4, Target: 0, Category: "A"},
		{VariantID1: 5, VariantID2: 6, Target: 1, Category: "B"},
	}
	preds := []Prediction{
		{VariantID1: 5, VariantID2: 6, Score: 0.95},
		{VariantID1: 1, VariantID2: 2, Score: 0.9},
		{VariantID1: 7, VariantID2: 8, Score: 0.5},
	}

	rows := InnerJoin(truth, preds, false)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].VariantID1 != 1 || rows[0].Score != 0.9 || rows[0].Category != "A" {
		t.Errorf("rows[0] = %+v, want pair (1,2) with score 0.9 in A", rows[0])
	}
	if rows[1].VariantID1 != 5 || rows[1].Score != 0.95 || rows[1].Target != 1 {
		t.Errorf("rows[1] = %+v, want pair (5,6) with score 0.95", rows[1])
	}
}

func TestInnerJoin_OrderedVersusSymmetric(t *testing.T) {
	truth := []LabeledPair{{VariantID1: 1, VariantID2: 2, Target: 1, Category: "A"}}
	preds := []Prediction{{VariantID1: 2, VariantID2: 1, Score: 0.4}}

	if rows := InnerJoin(truth, preds, false); len(rows) != 0 {
		t.Errorf("ordered join matched reversed pair: %+v", rows)
	}
	if rows := InnerJoin(truth, preds, true); len(rows) != 1 {
		t.Errorf("symmetric join rows = %d, want 1", len(rows))
	}
}

func TestInnerJoin_DuplicateKeysCrossProduct(t *testing.T) {
	truth := []LabeledPair{
		{VariantID1: 1, VariantID2: 2, Target: 1, Category: "A"},
		{VariantID1: 1, VariantID2: 2, Target: 1, Category: "B"},
	}
	preds := []Prediction{
		{VariantID1: 1, VariantID2: 2, Score: 0.1},
		{VariantID1: 1, VariantID2: 2, Score: 0.2},
	}

	if rows := InnerJoin(truth, preds, false); len(rows) != 4 {
		t.Errorf("len(rows) = %d, want 4", len(rows))
	}
}

func TestValidateRows(t *testing.T) {
	good := []LabeledPair{{VariantID1: 1, VariantID2: 2, Target: 1}}

	tests := []struct {
		name    string
		truth   []LabeledPair
		preds   []Prediction
		wantErr bool
	}{
		{"valid", good, []Prediction{{Score: 0.3}}, false},
		{"target out of range", []LabeledPair{{Target: 2}}, nil, true},
		{"nan score", good, []Prediction{{Score: math.NaN()}}, true},
		{"infinite score", good, []Prediction{{Score: math.Inf(1)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRows(tt.truth, tt.preds)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRows() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsValidation(err) {
				t.Errorf("error %v is not a validation error", err)
			}
		})
	}
}
