package evaluation

import (
	"context"
	"fmt"
	"math"
	"testing"

	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

func tables(rows []JoinedRow) ([]LabeledPair, []Prediction) {
	truth := make([]LabeledPair, len(rows))
	preds := make([]Prediction, len(rows))
	for i, r := range rows {
		truth[i] = LabeledPair{VariantID1: r.VariantID1, VariantID2: r.VariantID2, Target: r.Target, Category: r.Category}
		preds[i] = Prediction{VariantID1: r.VariantID1, VariantID2: r.VariantID2, Score: r.Score}
	}
	return truth, preds
}

func TestPRAUCMacro_EndToEnd(t *testing.T) {
	truth := []LabeledPair{
		{VariantID1: 1, VariantID2: 2, Target: 1, Category: "A"},
		{VariantID1: 3, VariantID2: 4, Target: 0, Category: "A"},
		{VariantID1: 5, VariantID2: 6, Target: 1, Category: "B"},
	}
	preds := []Prediction{
		{VariantID1: 1, VariantID2: 2, Score: 0.9},
		{VariantID1: 3, VariantID2: 4, Score: 0.1},
		{VariantID1: 5, VariantID2: 6, Score: 0.95},
	}

	opts := DefaultOptions()
	opts.PrecisionLevel = 0.5

	got, err := PRAUCMacro(truth, preds, opts)
	if err != nil {
		t.Fatalf("PRAUCMacro() error = %v", err)
	}
	if !almostEqual(got, 1.0) {
		t.Errorf("PRAUCMacro() = %v, want 1.0", got)
	}
}

func TestPRAUCMacroReport_WeightNormalization(t *testing.T) {
	rows := []JoinedRow{
		{VariantID1: 1, VariantID2: 2, Target: 1, Category: "big", Score: 0.9},
		{VariantID1: 3, VariantID2: 4, Target: 0, Category: "big", Score: 0.2},
		{VariantID1: 5, VariantID2: 6, Target: 1, Category: "big", Score: 0.8},
		{VariantID1: 7, VariantID2: 8, Target: 1, Category: "small", Score: 0.7},
	}
	truth, preds := tables(rows)

	rep, err := PRAUCMacroReport(context.Background(), truth, preds, DefaultOptions())
	if err != nil {
		t.Fatalf("PRAUCMacroReport() error = %v", err)
	}
	if len(rep.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(rep.Categories))
	}

	want := map[string]float64{"big": 0.75, "small": 0.25}
	total := 0.0
	for _, c := range rep.Categories {
		if !almostEqual(c.Weight, want[c.Category]) {
			t.Errorf("weight[%s] = %v, want %v", c.Category, c.Weight, want[c.Category])
		}
		total += c.Weight
	}
	if !almostEqual(total, 1) {
		t.Errorf("sum of weights = %v, want 1", total)
	}
	if rep.Rows != 4 {
		t.Errorf("Rows = %d, want 4", rep.Rows)
	}
	if rep.Categories[0].Category != "big" {
		t.Errorf("categories not sorted: first = %s", rep.Categories[0].Category)
	}
}

func TestPRAUCMacroReport_ZeroPositiveCategory(t *testing.T) {
	rows := []JoinedRow{
		{VariantID1: 1, VariantID2: 2, Target: 1, Category: "A", Score: 0.9},
		{VariantID1: 3, VariantID2: 4, Target: 0, Category: "B", Score: 0.99},
		{VariantID1: 5, VariantID2: 6, Target: 0, Category: "B", Score: 0.98},
	}
	truth, preds := tables(rows)

	rep, err := PRAUCMacroReport(context.Background(), truth, preds, DefaultOptions())
	if err != nil {
		t.Fatalf("PRAUCMacroReport() error = %v", err)
	}

	b := rep.Categories[1]
	if b.Category != "B" || b.PRAUC != 0 || b.Status != StatusNoPositives {
		t.Errorf("category B = %+v, want PR-AUC 0 with status no_positives", b)
	}
	// A scores 1 with weight 1/3, B scores 0 with weight 2/3.
	if !almostEqual(rep.Score, 1.0/3.0) {
		t.Errorf("Score = %v, want 1/3", rep.Score)
	}
}

func TestCategoryPRAUC_MonotoneGate(t *testing.T) {
	labels := []int{1, 1, 0, 1}
	scores := []float64{0.9, 0.8, 0.1, 0.7}

	precision, recall, _, err := PrecisionRecallCurve(labels, scores)
	if err != nil {
		t.Fatalf("PrecisionRecallCurve() error = %v", err)
	}
	full, err := AUC(recall, precision)
	if err != nil {
		t.Fatalf("AUC() error = %v", err)
	}

	gated, status := CategoryPRAUC(labels, scores, 0.75)
	if status != StatusScored {
		t.Fatalf("status = %s, want scored", status)
	}
	if !almostEqual(gated, full) {
		t.Errorf("gated = %v, want full-curve AUC %v", gated, full)
	}

	open, _ := CategoryPRAUC(labels, scores, 0)
	if open < gated-eps {
		t.Errorf("floor 0 gives %v, smaller than floor 0.75 (%v)", open, gated)
	}
}

func TestCategoryPRAUC_Gating(t *testing.T) {
	// Ascending recall:    0    1/3  1/3  2/3  1
	// Ascending precision: 1    1    0.5  2/3  0.75
	labels := []int{1, 0, 1, 1}
	scores := []float64{0.9, 0.8, 0.7, 0.6}
	full := 1.0/3.0 + (1.0/3.0)*(0.5+2.0/3.0)/2 + (1.0/3.0)*(2.0/3.0+0.75)/2

	tests := []struct {
		level      float64
		want       float64
		wantStatus CategoryStatus
	}{
		{0, full, StatusScored},
		{0.5, full, StatusScored},
		{0.75, full, StatusScored}, // last point meets the floor, dip is tolerated
		{0.8, 1.0 / 3.0, StatusScored},
		{1, 1.0 / 3.0, StatusScored},
	}

	prev := math.Inf(1)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("level %.2f", tt.level), func(t *testing.T) {
			got, status := CategoryPRAUC(labels, scores, tt.level)
			if status != tt.wantStatus {
				t.Errorf("status = %s, want %s", status, tt.wantStatus)
			}
			if !almostEqual(got, tt.want) {
				t.Errorf("CategoryPRAUC() = %v, want %v", got, tt.want)
			}
			if got > prev+eps {
				t.Errorf("raising the floor increased the area: %v > %v", got, prev)
			}
			prev = got
		})
	}
}

func TestCategoryPRAUC_OnlyRecallZeroQualifies(t *testing.T) {
	got, status := CategoryPRAUC([]int{0, 1}, []float64{0.9, 0.1}, 0.75)
	if got != 0 || status != StatusBelowPrecision {
		t.Errorf("CategoryPRAUC() = (%v, %s), want (0, below_precision)", got, status)
	}
}

func TestPRAUCMacro_EmptyJoin(t *testing.T) {
	truth := []LabeledPair{{VariantID1: 1, VariantID2: 2, Target: 1, Category: "A"}}
	preds := []Prediction{{VariantID1: 9, VariantID2: 9, Score: 0.5}}

	got, err := PRAUCMacro(truth, preds, DefaultOptions())
	if !apperrors.IsNoData(err) {
		t.Fatalf("PRAUCMacro() error = %v, want NO_DATA", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("PRAUCMacro() = %v, want NaN alongside the error", got)
	}
}

func TestPRAUCMacro_InvalidOptions(t *testing.T) {
	truth, preds := tables([]JoinedRow{{VariantID1: 1, VariantID2: 2, Target: 1, Category: "A", Score: 1}})

	for _, opts := range []Options{
		{PrecisionLevel: 1.5},
		{PrecisionLevel: -0.1},
		{PrecisionLevel: math.NaN()},
		{PrecisionLevel: 0.5, Workers: -1},
		{PrecisionLevel: 0.5, NaNPolicy: "ignore"},
	} {
		if _, err := PRAUCMacro(truth, preds, opts); !apperrors.IsValidation(err) {
			t.Errorf("PRAUCMacro(%+v) error = %v, want validation error", opts, err)
		}
	}
}

func TestPRAUCMacro_ParallelMatchesSequential(t *testing.T) {
	var rows []JoinedRow
	for c := 0; c < 12; c++ {
		for i := 0; i < 20; i++ {
			id := int64(c*100 + i)
			rows = append(rows, JoinedRow{
				VariantID1: id,
				VariantID2: id + 1,
				Target:     (i*7 + c) % 3 % 2,
				Category:   fmt.Sprintf("cat-%02d", c),
				Score:      float64((i*13+c*5)%17) / 17,
			})
		}
	}
	truth, preds := tables(rows)

	seq := DefaultOptions()
	seq.Workers = 1
	par := DefaultOptions()
	par.Workers = 8

	a, err := PRAUCMacro(truth, preds, seq)
	if err != nil {
		t.Fatalf("sequential error = %v", err)
	}
	b, err := PRAUCMacro(truth, preds, par)
	if err != nil {
		t.Fatalf("parallel error = %v", err)
	}
	if !almostEqual(a, b) {
		t.Errorf("parallel = %v, sequential = %v", b, a)
	}
}

func TestMacroFromRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := []JoinedRow{{VariantID1: 1, VariantID2: 2, Target: 1, Category: "A", Score: 0.5}}
	if _, err := MacroFromRows(ctx, rows, DefaultOptions()); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestWeightedAverage_NaNPolicy(t *testing.T) {
	base := func() []CategoryResult {
		return []CategoryResult{
			{Category: "A", Weight: 0.5, PRAUC: 0.8, Status: StatusScored},
			{Category: "B", Weight: 0.5, PRAUC: math.NaN(), Status: StatusNaN},
		}
	}

	zero, err := weightedAverage(base(), NaNZero)
	if err != nil {
		t.Fatalf("NaNZero error = %v", err)
	}
	if !almostEqual(zero, 0.4) {
		t.Errorf("NaNZero score = %v, want 0.4", zero)
	}

	dropped := base()
	drop, err := weightedAverage(dropped, NaNDrop)
	if err != nil {
		t.Fatalf("NaNDrop error = %v", err)
	}
	if !almostEqual(drop, 0.8) {
		t.Errorf("NaNDrop score = %v, want 0.8", drop)
	}
	if dropped[1].Weight != 0 {
		t.Errorf("dropped category weight = %v, want 0", dropped[1].Weight)
	}

	onlyNaN := []CategoryResult{{Category: "B", Weight: 1, PRAUC: math.NaN(), Status: StatusNaN}}
	if _, err := weightedAverage(onlyNaN, NaNDrop); !apperrors.IsNoData(err) {
		t.Errorf("all dropped error = %v, want NO_DATA", err)
	}
}
