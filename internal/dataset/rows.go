package dataset

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ricesearch/matcheval/internal/evaluation"
	"github.com/ricesearch/matcheval/internal/grouping"
	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

// LabeledPairs converts a ground-truth table. categoryColumn names the
// column holding the category.
func LabeledPairs(t *Table, categoryColumn string) ([]evaluation.LabeledPair, error) {
	if categoryColumn == "" {
		return nil, apperrors.ValidationError("category column is required")
	}
	if err := t.Require(ColVariantID1, ColVariantID2, ColTarget, categoryColumn); err != nil {
		return nil, err
	}

	out := make([]evaluation.LabeledPair, len(t.Records))
	for i, rec := range t.Records {
		id1, id2, err := pairIDs(rec, i)
		if err != nil {
			return nil, err
		}
		target, err := parseTarget(rec[ColTarget])
		if err != nil {
			return nil, cellError(i, ColTarget, rec[ColTarget], err)
		}
		out[i] = evaluation.LabeledPair{
			VariantID1: id1,
			VariantID2: id2,
			Target:     target,
			Category:   rec[categoryColumn],
		}
	}
	return out, nil
}

// Predictions converts a predictions table. The score column may be named
// "scores" or "score".
func Predictions(t *Table) ([]evaluation.Prediction, error) {
	scoreCol := ColScores
	if !t.Has(ColScores) && t.Has(ColScore) {
		scoreCol = ColScore
	}
	if err := t.Require(ColVariantID1, ColVariantID2, scoreCol); err != nil {
		return nil, err
	}

	out := make([]evaluation.Prediction, len(t.Records))
	for i, rec := range t.Records {
		id1, id2, err := pairIDs(rec, i)
		if err != nil {
			return nil, err
		}
		score, err := strconv.ParseFloat(rec[scoreCol], 64)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, cellError(i, scoreCol, rec[scoreCol], fmt.Errorf("not a finite number"))
		}
		out[i] = evaluation.Prediction{VariantID1: id1, VariantID2: id2, Score: score}
	}
	return out, nil
}

// Observations converts a labeled pair table into grouping observations.
func Observations(t *Table) ([]grouping.Observation[int64], error) {
	if err := t.Require(ColVariantID1, ColVariantID2, ColTarget); err != nil {
		return nil, err
	}

	out := make([]grouping.Observation[int64], len(t.Records))
	for i, rec := range t.Records {
		id1, id2, err := pairIDs(rec, i)
		if err != nil {
			return nil, err
		}
		target, err := parseTarget(rec[ColTarget])
		if err != nil {
			return nil, cellError(i, ColTarget, rec[ColTarget], err)
		}
		out[i] = grouping.Observation[int64]{ID1: id1, ID2: id2, Same: target == 1}
	}
	return out, nil
}

func pairIDs(rec Record, row int) (int64, int64, error) {
	id1, err := parseID(rec[ColVariantID1])
	if err != nil {
		return 0, 0, cellError(row, ColVariantID1, rec[ColVariantID1], err)
	}
	id2, err := parseID(rec[ColVariantID2])
	if err != nil {
		return 0, 0, cellError(row, ColVariantID2, rec[ColVariantID2], err)
	}
	return id1, id2, nil
}

// parseID accepts plain integers and integral floats such as "42.0".
func parseID(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("not an integer identifier")
	}
	return int64(f), nil
}

func parseTarget(s string) (int, error) {
	switch strings.ToLower(s) {
	case "1", "1.0", "true":
		return 1, nil
	case "0", "0.0", "false":
		return 0, nil
	default:
		return 0, fmt.Errorf("target must be 0 or 1")
	}
}

func cellError(row int, col, value string, err error) error {
	return apperrors.ValidationError(err.Error()).
		WithDetail("row", strconv.Itoa(row)).
		WithDetail("column", col).
		WithDetail("value", value)
}

// ReadLabeledPairsCSV reads a ground-truth CSV.
func ReadLabeledPairsCSV(r io.Reader, categoryColumn string) ([]evaluation.LabeledPair, error) {
	t, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return LabeledPairs(t, categoryColumn)
}

// ReadPredictionsCSV reads a predictions CSV.
func ReadPredictionsCSV(r io.Reader) ([]evaluation.Prediction, error) {
	t, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return Predictions(t)
}

// ReadObservationsCSV reads pair judgments (variantid1, variantid2, target).
func ReadObservationsCSV(r io.Reader) ([]grouping.Observation[int64], error) {
	t, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return Observations(t)
}
