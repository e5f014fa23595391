package evaluation

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrDomain is returned by AUC when the points cannot be integrated.
var ErrDomain = errors.New("invalid curve")

// PrecisionRecallCurve computes precision/recall pairs for every distinct
// score threshold.
//
// Points are returned ordered by descending recall, and a final point with
// recall 0 and precision 1 is appended, so precision and recall have one
// more element than thresholds. Thresholds ascend. When labels hold no
// positive, recall is 1 at every threshold.
func PrecisionRecallCurve(labels []int, scores []float64) (precision, recall, thresholds []float64, err error) {
	if len(labels) != len(scores) {
		return nil, nil, nil, fmt.Errorf("labels and scores differ in length: %d vs %d", len(labels), len(scores))
	}
	if len(labels) == 0 {
		return nil, nil, nil, errors.New("no samples")
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	// One entry per distinct threshold, highest threshold first.
	var tps, fps, thr []float64
	tp := 0
	for i, idx := range order {
		tp += labels[idx]
		if i+1 < len(order) && scores[order[i+1]] == scores[idx] {
			continue
		}
		tps = append(tps, float64(tp))
		fps = append(fps, float64(i+1-tp))
		thr = append(thr, scores[idx])
	}

	n := len(tps)
	totalPos := tps[n-1]
	precision = make([]float64, 0, n+1)
	recall = make([]float64, 0, n+1)
	thresholds = make([]float64, 0, n)
	for i := n - 1; i >= 0; i-- {
		precision = append(precision, tps[i]/(tps[i]+fps[i]))
		if totalPos == 0 {
			recall = append(recall, 1)
		} else {
			recall = append(recall, tps[i]/totalPos)
		}
		thresholds = append(thresholds, thr[i])
	}
	precision = append(precision, 1)
	recall = append(recall, 0)

	return precision, recall, thresholds, nil
}

// AUC integrates y over x with the trapezoidal rule.
//
// x must be monotonic. Decreasing x integrates with the sign flipped so the
// area stays positive. Fewer than two points or non-monotonic x yield
// ErrDomain.
func AUC(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%w: x and y differ in length: %d vs %d", ErrDomain, len(x), len(y))
	}
	if len(x) < 2 {
		return 0, fmt.Errorf("%w: at least 2 points are needed, got %d", ErrDomain, len(x))
	}

	direction := 1.0
	increasing, decreasing := true, true
	for i := 1; i < len(x); i++ {
		dx := x[i] - x[i-1]
		if dx < 0 {
			increasing = false
		}
		if dx > 0 {
			decreasing = false
		}
	}
	if !increasing {
		if !decreasing {
			return 0, fmt.Errorf("%w: x is neither increasing nor decreasing", ErrDomain)
		}
		direction = -1
	}

	area := 0.0
	for i := 1; i < len(x); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return direction * area, nil
}
