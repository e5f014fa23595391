package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/ricesearch/matcheval/internal/bus"
	"github.com/ricesearch/matcheval/internal/grouping"
	"github.com/ricesearch/matcheval/internal/history"
	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
	"github.com/ricesearch/matcheval/internal/pkg/hash"
	"github.com/ricesearch/matcheval/internal/pkg/logger"
)

// Evaluator runs evaluations and groupings, records them in the run history
// and announces them on the bus. Both history and bus are optional.
type Evaluator struct {
	history history.Store
	bus     bus.Bus
	log     *logger.Logger
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(store history.Store, b bus.Bus, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Default()
	}
	return &Evaluator{
		history: store,
		bus:     b,
		log:     log,
	}
}

// EvaluationRun is a finished PR-AUC run.
type EvaluationRun struct {
	RunID string `json:"run_id,omitempty"`
	Report
}

// GroupingRun is a finished grouping run.
type GroupingRun struct {
	RunID string `json:"run_id,omitempty"`
	grouping.Result[int64]
}

// EvaluatePRAUC computes the macro PR-AUC report, stores it and publishes
// evaluation.completed. source labels where the request came from.
func (e *Evaluator) EvaluatePRAUC(ctx context.Context, truth []LabeledPair, preds []Prediction, opts Options, source string) (*EvaluationRun, error) {
	start := time.Now()

	report, err := PRAUCMacroReport(ctx, truth, preds, opts)
	if err != nil {
		return nil, err
	}

	run := history.NewRun(history.KindPRAUC, source)
	run.InputDigest = PRAUCInputDigest(truth, preds)
	run.Score = report.Score
	run.PrecisionLevel = report.PrecisionLevel
	run.CategoryColumn = report.CategoryColumn
	run.Rows = report.Rows
	run.Categories = make([]history.CategoryScore, len(report.Categories))
	for i, c := range report.Categories {
		run.Categories[i] = history.CategoryScore{
			Category: c.Category,
			Count:    c.Count,
			Weight:   c.Weight,
			PRAUC:    c.PRAUC,
			Status:   string(c.Status),
		}
	}

	log := e.log.WithContext(ctx).WithRun(run.ID)
	for _, c := range report.Categories {
		log.WithCategory(c.Category).Debug("Category scored",
			"rows", c.Count,
			"positives", c.Positives,
			"pr_auc", c.PRAUC,
			"status", string(c.Status),
		)
	}
	log.Info("PR-AUC evaluation finished",
		"score", report.Score,
		"rows", report.Rows,
		"categories", len(report.Categories),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	out := &EvaluationRun{Report: *report}
	if e.record(ctx, log, run, bus.TopicEvaluationCompleted) {
		out.RunID = run.ID
	}
	return out, nil
}

// GroupPairs groups observations, stores a summary and publishes
// grouping.completed.
func (e *Evaluator) GroupPairs(ctx context.Context, obs []grouping.Observation[int64], opts grouping.Options, source string) (*GroupingRun, error) {
	run := history.NewRun(history.KindGrouping, source)
	log := e.log.WithContext(ctx).WithRun(run.ID)
	if opts.Log == nil {
		opts.Log = log
	}

	res, err := grouping.GroupObservations(ctx, obs, opts)
	if err != nil {
		return nil, err
	}
	res = grouping.CanonicalResult(res)

	run.InputDigest = ObservationDigest(obs)
	run.Observations = res.Observations
	run.SameGroups = len(res.Same)
	run.DifferentGroups = len(res.Different)

	out := &GroupingRun{Result: res}
	if e.record(ctx, log, run, bus.TopicGroupingCompleted) {
		out.RunID = run.ID
	}
	return out, nil
}

// record saves the run and publishes it. Failures are logged, never
// returned: the computed result stands on its own. It reports whether the
// run was stored.
func (e *Evaluator) record(ctx context.Context, log *logger.Logger, run *history.Run, topic string) bool {
	stored := false
	if e.history != nil {
		if err := e.history.Save(ctx, run); err != nil {
			log.WithError(err).Warn("Failed to store run")
		} else {
			stored = true
		}
	}

	if e.bus != nil {
		if err := e.bus.Publish(ctx, topic, bus.NewEvent(topic, run.Source, run)); err != nil {
			log.WithError(err).Warn("Failed to publish run event", "topic", topic)
		}
	}
	return stored
}

// Run loads a stored run.
func (e *Evaluator) Run(ctx context.Context, id string) (*history.Run, error) {
	if e.history == nil {
		return nil, apperrors.ServiceUnavailableError("run history")
	}
	if !history.ValidID(id) {
		return nil, apperrors.ValidationError(fmt.Sprintf("invalid run id: %q", id))
	}
	return e.history.Get(ctx, id)
}

// Runs lists stored runs, newest first.
func (e *Evaluator) Runs(ctx context.Context, limit int) ([]*history.Run, error) {
	if e.history == nil {
		return nil, apperrors.ServiceUnavailableError("run history")
	}
	return e.history.List(ctx, limit)
}

// DeleteRun removes a stored run.
func (e *Evaluator) DeleteRun(ctx context.Context, id string) error {
	if e.history == nil {
		return apperrors.ServiceUnavailableError("run history")
	}
	if !history.ValidID(id) {
		return apperrors.ValidationError(fmt.Sprintf("invalid run id: %q", id))
	}
	if err := e.history.Delete(ctx, id); err != nil {
		return err
	}
	e.log.WithContext(ctx).WithRun(id).Info("Run deleted")
	return nil
}

// PRAUCInputDigest fingerprints ground truth and predictions in row order.
func PRAUCInputDigest(truth []LabeledPair, preds []Prediction) string {
	d := hash.NewDigest().Int(int64(len(truth)))
	for _, p := range truth {
		d.Int(p.VariantID1).Int(p.VariantID2).Int(int64(p.Target)).String(p.Category)
	}
	d.Int(int64(len(preds)))
	for _, p := range preds {
		d.Int(p.VariantID1).Int(p.VariantID2).Float(p.Score)
	}
	return d.Short(32)
}

// ObservationDigest fingerprints pair judgments in row order.
func ObservationDigest(obs []grouping.Observation[int64]) string {
	d := hash.NewDigest().Int(int64(len(obs)))
	for _, o := range obs {
		same := int64(0)
		if o.Same {
			same = 1
		}
		d.Int(o.ID1).Int(o.ID2).Int(same)
	}
	return d.Short(32)
}
