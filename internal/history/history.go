// Package history keeps a record of finished evaluation and grouping runs.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a run computed.
type Kind string

const (
	KindPRAUC    Kind = "pr_auc"
	KindGrouping Kind = "grouping"
)

// CategoryScore is the stored outcome of one category.
type CategoryScore struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Weight   float64 `json:"weight"`
	PRAUC    float64 `json:"pr_auc"`
	Status   string  `json:"status"`
}

// Run is one stored run.
type Run struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// InputDigest identifies the input rows, so reruns over the same data
	// can be recognised.
	InputDigest string `json:"input_digest,omitempty"`

	// PR-AUC runs. Zero is a real score, so these are always encoded.
	Score          float64         `json:"score"`
	PrecisionLevel float64         `json:"precision_level"`
	CategoryColumn string          `json:"category_column,omitempty"`
	Rows           int             `json:"rows"`
	Categories     []CategoryScore `json:"categories,omitempty"`

	// Grouping runs.
	Observations    int `json:"observations"`
	SameGroups      int `json:"same_groups"`
	DifferentGroups int `json:"different_groups"`
}

// NewRun creates a run with a fresh ID.
func NewRun(kind Kind, source string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists runs.
type Store interface {
	// Save stores a run, replacing any run with the same ID.
	Save(ctx context.Context, run *Run) error

	// Get loads a run by ID.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns up to limit runs, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Delete removes a run. A missing run is a not-found error.
	Delete(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}

// ValidID reports whether id looks like a run ID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func cloneRun(r *Run) *Run {
	c := *r
	c.Categories = append([]CategoryScore(nil), r.Categories...)
	return &c
}
