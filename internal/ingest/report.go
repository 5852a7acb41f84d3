package ingest

import (
	"fmt"

	"kkfeed/internal/models"
	"kkfeed/internal/reconcile"
)

// Stage names the step of a category pipeline where a failure happened.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageLoad      Stage = "load"
	StageReconcile Stage = "reconcile"
	StageWrite     Stage = "write"
	StagePrune     Stage = "prune"
)

// Failure is the uniform report of anything that went wrong in a run.
// Fatal failures fail their category (or the run, for fetch); the others
// were recovered and are reported for the operator.
type Failure struct {
	Category models.Category // empty for run-wide failures
	Stage    Stage
	Err      error
	Fatal    bool
}

func (f Failure) Error() string {
	if f.Category == "" {
		return fmt.Sprintf("%s: %v", f.Stage, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Category, f.Stage, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// CategoryResult summarizes one category pipeline.
type CategoryResult struct {
	Category  models.Category
	Stats     reconcile.Stats
	Items     int
	Documents []string
	Pruned    []string
	Failures  []Failure
}

// Failed reports whether the category ended with a fatal failure.
func (r CategoryResult) Failed() bool {
	for _, f := range r.Failures {
		if f.Fatal {
			return true
		}
	}
	return false
}

// Report is the outcome of a whole run.
type Report struct {
	Fetched    int
	Categories []CategoryResult
	Failures   []Failure // run-wide failures
}

// AllFailures lists run-wide failures followed by per-category ones.
func (r Report) AllFailures() []Failure {
	out := append([]Failure(nil), r.Failures...)
	for _, c := range r.Categories {
		out = append(out, c.Failures...)
	}
	return out
}
