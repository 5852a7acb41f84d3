package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"kkfeed/internal/config"
	"kkfeed/internal/models"
	"kkfeed/internal/reconcile"
	"kkfeed/internal/router"
	"kkfeed/internal/statedb"
	"kkfeed/internal/store"
	"kkfeed/internal/timeparse"
)

// Ledger records the outcome of runs. statedb.Ledger implements it.
type Ledger interface {
	BeginRun(ctx context.Context, started time.Time) (int64, error)
	RecordCategory(ctx context.Context, runID int64, s statedb.CategoryStats) error
	RecordFailure(ctx context.Context, runID int64, f statedb.Failure) error
	FinishRun(ctx context.Context, runID int64, finished time.Time, status string, fetched int, runErr error) error
}

// Pipeline runs fetch, routing and the three category pipelines in sequence.
type Pipeline struct {
	Config     config.AppConfig
	Fetcher    Fetcher
	Reconciler *reconcile.Reconciler
	Rules      []router.Rule
	Logger     logrus.FieldLogger
	Ledger     Ledger // optional
	Now        func() time.Time
}

// NewPipeline wires a pipeline from cfg. ledger may be nil.
func NewPipeline(cfg config.AppConfig, f Fetcher, logger logrus.FieldLogger, ledger Ledger) *Pipeline {
	return &Pipeline{
		Config:     cfg,
		Fetcher:    f,
		Reconciler: reconcile.New(timeparse.NewResolver()),
		Rules:      RulesFromConfig(cfg),
		Logger:     logger,
		Ledger:     ledger,
		Now:        time.Now,
	}
}

// RulesFromConfig applies the configured pattern overrides to the default rules.
func RulesFromConfig(cfg config.AppConfig) []router.Rule {
	rules := router.DefaultRules()
	for i, r := range rules {
		if patterns, ok := cfg.Categories[r.Category]; ok && len(patterns) > 0 {
			rules[i].Patterns = append([]string(nil), patterns...)
		}
	}
	return rules
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Run performs one complete run. A fetch failure aborts before any store is
// touched. A category whose documents cannot be written fails on its own and
// the remaining categories still run; the returned error then aggregates
// every fatal failure.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var report Report
	runID := p.beginRun(ctx)

	batch, err := p.Fetcher.Fetch(ctx)
	if err != nil {
		f := Failure{Stage: StageFetch, Err: err, Fatal: true}
		report.Failures = append(report.Failures, f)
		p.Logger.WithField("stage", StageFetch).WithError(err).Error("fetch failed, run aborted")
		p.recordFailure(ctx, runID, f)
		p.finishRun(ctx, runID, statedb.StatusFailed, 0, f)
		return report, f
	}
	report.Fetched = len(batch.Entries)

	buckets := router.Route(batch.Entries, p.Rules)
	var runErr *multierror.Error
	for _, cat := range models.Categories() {
		res := p.runCategory(cat, buckets[cat], batch)
		report.Categories = append(report.Categories, res)
		p.recordCategory(ctx, runID, res)
		for _, f := range res.Failures {
			p.recordFailure(ctx, runID, f)
			if f.Fatal {
				runErr = multierror.Append(runErr, f)
			}
		}
	}

	status := statedb.StatusOK
	if runErr != nil {
		status = statedb.StatusPartial
	}
	err = runErr.ErrorOrNil()
	p.finishRun(ctx, runID, status, report.Fetched, err)
	p.Logger.WithFields(logrus.Fields{"fetched": report.Fetched, "status": status}).Info("run finished")
	return report, err
}

func (p *Pipeline) runCategory(cat models.Category, entries []models.Entry, batch *Batch) CategoryResult {
	log := p.Logger.WithField("category", cat)
	ch := channelFor(cat, batch)
	var res CategoryResult
	if cat == models.Print {
		res = p.runPrint(log, entries, ch)
	} else {
		res = p.runSingle(log, cat, entries, ch)
	}
	res.Category = cat
	for i := range res.Failures {
		res.Failures[i].Category = cat
	}
	log.WithFields(logrus.Fields{
		"incoming":  res.Stats.Incoming,
		"inserted":  res.Stats.Inserted,
		"updated":   res.Stats.Updated,
		"unchanged": res.Stats.Unchanged,
		"evicted":   res.Stats.Evicted,
		"items":     res.Items,
		"documents": len(res.Documents),
		"pruned":    len(res.Pruned),
	}).Info("category reconciled")
	return res
}

func (p *Pipeline) runSingle(log logrus.FieldLogger, cat models.Category, entries []models.Entry, ch store.Channel) CategoryResult {
	var res CategoryResult
	path := p.Config.DocumentPath(cat)

	existing, err := store.LoadDocument(path)
	if err != nil {
		// Best-effort: an unreadable document is rebuilt from this batch.
		log.WithFields(logrus.Fields{"stage": StageLoad, "path": path}).WithError(err).Warn("existing document unreadable, starting empty")
		res.Failures = append(res.Failures, Failure{Stage: StageLoad, Err: err})
	}

	res.Stats = p.Reconciler.MergeRecency(existing, entries)
	merged := existing.Items()
	kept := reconcile.EnforceSingleDocCap(merged, p.Config.Limits.SingleCap)
	res.Stats.Evicted = len(merged) - len(kept)
	res.Items = len(kept)

	if err := store.WriteDocument(path, ch, kept); err != nil {
		log.WithFields(logrus.Fields{"stage": StageWrite, "path": path}).WithError(err).Error("write failed")
		res.Failures = append(res.Failures, Failure{Stage: StageWrite, Err: err, Fatal: true})
		return res
	}
	res.Documents = []string{path}
	return res
}

func (p *Pipeline) runPrint(log logrus.FieldLogger, entries []models.Entry, ch store.Channel) CategoryResult {
	var res CategoryResult
	prefix := p.Config.PrintPrefix()

	existing, loadErrs := store.LoadParts(prefix)
	for _, err := range loadErrs {
		log.WithField("stage", StageLoad).WithError(err).Warn("print part unreadable, skipped")
		res.Failures = append(res.Failures, Failure{Stage: StageLoad, Err: err})
	}

	sorted, st := p.Reconciler.MergePrint(existing, entries)
	res.Stats = st
	capped := reconcile.EnforceCap(sorted, p.Config.Limits.PrintMaxItems)
	res.Stats.Evicted = len(sorted) - len(capped)
	res.Items = len(capped)

	chunks := reconcile.Chunk(capped, p.Config.Limits.PrintChunkSize)
	written, err := store.WriteParts(prefix, ch, chunks)
	res.Documents = written
	if err != nil {
		// Keep every old part: pruning now could drop items the failed write never replaced.
		log.WithField("stage", StageWrite).WithError(err).Error("write failed")
		res.Failures = append(res.Failures, Failure{Stage: StageWrite, Err: err, Fatal: true})
		return res
	}

	removed, pruneErrs := store.PruneParts(prefix, len(written))
	res.Pruned = removed
	for _, err := range pruneErrs {
		log.WithField("stage", StagePrune).WithError(err).Warn("stale part not removed")
		res.Failures = append(res.Failures, Failure{Stage: StagePrune, Err: err})
	}
	return res
}

func channelFor(cat models.Category, batch *Batch) store.Channel {
	ch := store.Channel{Link: batch.Link}
	if batch.Title != "" {
		ch.Title = fmt.Sprintf("%s - %s", batch.Title, cat)
	}
	return ch
}

func (p *Pipeline) beginRun(ctx context.Context) int64 {
	if p.Ledger == nil {
		return 0
	}
	id, err := p.Ledger.BeginRun(ctx, p.now())
	if err != nil {
		p.Logger.WithError(err).Warn("run ledger unavailable")
		return 0
	}
	return id
}

func (p *Pipeline) recordCategory(ctx context.Context, runID int64, res CategoryResult) {
	if p.Ledger == nil || runID == 0 {
		return
	}
	err := p.Ledger.RecordCategory(ctx, runID, statedb.CategoryStats{
		Category:  string(res.Category),
		Incoming:  res.Stats.Incoming,
		Skipped:   res.Stats.Skipped,
		Inserted:  res.Stats.Inserted,
		Updated:   res.Stats.Updated,
		Unchanged: res.Stats.Unchanged,
		Evicted:   res.Stats.Evicted,
		Items:     res.Items,
		Documents: len(res.Documents),
		Pruned:    len(res.Pruned),
	})
	if err != nil {
		p.Logger.WithError(err).Warn("record category stats")
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, runID int64, f Failure) {
	if p.Ledger == nil || runID == 0 {
		return
	}
	err := p.Ledger.RecordFailure(ctx, runID, statedb.Failure{
		Category:  string(f.Category),
		Stage:     string(f.Stage),
		Cause:     f.Err.Error(),
		CreatedAt: p.now(),
	})
	if err != nil {
		p.Logger.WithError(err).Warn("record failure")
	}
}

func (p *Pipeline) finishRun(ctx context.Context, runID int64, status string, fetched int, runErr error) {
	if p.Ledger == nil || runID == 0 {
		return
	}
	if err := p.Ledger.FinishRun(ctx, runID, p.now(), status, fetched, runErr); err != nil {
		p.Logger.WithError(err).Warn("finish run record")
	}
}
