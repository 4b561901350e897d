package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/wpdiag/internal/models"
)

// Evaluator runs every evaluator over a snapshot and assembles the report. It holds only
// read-only tables, so one Evaluator may serve concurrent requests.
type Evaluator struct {
	logger      *slog.Logger
	thresholds  Thresholds
	classifier  *Classifier
	permissions PermissionTable
	now         func() time.Time
}

// Option customises an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the time source used when a snapshot carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithPermissionTable overrides the risky-mode lookup table.
func WithPermissionTable(table PermissionTable) Option {
	return func(e *Evaluator) {
		if table != nil {
			e.permissions = table
		}
	}
}

// NewEvaluator constructs an Evaluator. A nil classifier falls back to the default table.
func NewEvaluator(logger *slog.Logger, thresholds Thresholds, classifier *Classifier, opts ...Option) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		// The default table always compiles.
		classifier, _ = NewClassifier("", logger)
	}
	e := &Evaluator{
		logger:      logger,
		thresholds:  thresholds.withDefaults(),
		classifier:  classifier,
		permissions: DefaultPermissionTable(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the effective policy constants.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate turns a snapshot into a report. Missing or failed facts degrade the affected
// section instead of aborting the report.
func (e *Evaluator) Evaluate(snapshot models.Snapshot) models.Report {
	now := snapshot.CollectedAt
	if now.IsZero() {
		now = e.now()
	}
	now = now.UTC()

	report := models.Report{
		ID:          uuid.NewString(),
		SiteURL:     snapshot.SiteURL,
		GeneratedAt: now,
	}

	var invalid []models.InvalidRecord
	timing, bad := AggregateSamples(snapshot.Samples, e.thresholds)
	report.Timing = timing
	invalid = append(invalid, bad...)

	hooks, bad := SummarizeHooks(snapshot.Hooks, e.thresholds)
	report.Hooks = hooks
	invalid = append(invalid, bad...)

	queries, bad := ProfileQueries(snapshot.Queries, e.thresholds)
	report.Queries = queries
	invalid = append(invalid, bad...)

	report.Cron = EvaluateCron(snapshot.Cron, now, e.thresholds)
	report.Risk = ScoreRisk(snapshot.Updates, e.permissions, e.thresholds)
	report.Errors = e.classifier.Classify(snapshot.Logs)
	report.Cache = DetectCache(snapshot.Cache, e.thresholds)
	report.InvalidRecords = invalid

	for _, rec := range invalid {
		e.logger.Debug("skipped invalid record", slog.Any("error", rec.Err))
	}
	e.logger.Debug("snapshot evaluated",
		slog.String("report_id", report.ID),
		slog.String("risk_level", string(report.Risk.Level)),
		slog.Int("slow_queries", len(report.Queries.SlowQueries)),
		slog.Int("overdue_cron", report.Cron.OverdueCount),
		slog.Int("invalid_records", len(invalid)),
	)
	return report
}

// SectionStatuses lists each section's status keyed by section name.
func SectionStatuses(r models.Report) map[string]models.SectionStatus {
	return map[string]models.SectionStatus{
		sectionTiming:  r.Timing.Status,
		sectionHooks:   r.Hooks.Status,
		sectionQueries: r.Queries.Status,
		sectionCron:    r.Cron.Status,
		sectionRisk:    r.Risk.Status,
		sectionErrors:  r.Errors.Status,
		sectionCache:   r.Cache.Status,
	}
}
