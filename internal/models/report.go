package models

import "time"

// SectionStatus tells renderers whether a section is trustworthy, partial or missing.
type SectionStatus string

const (
	SectionComplete    SectionStatus = "complete"
	SectionDegraded    SectionStatus = "degraded"
	SectionUnavailable SectionStatus = "unavailable"
)

// Severity buckets a timing or memory measurement.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeveritySlow    Severity = "slow"
	SeverityHigh    Severity = "high"
)

// Priority ranks error categories.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// RiskLevel is the discrete bucket of a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ObjectCacheType enumerates the persistent object cache backends.
type ObjectCacheType string

const (
	ObjectCacheNone      ObjectCacheType = "none"
	ObjectCacheRedis     ObjectCacheType = "redis"
	ObjectCacheMemcached ObjectCacheType = "memcached"
	ObjectCacheAPCu      ObjectCacheType = "apcu"
)

// Report is the structured output of one snapshot evaluation.
type Report struct {
	ID             string          `json:"id"`
	SiteURL        string          `json:"site_url,omitempty"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Timing         TimingReport    `json:"timing"`
	Hooks          HookReport      `json:"hooks"`
	Queries        QueryReport     `json:"queries"`
	Cron           CronHealth      `json:"cron"`
	Risk           RiskReport      `json:"risk"`
	Errors         ErrorReport     `json:"errors"`
	Cache          CacheReport     `json:"cache"`
	InvalidRecords []InvalidRecord `json:"invalid_records,omitempty"`
}

// InvalidRecord notes an input record that was skipped because it was malformed. Err
// carries the same location as an error for logging and is not serialised.
type InvalidRecord struct {
	Section string `json:"section"`
	Index   int    `json:"index"`
	Reason  string `json:"reason"`
	Err     error  `json:"-"`
}

// TimingReport is the aggregated timing/memory breakdown.
type TimingReport struct {
	Status         SectionStatus     `json:"status"`
	TotalElapsedMs float64           `json:"total_elapsed_ms"`
	Rows           []TimingBreakdown `json:"rows"`
}

// TimingBreakdown is the per-sample row of the breakdown table.
type TimingBreakdown struct {
	Label          string   `json:"label"`
	ElapsedMs      float64  `json:"elapsed_ms"`
	Percentage     float64  `json:"percentage"`
	Severity       Severity `json:"severity"`
	MemoryDeltaMb  float64  `json:"memory_delta_mb"`
	MemorySeverity Severity `json:"memory_severity"`
}

// HookReport summarises hook-call tallies.
type HookReport struct {
	Status     SectionStatus `json:"status"`
	TotalHooks int           `json:"total_hooks"`
	TotalCalls int           `json:"total_calls"`
	Top        []HookCount   `json:"top"`
}

// HookCount is the call tally of a single hook.
type HookCount struct {
	Name  string `json:"name"`
	Calls int    `json:"calls"`
}

// QueryReport is the query profiler output.
type QueryReport struct {
	Status          SectionStatus    `json:"status"`
	TotalQueries    int              `json:"total_queries"`
	TotalTimeMs     float64          `json:"total_time_ms"`
	SlowThresholdMs float64          `json:"slow_threshold_ms"`
	SlowQueries     []SlowQuery      `json:"slow_queries"`
	Duplicates      []DuplicateGroup `json:"duplicates"`
	TypeBreakdown   map[string]int   `json:"type_breakdown"`
	Recommendations []string         `json:"recommendations"`
}

// SlowQuery is a query that exceeded the slow threshold.
type SlowQuery struct {
	Query          QueryRecord  `json:"query"`
	ExplainRows    []ExplainRow `json:"explain_rows,omitempty"`
	Findings       []string     `json:"findings,omitempty"`
	Recommendation string       `json:"recommendation"`
}

// DuplicateGroup is a set of queries with identical normalized SQL.
type DuplicateGroup struct {
	NormalizedSQLHash string  `json:"normalized_sql_hash"`
	SampleSQL         string  `json:"sample_sql"`
	OccurrenceCount   int     `json:"occurrence_count"`
	TotalMs           float64 `json:"total_ms"`
	AvgMs             float64 `json:"avg_ms"`
}

// CronJob is one scheduled event with its due/overdue classification.
type CronJob struct {
	HookName     string    `json:"hook_name"`
	RunAt        time.Time `json:"run_at"`
	Args         []any     `json:"args,omitempty"`
	IsDue        bool      `json:"is_due"`
	IsOverdue    bool      `json:"is_overdue"`
	OverdueBySec float64   `json:"overdue_by_sec,omitempty"`
}

// CronHealth is the cron evaluator output.
type CronHealth struct {
	Status         SectionStatus `json:"status"`
	Disabled       bool          `json:"disabled"`
	TotalJobs      int           `json:"total_jobs"`
	DueCount       int           `json:"due_count"`
	OverdueCount   int           `json:"overdue_count"`
	GraceSeconds   float64       `json:"grace_seconds"`
	LoopbackOK     bool          `json:"loopback_ok"`
	LoopbackStatus ProbeStatus   `json:"loopback_status,omitempty"`
	NextRun        *time.Time    `json:"next_run,omitempty"`
	Jobs           []CronJob     `json:"jobs"`
	Issues         []string      `json:"issues"`
}

// CoreStatus is the evaluated core update state.
type CoreStatus struct {
	Known    bool   `json:"known"`
	Current  string `json:"current"`
	Latest   string `json:"latest"`
	Outdated bool   `json:"outdated"`
}

// OutdatedComponent is a plugin or theme with a newer release.
type OutdatedComponent struct {
	Name    string `json:"name"`
	Current string `json:"current"`
	Latest  string `json:"latest"`
}

// PermissionCheck is the evaluated state of a sensitive path.
type PermissionCheck struct {
	Path  string `json:"path"`
	Octal string `json:"octal"`
	Class string `json:"class"`
	Risky bool   `json:"risky"`
}

// RiskReport is the security/update risk scorer output.
type RiskReport struct {
	Status          SectionStatus       `json:"status"`
	Core            CoreStatus          `json:"core"`
	OutdatedPlugins []OutdatedComponent `json:"outdated_plugins"`
	OutdatedThemes  []OutdatedComponent `json:"outdated_themes"`
	Permissions     []PermissionCheck   `json:"file_permissions"`
	Score           float64             `json:"score"`
	Level           RiskLevel           `json:"level"`
	Recommendations []string            `json:"recommendations"`
}

// ErrorCategory is one classified log category with its static metadata.
type ErrorCategory struct {
	Key         string   `json:"key"`
	Count       int      `json:"count"`
	Description string   `json:"description"`
	Impact      string   `json:"impact"`
	Priority    Priority `json:"priority"`
	Remediation []string `json:"remediation"`
}

// ErrorReport is the error pattern classifier output.
type ErrorReport struct {
	Status           SectionStatus   `json:"status"`
	LinesScanned     int             `json:"lines_scanned"`
	Categories       []ErrorCategory `json:"categories"`
	TotalOccurrences int             `json:"total_occurrences"`
	CriticalTotal    int             `json:"critical_total"`
}

// CacheReport is the cache/CDN detector output. HitRatePct is nil when the round-trip
// test did not run.
type CacheReport struct {
	Status             SectionStatus   `json:"status"`
	ObjectCacheEnabled bool            `json:"object_cache_enabled"`
	ObjectCacheType    ObjectCacheType `json:"object_cache_type"`
	PageCachePlugins   []string        `json:"page_cache_plugins"`
	HitRatePct         *float64        `json:"hit_rate_pct"`
	CDNDetected        bool            `json:"cdn_detected"`
	CDNType            string          `json:"cdn_type,omitempty"`
	Recommendations    []string        `json:"recommendations"`
}
