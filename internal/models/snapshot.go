package models

import "time"

// Snapshot carries every fact gathered during one diagnostic request. Nil sections
// mean the collaborator did not supply that fact.
type Snapshot struct {
	SiteURL     string         `json:"site_url,omitempty"`
	CollectedAt time.Time      `json:"collected_at,omitempty"`
	Samples     []Sample       `json:"samples,omitempty"`
	Hooks       map[string]int `json:"hooks,omitempty"`
	Queries     []QueryRecord  `json:"queries,omitempty"`
	Cron        *CronFacts     `json:"cron,omitempty"`
	Updates     *UpdateFacts   `json:"updates,omitempty"`
	Logs        *LogFacts      `json:"logs,omitempty"`
	Cache       *CacheFacts    `json:"cache,omitempty"`
}

// Sample is one timing/memory checkpoint taken during the request.
type Sample struct {
	Label         string  `json:"label"`
	ElapsedMs     float64 `json:"elapsed_ms"`
	MemoryDeltaMb float64 `json:"memory_delta_mb"`
}

// QueryRecord is one entry from the database query log.
type QueryRecord struct {
	SQL       string       `json:"sql"`
	ElapsedMs float64      `json:"elapsed_ms"`
	CallSite  string       `json:"call_site,omitempty"`
	Explain   []ExplainRow `json:"explain,omitempty"`
}

// ExplainRow is a single row of EXPLAIN output keyed by column name.
type ExplainRow map[string]string

// CronTable maps a unix timestamp to the hooks scheduled at that time, each with the
// argument lists of its pending events.
type CronTable map[int64]map[string][][]any

// CronFacts is the raw scheduler state.
type CronFacts struct {
	Table    CronTable    `json:"table"`
	Now      time.Time    `json:"now,omitempty"`
	Disabled bool         `json:"disabled"`
	Loopback ProbeResult  `json:"loopback"`
	SelfTest *ProbeResult `json:"self_test,omitempty"`
}

// UpdateFacts carries version metadata and the permission listing.
type UpdateFacts struct {
	Core        *CoreVersion       `json:"core,omitempty"`
	Plugins     []ComponentVersion `json:"plugins,omitempty"`
	Themes      []ComponentVersion `json:"themes,omitempty"`
	Permissions []PermissionEntry  `json:"permissions,omitempty"`
}

// CoreVersion describes the installed and latest available core release.
type CoreVersion struct {
	Current  string `json:"current"`
	Latest   string `json:"latest"`
	Outdated bool   `json:"outdated"`
}

// ComponentVersion describes an installed plugin or theme.
type ComponentVersion struct {
	Name     string `json:"name"`
	Current  string `json:"current"`
	Latest   string `json:"latest,omitempty"`
	Outdated bool   `json:"outdated,omitempty"`
}

// PermissionEntry is the octal mode of a sensitive path.
type PermissionEntry struct {
	Path  string `json:"path"`
	Octal string `json:"octal"`
	IsDir bool   `json:"is_dir,omitempty"`
}

// LogFacts is a bounded tail of the error log.
type LogFacts struct {
	Lines  []string    `json:"lines"`
	Source string      `json:"source,omitempty"`
	Read   ProbeResult `json:"read"`
}

// CacheFacts carries cache-layer markers and the self-probe results.
type CacheFacts struct {
	ObjectCacheEnabled bool              `json:"object_cache_enabled"`
	ObjectCacheHint    string            `json:"object_cache_hint,omitempty"`
	ActivePlugins      []string          `json:"active_plugins,omitempty"`
	Capabilities       map[string]bool   `json:"capabilities,omitempty"`
	Headers            map[string]string `json:"headers,omitempty"`
	HeaderProbe        ProbeResult       `json:"header_probe"`
	RoundTrip          *RoundTripResult  `json:"round_trip,omitempty"`
}

// RoundTripResult is the outcome of the synthetic cache write/read test.
type RoundTripResult struct {
	Attempted int         `json:"attempted"`
	Hits      int         `json:"hits"`
	Probe     ProbeResult `json:"probe"`
}
