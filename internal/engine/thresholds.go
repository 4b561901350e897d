package engine

import "time"

// Thresholds holds the policy constants used by the evaluators.
type Thresholds struct {
	TotalLabel      string
	SlowSampleMs    float64
	WarnSampleMs    float64
	HighMemoryMb    float64
	WarnMemoryMb    float64
	TopHooks        int
	SlowQueryMs     float64
	MaxQueries      int
	MaxSlowQueries  int
	MaxQueryTimeMs  float64
	CronGrace       time.Duration
	MaxOverdueJobs  int
	MinCacheHitRate float64
	RiskHighScore   float64
	RiskMediumScore float64
}

// DefaultThresholds returns the stock policy constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TotalLabel:      "total_execution",
		SlowSampleMs:    1000,
		WarnSampleMs:    500,
		HighMemoryMb:    50,
		WarnMemoryMb:    20,
		TopHooks:        10,
		SlowQueryMs:     50,
		MaxQueries:      50,
		MaxSlowQueries:  5,
		MaxQueryTimeMs:  500,
		CronGrace:       300 * time.Second,
		MaxOverdueJobs:  5,
		MinCacheHitRate: 70,
		RiskHighScore:   5,
		RiskMediumScore: 2,
	}
}

// withDefaults fills zero values from DefaultThresholds.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.TotalLabel == "" {
		t.TotalLabel = d.TotalLabel
	}
	if t.SlowSampleMs <= 0 {
		t.SlowSampleMs = d.SlowSampleMs
	}
	if t.WarnSampleMs <= 0 {
		t.WarnSampleMs = d.WarnSampleMs
	}
	if t.HighMemoryMb <= 0 {
		t.HighMemoryMb = d.HighMemoryMb
	}
	if t.WarnMemoryMb <= 0 {
		t.WarnMemoryMb = d.WarnMemoryMb
	}
	if t.TopHooks <= 0 {
		t.TopHooks = d.TopHooks
	}
	if t.SlowQueryMs <= 0 {
		t.SlowQueryMs = d.SlowQueryMs
	}
	if t.MaxQueries <= 0 {
		t.MaxQueries = d.MaxQueries
	}
	if t.MaxSlowQueries <= 0 {
		t.MaxSlowQueries = d.MaxSlowQueries
	}
	if t.MaxQueryTimeMs <= 0 {
		t.MaxQueryTimeMs = d.MaxQueryTimeMs
	}
	if t.CronGrace <= 0 {
		t.CronGrace = d.CronGrace
	}
	if t.MaxOverdueJobs <= 0 {
		t.MaxOverdueJobs = d.MaxOverdueJobs
	}
	if t.MinCacheHitRate <= 0 {
		t.MinCacheHitRate = d.MinCacheHitRate
	}
	if t.RiskHighScore <= 0 {
		t.RiskHighScore = d.RiskHighScore
	}
	if t.RiskMediumScore <= 0 {
		t.RiskMediumScore = d.RiskMediumScore
	}
	return t
}
