package engine

import (
	"fmt"
	"sort"

	"github.com/miradorstack/wpdiag/internal/models"
	"github.com/miradorstack/wpdiag/internal/utils"
)

const (
	sectionTiming  = "timing"
	sectionHooks   = "hooks"
	sectionQueries = "queries"
	sectionCron    = "cron"
	sectionRisk    = "risk"
	sectionErrors  = "errors"
	sectionCache   = "cache"
)

// AggregateSamples reduces timing samples into a percentage breakdown. The denominator is
// the sample labelled t.TotalLabel when present, otherwise the sum of all valid samples.
func AggregateSamples(samples []models.Sample, t Thresholds) (models.TimingReport, []models.InvalidRecord) {
	t = t.withDefaults()
	report := models.TimingReport{Status: models.SectionUnavailable, Rows: []models.TimingBreakdown{}}
	if len(samples) == 0 {
		return report, nil
	}

	var invalid []models.InvalidRecord
	valid := make([]models.Sample, 0, len(samples))
	for i, s := range samples {
		if s.ElapsedMs < 0 {
			invalid = append(invalid, invalidRecord(sectionTiming, i, fmt.Sprintf("sample %q has negative elapsed_ms %.2f", s.Label, s.ElapsedMs)))
			continue
		}
		valid = append(valid, s)
	}

	total := 0.0
	labelled := false
	for _, s := range valid {
		if s.Label == t.TotalLabel {
			total = s.ElapsedMs
			labelled = true
			break
		}
	}
	if !labelled {
		for _, s := range valid {
			total += s.ElapsedMs
		}
	}

	for _, s := range valid {
		pct := 0.0
		if total > 0 {
			pct = s.ElapsedMs / total * 100
		}
		report.Rows = append(report.Rows, models.TimingBreakdown{
			Label:          s.Label,
			ElapsedMs:      s.ElapsedMs,
			Percentage:     pct,
			Severity:       timeSeverity(s.ElapsedMs, t),
			MemoryDeltaMb:  s.MemoryDeltaMb,
			MemorySeverity: memorySeverity(s.MemoryDeltaMb, t),
		})
	}
	report.TotalElapsedMs = total
	report.Status = statusFor(len(valid) > 0, len(invalid) > 0)
	return report, invalid
}

// SummarizeHooks reports the busiest hooks from a hook-call tally.
func SummarizeHooks(tally map[string]int, t Thresholds) (models.HookReport, []models.InvalidRecord) {
	t = t.withDefaults()
	report := models.HookReport{Status: models.SectionUnavailable, Top: []models.HookCount{}}
	if len(tally) == 0 {
		return report, nil
	}

	names := make([]string, 0, len(tally))
	for name := range tally {
		names = append(names, name)
	}
	sort.Strings(names)

	var invalid []models.InvalidRecord
	counts := make([]models.HookCount, 0, len(names))
	for i, name := range names {
		calls := tally[name]
		if calls < 0 {
			invalid = append(invalid, invalidRecord(sectionHooks, i, fmt.Sprintf("hook %q has negative call count %d", name, calls)))
			continue
		}
		report.TotalCalls += calls
		counts = append(counts, models.HookCount{Name: name, Calls: calls})
	}
	report.TotalHooks = len(counts)

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Calls > counts[j].Calls
	})
	if len(counts) > t.TopHooks {
		counts = counts[:t.TopHooks]
	}
	report.Top = counts
	report.Status = statusFor(report.TotalHooks > 0, len(invalid) > 0)
	return report, invalid
}

func timeSeverity(elapsedMs float64, t Thresholds) models.Severity {
	switch {
	case elapsedMs > t.SlowSampleMs:
		return models.SeveritySlow
	case elapsedMs > t.WarnSampleMs:
		return models.SeverityWarning
	default:
		return models.SeverityOK
	}
}

func memorySeverity(deltaMb float64, t Thresholds) models.Severity {
	switch {
	case deltaMb > t.HighMemoryMb:
		return models.SeverityHigh
	case deltaMb > t.WarnMemoryMb:
		return models.SeverityWarning
	default:
		return models.SeverityOK
	}
}

func statusFor(hasData, degraded bool) models.SectionStatus {
	switch {
	case !hasData:
		return models.SectionUnavailable
	case degraded:
		return models.SectionDegraded
	default:
		return models.SectionComplete
	}
}

func invalidRecord(section string, index int, reason string) models.InvalidRecord {
	return models.InvalidRecord{
		Section: section,
		Index:   index,
		Reason:  reason,
		Err:     utils.NewRecordError(section, index, reason),
	}
}
