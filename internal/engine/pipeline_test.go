package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/wpdiag/internal/models"
	"github.com/miradorstack/wpdiag/internal/utils"
)

func fullSnapshot(now time.Time) models.Snapshot {
	selfTest := models.ProbeSucceeded(0, 0)
	return models.Snapshot{
		SiteURL:     "https://blog.example.com",
		CollectedAt: now,
		Samples: []models.Sample{
			{Label: "wordpress_loaded", ElapsedMs: 120.5, MemoryDeltaMb: 2.1},
			{Label: "plugin_analysis", ElapsedMs: 430, MemoryDeltaMb: 5},
			{Label: "total_execution", ElapsedMs: 600, MemoryDeltaMb: 8},
		},
		Hooks: map[string]int{"init": 3, "the_content": 14},
		Queries: []models.QueryRecord{
			{SQL: "SELECT * FROM wp_options WHERE autoload = 'yes'", ElapsedMs: 10},
			{SQL: "SELECT * FROM wp_options WHERE autoload = 'yes'", ElapsedMs: 12},
			{SQL: "SELECT * FROM wp_posts ORDER BY post_date", ElapsedMs: 210},
		},
		Cron: &models.CronFacts{
			Table:    models.CronTable{now.Add(-1000 * time.Second).Unix(): {"wp_version_check": {nil}}},
			Loopback: models.ProbeSucceeded(200, 20),
			SelfTest: &selfTest,
		},
		Updates: &models.UpdateFacts{
			Core:        &models.CoreVersion{Current: "6.4.2", Latest: "6.4.2"},
			Plugins:     []models.ComponentVersion{{Name: "akismet", Current: "5.0", Latest: "5.3"}},
			Permissions: []models.PermissionEntry{{Path: "wp-config.php", Octal: "644"}},
		},
		Logs: &models.LogFacts{
			Lines: []string{"PHP Fatal error: Allowed memory size exhausted", "PHP Notice: Undefined index"},
			Read:  models.ProbeSucceeded(0, 0),
		},
		Cache: &models.CacheFacts{
			ObjectCacheEnabled: true,
			ObjectCacheHint:    "redis",
			ActivePlugins:      []string{"wp-rocket/wp-rocket.php"},
			Headers:            map[string]string{"cf-ray": "abc"},
			HeaderProbe:        models.ProbeSucceeded(200, 35),
			RoundTrip:          &models.RoundTripResult{Attempted: 10, Hits: 10, Probe: models.ProbeSucceeded(0, 2)},
		},
	}
}

func TestEvaluateFullSnapshot(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := NewEvaluator(nil, DefaultThresholds(), nil)

	report := ev.Evaluate(fullSnapshot(now))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "https://blog.example.com", report.SiteURL)
	assert.True(t, report.GeneratedAt.Equal(now))
	assert.Empty(t, report.InvalidRecords)

	for section, status := range SectionStatuses(report) {
		assert.Equal(t, models.SectionComplete, status, section)
	}

	assert.Len(t, report.Timing.Rows, 3)
	assert.Equal(t, "the_content", report.Hooks.Top[0].Name)
	require.Len(t, report.Queries.Duplicates, 1)
	require.Len(t, report.Queries.SlowQueries, 1)
	assert.Equal(t, 1, report.Cron.OverdueCount)
	assert.Equal(t, 2.0, report.Risk.Score)
	assert.Equal(t, models.RiskMedium, report.Risk.Level)
	assert.Equal(t, 2, report.Errors.CriticalTotal)
	assert.Equal(t, "Cloudflare", report.Cache.CDNType)
}

func TestEvaluateMissingSectionsAreUnavailable(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := NewEvaluator(nil, Thresholds{}, nil, WithClock(func() time.Time { return fixed }))

	report := ev.Evaluate(models.Snapshot{SiteURL: "https://empty.example"})
	assert.True(t, report.GeneratedAt.Equal(fixed))

	for section, status := range SectionStatuses(report) {
		assert.Equal(t, models.SectionUnavailable, status, section)
	}
	assert.Equal(t, models.RiskLow, report.Risk.Level)
	assert.NotNil(t, report.Cron.Jobs)
	assert.NotNil(t, report.Cache.Recommendations)
}

func TestEvaluateCollectsInvalidRecordsAcrossSections(t *testing.T) {
	ev := NewEvaluator(nil, DefaultThresholds(), nil)
	report := ev.Evaluate(models.Snapshot{
		Samples: []models.Sample{{Label: "x", ElapsedMs: -1}},
		Hooks:   map[string]int{"init": -2},
		Queries: []models.QueryRecord{{SQL: "", ElapsedMs: 1}},
	})

	require.Len(t, report.InvalidRecords, 3)
	assert.Equal(t, "timing", report.InvalidRecords[0].Section)
	assert.Equal(t, "hooks", report.InvalidRecords[1].Section)
	assert.Equal(t, "queries", report.InvalidRecords[2].Section)

	hookErr := report.InvalidRecords[1].Err
	require.ErrorIs(t, hookErr, utils.ErrInvalidRecord)
	var recErr *utils.RecordError
	require.ErrorAs(t, hookErr, &recErr)
	assert.Equal(t, "hooks", recErr.Section)
	assert.Equal(t, report.InvalidRecords[1].Reason, recErr.Reason)
	assert.Equal(t, "hooks[0]: "+recErr.Reason, hookErr.Error())

	data, err := json.Marshal(report.InvalidRecords[0])
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Err")
}

func TestEvaluateCustomPermissionTable(t *testing.T) {
	table := DefaultPermissionTable()
	delete(table[PermClassConfig], "0644")
	ev := NewEvaluator(nil, DefaultThresholds(), nil, WithPermissionTable(table))

	report := ev.Evaluate(models.Snapshot{Updates: &models.UpdateFacts{
		Core:        &models.CoreVersion{Current: "6.5", Latest: "6.5"},
		Permissions: []models.PermissionEntry{{Path: "wp-config.php", Octal: "0644"}},
	}})
	assert.Zero(t, report.Risk.Score)
}
