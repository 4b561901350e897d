package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/wpdiag/internal/models"
)

func TestProfileQueriesSlowDetectionExactlyOnce(t *testing.T) {
	records := []models.QueryRecord{
		{SQL: "SELECT ID FROM wp_posts LIMIT 1", ElapsedMs: 50},
		{SQL: "SELECT option_value FROM wp_options", ElapsedMs: 50.01},
		{SQL: "UPDATE wp_options SET option_value = 1", ElapsedMs: 120},
		{SQL: "SELECT 1", ElapsedMs: 3},
	}

	report, invalid := ProfileQueries(records, DefaultThresholds())
	require.Empty(t, invalid)
	require.Len(t, report.SlowQueries, 2)
	assert.Equal(t, records[1].SQL, report.SlowQueries[0].Query.SQL)
	assert.Equal(t, records[2].SQL, report.SlowQueries[1].Query.SQL)
	for _, slow := range report.SlowQueries {
		assert.Greater(t, slow.Query.ElapsedMs, 50.0)
	}
}

func TestProfileQueriesDuplicateScenario(t *testing.T) {
	records := []models.QueryRecord{
		{SQL: "SELECT * FROM wp_options WHERE autoload = 'yes'", ElapsedMs: 10},
		{SQL: "SELECT *  FROM wp_options\n WHERE autoload = 'yes'", ElapsedMs: 12},
		{SQL: "  SELECT * FROM wp_options WHERE autoload = 'yes'  ", ElapsedMs: 11},
	}

	report, _ := ProfileQueries(records, DefaultThresholds())
	require.Len(t, report.Duplicates, 1)
	group := report.Duplicates[0]
	assert.Equal(t, 3, group.OccurrenceCount)
	assert.InDelta(t, 33.0, group.TotalMs, 1e-9)
	assert.InDelta(t, 11.0, group.AvgMs, 1e-9)
	assert.Equal(t, HashSQL(NormalizeSQL(records[0].SQL)), group.NormalizedSQLHash)
	assert.Equal(t, "SELECT * FROM wp_options WHERE autoload = 'yes'", group.SampleSQL)
}

func TestProfileQueriesDuplicatesPermutationInvariant(t *testing.T) {
	records := []models.QueryRecord{
		{SQL: "SELECT a FROM t", ElapsedMs: 1},
		{SQL: "SELECT b FROM t", ElapsedMs: 2},
		{SQL: "SELECT a FROM  t", ElapsedMs: 4},
		{SQL: "SELECT b FROM t", ElapsedMs: 8},
		{SQL: "SELECT b FROM t", ElapsedMs: 16},
		{SQL: "SELECT c FROM t", ElapsedMs: 32},
	}
	base, _ := ProfileQueries(records, DefaultThresholds())

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.QueryRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, _ := ProfileQueries(shuffled, DefaultThresholds())
		require.Len(t, got.Duplicates, len(base.Duplicates))
		for j := range base.Duplicates {
			assert.Equal(t, base.Duplicates[j].NormalizedSQLHash, got.Duplicates[j].NormalizedSQLHash)
			assert.Equal(t, base.Duplicates[j].OccurrenceCount, got.Duplicates[j].OccurrenceCount)
			assert.InDelta(t, base.Duplicates[j].TotalMs, got.Duplicates[j].TotalMs, 1e-9)
		}
	}
	require.Len(t, base.Duplicates, 2)
	assert.Equal(t, 3, base.Duplicates[0].OccurrenceCount)
}

func TestProfileQueriesSlowQueryFindings(t *testing.T) {
	records := []models.QueryRecord{
		{
			SQL:       "SELECT * FROM wp_posts ORDER BY post_date",
			ElapsedMs: 220,
			Explain: []models.ExplainRow{
				{"type": "ALL", "Extra": "Using where; Using filesort", "rows": "48213"},
			},
		},
		{
			SQL:       "SELECT ID FROM wp_posts WHERE post_status = 'publish' LIMIT 10",
			ElapsedMs: 75,
			Explain:   []models.ExplainRow{{"TYPE": "ref", "extra": "Using index", "ROWS": "12"}},
		},
		{
			SQL:       "DELETE FROM wp_options WHERE option_name LIKE '_transient_%'",
			ElapsedMs: 90,
			Explain:   []models.ExplainRow{{"type": "ALL", "rows": "5000"}},
		},
	}

	report, _ := ProfileQueries(records, DefaultThresholds())
	require.Len(t, report.SlowQueries, 3)

	first := report.SlowQueries[0]
	assert.Equal(t, []string{findingSelectStar, findingOrderNoLimit, findingFullScan, findingFilesort, findingManyRows}, first.Findings)
	assert.Len(t, first.ExplainRows, 1)

	second := report.SlowQueries[1]
	assert.Empty(t, second.Findings)
	assert.Equal(t, recommendOptimized, second.Recommendation)

	third := report.SlowQueries[2]
	assert.Nil(t, third.ExplainRows, "EXPLAIN is only attached to SELECT statements")
	assert.Equal(t, recommendOptimized, third.Recommendation)
}

func TestProfileQueriesTypeBreakdownAndInvalid(t *testing.T) {
	records := []models.QueryRecord{
		{SQL: "select 1", ElapsedMs: 1},
		{SQL: "SELECT 2", ElapsedMs: 1},
		{SQL: "insert into t values (1)", ElapsedMs: 1},
		{SQL: "   ", ElapsedMs: 1},
		{SQL: "SELECT 3", ElapsedMs: -1},
	}

	report, invalid := ProfileQueries(records, DefaultThresholds())
	require.Len(t, invalid, 2)
	assert.Equal(t, 3, invalid[0].Index)
	assert.Equal(t, 4, invalid[1].Index)
	assert.Equal(t, map[string]int{"SELECT": 2, "INSERT": 1}, report.TypeBreakdown)
	assert.Equal(t, 3, report.TotalQueries)
	assert.Equal(t, models.SectionDegraded, report.Status)
}

func TestProfileQueriesRecommendationOrder(t *testing.T) {
	records := make([]models.QueryRecord, 0, 60)
	for i := 0; i < 54; i++ {
		records = append(records, models.QueryRecord{SQL: "SELECT option_value FROM wp_options WHERE option_name = 'siteurl'", ElapsedMs: 1})
	}
	for i := 0; i < 6; i++ {
		records = append(records, models.QueryRecord{SQL: "SELECT ID FROM wp_posts LIMIT " + string(rune('1'+i)), ElapsedMs: 90})
	}

	report, _ := ProfileQueries(records, DefaultThresholds())
	require.Len(t, report.Recommendations, 4)
	assert.Contains(t, report.Recommendations[0], "High query count")
	assert.Contains(t, report.Recommendations[1], "slow queries")
	assert.Contains(t, report.Recommendations[2], "duplicate")
	assert.Contains(t, report.Recommendations[3], "Total query time")
}

func TestProfileQueriesNoRecommendations(t *testing.T) {
	report, _ := ProfileQueries([]models.QueryRecord{{SQL: "SELECT 1", ElapsedMs: 2}}, DefaultThresholds())
	assert.Empty(t, report.Recommendations)
	assert.Equal(t, models.SectionComplete, report.Status)
}
