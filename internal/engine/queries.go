package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/miradorstack/wpdiag/internal/models"
)

const (
	findingSelectStar    = "Avoid SELECT *; select only the columns you need"
	findingOrderNoLimit  = "ORDER BY without LIMIT sorts the full result set; add a LIMIT"
	findingFullScan      = "Full table scan detected; add an index on the filtered columns"
	findingFilesort      = "Query uses filesort; add an index that matches the ORDER BY"
	findingManyRows      = "Query examines more than 1000 rows; narrow the WHERE clause or add an index"
	recommendOptimized   = "Query appears optimized"
	explainRowsThreshold = 1000
)

// ProfileQueries detects slow and duplicate queries and tallies statement types.
func ProfileQueries(records []models.QueryRecord, t Thresholds) (models.QueryReport, []models.InvalidRecord) {
	t = t.withDefaults()
	report := models.QueryReport{
		Status:          models.SectionUnavailable,
		SlowThresholdMs: t.SlowQueryMs,
		SlowQueries:     []models.SlowQuery{},
		Duplicates:      []models.DuplicateGroup{},
		TypeBreakdown:   map[string]int{},
		Recommendations: []string{},
	}
	if len(records) == 0 {
		return report, nil
	}

	var invalid []models.InvalidRecord
	groups := make(map[string]*duplicateAggregate)
	for i, rec := range records {
		if rec.ElapsedMs < 0 {
			invalid = append(invalid, invalidRecord(sectionQueries, i, fmt.Sprintf("query has negative elapsed_ms %.2f", rec.ElapsedMs)))
			continue
		}
		normalized := NormalizeSQL(rec.SQL)
		if normalized == "" {
			invalid = append(invalid, invalidRecord(sectionQueries, i, "query has empty sql"))
			continue
		}

		report.TotalQueries++
		report.TotalTimeMs += rec.ElapsedMs
		report.TypeBreakdown[queryType(normalized)]++

		if rec.ElapsedMs > t.SlowQueryMs {
			report.SlowQueries = append(report.SlowQueries, analyzeSlowQuery(rec, normalized))
		}

		hash := HashSQL(normalized)
		agg, ok := groups[hash]
		if !ok {
			agg = &duplicateAggregate{sql: normalized}
			groups[hash] = agg
		}
		agg.count++
		agg.totalMs += rec.ElapsedMs
	}

	for hash, agg := range groups {
		if agg.count < 2 {
			continue
		}
		report.Duplicates = append(report.Duplicates, models.DuplicateGroup{
			NormalizedSQLHash: hash,
			SampleSQL:         agg.sql,
			OccurrenceCount:   agg.count,
			TotalMs:           agg.totalMs,
			AvgMs:             agg.totalMs / float64(agg.count),
		})
	}
	sort.Slice(report.Duplicates, func(i, j int) bool {
		if report.Duplicates[i].OccurrenceCount != report.Duplicates[j].OccurrenceCount {
			return report.Duplicates[i].OccurrenceCount > report.Duplicates[j].OccurrenceCount
		}
		return report.Duplicates[i].NormalizedSQLHash < report.Duplicates[j].NormalizedSQLHash
	})

	report.Recommendations = queryRecommendations(report, t)
	report.Status = statusFor(report.TotalQueries > 0, len(invalid) > 0)
	return report, invalid
}

// NormalizeSQL collapses runs of whitespace so formatting differences do not split
// duplicate groups.
func NormalizeSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

// HashSQL returns the hex xxhash64 digest of normalized SQL.
func HashSQL(normalized string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalized))
}

type duplicateAggregate struct {
	sql     string
	count   int
	totalMs float64
}

func queryType(normalized string) string {
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}

func analyzeSlowQuery(rec models.QueryRecord, normalized string) models.SlowQuery {
	slow := models.SlowQuery{Query: rec}
	upper := strings.ToUpper(normalized)
	isSelect := strings.HasPrefix(upper, "SELECT")
	if isSelect && len(rec.Explain) > 0 {
		slow.ExplainRows = rec.Explain
	}
	// EXPLAIN is only meaningful for SELECTs; drop it from the echoed record.
	slow.Query.Explain = nil

	if strings.Contains(upper, "SELECT *") {
		slow.Findings = append(slow.Findings, findingSelectStar)
	}
	if strings.Contains(upper, "ORDER BY") && !strings.Contains(upper, "LIMIT") {
		slow.Findings = append(slow.Findings, findingOrderNoLimit)
	}
	if explainAny(slow.ExplainRows, func(row models.ExplainRow) bool {
		return strings.EqualFold(explainValue(row, "type"), "ALL")
	}) {
		slow.Findings = append(slow.Findings, findingFullScan)
	}
	if explainAny(slow.ExplainRows, func(row models.ExplainRow) bool {
		return strings.Contains(strings.ToLower(explainValue(row, "Extra")), "filesort")
	}) {
		slow.Findings = append(slow.Findings, findingFilesort)
	}
	if explainAny(slow.ExplainRows, func(row models.ExplainRow) bool {
		rows, err := strconv.ParseFloat(explainValue(row, "rows"), 64)
		return err == nil && rows > explainRowsThreshold
	}) {
		slow.Findings = append(slow.Findings, findingManyRows)
	}

	if len(slow.Findings) == 0 {
		slow.Recommendation = recommendOptimized
	} else {
		slow.Recommendation = strings.Join(slow.Findings, "; ")
	}
	return slow
}

func explainAny(rows []models.ExplainRow, pred func(models.ExplainRow) bool) bool {
	for _, row := range rows {
		if pred(row) {
			return true
		}
	}
	return false
}

// explainValue looks up a column case-insensitively; MySQL and MariaDB disagree on casing.
func explainValue(row models.ExplainRow, column string) string {
	if v, ok := row[column]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(k, column) {
			return v
		}
	}
	return ""
}

func queryRecommendations(report models.QueryReport, t Thresholds) []string {
	recs := make([]string, 0, 4)
	if report.TotalQueries > t.MaxQueries {
		recs = append(recs, fmt.Sprintf("High query count (%d); consider an object cache to avoid repeated database work", report.TotalQueries))
	}
	if len(report.SlowQueries) > t.MaxSlowQueries {
		recs = append(recs, fmt.Sprintf("%d slow queries detected; query optimization needed", len(report.SlowQueries)))
	}
	if len(report.Duplicates) > 0 {
		recs = append(recs, fmt.Sprintf("%d duplicate query groups detected; cache results instead of re-running identical queries", len(report.Duplicates)))
	}
	if report.TotalTimeMs > t.MaxQueryTimeMs {
		recs = append(recs, fmt.Sprintf("Total query time %.1fms exceeds %.0fms; overall database optimization recommended", report.TotalTimeMs, t.MaxQueryTimeMs))
	}
	return recs
}
