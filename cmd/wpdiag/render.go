package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/miradorstack/wpdiag/internal/models"
)

const notAvailable = "N/A"

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func renderSummary(w io.Writer, r models.Report) {
	fmt.Fprintf(w, "\n%s\n", cyan("=== WordPress Diagnostics ==="))
	if r.SiteURL != "" {
		fmt.Fprintf(w, "Site:   %s\n", r.SiteURL)
	}
	fmt.Fprintf(w, "Report: %s (%s)\n\n", r.ID, r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	section(w, "Performance", r.Timing.Status)
	if r.Timing.Status != models.SectionUnavailable {
		for _, row := range r.Timing.Rows {
			fmt.Fprintf(w, "  %-28s %9.2f ms %6.2f%%  %s\n", row.Label, row.ElapsedMs, row.Percentage, severityColor(row.Severity)(string(row.Severity)))
		}
		for _, hook := range r.Hooks.Top {
			fmt.Fprintf(w, "  hook %-23s %d calls\n", hook.Name, hook.Calls)
		}
	}

	section(w, "Database", r.Queries.Status)
	if r.Queries.Status != models.SectionUnavailable {
		fmt.Fprintf(w, "  %d queries, %.2f ms total, %d slow (> %.0f ms), %d duplicate groups\n",
			r.Queries.TotalQueries, r.Queries.TotalTimeMs, len(r.Queries.SlowQueries), r.Queries.SlowThresholdMs, len(r.Queries.Duplicates))
		recommendations(w, r.Queries.Recommendations)
	}

	section(w, "Cron", r.Cron.Status)
	if r.Cron.Status != models.SectionUnavailable {
		loopback := notAvailable
		switch r.Cron.LoopbackStatus {
		case models.ProbeOK:
			loopback = green("ok")
		case models.ProbeFailed:
			loopback = red("failed")
		}
		fmt.Fprintf(w, "  %d events, %d due, %d overdue, loopback %s\n", r.Cron.TotalJobs, r.Cron.DueCount, r.Cron.OverdueCount, loopback)
		for _, issue := range r.Cron.Issues {
			fmt.Fprintf(w, "  %s %s\n", yellow("!"), issue)
		}
	}

	section(w, "Security", r.Risk.Status)
	if r.Risk.Status != models.SectionUnavailable {
		core := notAvailable
		if r.Risk.Core.Known {
			core = orNA(r.Risk.Core.Current) + " (latest " + orNA(r.Risk.Core.Latest) + ")"
		}
		fmt.Fprintf(w, "  core %s, score %.1f, risk %s\n", core, r.Risk.Score, riskColor(r.Risk.Level)(string(r.Risk.Level)))
		recommendations(w, r.Risk.Recommendations)
	}

	section(w, "Error log", r.Errors.Status)
	if r.Errors.Status != models.SectionUnavailable {
		fmt.Fprintf(w, "  %d lines scanned, %d matches (%d critical)\n", r.Errors.LinesScanned, r.Errors.TotalOccurrences, r.Errors.CriticalTotal)
		for _, cat := range r.Errors.Categories {
			if cat.Count == 0 {
				continue
			}
			fmt.Fprintf(w, "  %-16s %5d  %s\n", cat.Key, cat.Count, priorityColor(cat.Priority)(string(cat.Priority)))
		}
	}

	section(w, "Caching", r.Cache.Status)
	if r.Cache.Status != models.SectionUnavailable {
		hitRate := notAvailable
		if r.Cache.HitRatePct != nil {
			hitRate = fmt.Sprintf("%.1f%%", *r.Cache.HitRatePct)
		}
		cdn := notAvailable
		if r.Cache.CDNDetected {
			cdn = r.Cache.CDNType
		}
		pageCache := notAvailable
		if len(r.Cache.PageCachePlugins) > 0 {
			pageCache = strings.Join(r.Cache.PageCachePlugins, ", ")
		}
		fmt.Fprintf(w, "  object cache %s, page cache %s, CDN %s, hit rate %s\n", r.Cache.ObjectCacheType, pageCache, cdn, hitRate)
		recommendations(w, r.Cache.Recommendations)
	}

	if n := len(r.InvalidRecords); n > 0 {
		fmt.Fprintf(w, "\n%s %d input records skipped as invalid\n", yellow("!"), n)
	}
}

func section(w io.Writer, title string, status models.SectionStatus) {
	label := green(string(status))
	switch status {
	case models.SectionDegraded:
		label = yellow(string(status))
	case models.SectionUnavailable:
		label = gray(notAvailable)
	}
	fmt.Fprintf(w, "\n%s %s\n", cyan(title+":"), label)
}

func recommendations(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "  → %s\n", item)
	}
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return notAvailable
	}
	return v
}

func severityColor(s models.Severity) func(a ...interface{}) string {
	switch s {
	case models.SeveritySlow, models.SeverityHigh:
		return red
	case models.SeverityWarning:
		return yellow
	default:
		return green
	}
}

func riskColor(l models.RiskLevel) func(a ...interface{}) string {
	switch l {
	case models.RiskHigh:
		return red
	case models.RiskMedium:
		return yellow
	default:
		return green
	}
}

func priorityColor(p models.Priority) func(a ...interface{}) string {
	switch p {
	case models.PriorityCritical, models.PriorityHigh:
		return red
	case models.PriorityMedium:
		return yellow
	default:
		return gray
	}
}
