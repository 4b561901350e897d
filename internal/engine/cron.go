package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/miradorstack/wpdiag/internal/models"
)

const (
	issueCronDisabled   = "WP-Cron is disabled (DISABLE_WP_CRON); make sure a system cron calls wp-cron.php"
	issueSelfTestFailed = "Cron scheduling self-test failed; events cannot be scheduled"
)

// EvaluateCron classifies scheduled events as due/overdue and derives the issue list.
// now is used when facts.Now is zero.
func EvaluateCron(facts *models.CronFacts, now time.Time, t Thresholds) models.CronHealth {
	t = t.withDefaults()
	health := models.CronHealth{
		Status:       models.SectionUnavailable,
		GraceSeconds: t.CronGrace.Seconds(),
		Jobs:         []models.CronJob{},
		Issues:       []string{},
	}
	if facts == nil {
		return health
	}
	if !facts.Now.IsZero() {
		now = facts.Now
	}

	for ts, hooks := range facts.Table {
		runAt := time.Unix(ts, 0).UTC()
		for hook, events := range hooks {
			if len(events) == 0 {
				events = [][]any{nil}
			}
			for _, args := range events {
				job := classifyJob(hook, runAt, args, now, t.CronGrace)
				health.Jobs = append(health.Jobs, job)
			}
		}
	}
	sort.SliceStable(health.Jobs, func(i, j int) bool {
		if !health.Jobs[i].RunAt.Equal(health.Jobs[j].RunAt) {
			return health.Jobs[i].RunAt.Before(health.Jobs[j].RunAt)
		}
		return health.Jobs[i].HookName < health.Jobs[j].HookName
	})

	for _, job := range health.Jobs {
		if job.IsDue {
			health.DueCount++
		}
		if job.IsOverdue {
			health.OverdueCount++
		}
		if !job.IsDue && health.NextRun == nil {
			next := job.RunAt
			health.NextRun = &next
		}
	}
	health.TotalJobs = len(health.Jobs)
	health.Disabled = facts.Disabled
	health.LoopbackOK = facts.Loopback.OK()
	health.LoopbackStatus = facts.Loopback.Status

	if facts.Disabled {
		health.Issues = append(health.Issues, issueCronDisabled)
	}
	if health.OverdueCount > t.MaxOverdueJobs {
		health.Issues = append(health.Issues, fmt.Sprintf("%d overdue cron events; scheduled tasks are not running on time", health.OverdueCount))
	}
	if facts.SelfTest != nil && facts.SelfTest.Failed() {
		health.Issues = append(health.Issues, issueSelfTestFailed)
	}
	if facts.Loopback.Failed() {
		msg := "Loopback request to wp-cron.php failed"
		if facts.Loopback.Error != "" {
			msg += ": " + facts.Loopback.Error
		}
		health.Issues = append(health.Issues, msg)
	}

	health.Status = models.SectionComplete
	if facts.Loopback.Status == models.ProbeUnknown || facts.Loopback.Failed() {
		health.Status = models.SectionDegraded
	}
	return health
}

func classifyJob(hook string, runAt time.Time, args []any, now time.Time, grace time.Duration) models.CronJob {
	job := models.CronJob{HookName: hook, RunAt: runAt, Args: args}
	if runAt.After(now) {
		return job
	}
	job.IsDue = true
	if late := now.Sub(runAt); late > grace {
		job.IsOverdue = true
		job.OverdueBySec = late.Seconds()
	}
	return job
}
