package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/wpdiag/internal/models"
)

// Error categories recognised by the default rule table.
const (
	CategoryFatal   = "fatal_errors"
	CategoryPHP     = "php_errors"
	CategoryWarning = "warnings"
	CategoryNotice  = "notices"
	CategoryCurl    = "curl_errors"
	CategoryMemory  = "memory_errors"
	CategoryTimeout = "timeout_errors"
)

// PatternRule maps a log category to its regex and static metadata.
type PatternRule struct {
	Key         string          `yaml:"key"`
	Pattern     string          `yaml:"pattern"`
	Description string          `yaml:"description"`
	Impact      string          `yaml:"impact"`
	Priority    models.Priority `yaml:"priority"`
	Remediation []string        `yaml:"remediation"`

	regex *regexp.Regexp
}

// PatternRuleFile is the YAML root structure of a rule pack.
type PatternRuleFile struct {
	Rules []PatternRule `yaml:"rules"`
}

// Classifier counts error-log lines per category. The compiled table is read-only
// after construction and safe to share between goroutines.
type Classifier struct {
	rules  []PatternRule
	logger *slog.Logger
}

// DefaultPatternRules returns the stock category table.
func DefaultPatternRules() []PatternRule {
	return []PatternRule{
		{
			Key:         CategoryFatal,
			Pattern:     `(?i)\bfatal\b`,
			Description: "Fatal errors stop PHP execution and usually render a blank page or the critical error screen.",
			Impact:      "Requests fail outright; affected pages or admin screens are unusable.",
			Priority:    models.PriorityCritical,
			Remediation: []string{
				"Increase WP_MEMORY_LIMIT if the fatal error mentions memory exhaustion",
				"Deactivate recently updated plugins one at a time to find the culprit",
				"Switch to a default theme to rule out theme code",
				"Check PHP version compatibility of plugins and theme",
			},
		},
		{
			Key:         CategoryPHP,
			Pattern:     `(?i)\bPHP (Parse|Recoverable fatal|Fatal)? ?error\b`,
			Description: "PHP parse or runtime errors raised by plugin, theme or core code.",
			Impact:      "Broken functionality on the pages that load the failing code.",
			Priority:    models.PriorityHigh,
			Remediation: []string{
				"Locate the file and line in the log entry and review recent edits",
				"Update or replace the plugin or theme that owns the failing file",
				"Run a syntax check (php -l) on custom code before deploying",
			},
		},
		{
			Key:         CategoryWarning,
			Pattern:     `(?i)\bwarning\b`,
			Description: "PHP warnings signal code paths that misbehave without stopping execution.",
			Impact:      "Possible incorrect output and extra log volume.",
			Priority:    models.PriorityMedium,
			Remediation: []string{
				"Review the warning source and update the responsible plugin or theme",
				"Disable WP_DEBUG_DISPLAY on production so warnings are not shown to visitors",
			},
		},
		{
			Key:         CategoryNotice,
			Pattern:     `(?i)\b(notice|deprecated)\b`,
			Description: "Notices and deprecations flag outdated or sloppy code.",
			Impact:      "Little direct impact; indicates future compatibility problems.",
			Priority:    models.PriorityLow,
			Remediation: []string{
				"Keep plugins and themes updated to pick up compatibility fixes",
				"Report recurring notices to the plugin or theme author",
			},
		},
		{
			Key:         CategoryCurl,
			Pattern:     `(?i)\bcurl\b.*\berror\b|cURL error \d+`,
			Description: "Outbound HTTP requests made through cURL failed.",
			Impact:      "Updates, license checks, API integrations and loopback requests may fail.",
			Priority:    models.PriorityHigh,
			Remediation: []string{
				"Verify DNS resolution and outbound firewall rules on the server",
				"Check that the CA certificate bundle is current",
				"Confirm the remote service is reachable from the server",
			},
		},
		{
			Key:         CategoryMemory,
			Pattern:     `(?i)\bmemory\b`,
			Description: "PHP ran out of memory or hit the configured memory limit.",
			Impact:      "Requests abort with fatal errors under load or on heavy admin pages.",
			Priority:    models.PriorityCritical,
			Remediation: []string{
				"Raise WP_MEMORY_LIMIT and WP_MAX_MEMORY_LIMIT in wp-config.php",
				"Raise memory_limit in php.ini if the host allows it",
				"Profile memory-heavy plugins and replace or reconfigure them",
			},
		},
		{
			Key:         CategoryTimeout,
			Pattern:     `(?i)timed? ?out\b|maximum execution time`,
			Description: "Requests or scripts exceeded their time limit.",
			Impact:      "Slow or failed page loads, stalled imports and cron jobs.",
			Priority:    models.PriorityHigh,
			Remediation: []string{
				"Identify long-running queries or remote calls in the failing request",
				"Raise max_execution_time only after fixing the underlying slowness",
				"Move heavy work to background cron events",
			},
		},
	}
}

// NewClassifier compiles the default table and merges an optional YAML rule pack from
// path: rules with a known key replace the default, new keys are appended. A missing file
// leaves the defaults in place.
func NewClassifier(path string, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rules := DefaultPatternRules()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Debug("error rule pack not found, using defaults", slog.String("path", path))
		case err != nil:
			return nil, fmt.Errorf("read rule pack: %w", err)
		default:
			var file PatternRuleFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, fmt.Errorf("parse rule pack: %w", err)
			}
			rules = mergeRules(rules, file.Rules)
		}
	}

	for i := range rules {
		if err := compileRule(&rules[i]); err != nil {
			return nil, err
		}
	}
	return &Classifier{rules: rules, logger: logger}, nil
}

// Rules returns a copy of the active table in evaluation order.
func (c *Classifier) Rules() []PatternRule {
	return append([]PatternRule(nil), c.rules...)
}

// Classify counts matches per category over the supplied log tail. A line may match
// several categories.
func (c *Classifier) Classify(facts *models.LogFacts) models.ErrorReport {
	report := models.ErrorReport{
		Status:     models.SectionUnavailable,
		Categories: make([]models.ErrorCategory, 0, len(c.rules)),
	}
	for _, rule := range c.rules {
		report.Categories = append(report.Categories, models.ErrorCategory{
			Key:         rule.Key,
			Description: rule.Description,
			Impact:      rule.Impact,
			Priority:    rule.Priority,
			Remediation: append([]string(nil), rule.Remediation...),
		})
	}
	if facts == nil || facts.Read.Failed() {
		if facts != nil {
			c.logger.Debug("error log unavailable", slog.String("error", facts.Read.Error))
		}
		return report
	}

	for _, line := range facts.Lines {
		for i, rule := range c.rules {
			if rule.regex.MatchString(line) {
				report.Categories[i].Count++
			}
		}
	}
	report.LinesScanned = len(facts.Lines)
	for _, cat := range report.Categories {
		report.TotalOccurrences += cat.Count
		if cat.Priority == models.PriorityCritical {
			report.CriticalTotal += cat.Count
		}
	}
	report.Status = models.SectionComplete
	return report
}

func mergeRules(base, overrides []PatternRule) []PatternRule {
	index := make(map[string]int, len(base))
	for i, r := range base {
		index[r.Key] = i
	}
	for _, r := range overrides {
		if i, ok := index[r.Key]; ok {
			base[i] = r
			continue
		}
		index[r.Key] = len(base)
		base = append(base, r)
	}
	return base
}

func compileRule(rule *PatternRule) error {
	if rule.Key == "" {
		return fmt.Errorf("rule pack: rule without key")
	}
	switch rule.Priority {
	case models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
	default:
		return fmt.Errorf("rule %s: unknown priority %q", rule.Key, rule.Priority)
	}
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return fmt.Errorf("rule %s: compile pattern: %w", rule.Key, err)
	}
	rule.regex = re
	return nil
}
