package engine

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/miradorstack/wpdiag/internal/models"
)

const (
	weightCore       = 3.0
	weightPlugin     = 1.0
	weightTheme      = 0.5
	weightPermission = 1.0

	recommendSecurityGood = "Security status good; no outdated components or risky permissions found"
)

// Permission classes used by the risky-mode lookup table.
const (
	PermClassConfig    = "config"
	PermClassHtaccess  = "htaccess"
	PermClassDirectory = "directory"
	PermClassFile      = "file"
)

// PermissionTable maps a path class to the octal modes considered risky for it.
type PermissionTable map[string]map[string]struct{}

// DefaultPermissionTable returns the stock risky-mode table.
func DefaultPermissionTable() PermissionTable {
	return PermissionTable{
		PermClassConfig:    modeSet("0777", "0666", "0644"),
		PermClassHtaccess:  modeSet("0777", "0666"),
		PermClassDirectory: modeSet("0777"),
		PermClassFile:      modeSet("0777"),
	}
}

func modeSet(modes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(modes))
	for _, m := range modes {
		set[NormalizeOctal(m)] = struct{}{}
	}
	return set
}

// ScoreRisk combines update staleness and permission findings into a weighted score.
func ScoreRisk(facts *models.UpdateFacts, table PermissionTable, t Thresholds) models.RiskReport {
	t = t.withDefaults()
	if table == nil {
		table = DefaultPermissionTable()
	}
	report := models.RiskReport{
		Status:          models.SectionUnavailable,
		OutdatedPlugins: []models.OutdatedComponent{},
		OutdatedThemes:  []models.OutdatedComponent{},
		Permissions:     []models.PermissionCheck{},
		Level:           models.RiskLow,
		Recommendations: []string{},
	}
	if facts == nil {
		return report
	}

	score := 0.0
	if facts.Core != nil {
		report.Core = models.CoreStatus{
			Known:    true,
			Current:  facts.Core.Current,
			Latest:   facts.Core.Latest,
			Outdated: facts.Core.Outdated || versionNewer(facts.Core.Latest, facts.Core.Current),
		}
		if report.Core.Outdated {
			score += weightCore
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Update WordPress core from %s to %s", orUnknown(report.Core.Current), orUnknown(report.Core.Latest)))
		}
	}

	for _, p := range facts.Plugins {
		if !componentOutdated(p) {
			continue
		}
		score += weightPlugin
		report.OutdatedPlugins = append(report.OutdatedPlugins, models.OutdatedComponent{Name: p.Name, Current: p.Current, Latest: p.Latest})
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Update plugin %s from %s to %s", p.Name, orUnknown(p.Current), orUnknown(p.Latest)))
	}

	for _, th := range facts.Themes {
		if !componentOutdated(th) {
			continue
		}
		score += weightTheme
		report.OutdatedThemes = append(report.OutdatedThemes, models.OutdatedComponent{Name: th.Name, Current: th.Current, Latest: th.Latest})
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Update theme %s from %s to %s", th.Name, orUnknown(th.Current), orUnknown(th.Latest)))
	}

	for _, perm := range facts.Permissions {
		check := models.PermissionCheck{
			Path:  perm.Path,
			Octal: NormalizeOctal(perm.Octal),
			Class: classifyPath(perm),
		}
		if _, risky := table[check.Class][check.Octal]; risky {
			check.Risky = true
			score += weightPermission
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Tighten permissions on %s (currently %s)", check.Path, check.Octal))
		}
		report.Permissions = append(report.Permissions, check)
	}

	report.Score = score
	report.Level = riskLevel(score, t)
	if len(report.Recommendations) == 0 {
		report.Recommendations = append(report.Recommendations, recommendSecurityGood)
	}

	report.Status = models.SectionComplete
	if facts.Core == nil {
		report.Status = models.SectionDegraded
	}
	return report
}

func riskLevel(score float64, t Thresholds) models.RiskLevel {
	switch {
	case score >= t.RiskHighScore:
		return models.RiskHigh
	case score >= t.RiskMediumScore:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func componentOutdated(c models.ComponentVersion) bool {
	return c.Outdated || versionNewer(c.Latest, c.Current)
}

// versionNewer reports whether latest is a newer release than current. WordPress
// versions are compared as semver, then as dotted numbers of any depth (plugins ship
// "1.2.3.10"); anything else falls back to inequality.
func versionNewer(latest, current string) bool {
	latest = strings.TrimSpace(latest)
	current = strings.TrimSpace(current)
	if latest == "" || current == "" {
		return false
	}
	lv, cv := "v"+strings.TrimPrefix(latest, "v"), "v"+strings.TrimPrefix(current, "v")
	if semver.IsValid(lv) && semver.IsValid(cv) {
		return semver.Compare(lv, cv) > 0
	}
	if cmp, ok := compareDotted(latest, current); ok {
		return cmp > 0
	}
	return latest != current
}

// compareDotted compares purely numeric dotted versions segment by segment. Missing
// trailing segments count as zero, so "1.2" equals "1.2.0.0".
func compareDotted(a, b string) (int, bool) {
	as, ok := dottedSegments(a)
	if !ok {
		return 0, false
	}
	bs, ok := dottedSegments(b)
	if !ok {
		return 0, false
	}
	for i := 0; i < max(len(as), len(bs)); i++ {
		var x, y int
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		switch {
		case x > y:
			return 1, true
		case x < y:
			return -1, true
		}
	}
	return 0, true
}

func dottedSegments(v string) ([]int, bool) {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// NormalizeOctal renders a permission mode as a four-digit octal string ("644" -> "0644").
func NormalizeOctal(mode string) string {
	mode = strings.TrimSpace(mode)
	mode = strings.TrimPrefix(mode, "0o")
	if len(mode) > 4 {
		mode = mode[len(mode)-4:]
	}
	for len(mode) < 4 {
		mode = "0" + mode
	}
	return mode
}

func classifyPath(perm models.PermissionEntry) string {
	base := path.Base(strings.ReplaceAll(perm.Path, "\\", "/"))
	switch {
	case base == "wp-config.php":
		return PermClassConfig
	case base == ".htaccess":
		return PermClassHtaccess
	case perm.IsDir || strings.HasSuffix(perm.Path, "/"):
		return PermClassDirectory
	default:
		return PermClassFile
	}
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Unknown"
	}
	return v
}
