package engine

import (
	"strings"

	"github.com/miradorstack/wpdiag/internal/models"
)

const (
	recommendEnableObjectCache = "Enable a persistent object cache (Redis or Memcached) to cut repeated database queries"
	recommendInstallPageCache  = "Install a page caching plugin to serve cached HTML to anonymous visitors"
	recommendCachingOptimal    = "Caching configuration looks optimal"
)

type namedMarker struct {
	marker string
	name   string
}

// knownCachePlugins maps plugin slugs to display names, in report order.
var knownCachePlugins = []namedMarker{
	{"wp-rocket", "WP Rocket"},
	{"w3-total-cache", "W3 Total Cache"},
	{"wp-super-cache", "WP Super Cache"},
	{"litespeed-cache", "LiteSpeed Cache"},
	{"wp-fastest-cache", "WP Fastest Cache"},
	{"cache-enabler", "Cache Enabler"},
	{"comet-cache", "Comet Cache"},
	{"hummingbird-performance", "Hummingbird"},
	{"sg-cachepress", "SiteGround Optimizer"},
	{"breeze", "Breeze"},
	{"swift-performance-lite", "Swift Performance"},
}

// cdnHeaders maps lower-cased response header names to CDN names; first match wins.
var cdnHeaders = []namedMarker{
	{"cf-ray", "Cloudflare"},
	{"x-amz-cf-id", "Amazon CloudFront"},
	{"x-fastly-request-id", "Fastly"},
	{"x-akamai-transformed", "Akamai"},
	{"x-sucuri-id", "Sucuri"},
	{"x-cdn", "StackPath"},
	{"cdn-pullzone", "BunnyCDN"},
	{"x-bunnycdn-request-id", "BunnyCDN"},
	{"x-azure-ref", "Azure Front Door"},
	{"x-edge-location", "KeyCDN"},
}

// cdnMarkers maps plugin slugs or capability names to CDN names.
var cdnMarkers = []namedMarker{
	{"cloudflare", "Cloudflare"},
	{"jetpack_photon", "Jetpack Site Accelerator"},
	{"cdn-enabler", "CDN Enabler"},
	{"bunnycdn", "BunnyCDN"},
	{"wp-cloudflare-page-cache", "Cloudflare"},
}

// objectCacheMarkers maps capability names to object cache backends.
var objectCacheMarkers = []struct {
	marker string
	typ    models.ObjectCacheType
}{
	{"redis", models.ObjectCacheRedis},
	{"memcached", models.ObjectCacheMemcached},
	{"memcache", models.ObjectCacheMemcached},
	{"apcu", models.ObjectCacheAPCu},
}

// DetectCache infers the caching layers in front of the site. The hit rate comes from a
// synthetic write/read round trip and is a smoke test of the cache layer, not a traffic
// sample.
func DetectCache(facts *models.CacheFacts, t Thresholds) models.CacheReport {
	t = t.withDefaults()
	report := models.CacheReport{
		Status:           models.SectionUnavailable,
		ObjectCacheType:  models.ObjectCacheNone,
		PageCachePlugins: []string{},
		Recommendations:  []string{},
	}
	if facts == nil {
		return report
	}

	report.ObjectCacheEnabled = facts.ObjectCacheEnabled
	if facts.ObjectCacheEnabled {
		report.ObjectCacheType = objectCacheType(facts.ObjectCacheHint, facts.Capabilities)
	}

	slugs := pluginSlugs(facts.ActivePlugins)
	for _, p := range knownCachePlugins {
		if _, ok := slugs[p.marker]; ok {
			report.PageCachePlugins = append(report.PageCachePlugins, p.name)
		}
	}

	if name, ok := cdnFromHeaders(facts.Headers); ok {
		report.CDNDetected, report.CDNType = true, name
	} else if name, ok := cdnFromMarkers(slugs, facts.Capabilities); ok {
		report.CDNDetected, report.CDNType = true, name
	}

	if rt := facts.RoundTrip; rt != nil && rt.Attempted > 0 && !rt.Probe.Failed() {
		hits := rt.Hits
		if hits > rt.Attempted {
			hits = rt.Attempted
		}
		rate := float64(hits) / float64(rt.Attempted) * 100
		report.HitRatePct = &rate
	}

	if !report.ObjectCacheEnabled {
		report.Recommendations = append(report.Recommendations, recommendEnableObjectCache)
	}
	switch n := len(report.PageCachePlugins); {
	case n == 0:
		report.Recommendations = append(report.Recommendations, recommendInstallPageCache)
	case n > 1:
		report.Recommendations = append(report.Recommendations,
			"Multiple page caching plugins active ("+strings.Join(report.PageCachePlugins, ", ")+"); keep only one to avoid conflicts")
	}
	if report.HitRatePct != nil && *report.HitRatePct < t.MinCacheHitRate {
		report.Recommendations = append(report.Recommendations, "Cache hit rate is below target; review the object cache configuration and eviction policy")
	}
	if len(report.Recommendations) == 0 {
		report.Recommendations = append(report.Recommendations, recommendCachingOptimal)
	}

	report.Status = models.SectionComplete
	if facts.HeaderProbe.Status != models.ProbeOK || report.HitRatePct == nil {
		report.Status = models.SectionDegraded
	}
	return report
}

func objectCacheType(hint string, caps map[string]bool) models.ObjectCacheType {
	hint = strings.ToLower(hint)
	for _, m := range objectCacheMarkers {
		if strings.Contains(hint, m.marker) {
			return m.typ
		}
	}
	for _, m := range objectCacheMarkers {
		if capabilityEnabled(caps, m.marker) {
			return m.typ
		}
	}
	return models.ObjectCacheNone
}

// pluginSlugs turns plugin identifiers such as "wp-rocket/wp-rocket.php" into slugs.
func pluginSlugs(plugins []string) map[string]struct{} {
	slugs := make(map[string]struct{}, len(plugins))
	for _, p := range plugins {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if i := strings.Index(p, "/"); i >= 0 {
			p = p[:i]
		}
		p = strings.TrimSuffix(p, ".php")
		slugs[p] = struct{}{}
	}
	return slugs
}

func cdnFromHeaders(headers map[string]string) (string, bool) {
	if len(headers) == 0 {
		return "", false
	}
	lower := make(map[string]string, len(headers))
	for k, v := range headers {
		lower[strings.ToLower(k)] = v
	}
	for _, h := range cdnHeaders {
		if _, ok := lower[h.marker]; ok {
			return h.name, true
		}
	}
	if server := strings.ToLower(lower["server"]); server != "" {
		switch {
		case strings.Contains(server, "cloudflare"):
			return "Cloudflare", true
		case strings.Contains(server, "cloudfront"):
			return "Amazon CloudFront", true
		}
	}
	return "", false
}

func cdnFromMarkers(slugs map[string]struct{}, caps map[string]bool) (string, bool) {
	for _, m := range cdnMarkers {
		if _, ok := slugs[m.marker]; ok {
			return m.name, true
		}
		if capabilityEnabled(caps, m.marker) {
			return m.name, true
		}
	}
	return "", false
}

func capabilityEnabled(caps map[string]bool, name string) bool {
	for k, v := range caps {
		if v && strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
