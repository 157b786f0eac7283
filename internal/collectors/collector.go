// Package collectors implements the sensitivity signals. Each collector
// turns a batch of page titles in one language edition into a score per
// title, normalized to [0, 1].
package collectors

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/opinionscience/wikimetron/internal/metrics"
	"github.com/opinionscience/wikimetron/internal/wiki"
)

// Metric names. These are the column keys of the metric matrix.
const (
	MetricPageviewSpike            = "pageview_spike"
	MetricEditSpike                = "edit_spike"
	MetricRevertRisk               = "revert_risk"
	MetricProtection               = "protection"
	MetricDiscussion               = "discussion_intensity"
	MetricSuspiciousSources        = "suspicious_sources"
	MetricFeaturedArticle          = "featured_article"
	MetricCitationGap              = "citation_gap"
	MetricStaleness                = "staleness"
	MetricSourceConcentration      = "source_concentration"
	MetricAddDeleteRatio           = "add_delete_ratio"
	MetricSockpuppet               = "sockpuppet"
	MetricAnonymity                = "anonymity"
	MetricContributorConcentration = "contributor_concentration"
	MetricSporadicity              = "sporadicity"
	MetricContributorBalance       = "contributor_balance"
)

// Categories group metrics into the three composite indicators.
const (
	CategoryHeat    = "heat"
	CategoryQuality = "quality"
	CategoryRisk    = "risk"
)

// Window is the analysis date range, already widened to full days UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// Collector computes one signal for a batch of pages in a single language.
// Implementations absorb per-page failures (a failing page scores 0.0) and
// only return an error when the whole batch is unusable.
type Collector interface {
	Name() string
	Category() string
	Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error)
}

// Deps carries the shared dependencies of all collectors.
type Deps struct {
	Wiki        *wiki.Client
	Blacklist   *DomainList
	Sockpuppets *UserList
	// ExcludeBots drops bot-named editors from the edit-spike series.
	ExcludeBots bool
	// ExcludePrivileged drops admin and flagged-bot revisions from the
	// add/delete-ratio sample, at the cost of a user-groups lookup.
	ExcludePrivileged bool
	Logger            zerolog.Logger
}

// All returns every collector, wired with the given dependencies.
func All(d Deps) []Collector {
	logger := d.Logger.With().Str("component", "collectors").Logger()
	return []Collector{
		// Heat
		&pageviewSpikeCollector{wiki: d.Wiki, logger: logger},
		&editSpikeCollector{wiki: d.Wiki, excludeBots: d.ExcludeBots, logger: logger},
		&revertRiskCollector{wiki: d.Wiki, logger: logger},
		&protectionCollector{wiki: d.Wiki, logger: logger},
		&discussionCollector{wiki: d.Wiki, logger: logger},
		// Quality
		&suspiciousSourcesCollector{wiki: d.Wiki, blacklist: d.Blacklist, logger: logger},
		&featuredArticleCollector{wiki: d.Wiki, logger: logger},
		&citationGapCollector{wiki: d.Wiki, logger: logger},
		&stalenessCollector{wiki: d.Wiki, logger: logger},
		&sourceConcentrationCollector{wiki: d.Wiki, logger: logger},
		&addDeleteRatioCollector{wiki: d.Wiki, excludePrivileged: d.ExcludePrivileged, logger: logger},
		// Risk
		&sockpuppetCollector{wiki: d.Wiki, sockpuppets: d.Sockpuppets, logger: logger},
		&anonymityCollector{wiki: d.Wiki, logger: logger},
		&contributorConcentrationCollector{wiki: d.Wiki, logger: logger},
		&sporadicityCollector{wiki: d.Wiki, logger: logger},
		&contributorBalanceCollector{wiki: d.Wiki, logger: logger},
	}
}

// collectPerPage runs fn for every title, mapping failures to 0.0. Missing
// pages are expected and stay quiet; other failures are logged and counted.
func collectPerPage(ctx context.Context, metric string, logger zerolog.Logger, titles []string,
	fn func(ctx context.Context, title string) (float64, error)) (map[string]float64, error) {

	scores := make(map[string]float64, len(titles))
	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := fn(ctx, title)
		if err != nil {
			if !errors.Is(err, wiki.ErrNotFound) {
				logger.Warn().Err(err).Str("metric", metric).Str("title", title).Msg("Collector zeroed a page")
				metrics.CollectorFailuresTotal.WithLabelValues(metric).Inc()
			}
			v = 0.0
		}
		scores[title] = v
	}
	return scores, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
