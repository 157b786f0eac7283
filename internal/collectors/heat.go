package collectors

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/opinionscience/wikimetron/internal/models"
	"github.com/opinionscience/wikimetron/internal/wiki"
)

// spikeScore measures how far the series peak sits above its median,
// normalized against a reference spike value.
func spikeScore(series []float64, reference float64) float64 {
	if len(series) == 0 {
		return 0.0
	}
	med := median(series)
	mx := series[0]
	for _, v := range series[1:] {
		if v > mx {
			mx = v
		}
	}
	spike := (mx - med) / (med + 1)
	return clamp01(spike / reference)
}

func median(series []float64) float64 {
	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// dailyCounts buckets revisions into one count per day of the window,
// zero-filling days without edits so quiet days pull the median down.
func dailyCounts(revs []models.Revision, w Window, include func(models.Revision) bool) []float64 {
	byDay := make(map[string]float64)
	for _, r := range revs {
		if include != nil && !include(r) {
			continue
		}
		byDay[r.Day()]++
	}

	var series []float64
	for day := w.Start.UTC().Truncate(24 * time.Hour); !day.After(w.End.UTC()); day = day.AddDate(0, 0, 1) {
		series = append(series, byDay[day.Format("2006-01-02")])
	}
	return series
}

type pageviewSpikeCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *pageviewSpikeCollector) Name() string     { return MetricPageviewSpike }
func (c *pageviewSpikeCollector) Category() string { return CategoryHeat }

func (c *pageviewSpikeCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		views, err := c.wiki.Pageviews(ctx, lang, title, w.Start, w.End)
		if err != nil {
			return 0, err
		}
		series := make([]float64, len(views))
		for i, v := range views {
			series[i] = float64(v.Views)
		}
		return spikeScore(series, pageviewSpikeReference), nil
	})
}

type editSpikeCollector struct {
	wiki        *wiki.Client
	excludeBots bool
	logger      zerolog.Logger
}

func (c *editSpikeCollector) Name() string     { return MetricEditSpike }
func (c *editSpikeCollector) Category() string { return CategoryHeat }

func (c *editSpikeCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		revs, err := c.wiki.Revisions(ctx, lang, title, wiki.RevisionOptions{Start: w.Start, End: w.End, Newest: true})
		if err != nil {
			return 0, err
		}
		var include func(models.Revision) bool
		if c.excludeBots {
			include = func(r models.Revision) bool { return !IsBotName(r.User) }
		}
		return spikeScore(dailyCounts(revs, w, include), editSpikeReference), nil
	})
}

type revertRiskCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *revertRiskCollector) Name() string     { return MetricRevertRisk }
func (c *revertRiskCollector) Category() string { return CategoryHeat }

func (c *revertRiskCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		revs, err := c.wiki.Revisions(ctx, lang, title, wiki.RevisionOptions{Start: w.Start, End: w.End, Newest: true})
		if err != nil {
			return 0, err
		}
		var sum float64
		scored := 0
		for _, rev := range revs {
			p, err := c.wiki.RevertRisk(ctx, lang, rev.ID)
			if err != nil {
				c.logger.Debug().Err(err).Int64("rev_id", rev.ID).Msg("Revert risk inference failed")
				continue
			}
			sum += p
			scored++
		}
		if scored == 0 {
			return 0.0, nil
		}
		return sum / float64(scored), nil
	})
}

type protectionCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *protectionCollector) Name() string     { return MetricProtection }
func (c *protectionCollector) Category() string { return CategoryHeat }

func (c *protectionCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		entries, err := c.wiki.Protection(ctx, lang, title)
		if err != nil {
			return 0, err
		}
		score := 0.0
		for _, e := range entries {
			if e.Type != "edit" {
				continue
			}
			if s, ok := protectionLevelScores[e.Level]; ok && s > score {
				score = s
			}
		}
		return score, nil
	})
}

type discussionCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *discussionCollector) Name() string     { return MetricDiscussion }
func (c *discussionCollector) Category() string { return CategoryHeat }

func (c *discussionCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		revs, err := c.wiki.Revisions(ctx, lang, TalkTitle(lang, title), wiki.RevisionOptions{Start: w.Start, End: w.End})
		if err != nil {
			return 0, err
		}
		return clamp01(0.1 * float64(len(revs))), nil
	})
}
