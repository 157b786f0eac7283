package collectors

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/opinionscience/wikimetron/internal/wiki"
)

const (
	// recentEditorLimit bounds how many distinct recent editors the
	// per-contributor metrics inspect.
	recentEditorLimit = 10
	// contributionSampleSize bounds the contribution history fetched per
	// editor.
	contributionSampleSize = 100
	// sockpuppetRevisionLimit bounds the sockpuppet scan, which reads the
	// page history oldest first.
	sockpuppetRevisionLimit = 500
)

// recentEditors lists up to limit distinct usernames among the revisions
// preceding the window end, newest first. skipIPs drops IP editors before
// counting toward the limit.
func recentEditors(ctx context.Context, client *wiki.Client, lang, title string, w Window, limit int, skipIPs bool) ([]string, error) {
	revs, err := client.Revisions(ctx, lang, title, wiki.RevisionOptions{
		End:          w.End,
		Newest:       true,
		MaxRevisions: min(limit*3, 500),
	})
	if err != nil {
		return nil, err
	}

	var editors []string
	seen := make(map[string]struct{})
	for _, r := range revs {
		if r.User == "" {
			continue
		}
		if skipIPs && IsIPUser(r.User) {
			continue
		}
		if _, ok := seen[r.User]; ok {
			continue
		}
		seen[r.User] = struct{}{}
		editors = append(editors, r.User)
		if len(editors) >= limit {
			break
		}
	}
	return editors, nil
}

type sockpuppetCollector struct {
	wiki        *wiki.Client
	sockpuppets *UserList
	logger      zerolog.Logger
}

func (c *sockpuppetCollector) Name() string     { return MetricSockpuppet }
func (c *sockpuppetCollector) Category() string { return CategoryRisk }

// Collect scores 1.0 when any known sockpuppet account appears among the
// first revisions of the page history (oldest first), 0.0 otherwise.
func (c *sockpuppetCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	if c.sockpuppets.Len() == 0 {
		scores := make(map[string]float64, len(titles))
		for _, title := range titles {
			scores[title] = 0.0
		}
		return scores, nil
	}
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		revs, err := c.wiki.Revisions(ctx, lang, title, wiki.RevisionOptions{
			MaxRevisions: sockpuppetRevisionLimit,
		})
		if err != nil {
			return 0, err
		}
		for _, r := range revs {
			if c.sockpuppets.Contains(r.User) {
				return 1.0, nil
			}
		}
		return 0.0, nil
	})
}

type anonymityCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *anonymityCollector) Name() string     { return MetricAnonymity }
func (c *anonymityCollector) Category() string { return CategoryRisk }

// Collect scores 0.1 per anonymous edit in the window, capped at 1.0.
// Anonymous covers IP editors and temporary accounts.
func (c *anonymityCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		revs, err := c.wiki.Revisions(ctx, lang, title, wiki.RevisionOptions{Start: w.Start, End: w.End})
		if err != nil {
			return 0, err
		}
		anon := 0
		for _, r := range revs {
			if IsAnonymousEdit(r) {
				anon++
			}
		}
		return clamp01(0.1 * float64(anon)), nil
	})
}

type contributorConcentrationCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *contributorConcentrationCollector) Name() string     { return MetricContributorConcentration }
func (c *contributorConcentrationCollector) Category() string { return CategoryRisk }

// Collect measures the share of the most active contributor among the last
// 10 revisions before the window end.
func (c *contributorConcentrationCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		revs, err := c.wiki.Revisions(ctx, lang, title, wiki.RevisionOptions{End: w.End, Newest: true, MaxRevisions: 10})
		if err != nil {
			return 0, err
		}
		counts := make(map[string]int)
		total, top := 0, 0
		for _, r := range revs {
			if r.User == "" {
				continue
			}
			counts[r.User]++
			total++
			if counts[r.User] > top {
				top = counts[r.User]
			}
		}
		if total == 0 {
			return 0.0, nil
		}
		return float64(top) / float64(total), nil
	})
}

type sporadicityCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *sporadicityCollector) Name() string     { return MetricSporadicity }
func (c *sporadicityCollector) Category() string { return CategoryRisk }

// Collect averages an activity-span score over the page's recent editors.
// An editor active for a year or more scores 1.0, a drive-by account 0.0;
// temporary accounts count as maximally sporadic.
func (c *sporadicityCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		editors, err := recentEditors(ctx, c.wiki, lang, title, w, recentEditorLimit, true)
		if err != nil {
			return 0, err
		}
		if len(editors) == 0 {
			return 0.0, nil
		}

		var sum float64
		for _, user := range editors {
			sum += c.editorScore(ctx, lang, user, w)
		}
		return sum / float64(len(editors)), nil
	})
}

func (c *sporadicityCollector) editorScore(ctx context.Context, lang, user string, w Window) float64 {
	if IsTemporaryAccount(user) || IsIPUser(user) {
		return 1.0
	}
	contribs, err := c.wiki.UserContributions(ctx, lang, user, contributionSampleSize, w.End)
	if err != nil {
		c.logger.Debug().Err(err).Str("user", user).Msg("Contribution lookup failed")
		return 0.0
	}
	if len(contribs) < 2 {
		return 0.0
	}
	span := contribs[0].Timestamp.Sub(contribs[len(contribs)-1].Timestamp)
	if span < 0 {
		span = -span
	}
	return clamp01(span.Hours() / 24 / 365)
}

type contributorBalanceCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *contributorBalanceCollector) Name() string     { return MetricContributorBalance }
func (c *contributorBalanceCollector) Category() string { return CategoryRisk }

// Collect averages, over the page's recent editors, how one-sided each
// editor's own contribution history is between additions and deletions.
func (c *contributorBalanceCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		editors, err := recentEditors(ctx, c.wiki, lang, title, w, recentEditorLimit, false)
		if err != nil {
			return 0, err
		}
		if len(editors) == 0 {
			return 0.0, nil
		}

		var sum float64
		for _, user := range editors {
			contribs, err := c.wiki.UserContributions(ctx, lang, user, contributionSampleSize, w.End)
			if err != nil {
				c.logger.Debug().Err(err).Str("user", user).Msg("Contribution lookup failed")
				continue
			}
			adds, dels := 0, 0
			for _, cb := range contribs {
				switch {
				case cb.SizeDiff > 0:
					adds++
				case cb.SizeDiff < 0:
					dels++
				}
			}
			if total := adds + dels; total > 0 {
				diff := adds - dels
				if diff < 0 {
					diff = -diff
				}
				sum += float64(diff) / float64(total)
			}
		}
		return sum / float64(len(editors)), nil
	})
}
