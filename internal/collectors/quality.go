package collectors

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opinionscience/wikimetron/internal/models"
	"github.com/opinionscience/wikimetron/internal/wiki"
)

var (
	refBlockPattern = regexp.MustCompile(`(?is)<ref[^>/]*>(.*?)</ref>`)
	gradeENPattern  = regexp.MustCompile(`(?i)\|\s*class\s*=\s*([^\s|}]+)`)
	gradeFRPattern  = regexp.MustCompile(`(?i)avancement\s*=\s*([^|}]+)`)
)

// refHosts extracts the hostnames of URLs cited inside <ref> blocks.
func refHosts(text string) []string {
	var hosts []string
	for _, m := range refBlockPattern.FindAllStringSubmatch(text, -1) {
		hosts = append(hosts, extractHosts(m[1])...)
	}
	return hosts
}

type suspiciousSourcesCollector struct {
	wiki      *wiki.Client
	blacklist *DomainList
	logger    zerolog.Logger
}

func (c *suspiciousSourcesCollector) Name() string     { return MetricSuspiciousSources }
func (c *suspiciousSourcesCollector) Category() string { return CategoryQuality }

// Collect scores 0.0 for no blacklisted source domain, 0.5 for exactly one,
// 1.0 for two or more distinct ones. Pages without any URL score 0.0.
func (c *suspiciousSourcesCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		text, err := c.wiki.Wikitext(ctx, lang, title)
		if err != nil {
			return 0, err
		}
		matched := make(map[string]struct{})
		for _, host := range extractHosts(text) {
			if c.blacklist.Matches(host) {
				matched[host] = struct{}{}
			}
		}
		switch len(matched) {
		case 0:
			return 0.0, nil
		case 1:
			return 0.5, nil
		default:
			return 1.0, nil
		}
	})
}

type featuredArticleCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *featuredArticleCollector) Name() string     { return MetricFeaturedArticle }
func (c *featuredArticleCollector) Category() string { return CategoryQuality }

// Collect reads the assessment banner on the talk page. Featured articles
// score 0.0 and stubs 1.0; languages without a supported grading scheme get
// a neutral 0.5, unrated fr/en pages 0.0.
func (c *featuredArticleCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	if lang != "fr" && lang != "en" {
		scores := make(map[string]float64, len(titles))
		for _, title := range titles {
			scores[title] = 0.5
		}
		return scores, nil
	}
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		text, err := c.wiki.Wikitext(ctx, lang, TalkTitle(lang, title))
		if err != nil {
			return 0, err
		}
		return gradeScore(text, lang), nil
	})
}

func gradeScore(talkText, lang string) float64 {
	if lang == "en" {
		m := gradeENPattern.FindStringSubmatch(talkText)
		if m == nil {
			return 0.0
		}
		return gradeScoresEN[strings.ToLower(strings.TrimSpace(m[1]))]
	}
	m := gradeFRPattern.FindStringSubmatch(talkText)
	if m == nil {
		return 0.0
	}
	grade := strings.ToLower(strings.TrimSpace(m[1]))
	if alias, ok := gradeAliasesFR[grade]; ok {
		grade = alias
	}
	return gradeScoresFR[grade]
}

type citationGapCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *citationGapCollector) Name() string     { return MetricCitationGap }
func (c *citationGapCollector) Category() string { return CategoryQuality }

// Collect scores 1.0 for pages without a single <ref>, otherwise 0.1 per
// "citation needed" template, capped at 1.0.
func (c *citationGapCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		text, err := c.wiki.Wikitext(ctx, lang, title)
		if err != nil {
			return 0, err
		}
		if countRefTags(text) == 0 {
			return 1.0, nil
		}
		return clamp01(0.1 * float64(countCitationNeeded(text, lang))), nil
	})
}

type stalenessCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *stalenessCollector) Name() string     { return MetricStaleness }
func (c *stalenessCollector) Category() string { return CategoryQuality }

// Collect measures the age of the 10th most recent revision before the
// window end, saturating at one year. Pages with fewer revisions use the
// oldest available; pages with none score 1.0.
func (c *stalenessCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		revs, err := c.wiki.Revisions(ctx, lang, title, wiki.RevisionOptions{End: w.End, Newest: true, MaxRevisions: 10})
		if err != nil {
			return 0, err
		}
		if len(revs) == 0 {
			return 1.0, nil
		}
		anchor := revs[len(revs)-1]
		days := w.End.Sub(anchor.Timestamp).Hours() / 24
		return clamp01(days / 365), nil
	})
}

type sourceConcentrationCollector struct {
	wiki   *wiki.Client
	logger zerolog.Logger
}

func (c *sourceConcentrationCollector) Name() string     { return MetricSourceConcentration }
func (c *sourceConcentrationCollector) Category() string { return CategoryQuality }

// Collect measures how much the most cited domain dominates the page's
// references. Pages without reference URLs score 0.0.
func (c *sourceConcentrationCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		text, err := c.wiki.Wikitext(ctx, lang, title)
		if err != nil {
			return 0, err
		}
		hosts := refHosts(text)
		if len(hosts) == 0 {
			return 0.0, nil
		}
		counts := make(map[string]int)
		top := 0
		for _, h := range hosts {
			counts[h]++
			if counts[h] > top {
				top = counts[h]
			}
		}
		return float64(top) / float64(len(hosts)), nil
	})
}

type addDeleteRatioCollector struct {
	wiki              *wiki.Client
	excludePrivileged bool
	logger            zerolog.Logger
}

func (c *addDeleteRatioCollector) Name() string     { return MetricAddDeleteRatio }
func (c *addDeleteRatioCollector) Category() string { return CategoryQuality }

// privilegedGroups are the user groups dropped from the add/delete sample
// when the privileged filter is on.
var privilegedGroups = map[string]struct{}{
	"sysop": {},
	"bot":   {},
}

func isPrivileged(groups []string) bool {
	for _, g := range groups {
		if _, ok := privilegedGroups[g]; ok {
			return true
		}
	}
	return false
}

// Collect compares additions against deletions over the 10 revisions
// preceding the window end. A page swinging only one way scores 1.0, a
// balanced page 0.0. With the privileged filter on, revisions by admins and
// flagged bots are dropped from the sample first.
func (c *addDeleteRatioCollector) Collect(ctx context.Context, lang string, titles []string, w Window) (map[string]float64, error) {
	return collectPerPage(ctx, c.Name(), c.logger, titles, func(ctx context.Context, title string) (float64, error) {
		revs, err := c.wiki.Revisions(ctx, lang, title, wiki.RevisionOptions{End: w.End, Newest: true, MaxRevisions: 10})
		if err != nil {
			return 0, err
		}
		if c.excludePrivileged {
			revs, err = c.dropPrivileged(ctx, lang, revs)
			if err != nil {
				return 0, err
			}
		}
		sort.Slice(revs, func(i, j int) bool { return revs[i].Timestamp.Before(revs[j].Timestamp) })

		adds, dels := 0, 0
		for i := 1; i < len(revs); i++ {
			switch delta := revs[i].Size - revs[i-1].Size; {
			case delta > 0:
				adds++
			case delta < 0:
				dels++
			}
		}
		total := adds + dels
		if total == 0 {
			return 0.0, nil
		}
		diff := adds - dels
		if diff < 0 {
			diff = -diff
		}
		return float64(diff) / float64(total), nil
	})
}

// dropPrivileged removes revisions authored by sysops or flagged bots. IP
// editors carry no groups and are kept without a lookup.
func (c *addDeleteRatioCollector) dropPrivileged(ctx context.Context, lang string, revs []models.Revision) ([]models.Revision, error) {
	var users []string
	seen := make(map[string]struct{})
	for _, r := range revs {
		if r.User == "" || IsIPUser(r.User) {
			continue
		}
		if _, ok := seen[r.User]; ok {
			continue
		}
		seen[r.User] = struct{}{}
		users = append(users, r.User)
	}
	if len(users) == 0 {
		return revs, nil
	}

	groups, err := c.wiki.UserGroups(ctx, lang, users)
	if err != nil {
		return nil, err
	}
	kept := make([]models.Revision, 0, len(revs))
	for _, r := range revs {
		if isPrivileged(groups[r.User]) {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}
