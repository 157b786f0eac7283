package wiki

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opinionscience/wikimetron/internal/models"
)

// DailyViews is one day of pageview counts for an article.
type DailyViews struct {
	Day   time.Time `json:"day"`
	Views int64     `json:"views"`
}

type pageviewsResponse struct {
	Items []struct {
		Timestamp string `json:"timestamp"`
		Views     int64  `json:"views"`
	} `json:"items"`
}

// Pageviews fetches the daily view counts of an article over [start, end].
// Articles unknown to the pageviews service return ErrNotFound.
func (c *Client) Pageviews(ctx context.Context, lang, title string, start, end time.Time) ([]DailyViews, error) {
	article := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	fullURL := fmt.Sprintf("%s/%s.wikipedia/all-access/user/%s/daily/%s/%s",
		c.cfg.PageviewsBaseURL, lang, article,
		start.UTC().Format("2006010200"), end.UTC().Format("2006010200"))

	var resp pageviewsResponse
	if err := c.doJSON(ctx, endpointPageviews, endpointPageviews, http.MethodGet, fullURL, nil, &resp); err != nil {
		return nil, err
	}

	series := make([]DailyViews, 0, len(resp.Items))
	for _, item := range resp.Items {
		day, err := time.Parse("2006010200", item.Timestamp)
		if err != nil {
			c.logger.Warn().Err(err).Str("title", title).Msg("Skipping unparsable pageviews bucket")
			continue
		}
		series = append(series, DailyViews{Day: day, Views: item.Views})
	}
	return series, nil
}

// EditTimeseries groups a page's revisions into daily edit counts over the
// window, reusing the revision listing. Filter may be nil.
func (c *Client) EditTimeseries(ctx context.Context, lang, title string, start, end time.Time, filter func(models.Revision) bool) (map[string]int, error) {
	revs, err := c.Revisions(ctx, lang, title, RevisionOptions{Start: start, End: end, Newest: true})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, r := range revs {
		if filter != nil && !filter(r) {
			continue
		}
		counts[r.Day()]++
	}
	return counts, nil
}
