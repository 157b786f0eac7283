package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opinionscience/wikimetron/internal/models"
	"github.com/opinionscience/wikimetron/internal/resilience"
)

// userGroupBatchSize is the MediaWiki limit for list=users lookups.
const userGroupBatchSize = 50

// RevisionOptions bounds a revision listing.
type RevisionOptions struct {
	// Start and End bound the window; zero values leave the bound open.
	Start time.Time
	End   time.Time
	// Newest lists from newest to oldest when true (rvdir=older, the API
	// default); false lists oldest first.
	Newest bool
	// MaxRevisions stops the listing after this many entries (0 = all).
	MaxRevisions int
}

// Revisions lists the revision history of a page, following rvcontinue
// until the window is exhausted or MaxRevisions is reached. A missing page
// returns ErrNotFound.
func (c *Client) Revisions(ctx context.Context, lang, title string, opts RevisionOptions) ([]models.Revision, error) {
	params := url.Values{}
	params.Set("prop", "revisions")
	params.Set("titles", title)
	params.Set("rvprop", "ids|timestamp|user|flags|comment|size")
	params.Set("rvlimit", "max")

	if opts.Newest {
		params.Set("rvdir", "older")
		if !opts.End.IsZero() {
			params.Set("rvstart", opts.End.UTC().Format(time.RFC3339))
		}
		if !opts.Start.IsZero() {
			params.Set("rvend", opts.Start.UTC().Format(time.RFC3339))
		}
	} else {
		params.Set("rvdir", "newer")
		if !opts.Start.IsZero() {
			params.Set("rvstart", opts.Start.UTC().Format(time.RFC3339))
		}
		if !opts.End.IsZero() {
			params.Set("rvend", opts.End.UTC().Format(time.RFC3339))
		}
	}

	var revisions []models.Revision
	for {
		resp, err := c.query(ctx, lang, params)
		if err != nil {
			return nil, err
		}
		if len(resp.Query.Pages) == 0 {
			break
		}
		page := resp.Query.Pages[0]
		if page.Missing {
			return nil, resilience.NewNonRetryableError(
				fmt.Errorf("%w: %s (%s)", ErrNotFound, title, lang))
		}

		for _, rd := range page.Revisions {
			rev, err := rd.toModel()
			if err != nil {
				c.logger.Warn().Err(err).Str("title", title).Msg("Skipping unparsable revision")
				continue
			}
			revisions = append(revisions, rev)
			if opts.MaxRevisions > 0 && len(revisions) >= opts.MaxRevisions {
				return revisions, nil
			}
		}

		cont, ok := resp.Continue["rvcontinue"]
		if !ok {
			break
		}
		params.Set("rvcontinue", cont)
	}
	return revisions, nil
}

func (rd revisionData) toModel() (models.Revision, error) {
	ts, err := time.Parse(time.RFC3339, rd.Timestamp)
	if err != nil {
		return models.Revision{}, fmt.Errorf("parse revision timestamp %q: %w", rd.Timestamp, err)
	}
	return models.Revision{
		ID:        rd.RevID,
		Timestamp: ts,
		User:      rd.User,
		Anonymous: rd.Anon,
		Minor:     rd.Minor,
		Size:      rd.Size,
		Comment:   rd.Comment,
	}, nil
}

// Wikitext fetches the main-slot content of the current revision. A missing
// page returns ErrNotFound.
func (c *Client) Wikitext(ctx context.Context, lang, title string) (string, error) {
	params := url.Values{}
	params.Set("prop", "revisions")
	params.Set("titles", title)
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")
	params.Set("rvlimit", "1")

	resp, err := c.query(ctx, lang, params)
	if err != nil {
		return "", err
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing {
		return "", resilience.NewNonRetryableError(
			fmt.Errorf("%w: %s (%s)", ErrNotFound, title, lang))
	}
	page := resp.Query.Pages[0]
	if len(page.Revisions) == 0 {
		return "", nil
	}
	return page.Revisions[0].Slots.Main.Content, nil
}

// Protection returns the protection entries of a page. Missing pages yield
// ErrNotFound; unprotected pages yield an empty list.
func (c *Client) Protection(ctx context.Context, lang, title string) ([]ProtectionEntry, error) {
	params := url.Values{}
	params.Set("prop", "info")
	params.Set("inprop", "protection")
	params.Set("titles", title)

	resp, err := c.query(ctx, lang, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing {
		return nil, resilience.NewNonRetryableError(
			fmt.Errorf("%w: %s (%s)", ErrNotFound, title, lang))
	}
	return resp.Query.Pages[0].Protection, nil
}

// UserGroups looks up privilege groups for a set of usernames, batching the
// lookups at the API limit. Unknown users are absent from the result.
func (c *Client) UserGroups(ctx context.Context, lang string, users []string) (map[string][]string, error) {
	groups := make(map[string][]string, len(users))

	for start := 0; start < len(users); start += userGroupBatchSize {
		end := start + userGroupBatchSize
		if end > len(users) {
			end = len(users)
		}

		params := url.Values{}
		params.Set("list", "users")
		params.Set("usprop", "groups")
		params.Set("ususers", strings.Join(users[start:end], "|"))

		resp, err := c.query(ctx, lang, params)
		if err != nil {
			return nil, err
		}
		for _, u := range resp.Query.Users {
			if u.Missing {
				continue
			}
			groups[u.Name] = u.Groups
		}
	}
	return groups, nil
}

// UserContributions lists up to limit of a user's article-space
// contributions at or before end (newest first), following continuation. A
// zero end means now.
func (c *Client) UserContributions(ctx context.Context, lang, user string, limit int, end time.Time) ([]models.Contribution, error) {
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("list", "usercontribs")
	params.Set("ucuser", user)
	params.Set("ucprop", "timestamp|sizediff")
	params.Set("ucnamespace", "0")
	params.Set("uclimit", strconv.Itoa(min(limit, 500)))
	if !end.IsZero() {
		params.Set("ucstart", end.UTC().Format(time.RFC3339))
	}

	var contribs []models.Contribution
	for {
		resp, err := c.query(ctx, lang, params)
		if err != nil {
			return nil, err
		}
		for _, cd := range resp.Query.UserContribs {
			ts, err := time.Parse(time.RFC3339, cd.Timestamp)
			if err != nil {
				c.logger.Warn().Err(err).Str("user", user).Msg("Skipping unparsable contribution")
				continue
			}
			contribs = append(contribs, models.Contribution{Timestamp: ts, SizeDiff: cd.SizeDiff})
			if len(contribs) >= limit {
				return contribs, nil
			}
		}
		cont, ok := resp.Continue["uccontinue"]
		if !ok {
			break
		}
		params.Set("uccontinue", cont)
	}
	return contribs, nil
}
