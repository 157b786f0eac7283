package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opinionscience/wikimetron/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Wiki{
		UserAgent:         "WikimetronTest/0.1",
		ActionAPITemplate: srv.URL + "/%s/w/api.php",
		PageviewsBaseURL:  srv.URL + "/pageviews",
		LiftWingBaseURL:   srv.URL + "/liftwing",
		RequestTimeout:    5 * time.Second,
		InferenceTimeout:  5 * time.Second,
		RetryAttempts:     3,
		RetryInitialDelay: time.Millisecond,
		RateLimit:         1000,
		RateBurst:         100,
	}
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return NewClient(cfg, logger), srv
}

func TestRevisionsPagination(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "WikimetronTest/0.1", r.Header.Get("User-Agent"))
		require.True(t, strings.HasPrefix(r.URL.Path, "/fr/"))

		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			require.Empty(t, r.URL.Query().Get("rvcontinue"))
			fmt.Fprint(w, `{
				"continue": {"rvcontinue": "20240601|123", "continue": "||"},
				"query": {"pages": [{"title": "France", "revisions": [
					{"revid": 2, "timestamp": "2024-06-02T10:00:00Z", "user": "Alice", "size": 120},
					{"revid": 1, "timestamp": "2024-06-01T09:00:00Z", "user": "Bob", "anon": false, "size": 100}
				]}]}
			}`)
			return
		}
		require.Equal(t, "20240601|123", r.URL.Query().Get("rvcontinue"))
		fmt.Fprint(w, `{
			"batchcomplete": true,
			"query": {"pages": [{"title": "France", "revisions": [
				{"revid": 0, "timestamp": "2024-05-30T08:00:00Z", "user": "192.0.2.7", "anon": true, "size": 90}
			]}]}
		}`)
	})
	client, _ := newTestClient(t, handler)

	revs, err := client.Revisions(context.Background(), "fr", "France", RevisionOptions{Newest: true})
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, int64(2), revs[0].ID)
	assert.Equal(t, "Bob", revs[1].User)
	assert.True(t, revs[2].Anonymous)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestRevisionsMaxRevisionsStopsEarly(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"continue": {"rvcontinue": "next"},
			"query": {"pages": [{"title": "France", "revisions": [
				{"revid": 3, "timestamp": "2024-06-03T10:00:00Z", "user": "A", "size": 1},
				{"revid": 2, "timestamp": "2024-06-02T10:00:00Z", "user": "B", "size": 1},
				{"revid": 1, "timestamp": "2024-06-01T10:00:00Z", "user": "C", "size": 1}
			]}]}
		}`)
	})
	client, _ := newTestClient(t, handler)

	revs, err := client.Revisions(context.Background(), "fr", "France", RevisionOptions{Newest: true, MaxRevisions: 2})
	require.NoError(t, err)
	assert.Len(t, revs, 2)
}

func TestRevisionsMissingPage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query": {"pages": [{"title": "Nope", "missing": true}]}}`)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.Revisions(context.Background(), "en", "Nope", RevisionOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryRetriesTransientStatus(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"query": {"pages": [{"title": "France", "revisions": []}]}}`)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.Revisions(context.Background(), "fr", "France", RevisionOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestQueryDoesNotRetryAPIError(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"error": {"code": "invalidtitle", "info": "Bad title"}}`)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.Revisions(context.Background(), "fr", "[[bad]]", RevisionOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalidtitle")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWikitext(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "content", r.URL.Query().Get("rvprop"))
		fmt.Fprint(w, `{"query": {"pages": [{"title": "France", "revisions": [
			{"slots": {"main": {"content": "'''France''' <ref>x</ref>"}}}
		]}]}}`)
	})
	client, _ := newTestClient(t, handler)

	text, err := client.Wikitext(context.Background(), "fr", "France")
	require.NoError(t, err)
	assert.Contains(t, text, "<ref>")
}

func TestProtection(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query": {"pages": [{"title": "France", "protection": [
			{"type": "edit", "level": "sysop"},
			{"type": "move", "level": "sysop"}
		]}]}}`)
	})
	client, _ := newTestClient(t, handler)

	entries, err := client.Protection(context.Background(), "fr", "France")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "edit", entries[0].Type)
	assert.Equal(t, "sysop", entries[0].Level)
}

func TestUserGroupsBatching(t *testing.T) {
	var batches [][]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		users := strings.Split(r.URL.Query().Get("ususers"), "|")
		batches = append(batches, users)

		resp := map[string]interface{}{"query": map[string]interface{}{
			"users": []map[string]interface{}{
				{"name": users[0], "groups": []string{"sysop"}},
			},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	client, _ := newTestClient(t, handler)

	users := make([]string, 70)
	for i := range users {
		users[i] = fmt.Sprintf("User%d", i)
	}
	groups, err := client.UserGroups(context.Background(), "en", users)
	require.NoError(t, err)

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 50)
	assert.Len(t, batches[1], 20)
	assert.Equal(t, []string{"sysop"}, groups["User0"])
}

func TestUserContributions(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Alice", r.URL.Query().Get("ucuser"))
		assert.Equal(t, "0", r.URL.Query().Get("ucnamespace"))
		fmt.Fprint(w, `{"query": {"usercontribs": [
			{"timestamp": "2024-06-01T10:00:00Z", "sizediff": 42},
			{"timestamp": "2024-05-01T10:00:00Z", "sizediff": -17}
		]}}`)
	})
	client, _ := newTestClient(t, handler)

	contribs, err := client.UserContributions(context.Background(), "en", "Alice", 100, time.Time{})
	require.NoError(t, err)
	require.Len(t, contribs, 2)
	assert.Equal(t, 42, contribs[0].SizeDiff)
	assert.Equal(t, -17, contribs[1].SizeDiff)
}

func TestPageviews(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/pageviews/fr.wikipedia/all-access/user/Emmanuel_Macron/daily/")
		fmt.Fprint(w, `{"items": [
			{"timestamp": "2024010100", "views": 1500},
			{"timestamp": "2024010200", "views": 900}
		]}`)
	})
	client, _ := newTestClient(t, handler)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	series, err := client.Pageviews(context.Background(), "fr", "Emmanuel Macron", start, end)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, int64(1500), series[0].Views)
	assert.Equal(t, 2, series[1].Day.Day())
}

func TestPageviewsNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.Pageviews(context.Background(), "fr", "Unknown", time.Now().Add(-24*time.Hour), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevertRisk(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/liftwing/revertrisk-language-agnostic:predict", r.URL.Path)

		var req liftWingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(12345), req.RevID)
		assert.Equal(t, "fr", req.Lang)

		fmt.Fprint(w, `{"output": {"probabilities": {"true": 0.83, "false": 0.17}}}`)
	})
	client, _ := newTestClient(t, handler)

	p, err := client.RevertRisk(context.Background(), "fr", 12345)
	require.NoError(t, err)
	assert.InDelta(t, 0.83, p, 1e-9)
}

func TestReferenceRiskAndReadability(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, ModelReferenceRisk):
			fmt.Fprint(w, `{"output": {"score": 0.42}}`)
		case strings.Contains(r.URL.Path, ModelReadability):
			fmt.Fprint(w, `{"output": {"score": 0.67}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client, _ := newTestClient(t, handler)

	rr, err := client.ReferenceRisk(context.Background(), "en", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.42, rr, 1e-9)

	rd, err := client.Readability(context.Background(), "en", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.67, rd, 1e-9)
}

func TestEditTimeseries(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query": {"pages": [{"title": "France", "revisions": [
			{"revid": 3, "timestamp": "2024-06-02T11:00:00Z", "user": "A", "size": 1},
			{"revid": 2, "timestamp": "2024-06-02T10:00:00Z", "user": "BotUser", "size": 1},
			{"revid": 1, "timestamp": "2024-06-01T10:00:00Z", "user": "B", "size": 1}
		]}]}}`)
	})
	client, _ := newTestClient(t, handler)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	counts, err := client.EditTimeseries(context.Background(), "fr", "France", start, end, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-06-01": 1, "2024-06-02": 2}, counts)
}

func TestDoJSONExhaustedRetries(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client, _ := newTestClient(t, handler)

	_, err := client.Revisions(context.Background(), "fr", "France", RevisionOptions{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "attempts failed")
}
