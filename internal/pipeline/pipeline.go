// Package pipeline orchestrates the metric collectors over a set of pages
// and aggregates their signals into the composite sensitivity scores.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/opinionscience/wikimetron/internal/collectors"
	"github.com/opinionscience/wikimetron/internal/config"
	"github.com/opinionscience/wikimetron/internal/metrics"
	"github.com/opinionscience/wikimetron/internal/models"
	"github.com/opinionscience/wikimetron/internal/resolver"
)

// Request describes one analysis.
type Request struct {
	// Inputs are raw page identifiers: clean titles or Wikipedia URLs.
	Inputs []string
	// StartDate and EndDate bound the window, as YYYY-MM-DD.
	StartDate string
	EndDate   string
	// Language applies to inputs that carry no language of their own.
	// Empty means the configured default.
	Language string
	// BatchSize caps titles per work item. Zero means the configured
	// default.
	BatchSize int
}

// Pipeline fans work items out over a bounded worker pool and collects the
// metric matrix.
type Pipeline struct {
	cfg        *config.Analysis
	collectors []collectors.Collector
	logger     zerolog.Logger
}

// New assembles a pipeline from its collectors.
func New(cfg *config.Analysis, cs []collectors.Collector, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		collectors: cs,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// workItem is the unit of parallelism: one collector applied to one batch
// of same-language titles.
type workItem struct {
	collector collectors.Collector
	language  string
	titles    []string
}

type workResult struct {
	metric   string
	language string
	scores   map[string]float64
}

// Analyze resolves the inputs, runs every collector over every batch and
// returns the scored report. Individual work-item failures zero their own
// cells only.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*models.AnalysisResult, error) {
	started := time.Now()

	window, err := ParseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	lang := req.Language
	if lang == "" {
		lang = p.cfg.DefaultLanguage
	}
	pages := resolver.ResolveAll(req.Inputs, lang)
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to analyze")
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = p.cfg.BatchSize
	}

	items := p.buildWorkItems(pages, batchSize)
	workers := scaleWorkers(len(items), p.cfg.BaseWorkers)
	metrics.WorkerPoolSize.Set(float64(workers))

	p.logger.Info().
		Int("pages", len(pages)).
		Int("work_items", len(items)).
		Int("workers", workers).
		Str("start", req.StartDate).
		Str("end", req.EndDate).
		Msg("Starting analysis")

	matrix := p.runWorkItems(ctx, items, pages, window, workers)
	scores := scorePages(matrix, pages)

	result := p.buildResult(pages, matrix, scores, req, batchSize, time.Since(started))

	metrics.AnalysesTotal.Inc()
	metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	for language, count := range result.Summary.Languages {
		metrics.PagesScoredTotal.WithLabelValues(language).Add(float64(count))
	}

	p.logger.Info().
		Int("pages", len(pages)).
		Dur("elapsed", time.Since(started)).
		Msg("Analysis finished")
	return result, nil
}

// buildWorkItems groups pages by language, splits each group into batches
// and crosses them with every collector.
func (p *Pipeline) buildWorkItems(pages []models.PageInfo, batchSize int) []workItem {
	grouped := make(map[string][]string)
	var languages []string
	for _, pg := range pages {
		if _, seen := grouped[pg.Language]; !seen {
			languages = append(languages, pg.Language)
		}
		grouped[pg.Language] = append(grouped[pg.Language], pg.CleanTitle)
	}

	var items []workItem
	for _, language := range languages {
		titles := grouped[language]
		for start := 0; start < len(titles); start += batchSize {
			end := min(start+batchSize, len(titles))
			for _, c := range p.collectors {
				items = append(items, workItem{collector: c, language: language, titles: titles[start:end]})
			}
		}
	}
	return items
}

// scaleWorkers widens the pool for large work sets: many small items
// benefit from extra parallelism without saturating the remote endpoints.
func scaleWorkers(items, base int) int {
	switch {
	case items > 100:
		return min(3*base, 48)
	case items > 50:
		return min(2*base, 32)
	default:
		return base
	}
}

// runWorkItems executes the items under the worker limit. Workers hand
// their maps to a single receiver goroutine, the only writer of the matrix.
func (p *Pipeline) runWorkItems(ctx context.Context, items []workItem, pages []models.PageInfo, window collectors.Window, workers int) map[string]map[string]float64 {
	idx := resolver.KeyIndex(pages)
	results := make(chan workResult, len(items))

	matrix := make(map[string]map[string]float64, len(p.collectors))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range results {
			row := matrix[res.metric]
			if row == nil {
				row = make(map[string]float64, len(pages))
				matrix[res.metric] = row
			}
			for title, score := range res.scores {
				key, ok := resolver.LookupKey(idx, title, res.language)
				if !ok {
					p.logger.Warn().Str("title", title).Str("language", res.language).Msg("Collector returned an unknown title")
					continue
				}
				// Collectors emit [0, 1]; the report carries percent-like
				// values.
				row[key] = score * 100
			}
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, item := range items {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, p.cfg.WorkItemTimeout)
			defer cancel()

			start := time.Now()
			scores, err := item.collector.Collect(itemCtx, item.language, item.titles, window)
			metrics.WorkItemDuration.WithLabelValues(item.collector.Name()).Observe(time.Since(start).Seconds())
			if err != nil {
				p.logger.Warn().Err(err).
					Str("metric", item.collector.Name()).
					Str("language", item.language).
					Int("batch", len(item.titles)).
					Msg("Work item failed, zeroing its cells")
				metrics.WorkItemsTotal.WithLabelValues("failed").Inc()
				return nil
			}
			metrics.WorkItemsTotal.WithLabelValues("ok").Inc()
			results <- workResult{metric: item.collector.Name(), language: item.language, scores: scores}
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	<-done

	// Materialize a dense matrix: every metric holds a cell for every page.
	for _, c := range p.collectors {
		row := matrix[c.Name()]
		if row == nil {
			row = make(map[string]float64, len(pages))
			matrix[c.Name()] = row
		}
		for _, pg := range pages {
			if _, ok := row[pg.UniqueKey]; !ok {
				row[pg.UniqueKey] = 0.0
			}
		}
	}
	return matrix
}
