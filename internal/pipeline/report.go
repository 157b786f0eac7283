package pipeline

import (
	"fmt"
	"time"

	"github.com/opinionscience/wikimetron/internal/collectors"
	"github.com/opinionscience/wikimetron/internal/models"
	"github.com/opinionscience/wikimetron/internal/resolver"
)

// dateLayout is the boundary date format.
const dateLayout = "2006-01-02"

// ParseWindow widens a YYYY-MM-DD date pair to full UTC days: start at
// midnight, end at the last second of its day.
func ParseWindow(startDate, endDate string) (collectors.Window, error) {
	start, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
	if err != nil {
		return collectors.Window{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	end, err := time.ParseInLocation(dateLayout, endDate, time.UTC)
	if err != nil {
		return collectors.Window{}, fmt.Errorf("parse end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return collectors.Window{}, fmt.Errorf("end date %s before start date %s", endDate, startDate)
	}
	return collectors.Window{
		Start: start,
		End:   end.Add(24*time.Hour - time.Second),
	}, nil
}

// buildResult assembles the report envelope: one row per unique page, in
// input order, plus the analysis summary.
func (p *Pipeline) buildResult(pages []models.PageInfo, matrix map[string]map[string]float64,
	scores map[string]models.PageScores, req Request, batchSize int, elapsed time.Duration) *models.AnalysisResult {

	rows := make([]models.PageResult, 0, len(pages))
	languages := make(map[string]int)
	for _, pg := range pages {
		pageMetrics := make(map[string]float64, len(matrix))
		for metric, row := range matrix {
			pageMetrics[metric] = row[pg.UniqueKey]
		}
		rows = append(rows, models.PageResult{
			Title:         pg.CleanTitle,
			OriginalInput: pg.OriginalInput,
			Language:      pg.Language,
			UniqueKey:     pg.UniqueKey,
			Status:        models.StatusOK,
			Scores:        scores[pg.UniqueKey],
			Metrics:       pageMetrics,
		})
		languages[pg.Language]++
	}

	return &models.AnalysisResult{
		Pages: rows,
		Summary: models.Summary{
			TotalPages:        len(pages),
			Languages:         languages,
			StartDate:         req.StartDate,
			EndDate:           req.EndDate,
			BatchSize:         batchSize,
			ProcessingSeconds: elapsed.Seconds(),
		},
	}
}

// ErrorResult shapes a catastrophic failure into the report envelope, with
// every requested page marked errored.
func ErrorResult(inputs []string, defaultLang string, err error) *models.AnalysisResult {
	pages := resolver.ResolveAll(inputs, defaultLang)
	rows := make([]models.PageResult, 0, len(pages))
	for _, pg := range pages {
		rows = append(rows, models.PageResult{
			Title:         pg.CleanTitle,
			OriginalInput: pg.OriginalInput,
			Language:      pg.Language,
			UniqueKey:     pg.UniqueKey,
			Status:        models.StatusError,
		})
	}
	return &models.AnalysisResult{
		Pages: rows,
		Error: err.Error(),
	}
}
