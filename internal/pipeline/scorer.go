package pipeline

import (
	"github.com/opinionscience/wikimetron/internal/collectors"
	"github.com/opinionscience/wikimetron/internal/models"
)

// Fixed metric weights per category.
var (
	heatWeights = map[string]float64{
		collectors.MetricPageviewSpike: 5,
		collectors.MetricEditSpike:     4,
		collectors.MetricRevertRisk:    3,
		collectors.MetricProtection:    2,
		collectors.MetricDiscussion:    1,
	}
	qualityWeights = map[string]float64{
		collectors.MetricSuspiciousSources:   10,
		collectors.MetricFeaturedArticle:     10,
		collectors.MetricCitationGap:         3,
		collectors.MetricStaleness:           2,
		collectors.MetricSourceConcentration: 2,
		collectors.MetricAddDeleteRatio:      1,
	}
	riskWeights = map[string]float64{
		collectors.MetricSockpuppet:               10,
		collectors.MetricAnonymity:                5,
		collectors.MetricContributorConcentration: 3,
		collectors.MetricSporadicity:              2,
		collectors.MetricContributorBalance:       1,
	}
)

// scorePages folds the metric matrix into the three weighted composites
// and their mean. Metrics absent from the matrix drop out of their
// category's weight sum.
func scorePages(matrix map[string]map[string]float64, pages []models.PageInfo) map[string]models.PageScores {
	out := make(map[string]models.PageScores, len(pages))
	for _, pg := range pages {
		var s models.PageScores
		s.RawHeat, s.Heat = categoryScore(matrix, pg.UniqueKey, heatWeights)
		s.RawQuality, s.Quality = categoryScore(matrix, pg.UniqueKey, qualityWeights)
		s.RawRisk, s.Risk = categoryScore(matrix, pg.UniqueKey, riskWeights)
		s.Sensitivity = (s.Heat + s.Quality + s.Risk) / 3
		out[pg.UniqueKey] = s
	}
	return out
}

func categoryScore(matrix map[string]map[string]float64, key string, weights map[string]float64) (raw, normalized float64) {
	var weightSum float64
	for metric, weight := range weights {
		row, ok := matrix[metric]
		if !ok {
			continue
		}
		raw += weight * row[key]
		weightSum += weight
	}
	if weightSum == 0 {
		return 0, 0
	}
	return raw, raw / weightSum
}
