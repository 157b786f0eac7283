package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opinionscience/wikimetron/internal/collectors"
	"github.com/opinionscience/wikimetron/internal/models"
)

func allMetricNames() []string {
	var names []string
	for _, weights := range []map[string]float64{heatWeights, qualityWeights, riskWeights} {
		for name := range weights {
			names = append(names, name)
		}
	}
	return names
}

func singlePageMatrix(key string, values map[string]float64) map[string]map[string]float64 {
	matrix := make(map[string]map[string]float64)
	for _, name := range allMetricNames() {
		matrix[name] = map[string]float64{key: values[name]}
	}
	return matrix
}

func TestWeightTablesCoverAllSixteenMetrics(t *testing.T) {
	names := allMetricNames()
	require.Len(t, names, 16)
	assert.Equal(t, 15.0, sumWeights(heatWeights))
	assert.Equal(t, 28.0, sumWeights(qualityWeights))
	assert.Equal(t, 21.0, sumWeights(riskWeights))
}

func sumWeights(weights map[string]float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	return total
}

func TestScorePagesAllZeroMatrix(t *testing.T) {
	page := models.PageInfo{CleanTitle: "Berlin", Language: "fr", UniqueKey: models.BuildKey("Berlin", "fr")}
	scores := scorePages(singlePageMatrix(page.UniqueKey, nil), []models.PageInfo{page})

	s := scores[page.UniqueKey]
	assert.Equal(t, 0.0, s.Heat)
	assert.Equal(t, 0.0, s.Quality)
	assert.Equal(t, 0.0, s.Risk)
	assert.Equal(t, 0.0, s.Sensitivity)
}

func TestScorePagesEmptyWikiStub(t *testing.T) {
	// A page unknown to every endpoint: only staleness and citation gap
	// fire, both at their "no data" maximum.
	page := models.PageInfo{CleanTitle: "Berlin", Language: "fr", UniqueKey: models.BuildKey("Berlin", "fr")}
	matrix := singlePageMatrix(page.UniqueKey, map[string]float64{
		collectors.MetricStaleness:   100,
		collectors.MetricCitationGap: 100,
	})

	s := scorePages(matrix, []models.PageInfo{page})[page.UniqueKey]
	assert.Equal(t, 0.0, s.Heat)
	assert.Equal(t, 0.0, s.Risk)
	// Quality carries weight 3 for citation gap and 2 for staleness over
	// the full weight sum of 28.
	assert.InDelta(t, (3.0*100+2.0*100)/28.0, s.Quality, 1e-9)
	assert.InDelta(t, s.Quality/3, s.Sensitivity, 1e-9)
}

func TestScorePagesBoundedByHundred(t *testing.T) {
	page := models.PageInfo{CleanTitle: "France", Language: "fr", UniqueKey: models.BuildKey("France", "fr")}
	values := make(map[string]float64)
	for _, name := range allMetricNames() {
		values[name] = 100
	}

	s := scorePages(singlePageMatrix(page.UniqueKey, values), []models.PageInfo{page})[page.UniqueKey]
	assert.InDelta(t, 100.0, s.Heat, 1e-9)
	assert.InDelta(t, 100.0, s.Quality, 1e-9)
	assert.InDelta(t, 100.0, s.Risk, 1e-9)
	assert.InDelta(t, 100.0, s.Sensitivity, 1e-9)
	assert.InDelta(t, 1500.0, s.RawHeat, 1e-9)
}

func TestScorePagesDropsAbsentMetricsFromWeightSum(t *testing.T) {
	page := models.PageInfo{CleanTitle: "France", Language: "fr", UniqueKey: models.BuildKey("France", "fr")}
	matrix := map[string]map[string]float64{
		collectors.MetricAnonymity: {page.UniqueKey: 100},
	}

	s := scorePages(matrix, []models.PageInfo{page})[page.UniqueKey]
	// Only anonymity participates: 5*100 over a weight sum of 5.
	assert.InDelta(t, 100.0, s.Risk, 1e-9)
	assert.Equal(t, 0.0, s.Heat)
	assert.Equal(t, 0.0, s.Quality)
}

func TestScorePagesSensitivityIsMean(t *testing.T) {
	page := models.PageInfo{CleanTitle: "France", Language: "fr", UniqueKey: models.BuildKey("France", "fr")}
	matrix := singlePageMatrix(page.UniqueKey, map[string]float64{
		collectors.MetricPageviewSpike: 30,
		collectors.MetricSockpuppet:    100,
		collectors.MetricAnonymity:     40,
	})

	s := scorePages(matrix, []models.PageInfo{page})[page.UniqueKey]
	assert.InDelta(t, (s.Heat+s.Quality+s.Risk)/3, s.Sensitivity, 1e-12)
}
