package scoring

import (
	"testing"

	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAggregator(t *testing.T, weights map[domain.Dimension]float64) *Aggregator {
	t.Helper()
	cfg := domain.DefaultScoringConfig()
	if weights != nil {
		cfg.Weights = weights
	}
	agg, err := NewAggregator(cfg)
	require.NoError(t, err)
	return agg
}

func scoresFor(values map[domain.Dimension]float64) []domain.DimensionScore {
	var out []domain.DimensionScore
	for _, dim := range domain.AllDimensions() {
		if v, ok := values[dim]; ok {
			out = append(out, domain.DimensionScore{Dimension: dim, Value: v})
		}
	}
	return out
}

func TestAggregator_Aggregate(t *testing.T) {
	t.Run("default weights produce bounded score and grade", func(t *testing.T) {
		agg := newAggregator(t, nil)
		score, grade, warnings := agg.Aggregate(scoresFor(map[domain.Dimension]float64{
			domain.DimImageQuality:      0.9,
			domain.DimAnnotationQuality: 0.8,
			domain.DimCompleteness:      0.95,
			domain.DimDiversity:         0.7,
			domain.DimConsistency:       0.85,
		}))
		assert.Empty(t, warnings)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
		// 0.9*.25 + 0.8*.25 + 0.95*.2 + 0.7*.15 + 0.85*.15 = 0.8475
		assert.Equal(t, 85, score)
		assert.Equal(t, domain.GradeB, grade)
	})

	t.Run("weights summing to 1.1 renormalize with warning", func(t *testing.T) {
		weights := map[domain.Dimension]float64{
			domain.DimImageQuality:      0.3,
			domain.DimAnnotationQuality: 0.3,
			domain.DimCompleteness:      0.2,
			domain.DimDiversity:         0.1,
			domain.DimConsistency:       0.2,
		}
		values := map[domain.Dimension]float64{
			domain.DimImageQuality:      0.6,
			domain.DimAnnotationQuality: 0.7,
			domain.DimCompleteness:      0.8,
			domain.DimDiversity:         0.9,
			domain.DimConsistency:       0.5,
		}

		agg := newAggregator(t, weights)
		score, _, warnings := agg.Aggregate(scoresFor(values))
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "renormalized")

		divided := map[domain.Dimension]float64{}
		for dim, w := range weights {
			divided[dim] = w / 1.1
		}
		ref := newAggregator(t, divided)
		refScore, _, refWarnings := ref.Aggregate(scoresFor(values))
		assert.Empty(t, refWarnings)
		assert.Equal(t, refScore, score)
	})

	t.Run("missing dimension contributes zero at full weight", func(t *testing.T) {
		agg := newAggregator(t, nil)
		full := scoresFor(map[domain.Dimension]float64{
			domain.DimImageQuality:      1,
			domain.DimAnnotationQuality: 1,
			domain.DimCompleteness:      1,
			domain.DimDiversity:         1,
			domain.DimConsistency:       1,
		})
		score, _, _ := agg.Aggregate(full)
		assert.Equal(t, 100, score)

		withoutAnnotations := scoresFor(map[domain.Dimension]float64{
			domain.DimImageQuality: 1,
			domain.DimCompleteness: 1,
			domain.DimDiversity:    1,
			domain.DimConsistency:  1,
		})
		score, _, _ = agg.Aggregate(withoutAnnotations)
		// annotation_quality carries 0.25: 100 - 25
		assert.Equal(t, 75, score)
	})

	t.Run("aggregation is idempotent", func(t *testing.T) {
		agg := newAggregator(t, nil)
		scores := scoresFor(map[domain.Dimension]float64{
			domain.DimImageQuality:      0.42,
			domain.DimAnnotationQuality: 0.77,
			domain.DimCompleteness:      0.63,
			domain.DimDiversity:         0.51,
			domain.DimConsistency:       0.88,
		})
		s1, g1, w1 := agg.Aggregate(scores)
		s2, g2, w2 := agg.Aggregate(scores)
		assert.Equal(t, s1, s2)
		assert.Equal(t, g1, g2)
		assert.Equal(t, w1, w2)
	})
}

func TestGradeForScore_Boundaries(t *testing.T) {
	cases := []struct {
		score int
		want  domain.Grade
	}{
		{90, domain.GradeA},
		{89, domain.GradeB},
		{75, domain.GradeB},
		{74, domain.GradeC},
		{60, domain.GradeC},
		{59, domain.GradeD},
		{100, domain.GradeA},
		{0, domain.GradeD},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, domain.GradeForScore(tc.score), "score %d", tc.score)
	}
}

func TestNewAggregator_MissingWeight(t *testing.T) {
	cfg := domain.DefaultScoringConfig()
	delete(cfg.Weights, domain.DimDiversity)

	_, err := NewAggregator(cfg)
	require.Error(t, err)
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
