package oceandata

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer() *Analyzer {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewAnalyzer(gofakeit.New(42), func() time.Time { return fixed })
}

func TestAnalyzeQueryClassification(t *testing.T) {
	a := newTestAnalyzer()

	tests := []struct {
		query string
		check func(t *testing.T, an Analysis)
	}{
		{"What is the sea TEMPERATURE today?", func(t *testing.T, an Analysis) {
			d, ok := an.Data.(TemperatureData)
			require.True(t, ok)
			assert.GreaterOrEqual(t, d.CurrentTemp, 15.0)
			assert.LessOrEqual(t, d.CurrentTemp, 30.0)
			assert.Contains(t, []string{"increasing", "decreasing", "stable"}, d.Trend)
			assert.Contains(t, an.Insights, "Sea surface temperature")
		}},
		{"salt levels in the bay", func(t *testing.T, an Analysis) {
			d, ok := an.Data.(SalinityData)
			require.True(t, ok)
			assert.GreaterOrEqual(t, d.Salinity, 30.0)
			assert.LessOrEqual(t, d.Salinity, 40.0)
			assert.Contains(t, an.Summary, "freshwater influence")
		}},
		{"ocean acidity", func(t *testing.T, an Analysis) {
			d, ok := an.Data.(PHData)
			require.True(t, ok)
			assert.GreaterOrEqual(t, d.PH, 7.8)
			assert.LessOrEqual(t, d.PH, 8.3)
			assert.LessOrEqual(t, d.AcidificationTrend, 0.0)
			assert.GreaterOrEqual(t, d.AcidificationTrend, -0.02)
		}},
		{"dissolved O2", func(t *testing.T, an Analysis) {
			d, ok := an.Data.(OxygenData)
			require.True(t, ok)
			assert.GreaterOrEqual(t, d.HypoxicZones, 0)
			assert.LessOrEqual(t, d.HypoxicZones, 5)
		}},
		{"marine species richness", func(t *testing.T, an Analysis) {
			d, ok := an.Data.(EcosystemData)
			require.True(t, ok)
			require.Len(t, d.KeySpecies, 3)
			assert.ElementsMatch(t, uniq(d.KeySpecies), d.KeySpecies)
			for _, s := range d.KeySpecies {
				assert.Contains(t, marineSpecies, s)
			}
		}},
		{"tides near the coast", func(t *testing.T, an Analysis) {
			assert.False(t, an.HasData)
			assert.Nil(t, an.Data)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			an := a.AnalyzeQuery(tt.query)
			if an.HasData {
				assert.NotEmpty(t, an.Insights)
				assert.NotEmpty(t, an.Summary)
				assert.NotEmpty(t, an.Recommendations)
			}
			tt.check(t, an)
		})
	}
}

func TestAnalyzeQueryPrecedence(t *testing.T) {
	a := newTestAnalyzer()

	// temperature is checked before salinity
	_, ok := a.AnalyzeQuery("salinity and temperature").Data.(TemperatureData)
	assert.True(t, ok)

	// "graph" contains "ph"
	_, ok = a.AnalyzeQuery("graph it").Data.(PHData)
	assert.True(t, ok)
}

func TestGenerateVisualization(t *testing.T) {
	a := newTestAnalyzer()
	v := a.GenerateVisualization("plot something")

	assert.Equal(t, "Time Series Analysis", v.ChartType)
	assert.Equal(t, 12, v.DataPoints)
	assert.Equal(t, "12 months", v.TimeRange)
	require.Len(t, v.Parameters, 3)
	require.Len(t, v.Data, 3)
	assert.ElementsMatch(t, uniq(v.Parameters), v.Parameters)

	for _, p := range v.Parameters {
		points, ok := v.Data[p]
		require.True(t, ok, p)
		require.Len(t, points, 12)
		low, high := chartRange(p)
		for _, pt := range points {
			assert.GreaterOrEqual(t, pt.Value, low)
			assert.LessOrEqual(t, pt.Value, high)
		}
		assert.Equal(t, "2025-03-01", points[0].Date)
		assert.Equal(t, "2025-03-31", points[1].Date)
	}
	assert.Equal(t, "trends in "+v.Parameters[0]+", "+v.Parameters[1]+", "+v.Parameters[2]+" over the past year", v.Description)
}

func TestSeededAnalyzerIsReproducible(t *testing.T) {
	first := newTestAnalyzer().AnalyzeQuery("temperature")
	second := newTestAnalyzer().AnalyzeQuery("temperature")
	assert.Equal(t, first, second)
}

func TestFormatReading(t *testing.T) {
	assert.Equal(t, "23.0", formatReading(23))
	assert.Equal(t, "23.5", formatReading(23.5))
	assert.Equal(t, "-0.013", formatReading(-0.013))
	assert.Equal(t, 8.12, round(8.1234, 2))
}

func uniq(in []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
