package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/RichardoC/agroai/internal/models"
	"github.com/RichardoC/agroai/internal/oceandata"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor() *Processor {
	faker := gofakeit.New(1)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewProcessor(faker, oceandata.NewAnalyzer(faker, func() time.Time { return fixed }))
}

func TestProcessGreeting(t *testing.T) {
	p := newTestProcessor()
	for _, msg := range []string{"Hello there", "GOOD MORNING", "hey"} {
		resp := p.Process(msg)
		assert.Equal(t, models.TypeText, resp.Type, msg)
		assert.Contains(t, Greetings, resp.Content, msg)
		assert.Nil(t, resp.Data)
	}
}

func TestProcessGreetingWinsOverOcean(t *testing.T) {
	resp := newTestProcessor().Process("hi, what is the ocean temperature?")
	assert.Equal(t, models.TypeText, resp.Type)
	assert.Contains(t, Greetings, resp.Content)
}

func TestProcessOceanQueryWithData(t *testing.T) {
	resp := newTestProcessor().Process("Ocean temperature near Fiji")

	assert.Equal(t, models.TypeDataAnalysis, resp.Type)
	assert.True(t, strings.HasPrefix(resp.Content, "🌊 **Ocean Data Analysis**"))
	assert.Contains(t, resp.Content, "**Query:** Ocean temperature near Fiji")
	assert.Contains(t, resp.Content, "*Data processed using AgroAI Ocean Intelligence*")
	_, ok := resp.Data.(oceandata.TemperatureData)
	assert.True(t, ok)
	assert.Nil(t, resp.VisualizationData)
}

func TestProcessOceanQueryWithoutData(t *testing.T) {
	resp := newTestProcessor().Process("tides along the coastal shelf")

	assert.Equal(t, models.TypeDataAnalysis, resp.Type)
	assert.True(t, strings.HasPrefix(resp.Content, "🔍 **Ocean Research Assistant**"))
	assert.Contains(t, resp.Content, "**tides along the coastal shelf**")
	assert.Contains(t, resp.Content, "- pH: 7.8-8.3 (slightly alkaline)")
	assert.Equal(t, map[string]any{}, resp.Data)
}

func TestProcessVisualization(t *testing.T) {
	resp := newTestProcessor().Process("Can you draw a chart for me")

	assert.Equal(t, models.TypeVisualization, resp.Type)
	require.NotNil(t, resp.VisualizationData)
	assert.True(t, strings.HasPrefix(resp.Content, "📊 **Ocean Data Visualization**"))
	assert.Contains(t, resp.Content, "**Generated Chart:** Time Series Analysis")
	assert.Contains(t, resp.Content, "- Data Points: 12")
	assert.Contains(t, resp.Content, "- Parameters Measured: "+strings.Join(resp.VisualizationData.Parameters, ", "))
	assert.Len(t, resp.VisualizationData.Data, 3)
}

func TestProcessGeneral(t *testing.T) {
	resp := newTestProcessor().Process("Tell me a joke")

	assert.Equal(t, models.TypeText, resp.Type)
	assert.Contains(t, resp.Content, "'Tell me a joke'")
	assert.Nil(t, resp.Data)
}

func TestProcessSubstringMatching(t *testing.T) {
	p := newTestProcessor()

	// "this" contains "hi"
	assert.Contains(t, Greetings, p.Process("what is this").Content)

	// "graph" contains "ph", an ocean keyword
	assert.Equal(t, models.TypeDataAnalysis, p.Process("graph").Type)
}
