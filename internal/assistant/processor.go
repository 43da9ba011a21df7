// Package assistant implements the AgroAI responder: a keyword classifier that answers
// with canned, randomly parameterized ocean data text.
package assistant

import (
	"fmt"
	"strings"

	"github.com/RichardoC/agroai/internal/models"
	"github.com/RichardoC/agroai/internal/oceandata"
	"github.com/brianvoe/gofakeit/v6"
)

var (
	greetingPatterns = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}
	oceanKeywords    = []string{
		"temperature", "salinity", "ph", "oxygen", "current", "wave",
		"tide", "marine", "ocean", "sea", "coastal", "fishery",
		"aquaculture", "algae", "plankton", "coral", "ecosystem",
	}
	visualizationWords = []string{"graph", "chart", "plot", "visualize", "show data"}
)

// Greetings are the fixed replies to a greeting.
var Greetings = []string{
	"Hello! I'm AgroAI, your ocean data assistant. How can I help you with ocean research today?",
	"Hi there! Ready to explore ocean data and marine insights?",
	"Welcome to AgroAI! I specialize in ocean data analysis and marine ecosystem research.",
}

var generalTemplates = []string{
	"I understand you're asking about: '%s'. As an ocean data specialist, I can help you analyze marine ecosystems, ocean parameters, and environmental data.",
	"Interesting question about '%s'. Let me connect this to ocean research context. I can assist with data analysis, trend identification, and marine ecosystem insights.",
	"Regarding '%s', I can provide ocean-related insights and data analysis. Would you like me to search for specific marine data or generate ocean parameter visualizations?",
}

const analysisTemplate = `🌊 **Ocean Data Analysis**

**Query:** %s

**Key Insights:**
%s

**Data Summary:**
%s

**Recommended Actions:**
%s

*Data processed using AgroAI Ocean Intelligence*`

const researchTemplate = `🔍 **Ocean Research Assistant**

I've analyzed your query about: **%s**

While I don't have specific data for this exact request, here's what I can tell you about ocean monitoring:

**General Ocean Parameters:**
- Temperature: 15-30°C (varies by region and depth)
- Salinity: 30-40 PSU (Practical Salinity Units)
- pH: 7.8-8.3 (slightly alkaline)
- Dissolved Oxygen: 4-9 mg/L

**Suggested Analysis:**
1. Check regional oceanographic data
2. Analyze seasonal variations
3. Monitor ecosystem health indicators
4. Compare with historical trends

Would you like me to generate sample data visualization for ocean parameters?`

const visualizationTemplate = `📊 **Ocean Data Visualization**

**Generated Chart:** %s

**Parameters:**
- Data Points: %d
- Time Range: %s
- Parameters Measured: %s

**Visualization Ready!** The chart has been generated showing %s.

*Tip: You can ask for specific parameters like temperature trends, salinity distribution, or ecosystem metrics.*`

type Response struct {
	Content           string                   `json:"content"`
	Type              string                   `json:"type"`
	Data              any                      `json:"data,omitempty"`
	VisualizationData *oceandata.Visualization `json:"visualization_data,omitempty"`
}

type Processor struct {
	faker    *gofakeit.Faker
	analyzer *oceandata.Analyzer
}

func NewProcessor(faker *gofakeit.Faker, analyzer *oceandata.Analyzer) *Processor {
	if faker == nil {
		faker = gofakeit.New(0)
	}
	if analyzer == nil {
		analyzer = oceandata.NewAnalyzer(faker, nil)
	}
	return &Processor{faker: faker, analyzer: analyzer}
}

// Process classifies message by substring match, first hit wins: greeting, ocean
// keyword, visualization request, general fallback.
func (p *Processor) Process(message string) Response {
	lower := strings.ToLower(message)
	switch {
	case oceandata.ContainsAny(lower, greetingPatterns):
		return p.greeting()
	case oceandata.ContainsAny(lower, oceanKeywords):
		return p.oceanQuery(message)
	case oceandata.ContainsAny(lower, visualizationWords):
		return p.visualization(message)
	default:
		return p.general(message)
	}
}

func (p *Processor) greeting() Response {
	return Response{
		Content: p.faker.RandomString(Greetings),
		Type:    models.TypeText,
	}
}

func (p *Processor) oceanQuery(message string) Response {
	analysis := p.analyzer.AnalyzeQuery(message)
	if !analysis.HasData {
		return Response{
			Content: fmt.Sprintf(researchTemplate, message),
			Type:    models.TypeDataAnalysis,
			Data:    map[string]any{},
		}
	}
	return Response{
		Content: fmt.Sprintf(analysisTemplate, message, analysis.Insights, analysis.Summary, analysis.Recommendations),
		Type:    models.TypeDataAnalysis,
		Data:    analysis.Data,
	}
}

func (p *Processor) visualization(message string) Response {
	viz := p.analyzer.GenerateVisualization(message)
	return Response{
		Content: fmt.Sprintf(visualizationTemplate,
			viz.ChartType, viz.DataPoints, viz.TimeRange, strings.Join(viz.Parameters, ", "), viz.Description),
		Type:              models.TypeVisualization,
		VisualizationData: &viz,
	}
}

func (p *Processor) general(message string) Response {
	tmpl := p.faker.RandomString(generalTemplates)
	return Response{
		Content: fmt.Sprintf(tmpl, message),
		Type:    models.TypeText,
	}
}
