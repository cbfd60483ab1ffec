package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIsPure(t *testing.T) {
	inputs := []struct {
		kind Kind
		in   Input
	}{
		{KindConsultant, Input{Question: "Growth drivers for Tesla?"}},
		{KindSWOT, Input{Company: "Acme Corp"}},
		{KindDocumentQA, Input{Question: "What is it about?", Context: "Annual report 2024"}},
		{KindTabular, Input{Question: "Bar chart by category", Context: "| a |", PlotFile: "plot.png"}},
	}
	for _, tt := range inputs {
		t.Run(tt.kind.String(), func(t *testing.T) {
			a, err := Build(tt.kind, tt.in)
			require.NoError(t, err)
			b, err := Build(tt.kind, tt.in)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestSWOTSectionsInOrder(t *testing.T) {
	p := SWOT("Acme Corp")
	assert.Contains(t, p, "**Acme Corp**")

	sections := []string{"Strengths", "Weaknesses", "Opportunities", "Threats"}
	last := -1
	for _, s := range sections {
		i := strings.Index(p, s)
		require.GreaterOrEqual(t, i, 0, s)
		assert.Greater(t, i, last, "%s out of order", s)
		last = i
	}
	assert.Contains(t, p, "3-4 bullet points")
}

func TestDocumentQASections(t *testing.T) {
	p := DocumentQA("What is the document about?", "ctx-text")
	for _, s := range []string{"Direct Answer", "Supporting Evidence", "Contextual Summary"} {
		assert.Contains(t, p, s)
	}
	assert.Less(t, strings.Index(p, "ctx-text"), strings.Index(p, "What is the document about?"))
}

func TestTabularAnalysisPlotFile(t *testing.T) {
	p := TabularAnalysis("Compare sales", "| Category | Sales |", "")
	assert.Contains(t, p, "plt.savefig('plot.png')")
	assert.Contains(t, p, "| Category | Sales |")
	assert.Contains(t, p, `User Question: "Compare sales"`)

	p = TabularAnalysis("Compare sales", "", "chart.png")
	assert.Contains(t, p, "plt.savefig('chart.png')")
}

func TestTabularAnalysisSaysStateIsLost(t *testing.T) {
	p := TabularAnalysis("Compare sales", "", "")
	assert.Contains(t, p, "Nothing else carries over between runs")
}

func TestBuildRejectsMissingInput(t *testing.T) {
	_, err := Build(KindSWOT, Input{Company: "  "})
	assert.Error(t, err)
	_, err = Build(KindConsultant, Input{})
	assert.Error(t, err)
	_, err = Build(Kind(42), Input{Question: "x"})
	assert.Error(t, err)
}

func TestReAct(t *testing.T) {
	p := ReAct([]ToolSpec{
		{Name: "web_search", Description: "search the web"},
		{Name: "scrape_website", Description: "read a page"},
	}, "Who is the CEO?", " I should search.")

	assert.Contains(t, p, "web_search: search the web\nscrape_website: read a page")
	assert.Contains(t, p, "should be one of [web_search, scrape_website]")
	assert.True(t, strings.HasSuffix(p, "Question: Who is the CEO?\nThought: I should search."))
}
