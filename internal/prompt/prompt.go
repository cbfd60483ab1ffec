// Package prompt assembles the instruction strings sent to the model. Every
// function here is pure: the same inputs always give the same string.
package prompt

import (
	"fmt"
	"strings"
)

// Kind selects a task template.
type Kind int

const (
	KindConsultant Kind = iota
	KindSWOT
	KindDocumentQA
	KindTabular
)

func (k Kind) String() string {
	switch k {
	case KindConsultant:
		return "consultant"
	case KindSWOT:
		return "swot"
	case KindDocumentQA:
		return "document_qa"
	case KindTabular:
		return "tabular"
	default:
		return "unknown"
	}
}

// DefaultPlotFile is the chart name the tabular template asks for.
const DefaultPlotFile = "plot.png"

// Input holds everything a template may interpolate.
type Input struct {
	Question string
	Company  string
	// Context is retrieved document text for KindDocumentQA and the data
	// preview for KindTabular.
	Context  string
	PlotFile string
}

// Build returns the instruction for kind.
func Build(kind Kind, in Input) (string, error) {
	switch kind {
	case KindConsultant:
		if strings.TrimSpace(in.Question) == "" {
			return "", fmt.Errorf("question is required")
		}
		return Consultant(in.Question), nil
	case KindSWOT:
		if strings.TrimSpace(in.Company) == "" {
			return "", fmt.Errorf("company name is required")
		}
		return SWOT(in.Company), nil
	case KindDocumentQA:
		if strings.TrimSpace(in.Question) == "" {
			return "", fmt.Errorf("question is required")
		}
		return DocumentQA(in.Question, in.Context), nil
	case KindTabular:
		if strings.TrimSpace(in.Question) == "" {
			return "", fmt.Errorf("question is required")
		}
		return TabularAnalysis(in.Question, in.Context, in.PlotFile), nil
	default:
		return "", fmt.Errorf("unknown prompt kind %d", kind)
	}
}

// Consultant wraps a general business question.
func Consultant(question string) string {
	return fmt.Sprintf(consultantTemplate, question)
}

// SWOT asks for a four section SWOT analysis of company.
func SWOT(company string) string {
	return fmt.Sprintf(swotTemplate, company)
}

// DocumentQA asks a question about retrieved document context.
func DocumentQA(question, context string) string {
	return fmt.Sprintf(documentTemplate, context, question)
}

// TabularAnalysis asks the data agent to answer question about the dataset
// whose first rows are preview. Charts go to plotFile.
func TabularAnalysis(question, preview, plotFile string) string {
	if plotFile == "" {
		plotFile = DefaultPlotFile
	}
	return fmt.Sprintf(tabularTemplate, preview, plotFile, plotFile, plotFile, question)
}

// ToolSpec is the name and description of a tool shown to the agent.
type ToolSpec struct {
	Name        string
	Description string
}

// ReAct renders the reasoning loop prompt for input with the given scratchpad.
func ReAct(tools []ToolSpec, input, scratchpad string) string {
	descs := make([]string, len(tools))
	names := make([]string, len(tools))
	for i, t := range tools {
		descs[i] = t.Name + ": " + t.Description
		names[i] = t.Name
	}
	return fmt.Sprintf(reactTemplate, strings.Join(descs, "\n"), strings.Join(names, ", "), input, scratchpad)
}
