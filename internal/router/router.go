// Package router dispatches user actions to the consultant, SWOT and document
// pipelines.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	lctools "github.com/tmc/langchaingo/tools"

	"business-consultant/internal/agent"
	"business-consultant/internal/apperrors"
	"business-consultant/internal/chromemdb"
	"business-consultant/internal/config"
	"business-consultant/internal/llmservice"
	"business-consultant/internal/models"
	"business-consultant/internal/parser"
	"business-consultant/internal/prompt"
	"business-consultant/internal/rag"
	"business-consultant/internal/tabular"
	"business-consultant/internal/tools"
)

// inputError is a problem with what the user asked for, shown as is.
type inputError string

func (e inputError) Error() string { return string(e) }

const (
	errNoDocuments   = inputError("Upload a PDF, text, Word or PowerPoint file before asking about documents.")
	errEmptyQuestion = inputError("Please enter a question.")
	errEmptyCompany  = inputError("Please enter a company name.")
)

// SandboxFactory builds the code execution tool for one dataset.
type SandboxFactory func(ds *tabular.Dataset) lctools.Tool

// Router owns the pipelines. It holds no per-user state.
type Router struct {
	cfg        *config.Config
	provider   *llmservice.Provider
	parser     *parser.Parser
	search     func(*config.SearchConfig) (lctools.Tool, error)
	newSandbox SandboxFactory
}

type Option func(*Router)

// WithSearchTool replaces the configured web search tool.
func WithSearchTool(t lctools.Tool) Option {
	return func(r *Router) {
		r.search = func(*config.SearchConfig) (lctools.Tool, error) { return t, nil }
	}
}

// WithSandboxFactory replaces the python subprocess used for datasets.
func WithSandboxFactory(f SandboxFactory) Option {
	return func(r *Router) {
		r.newSandbox = f
	}
}

func New(cfg *config.Config, provider *llmservice.Provider, opts ...Option) *Router {
	r := &Router{
		cfg:      cfg,
		provider: provider,
		parser:   parser.New(&cfg.RAG),
		search:   tools.NewSearch,
	}
	r.newSandbox = func(ds *tabular.Dataset) lctools.Tool {
		return tools.NewPythonSandbox(cfg.Tabular.Python, ds.Path, ds.Dir, cfg.Tabular.Timeout)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) newAgent(box *tools.Toolbox) (*agent.Agent, error) {
	model, err := r.provider.ChatModel()
	if err != nil {
		return nil, err
	}
	return agent.New(model, box,
		agent.WithMaxIterations(r.cfg.Agent.MaxIterations),
		agent.WithCallOptions(r.provider.CallOptions()...),
	), nil
}

func (r *Router) webAgent() (*agent.Agent, error) {
	search, err := r.search(&r.cfg.Search)
	if err != nil {
		return nil, err
	}
	box, err := tools.NewToolbox(search, tools.NewScraper(r.cfg.Agent.ScrapeLimit))
	if err != nil {
		return nil, err
	}
	return r.newAgent(box)
}

// Consult answers a free text business question with the web agent.
func (r *Router) Consult(ctx context.Context, question string) (*models.PromptResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errEmptyQuestion
	}
	return r.runWebAgent(ctx, question, prompt.KindConsultant, prompt.Input{Question: question})
}

// SWOT researches company with the web agent and returns a four section report.
func (r *Router) SWOT(ctx context.Context, company string) (*models.PromptResponse, error) {
	if strings.TrimSpace(company) == "" {
		return nil, errEmptyCompany
	}
	return r.runWebAgent(ctx, company, prompt.KindSWOT, prompt.Input{Company: company})
}

func (r *Router) runWebAgent(ctx context.Context, query string, kind prompt.Kind, in prompt.Input) (*models.PromptResponse, error) {
	task, err := prompt.Build(kind, in)
	if err != nil {
		return nil, err
	}
	a, err := r.webAgent()
	if err != nil {
		return nil, err
	}
	res, err := a.Run(ctx, task)
	if err != nil {
		return nil, err
	}
	return &models.PromptResponse{Query: query, Content: res.Answer}, nil
}

// UploadReport summarizes what an upload did.
type UploadReport struct {
	Files    []string
	Chunks   int
	Datasets []string
	Skipped  []string
	Failures []string
}

// Upload ingests a batch. Non-tabular files replace the session's document
// index; each tabular file becomes its own dataset. A failure in one group
// never blocks the other, and a failed file never blocks the rest of its group.
func (r *Router) Upload(ctx context.Context, s *Session, uploads []models.Upload) (*UploadReport, error) {
	report := &UploadReport{}
	var documents []models.Upload
	for _, up := range uploads {
		desc := models.Describe(up.Name)
		switch {
		case desc.Kind.Tabular():
			ds, err := tabular.Load(up, s.Dir)
			if err != nil {
				log.Warn().Err(err).Str("file", up.Name).Msg("Failed to load dataset")
				report.Failures = append(report.Failures, apperrors.UserMessage(err))
				continue
			}
			s.putDataset(ds)
			report.Datasets = append(report.Datasets, ds.Name)
		case desc.Kind.Retrievable():
			documents = append(documents, up)
		default:
			report.Skipped = append(report.Skipped, up.Name)
		}
	}

	if len(documents) == 0 {
		return report, nil
	}

	// the previous batch's index never outlives a new batch
	s.replaceIndex(nil, nil)

	res := r.parser.Ingest(documents, s.documentsDir())
	for _, err := range res.Failures {
		report.Failures = append(report.Failures, apperrors.UserMessage(err))
	}
	if len(res.Chunks) == 0 {
		return report, nil
	}

	embedder, err := r.provider.Embedder()
	if err != nil {
		return report, err
	}
	idx, err := chromemdb.Build(ctx, embedder, res.Chunks)
	if err != nil {
		return report, fmt.Errorf("failed to build document index: %w", err)
	}
	s.replaceIndex(idx, res.Files)
	report.Files = res.Files
	report.Chunks = idx.Len()
	return report, nil
}

// AskDocuments answers question from the session's document index.
func (r *Router) AskDocuments(ctx context.Context, s *Session, question string) (*models.PromptResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errEmptyQuestion
	}
	idx := s.currentIndex()
	if idx.Len() == 0 {
		return nil, errNoDocuments
	}
	model, err := r.provider.ChatModel()
	if err != nil {
		return nil, err
	}
	return rag.NewRAG(model, &r.cfg.RAG, r.provider.CallOptions()...).Query(ctx, idx, question)
}

// AskDataset runs a fresh data agent over one dataset. A chart written by the
// run is referenced from the response.
func (r *Router) AskDataset(ctx context.Context, s *Session, name, question string) (*models.PromptResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errEmptyQuestion
	}
	ds, ok := s.Dataset(name)
	if !ok {
		return nil, inputError(fmt.Sprintf("No dataset named %q was uploaded.", name))
	}

	plotFile := r.cfg.Tabular.PlotFile
	if err := ds.ClearChart(plotFile); err != nil {
		return nil, fmt.Errorf("failed to remove old chart: %w", err)
	}

	box, err := tools.NewToolbox(r.newSandbox(ds))
	if err != nil {
		return nil, err
	}
	a, err := r.newAgent(box)
	if err != nil {
		return nil, err
	}
	task, err := prompt.Build(prompt.KindTabular, prompt.Input{Question: question, Context: ds.PreviewMarkdown(), PlotFile: plotFile})
	if err != nil {
		return nil, err
	}
	res, err := a.Run(ctx, task)
	if err != nil {
		return nil, err
	}

	out := &models.PromptResponse{
		Query:   question,
		Sources: []models.Source{{Filename: ds.Name}},
		Content: res.Answer,
	}
	if ds.HasChart(plotFile) {
		out.ChartPath = ds.ChartPath(plotFile)
	}
	return out, nil
}

// userMessage renders err for the UI.
func userMessage(err error) string {
	var in inputError
	if errors.As(err, &in) {
		return in.Error()
	}
	return apperrors.UserMessage(err)
}
