// Package rag answers questions about uploaded documents from retrieved context.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"business-consultant/internal/config"
	"business-consultant/internal/llmservice"
	"business-consultant/internal/models"
	"business-consultant/internal/prompt"
)

// Retriever returns the chunks most similar to text.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]models.Chunk, error)
}

type RAG struct {
	llm     llms.Model
	topK    int
	options []llms.CallOption
}

func NewRAG(llm llms.Model, cfg *config.RAGConfig, options ...llms.CallOption) *RAG {
	return &RAG{llm: llm, topK: cfg.TopK, options: options}
}

// Query retrieves the top chunks for query from index, joins them into one
// context and asks the model for a structured answer.
func (r *RAG) Query(ctx context.Context, index Retriever, query string) (*models.PromptResponse, error) {
	chunks, err := index.Query(ctx, query, r.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	log.Debug().Int("chunks", len(chunks)).Str("query", query).Msg("Retrieved context")

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}

	answer, err := llmservice.GenerateContent(ctx, r.llm, prompt.DocumentQA(query, strings.Join(contents, models.ContextSeparator)), r.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &models.PromptResponse{
		Query:   query,
		Sources: sources(chunks),
		Content: answer,
	}, nil
}

// sources lists each distinct filename and page once, in retrieval order.
func sources(chunks []models.Chunk) []models.Source {
	seen := make(map[models.Source]bool, len(chunks))
	var out []models.Source
	for _, c := range chunks {
		s := models.Source{Filename: c.Source, PageNumber: c.PageNumber}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
