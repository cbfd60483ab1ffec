package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"business-consultant/internal/apperrors"
	"business-consultant/internal/config"
)

type stubModel struct {
	reply string
	err   error
}

func (m *stubModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) { return nil, nil }
func (stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error)         { return nil, nil }

func validConfig() *config.Config {
	cfg := config.Default()
	cfg.ChatLLM.Key = "k"
	cfg.EmbedLLM.Key = "k"
	return cfg
}

func TestProviderCachesHandles(t *testing.T) {
	chatCalls, embedCalls := 0, 0
	p := NewProviderWith(validConfig(),
		func(*config.LLMConfig) (llms.Model, error) {
			chatCalls++
			return &stubModel{}, nil
		},
		func(*config.LLMConfig) (embeddings.Embedder, error) {
			embedCalls++
			return &stubEmbedder{}, nil
		},
	)

	first, err := p.ChatModel()
	require.NoError(t, err)
	second, err := p.ChatModel()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, chatCalls)

	e1, err := p.Embedder()
	require.NoError(t, err)
	e2, err := p.Embedder()
	require.NoError(t, err)
	assert.Same(t, e1, e2)
	assert.Equal(t, 1, embedCalls)
}

func TestProviderConfigurationErrorIsNotRetried(t *testing.T) {
	calls := 0
	p := NewProviderWith(validConfig(),
		func(*config.LLMConfig) (llms.Model, error) {
			calls++
			return nil, errors.New("bad base url")
		},
		nil,
	)

	_, err := p.ChatModel()
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))

	_, err = p.ChatModel()
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestProviderMissingKey(t *testing.T) {
	cfg := config.Default()
	p := NewProviderWith(cfg, nil, nil)

	_, err := p.ChatModel()
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))
	_, err = p.Embedder()
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfiguration))
}

func TestGenerateContentStripsThinking(t *testing.T) {
	m := &stubModel{reply: "<think>internal</think>\n  The answer."}
	out, err := GenerateContent(context.Background(), m, "q")
	require.NoError(t, err)
	assert.Equal(t, "The answer.", out)
}

func TestGenerateContentError(t *testing.T) {
	_, err := GenerateContent(context.Background(), &stubModel{err: errors.New("503")}, "q")
	assert.ErrorContains(t, err, "503")
}
