package llmservice

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"business-consultant/internal/apperrors"
	"business-consultant/internal/config"
	"business-consultant/internal/embedding"
)

// Provider owns the single chat handle and the single embedding handle of the
// process. Each handle is built on first use and reused afterwards; a build
// failure is remembered and returned on every later call.
type Provider struct {
	cfg *config.Config

	newChat     func(*config.LLMConfig) (llms.Model, error)
	newEmbedder func(*config.LLMConfig) (embeddings.Embedder, error)

	chatOnce sync.Once
	chat     llms.Model
	chatErr  error

	embedOnce sync.Once
	embedder  embeddings.Embedder
	embedErr  error
}

// NewProvider returns a provider backed by langchaingo clients.
func NewProvider(cfg *config.Config) *Provider {
	return NewProviderWith(cfg, NewChatModel, func(c *config.LLMConfig) (embeddings.Embedder, error) {
		return embedding.NewEmbedder(c)
	})
}

// NewProviderWith returns a provider using the given constructors.
func NewProviderWith(
	cfg *config.Config,
	newChat func(*config.LLMConfig) (llms.Model, error),
	newEmbedder func(*config.LLMConfig) (embeddings.Embedder, error),
) *Provider {
	return &Provider{cfg: cfg, newChat: newChat, newEmbedder: newEmbedder}
}

// ChatModel returns the cached chat handle.
func (p *Provider) ChatModel() (llms.Model, error) {
	p.chatOnce.Do(func() {
		if err := p.cfg.ChatLLM.Validate("chat_llm"); err != nil {
			p.chatErr = err
			return
		}
		log.Info().Str("model", p.cfg.ChatLLM.Model).Msg("Creating LLM client")
		m, err := p.newChat(&p.cfg.ChatLLM)
		if err != nil {
			p.chatErr = apperrors.Configuration("chat_llm", "failed to create chat client", err)
			return
		}
		p.chat = m
	})
	return p.chat, p.chatErr
}

// Embedder returns the cached embedding handle.
func (p *Provider) Embedder() (embeddings.Embedder, error) {
	p.embedOnce.Do(func() {
		if err := p.cfg.EmbedLLM.Validate("embed_llm"); err != nil {
			p.embedErr = err
			return
		}
		log.Info().Str("model", p.cfg.EmbedLLM.Model).Msg("Creating embeddings model client")
		e, err := p.newEmbedder(&p.cfg.EmbedLLM)
		if err != nil {
			p.embedErr = apperrors.Configuration("embed_llm", "failed to create embedding client", err)
			return
		}
		p.embedder = e
	})
	return p.embedder, p.embedErr
}

// CallOptions are the options applied to every chat completion.
func (p *Provider) CallOptions() []llms.CallOption {
	return []llms.CallOption{llms.WithTemperature(p.cfg.ChatLLM.Temperature)}
}
