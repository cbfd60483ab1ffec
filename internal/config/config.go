package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"business-consultant/internal/apperrors"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	SearchTavily     = "tavily"
	SearchDuckDuckGo = "duckduckgo"
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	ChatLLM  LLMConfig     `yaml:"chat_llm"`
	EmbedLLM LLMConfig     `yaml:"embed_llm"`
	Search   SearchConfig  `yaml:"search"`
	RAG      RAGConfig     `yaml:"rag"`
	Agent    AgentConfig   `yaml:"agent"`
	Tabular  TabularConfig `yaml:"tabular"`
}

type ServerConfig struct {
	Addr       string        `yaml:"addr"`
	ScratchDir string        `yaml:"scratch_dir"`
	// SessionTTL is how long an idle browser session keeps its scratch directory.
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// LLMConfig describes one hosted model endpoint.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

type SearchConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Key        string `yaml:"key"`
	MaxResults int    `yaml:"max_results"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

type AgentConfig struct {
	MaxIterations int `yaml:"max_iterations"`
	ScrapeLimit   int `yaml:"scrape_limit"`
}

type TabularConfig struct {
	Python   string        `yaml:"python"`
	Timeout  time.Duration `yaml:"timeout"`
	PlotFile string        `yaml:"plot_file"`
}

const (
	defaultAddr          = ":8501"
	defaultBaseURL       = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultChatModel     = "gemini-2.0-flash"
	defaultEmbedModel    = "text-embedding-004"
	defaultTavilyURL     = "https://api.tavily.com"
	defaultMaxResults    = 5
	defaultChunkSize     = 1000 // characters
	defaultChunkOverlap  = 200  // characters
	defaultTopK          = 5
	defaultMaxIterations = 15
	defaultScrapeLimit   = 15000 // characters
	defaultPython        = "python3"
	defaultPythonTimeout = 60 * time.Second
	defaultPlotFile      = "plot.png"
	defaultSessionTTL    = 30 * time.Minute
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       defaultAddr,
			ScratchDir: os.TempDir(),
			SessionTTL: defaultSessionTTL,
		},
		ChatLLM: LLMConfig{
			Provider: ProviderOpenAI,
			BaseURL:  defaultBaseURL,
			Model:    defaultChatModel,
		},
		EmbedLLM: LLMConfig{
			Provider: ProviderOpenAI,
			BaseURL:  defaultBaseURL,
			Model:    defaultEmbedModel,
		},
		Search: SearchConfig{
			Provider:   SearchTavily,
			BaseURL:    defaultTavilyURL,
			MaxResults: defaultMaxResults,
		},
		RAG: RAGConfig{
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
			TopK:         defaultTopK,
		},
		Agent: AgentConfig{
			MaxIterations: defaultMaxIterations,
			ScrapeLimit:   defaultScrapeLimit,
		},
		Tabular: TabularConfig{
			Python:   defaultPython,
			Timeout:  defaultPythonTimeout,
			PlotFile: defaultPlotFile,
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults and then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, apperrors.Configuration(path, "failed to read config file", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, apperrors.Configuration(path, "failed to parse config file", err)
			}
		}
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.fillDefaults()
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.ChatLLM.Key, "CONSULTANT_CHAT_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY")
	set(&c.EmbedLLM.Key, "CONSULTANT_EMBED_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY")
	set(&c.ChatLLM.BaseURL, "CONSULTANT_LLM_BASE_URL")
	set(&c.EmbedLLM.BaseURL, "CONSULTANT_LLM_BASE_URL")
	set(&c.ChatLLM.Model, "CONSULTANT_CHAT_MODEL")
	set(&c.EmbedLLM.Model, "CONSULTANT_EMBED_MODEL")
	set(&c.Search.Key, "TAVILY_API_KEY")
	set(&c.Server.Addr, "CONSULTANT_ADDR")
	set(&c.Server.ScratchDir, "CONSULTANT_SCRATCH_DIR")

	if v, ok := lookup("CONSULTANT_MAX_ITERATIONS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Agent.MaxIterations = n
		}
	}
}

// fillDefaults restores zero values a partial config file left behind.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ScratchDir == "" {
		c.Server.ScratchDir = d.Server.ScratchDir
	}
	if c.Server.SessionTTL <= 0 {
		c.Server.SessionTTL = d.Server.SessionTTL
	}
	if c.Search.Provider == "" {
		c.Search.Provider = d.Search.Provider
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = d.Search.MaxResults
	}
	if c.RAG.ChunkSize <= 0 || c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		c.RAG.ChunkSize = d.RAG.ChunkSize
		c.RAG.ChunkOverlap = d.RAG.ChunkOverlap
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = d.RAG.TopK
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = d.Agent.MaxIterations
	}
	if c.Agent.ScrapeLimit <= 0 {
		c.Agent.ScrapeLimit = d.Agent.ScrapeLimit
	}
	if c.Tabular.Python == "" {
		c.Tabular.Python = d.Tabular.Python
	}
	if c.Tabular.Timeout <= 0 {
		c.Tabular.Timeout = d.Tabular.Timeout
	}
	if c.Tabular.PlotFile == "" {
		c.Tabular.PlotFile = d.Tabular.PlotFile
	}
}

// Validate checks the settings needed to reach the hosted chat and embedding models.
func (l LLMConfig) Validate(name string) error {
	switch l.Provider {
	case ProviderOpenAI:
		if l.Key == "" {
			return apperrors.Configuration(name+".key", "api key is required", nil)
		}
	case ProviderOllama:
	default:
		return apperrors.Configuration(name+".provider", "unknown provider "+strconv.Quote(l.Provider), nil)
	}
	if l.Model == "" {
		return apperrors.Configuration(name+".model", "model is required", nil)
	}
	return nil
}

// Validate checks the web search settings.
func (s SearchConfig) Validate() error {
	switch s.Provider {
	case SearchTavily:
		if s.Key == "" {
			return apperrors.Configuration("search.key", "TAVILY_API_KEY is required", nil)
		}
	case SearchDuckDuckGo:
	default:
		return apperrors.Configuration("search.provider", "unknown provider "+strconv.Quote(s.Provider), nil)
	}
	return nil
}
