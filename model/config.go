package model

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CrawlConfiguration configures the manifest crawler.
type CrawlConfiguration struct {
	MaxConcurrent      int    `yaml:"max_concurrent"`
	TimeoutSecs        int    `yaml:"timeout_secs"`
	ConnectTimeoutSecs int    `yaml:"connect_timeout_secs"`
	ContentExtension   string `yaml:"content_extension"`
	UserAgent          string `yaml:"user_agent"`
}

// Timeout returns the total per-request timeout.
func (c CrawlConfiguration) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ConnectTimeout returns the connect timeout, always shorter than the total.
func (c CrawlConfiguration) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSecs) * time.Second
}

// Configuration is the root application configuration.
type Configuration struct {
	EmbeddingModel     string             `yaml:"embedding_model"`
	RerankerModel      string             `yaml:"reranker_model"`
	EmbeddingDimension int                `yaml:"embedding_dimension"`
	MaxChunkTokens     int                `yaml:"max_chunk_tokens"`
	VectorSearchLimit  int                `yaml:"vector_search_limit"`
	DefaultTopK        int                `yaml:"default_top_k"`
	FilePatterns       []string           `yaml:"file_patterns"`
	Crawler            CrawlConfiguration `yaml:"crawler"`
}

// DefaultConfiguration returns the configuration used when no file is given.
func DefaultConfiguration() *Configuration {
	cfg := &Configuration{}
	applyConfigurationDefaults(cfg)
	return cfg
}

// LoadConfiguration reads a YAML configuration from path. A missing file
// yields the defaults.
func LoadConfiguration(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfiguration(), nil
		}
		return nil, err
	}
	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigurationDefaults(&cfg)
	return &cfg, nil
}

func applyConfigurationDefaults(cfg *Configuration) {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "sentence-transformers/all-mpnet-base-v2"
	}
	if cfg.RerankerModel == "" {
		cfg.RerankerModel = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	}
	if cfg.EmbeddingDimension == 0 {
		cfg.EmbeddingDimension = 768
	}
	if cfg.MaxChunkTokens == 0 {
		cfg.MaxChunkTokens = 512
	}
	if cfg.VectorSearchLimit == 0 {
		cfg.VectorSearchLimit = 20
	}
	if cfg.DefaultTopK == 0 {
		cfg.DefaultTopK = 5
	}
	if len(cfg.FilePatterns) == 0 {
		cfg.FilePatterns = []string{"*.txt", "*.md", "*.markdown", "*.rst", "*.text"}
	}
	if cfg.Crawler.MaxConcurrent == 0 {
		cfg.Crawler.MaxConcurrent = 10
	}
	if cfg.Crawler.TimeoutSecs == 0 {
		cfg.Crawler.TimeoutSecs = 30
	}
	if cfg.Crawler.ConnectTimeoutSecs == 0 {
		cfg.Crawler.ConnectTimeoutSecs = 10
	}
	if cfg.Crawler.ContentExtension == "" {
		cfg.Crawler.ContentExtension = ".md"
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = "semkb/1.0 (manifest crawler)"
	}
}
