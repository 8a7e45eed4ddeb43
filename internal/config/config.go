package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel   string         `yaml:"log_level"`
	Database   DatabaseConfig `yaml:"database"`
	LLM        LLMConfig      `yaml:"llm"`
	SummaryLLM LLMConfig      `yaml:"summary_llm"`
	EmbedLLM   LLMConfig      `yaml:"embed_llm"`
	RAG        RAGConfig      `yaml:"rag"`
	Server     ServerConfig   `yaml:"server"`
}

// DatabaseConfig points at the Supabase Postgres instance holding the corpus
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Driver   string `yaml:"driver"` // pgdriver or pq
	Debug    bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider       string  `yaml:"provider"` // openai or ollama
	BaseURL        string  `yaml:"base_url"`
	Key            string  `yaml:"key"`
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// Timeout of the underlying http client
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Enabled reports whether a model has been configured
func (c LLMConfig) Enabled() bool {
	return c.Model != ""
}

type RAGConfig struct {
	ChunkSize         int     `yaml:"chunk_size"`
	ChunkOverlap      int     `yaml:"chunk_overlap"`
	MinScore          float64 `yaml:"min_score"`
	QAThreshold       float64 `yaml:"qa_threshold"`
	AIThreshold       float64 `yaml:"ai_threshold"`
	MaxEvidence       int     `yaml:"max_evidence"`
	EnhancedLimit     int     `yaml:"enhanced_limit"`
	QueryLimit        int     `yaml:"query_limit"`
	EnhancedScoreCap  float64 `yaml:"enhanced_score_cap"` // 0 leaves the enhanced scorer uncapped
	SummaryInputChars int     `yaml:"summary_input_chars"`
	IngestWorkers     int     `yaml:"ingest_workers"`
	VectorDBPath      string  `yaml:"vector_db_path"`
	Collection        string  `yaml:"collection"`
	EncryptionKey     string  `yaml:"encryption_key"`
	RecallResults     int     `yaml:"recall_results"`
}

type ServerConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// Addr returns host:port for the http listener
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

const (
	defaultChunkSize         = 1000
	defaultChunkOverlap      = 100
	defaultMinScore          = 0.1
	defaultQAThreshold       = 0.5
	defaultAIThreshold       = 0.2
	defaultMaxEvidence       = 5
	defaultEnhancedLimit     = 10
	defaultQueryLimit        = 10
	defaultSummaryInputChars = 8000
	defaultIngestWorkers     = 4
	defaultCollection        = "knowledge_base"
	defaultVectorDBPath      = "./chromemdb"
	defaultRecallResults     = 5
	defaultLLMTimeout        = 60
	defaultTemperature       = 0.3
	defaultMaxTokens         = 800
	defaultPort              = 8080
	defaultRequestTimeout    = 60
)

// LoadConfig reads the yaml file at path, expands ${VAR} references and applies defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a config with every default applied, useful when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "debug"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}

	applyLLMDefaults(&c.LLM)
	// summaries reuse the chat model unless configured separately
	if !c.SummaryLLM.Enabled() {
		c.SummaryLLM = c.LLM
	}
	applyLLMDefaults(&c.SummaryLLM)
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = "ollama"
	}
	if c.EmbedLLM.TimeoutSeconds == 0 {
		c.EmbedLLM.TimeoutSeconds = defaultLLMTimeout
	}

	r := &c.RAG
	if r.ChunkSize <= 0 {
		r.ChunkSize = defaultChunkSize
	}
	if r.ChunkOverlap <= 0 {
		r.ChunkOverlap = defaultChunkOverlap
	}
	if r.MinScore <= 0 {
		r.MinScore = defaultMinScore
	}
	if r.QAThreshold <= 0 {
		r.QAThreshold = defaultQAThreshold
	}
	if r.AIThreshold <= 0 {
		r.AIThreshold = defaultAIThreshold
	}
	if r.MaxEvidence <= 0 {
		r.MaxEvidence = defaultMaxEvidence
	}
	if r.EnhancedLimit <= 0 {
		r.EnhancedLimit = defaultEnhancedLimit
	}
	if r.QueryLimit <= 0 {
		r.QueryLimit = defaultQueryLimit
	}
	if r.EnhancedScoreCap < 0 {
		r.EnhancedScoreCap = 0
	}
	if r.SummaryInputChars <= 0 {
		r.SummaryInputChars = defaultSummaryInputChars
	}
	if r.IngestWorkers <= 0 {
		r.IngestWorkers = defaultIngestWorkers
	}
	if r.VectorDBPath == "" {
		r.VectorDBPath = defaultVectorDBPath
	}
	if r.Collection == "" {
		r.Collection = defaultCollection
	}
	if r.RecallResults <= 0 {
		r.RecallResults = defaultRecallResults
	}

	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		c.Server.RequestTimeoutSeconds = defaultRequestTimeout
	}
}

func applyLLMDefaults(l *LLMConfig) {
	if l.Provider == "" {
		l.Provider = "openai"
	}
	if l.TimeoutSeconds <= 0 {
		l.TimeoutSeconds = defaultLLMTimeout
	}
	if l.Temperature == 0 {
		l.Temperature = defaultTemperature
	}
	if l.MaxTokens <= 0 {
		l.MaxTokens = defaultMaxTokens
	}
}
