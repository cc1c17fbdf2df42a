package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port           int              `json:"port"`
	JWTSecret      string           `json:"jwt_secret"`
	JWTTTLHours    int              `json:"jwt_ttl_hours"`
	LogConfig      logger.LogConfig `json:"log_config"`
	CORSAllowlist  []string         `json:"cors_allowlist"`
	RateLimitQPS   float64          `json:"rate_limit_qps"`
	RateLimitBurst int              `json:"rate_limit_burst"`
	AI             AIConfig         `json:"ai"`
	Retrieval      RetrievalConfig  `json:"retrieval"`
	IndexStore     FileStoreConfig  `json:"index_store"`
	Database       DatabaseConfig   `json:"database"`
	Session        SessionConfig    `json:"session"`
}

// ProviderEntry names one provider instance; Data is decoded by the provider itself.
type ProviderEntry struct {
	Name     string      `json:"name"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Chat        []ProviderEntry `json:"chat"`
	Embed       ProviderEntry   `json:"embed"`
	Timeout     int             `json:"timeout"`
	MaxRetries  int             `json:"max_retries"`
	RetryBaseMS int             `json:"retry_base_ms"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type RetrievalConfig struct {
	Manifest             string  `json:"manifest"`
	ChunkSize            int     `json:"chunk_size"`
	ChunkOverlap         int     `json:"chunk_overlap"`
	TopK                 int     `json:"top_k"`
	MinScore             float64 `json:"min_score"`
	IndexKey             string  `json:"index_key"`
	BuildConcurrency     int     `json:"build_concurrency"`
	QueryCacheSize       int     `json:"query_cache_size"`
	QueryCacheTTLSeconds int     `json:"query_cache_ttl_seconds"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type DatabaseConfig struct {
	DSN              string `json:"dsn"`
	Host             string `json:"host"`
	Port             int    `json:"port"`
	User             string `json:"user"`
	Password         string `json:"password"`
	DBName           string `json:"dbname"`
	SSLMode          string `json:"sslmode"`
	CacheMaxAgeDays  int    `json:"cache_max_age_days"`
	CacheCleanupSpec string `json:"cache_cleanup_spec"`
}

type SessionConfig struct {
	IdleTimeoutMinutes int    `json:"idle_timeout_minutes"`
	SweepSpec          string `json:"sweep_spec"`
	MaxMessageChars    int    `json:"max_message_chars"`
	// HistoryTurns is how many earlier Q&A exchanges accompany a question; negative disables it.
	HistoryTurns int `json:"history_turns"`
}

// Load reads a JSON config. A .env file next to the config (or in the
// working directory) is loaded first and ${VAR} references are expanded.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	loadDotEnv(filepath.Dir(path))

	var cfg Config
	if err := json.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(dir string) {
	for _, candidate := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(candidate); err == nil {
			// variables already present in the environment win
			_ = godotenv.Load(candidate)
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.JWTTTLHours == 0 {
		c.JWTTTLHours = 24
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.RateLimitQPS == 0 {
		c.RateLimitQPS = 5
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 10
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 30
	}
	if c.AI.MaxRetries == 0 {
		c.AI.MaxRetries = 3
	}
	if c.AI.RetryBaseMS == 0 {
		c.AI.RetryBaseMS = 200
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 0.7
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 1500
	}
	r := &c.Retrieval
	if r.ChunkSize == 0 {
		r.ChunkSize = 1000
	}
	if r.ChunkOverlap == 0 {
		r.ChunkOverlap = 200
	}
	if r.TopK == 0 {
		r.TopK = 2
	}
	if r.MinScore == 0 {
		r.MinScore = 0.7
	}
	if r.IndexKey == "" {
		r.IndexKey = "hmo_index.jsonl"
	}
	if r.BuildConcurrency == 0 {
		r.BuildConcurrency = 4
	}
	if r.QueryCacheSize == 0 {
		r.QueryCacheSize = 1024
	}
	if r.QueryCacheTTLSeconds == 0 {
		r.QueryCacheTTLSeconds = 600
	}
	if c.IndexStore.Type == "" {
		c.IndexStore.Type = "local"
	}
	if c.IndexStore.Data == nil && c.IndexStore.Type == "local" {
		c.IndexStore.Data = map[string]interface{}{"dir": "./data"}
	}
	if c.Database.CacheMaxAgeDays == 0 {
		c.Database.CacheMaxAgeDays = 30
	}
	if c.Database.CacheCleanupSpec == "" {
		c.Database.CacheCleanupSpec = "0 3 * * *"
	}
	if c.Session.IdleTimeoutMinutes == 0 {
		c.Session.IdleTimeoutMinutes = 30
	}
	if c.Session.SweepSpec == "" {
		c.Session.SweepSpec = "*/5 * * * *"
	}
	if c.Session.MaxMessageChars == 0 {
		c.Session.MaxMessageChars = 1000
	}
	if c.Session.HistoryTurns == 0 {
		c.Session.HistoryTurns = 5
	}
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if len(c.AI.Chat) == 0 {
		return fmt.Errorf("ai.chat requires at least one provider")
	}
	for i, entry := range c.AI.Chat {
		if entry.Provider == "" || entry.Model == "" {
			return fmt.Errorf("ai.chat[%d] provider/model are required", i)
		}
	}
	if c.AI.Embed.Provider == "" || c.AI.Embed.Model == "" {
		return fmt.Errorf("ai.embed provider/model are required")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2")
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("ai.max_tokens must be positive")
	}
	r := c.Retrieval
	if r.TopK < 1 || r.TopK > 9 {
		return fmt.Errorf("retrieval.top_k must be between 1 and 9")
	}
	if r.MinScore < -1 || r.MinScore > 1 {
		return fmt.Errorf("retrieval.min_score must be between -1 and 1")
	}
	if r.ChunkSize <= 0 || r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap must be smaller than chunk_size")
	}
	switch c.IndexStore.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("index_store.type must be local or s3")
	}
	return nil
}
