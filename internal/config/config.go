package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Language      string `toml:"language"`
	AppDBDir      string `toml:"app_db_dir"`
	UserDBDir     string `toml:"user_db_dir"`
	StringRecords string `toml:"string_records"`
	WorkerCount   int    `toml:"worker_count"`
	BatchSize     int    `toml:"batch_size"`
	LogLevel      string `toml:"log_level"`

	Cache      CacheConfig      `toml:"cache"`
	Suggest    SuggestConfig    `toml:"suggest"`
	Graph      GraphConfig      `toml:"graph"`
	Translator TranslatorConfig `toml:"translator"`
}

type CacheConfig struct {
	DatabaseURL string `toml:"database_url"`
}

type SuggestConfig struct {
	DatabaseURL    string `toml:"database_url"`
	Dimensions     int    `toml:"dimensions"`
	EmbeddingURL   string `toml:"embedding_url"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
}

type GraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type TranslatorConfig struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	SourceLanguage string `toml:"source_language"`
	MaxConcurrent  int    `toml:"max_concurrent"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Language:    "english",
		AppDBDir:    "data/app_database",
		UserDBDir:   "data/user_database",
		WorkerCount: 8,
		BatchSize:   10,
		LogLevel:    "info",
		Suggest: SuggestConfig{
			Dimensions: 256,
		},
		Graph: GraphConfig{
			URI:  "bolt://localhost:7687",
			User: "neo4j",
		},
		Translator: TranslatorConfig{
			Model:          "gemini-2.5-flash",
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/models",
			SourceLanguage: "english",
			MaxConcurrent:  5,
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (if it
// exists), a .env file and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debug().Str("path", path).Msg("No config file found, using defaults")
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Language = getEnv("ESP_LANGUAGE", c.Language)
	c.AppDBDir = getEnv("APP_DB_DIR", c.AppDBDir)
	c.UserDBDir = getEnv("USER_DB_DIR", c.UserDBDir)
	c.StringRecords = getEnv("STRING_RECORDS", c.StringRecords)
	c.WorkerCount = getEnvInt("WORKER_COUNT", c.WorkerCount)
	c.BatchSize = getEnvInt("BATCH_SIZE", c.BatchSize)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Cache.DatabaseURL = getEnv("CACHE_DATABASE_URL", getEnv("DATABASE_URL", c.Cache.DatabaseURL))
	c.Suggest.DatabaseURL = getEnv("SUGGEST_DATABASE_URL", getEnv("DATABASE_URL", c.Suggest.DatabaseURL))
	c.Suggest.Dimensions = getEnvInt("EMBEDDING_DIMENSIONS", c.Suggest.Dimensions)
	c.Suggest.EmbeddingURL = getEnv("EMBEDDING_URL", c.Suggest.EmbeddingURL)
	c.Suggest.EmbeddingModel = getEnv("EMBEDDING_MODEL", c.Suggest.EmbeddingModel)
	c.Suggest.APIKey = getEnv("EMBEDDING_API_KEY", c.Suggest.APIKey)

	c.Graph.URI = getEnv("NEO4J_URI", c.Graph.URI)
	c.Graph.User = getEnv("NEO4J_USER", c.Graph.User)
	c.Graph.Password = getEnv("NEO4J_PASSWORD", c.Graph.Password)

	c.Translator.APIKey = getEnv("GEMINI_API_KEY", c.Translator.APIKey)
	c.Translator.Model = getEnv("TRANSLATION_MODEL", c.Translator.Model)
	c.Translator.SourceLanguage = getEnv("SOURCE_LANGUAGE", c.Translator.SourceLanguage)
	c.Translator.MaxConcurrent = getEnvInt("MAX_CONCURRENT_API_CALLS", c.Translator.MaxConcurrent)
}

// Validate checks the values that have no usable fallback.
func (c *Config) Validate() error {
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	if c.Language == "" {
		return errors.New("config: language must not be empty")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("config: worker_count must be positive, got %d", c.WorkerCount)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Suggest.Dimensions < 1 {
		return fmt.Errorf("config: suggest.dimensions must be positive, got %d", c.Suggest.Dimensions)
	}
	c.AppDBDir = filepath.Clean(c.AppDBDir)
	c.UserDBDir = filepath.Clean(c.UserDBDir)
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
