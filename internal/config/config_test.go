package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"esp-translator/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ESP_LANGUAGE", "APP_DB_DIR", "USER_DB_DIR", "STRING_RECORDS", "WORKER_COUNT", "BATCH_SIZE",
		"LOG_LEVEL", "DATABASE_URL", "CACHE_DATABASE_URL", "SUGGEST_DATABASE_URL", "EMBEDDING_DIMENSIONS",
		"EMBEDDING_URL", "EMBEDDING_MODEL", "EMBEDDING_API_KEY", "NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD",
		"GEMINI_API_KEY", "TRANSLATION_MODEL", "SOURCE_LANGUAGE", "MAX_CONCURRENT_API_CALLS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := config.Default()
	if cfg.Language != "english" || cfg.WorkerCount != def.WorkerCount || cfg.Translator.Model != def.Translator.Model {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Cache.DatabaseURL != "" {
		t.Fatalf("cache should be memory only by default, got %q", cfg.Cache.DatabaseURL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "esp-translator.toml")
	content := `
language = "German"
worker_count = 3
string_records = "records.json"

[cache]
database_url = "postgres://file/cache"

[graph]
uri = "bolt://graph:7687"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORKER_COUNT", "12")
	t.Setenv("NEO4J_PASSWORD", "secret")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Language != "german" {
		t.Fatalf("language = %q", cfg.Language)
	}
	if cfg.WorkerCount != 12 {
		t.Fatalf("env should override file, worker_count = %d", cfg.WorkerCount)
	}
	if cfg.StringRecords != "records.json" || cfg.Cache.DatabaseURL != "postgres://file/cache" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.Graph.URI != "bolt://graph:7687" || cfg.Graph.User != "neo4j" || cfg.Graph.Password != "secret" {
		t.Fatalf("graph = %+v", cfg.Graph)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("batch_size = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error")
	}
	if err := os.WriteFile(path, []byte("language = [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
