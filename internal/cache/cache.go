package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"esp-translator/internal/stringunit"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS plugin_strings (
	hash       TEXT PRIMARY KEY,
	plugin     TEXT NOT NULL,
	units      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// StringCache keeps the units extracted from plugins, keyed by a hash of
// the plugin content. It always has an in-memory layer; PostgreSQL is used
// when a pool is given.
type StringCache struct {
	pool   *pgxpool.Pool
	mu     sync.RWMutex
	memory map[string][]stringunit.Unit // hash → units
}

// NewStringCache creates a cache. pool may be nil for a memory-only cache.
func NewStringCache(pool *pgxpool.Pool) *StringCache {
	return &StringCache{
		pool:   pool,
		memory: make(map[string][]stringunit.Unit),
	}
}

// EnsureSchema creates the cache table.
func (c *StringCache) EnsureSchema(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	if _, err := c.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

// Get retrieves cached units. The returned units are copies.
func (c *StringCache) Get(ctx context.Context, hash string) ([]stringunit.Unit, bool) {
	c.mu.RLock()
	units, ok := c.memory[hash]
	c.mu.RUnlock()
	if ok {
		return cloneUnits(units), true
	}
	if c.pool == nil {
		return nil, false
	}

	var data []byte
	err := c.pool.QueryRow(ctx, `SELECT units FROM plugin_strings WHERE hash = $1`, hash).Scan(&data)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Warn().Err(err).Msg("Cache lookup failed")
		}
		return nil, false
	}
	if err := json.Unmarshal(data, &units); err != nil {
		log.Warn().Err(err).Str("hash", hash).Msg("Discarding corrupt cache entry")
		return nil, false
	}

	c.mu.Lock()
	c.memory[hash] = units
	c.mu.Unlock()
	return cloneUnits(units), true
}

// Set stores units in memory and, if configured, in PostgreSQL.
func (c *StringCache) Set(ctx context.Context, hash, plugin string, units []stringunit.Unit) error {
	units = cloneUnits(units)
	c.mu.Lock()
	c.memory[hash] = units
	c.mu.Unlock()

	if c.pool == nil {
		return nil
	}
	data, err := json.Marshal(units)
	if err != nil {
		return fmt.Errorf("encode cached units: %w", err)
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO plugin_strings (hash, plugin, units) VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO UPDATE SET plugin = EXCLUDED.plugin, units = EXCLUDED.units, updated_at = now()
	`, hash, plugin, data)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Len returns the number of entries held in memory.
func (c *StringCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}

// Preload loads all cached entries into memory.
func (c *StringCache) Preload(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	rows, err := c.pool.Query(ctx, `SELECT hash, units FROM plugin_strings`)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string][]stringunit.Unit)
	for rows.Next() {
		var (
			hash  string
			data  []byte
			units []stringunit.Unit
		)
		if err := rows.Scan(&hash, &data); err != nil {
			return fmt.Errorf("preload cache: %w", err)
		}
		if err := json.Unmarshal(data, &units); err != nil {
			log.Warn().Err(err).Str("hash", hash).Msg("Discarding corrupt cache entry")
			continue
		}
		loaded[hash] = units
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}

	c.mu.Lock()
	for h, u := range loaded {
		c.memory[h] = u
	}
	c.mu.Unlock()

	log.Info().Int("count", len(loaded)).Msg("Preloaded string cache")
	return nil
}

func cloneUnits(units []stringunit.Unit) []stringunit.Unit {
	out := make([]stringunit.Unit, len(units))
	for i, u := range units {
		out[i] = u.Clone()
	}
	return out
}
