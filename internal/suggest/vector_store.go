package suggest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// VectorStore handles pgvector-backed translation memory storage and
// similarity search.
type VectorStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewVectorStore creates a new vector store for vectors of the given size.
func NewVectorStore(pool *pgxpool.Pool, dimensions int) *VectorStore {
	return &VectorStore{pool: pool, dimensions: dimensions}
}

// EnsureSchema creates the pgvector extension and the memory table.
func (vs *VectorStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS translation_memory (
			hash       TEXT PRIMARY KEY,
			language   TEXT NOT NULL,
			type       TEXT NOT NULL,
			original   TEXT NOT NULL,
			translated TEXT NOT NULL,
			embedding  vector(%d) NOT NULL
		)`, vs.dimensions),
		`CREATE INDEX IF NOT EXISTS translation_memory_language ON translation_memory (language)`,
	}
	for _, stmt := range statements {
		if _, err := vs.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure vector schema: %w", err)
		}
	}
	return nil
}

// Store upserts records.
func (vs *VectorStore) Store(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	for _, r := range records {
		_, err := vs.pool.Exec(ctx, `
			INSERT INTO translation_memory (hash, language, type, original, translated, embedding)
			VALUES ($1, $2, $3, $4, $5, $6::vector)
			ON CONFLICT (hash) DO UPDATE SET translated = EXCLUDED.translated, embedding = EXCLUDED.embedding
		`, r.Hash, r.Language, r.Type, r.Original, r.Translated, pgvector.NewVector(r.Vector))
		if err != nil {
			return fmt.Errorf("insert embedding %s: %w", r.Hash, err)
		}
	}

	log.Info().Int("count", len(records)).Msg("Stored embeddings")
	return nil
}

// Search finds the top-K entries of language closest to the query vector
// by cosine distance.
func (vs *VectorStore) Search(ctx context.Context, language string, queryVector []float32, topK int) ([]Match, error) {
	rows, err := vs.pool.Query(ctx, `
		SELECT original, translated, type, 1 - (embedding <=> $1::vector) AS similarity
		FROM translation_memory
		WHERE language = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`, pgvector.NewVector(queryVector), language, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Original, &m.Translated, &m.Type, &m.Score); err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return results, nil
}
