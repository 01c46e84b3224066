// Package suggest is a translation memory: translated strings are embedded
// and stored, and new strings are matched against them by similarity.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"esp-translator/internal/stringunit"
	"esp-translator/internal/textutil"
)

// Record is one stored translation with its embedding.
type Record struct {
	Hash       string
	Language   string
	Type       string
	Original   string
	Translated string
	Vector     []float32
}

// Match is a stored translation similar to a query.
type Match struct {
	Original   string
	Translated string
	Type       string
	Score      float64
}

// Index stores records and searches them by vector.
type Index interface {
	Store(ctx context.Context, records []Record) error
	Search(ctx context.Context, language string, vector []float32, topK int) ([]Match, error)
}

// MemoryIndex is an Index held in process.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: make(map[string]Record)}
}

func (m *MemoryIndex) Store(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.Hash] = r
	}
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, language string, vector []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Match
	for _, r := range m.records {
		if r.Language != language || len(r.Vector) != len(vector) {
			continue
		}
		out = append(out, Match{Original: r.Original, Translated: r.Translated, Type: r.Type, Score: Cosine(vector, r.Vector)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Original < out[j].Original
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// Suggester indexes translated units and proposes translations for new
// texts.
type Suggester struct {
	embedder  Embedder
	index     Index
	language  string
	batchSize int
	// MinScore is the similarity below which References drops matches.
	MinScore float64
	// TopK is the number of matches References asks for.
	TopK int
}

func NewSuggester(embedder Embedder, index Index, language string, batchSize int) *Suggester {
	return &Suggester{
		embedder:  embedder,
		index:     index,
		language:  strings.ToLower(language),
		batchSize: batchSize,
		MinScore:  0.6,
		TopK:      3,
	}
}

// Index embeds and stores every unit that carries a translation different
// from its original. It returns the number of records stored.
func (s *Suggester) Index(ctx context.Context, units []stringunit.Unit) (int, error) {
	seen := make(map[string]bool)
	var records []Record
	for _, u := range units {
		if u.Translated == nil || *u.Translated == "" || *u.Translated == u.Original {
			continue
		}
		if u.Status != stringunit.TranslationComplete && u.Status != stringunit.TranslationIncomplete {
			continue
		}
		hash := textutil.Hash(s.language + "\x00" + u.Original + "\x00" + *u.Translated)
		if seen[hash] {
			continue
		}
		seen[hash] = true
		records = append(records, Record{
			Hash:       hash,
			Language:   s.language,
			Type:       u.Type,
			Original:   u.Original,
			Translated: *u.Translated,
		})
	}
	if len(records) == 0 {
		return 0, nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Original
	}
	vectors, err := EmbedBatch(ctx, s.embedder, texts, s.batchSize)
	if err != nil {
		return 0, err
	}
	for i := range records {
		records[i].Vector = vectors[i]
	}
	if err := s.index.Store(ctx, records); err != nil {
		return 0, err
	}
	log.Info().Str("language", s.language).Int("records", len(records)).Msg("Indexed translations")
	return len(records), nil
}

// Suggest returns the k stored translations closest to text.
func (s *Suggester) Suggest(ctx context.Context, text string, k int) ([]Match, error) {
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return s.index.Search(ctx, s.language, vectors[0], k)
}

// References returns close matches as original → translation pairs.
func (s *Suggester) References(ctx context.Context, text string) (map[string]string, error) {
	matches, err := s.Suggest(ctx, text, s.TopK)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, m := range matches {
		if m.Score >= s.MinScore {
			out[m.Original] = m.Translated
		}
	}
	return out, nil
}
