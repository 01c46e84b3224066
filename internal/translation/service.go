package translation

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"esp-translator/internal/interpolation"
	"esp-translator/internal/stringunit"
	"esp-translator/internal/textutil"
	"esp-translator/internal/worker"
)

// Translator translates plain texts between two languages.
type Translator interface {
	Translate(ctx context.Context, text, src, dst string) (string, error)
	// MassTranslate returns a translation for each distinct text it could
	// translate.
	MassTranslate(ctx context.Context, texts []string, src, dst string) (map[string]string, error)
}

// Completer is a language model endpoint.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ReferenceSource supplies known translations of similar texts.
type ReferenceSource interface {
	References(ctx context.Context, text string) (map[string]string, error)
}

// Service is a Translator on top of a language model. Game tokens are
// protected before sending and results are kept in memory per target
// language.
type Service struct {
	client    Completer
	prompts   *PromptBuilder
	refs      ReferenceSource
	batchSize int
	workers   int

	mu   sync.Mutex
	memo map[string]string
}

// NewService creates a translation service that sends batchSize texts per
// request with at most workers requests in flight.
func NewService(client Completer, batchSize, workers int) *Service {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Service{
		client:    client,
		prompts:   NewPromptBuilder(),
		batchSize: batchSize,
		workers:   workers,
		memo:      make(map[string]string),
	}
}

// WithReferences adds translation memory context to every prompt.
func (s *Service) WithReferences(r ReferenceSource) *Service {
	s.refs = r
	return s
}

func memoKey(text, dst string) string { return strings.ToLower(dst) + "\x00" + text }

func (s *Service) lookup(text, dst string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.memo[memoKey(text, dst)]
	return v, ok
}

func (s *Service) remember(text, dst, translated string) {
	s.mu.Lock()
	s.memo[memoKey(text, dst)] = translated
	s.mu.Unlock()
}

func (s *Service) references(ctx context.Context, texts []string) map[string]string {
	if s.refs == nil {
		return nil
	}
	out := make(map[string]string)
	for _, t := range texts {
		refs, err := s.refs.References(ctx, t)
		if err != nil {
			log.Warn().Err(err).Str("text", textutil.Truncate(t, 30)).Msg("Reference lookup failed")
			continue
		}
		for k, v := range refs {
			out[k] = v
		}
	}
	return out
}

// Translate translates a single text.
func (s *Service) Translate(ctx context.Context, text, src, dst string) (string, error) {
	if v, ok := s.lookup(text, dst); ok {
		return v, nil
	}
	safe, mappings := interpolation.Protect(text)
	prompt := s.prompts.BuildUserPrompt(safe, s.references(ctx, []string{text}))
	response, err := s.client.Complete(ctx, s.prompts.SystemPrompt(src, dst), prompt)
	if err != nil {
		return "", fmt.Errorf("translate %q: %w", textutil.Truncate(text, 30), err)
	}
	translated := s.restore(text, response, mappings)
	s.remember(text, dst, translated)
	return translated, nil
}

func (s *Service) restore(text, response string, mappings []interpolation.Mapping) string {
	if missing := interpolation.Missing(response, mappings); len(missing) > 0 {
		log.Warn().
			Str("text", textutil.Truncate(text, 30)).
			Strs("placeholders", missing).
			Msg("Translation dropped placeholders")
	}
	return interpolation.Restore(response, mappings)
}

// MassTranslate translates texts in batches. A failed batch is logged and
// its texts are left out of the result; only cancellation is an error.
func (s *Service) MassTranslate(ctx context.Context, texts []string, src, dst string) (map[string]string, error) {
	out := make(map[string]string)
	seen := make(map[string]bool)
	var pending []string
	for _, t := range texts {
		if seen[t] || strings.TrimSpace(t) == "" {
			continue
		}
		seen[t] = true
		if v, ok := s.lookup(t, dst); ok {
			out[t] = v
			continue
		}
		pending = append(pending, t)
	}

	batches := worker.Batch(pending, s.batchSize)
	log.Info().
		Int("total_unique", len(seen)).
		Int("to_translate", len(pending)).
		Int("batches", len(batches)).
		Msg("Translation plan")
	if len(pending) == 0 {
		return out, nil
	}

	systemPrompt := s.prompts.SystemPrompt(src, dst)
	pool := worker.NewPool[[]string, map[string]string](s.workers, func(ctx context.Context, batch []string) (map[string]string, error) {
		return s.translateBatch(ctx, systemPrompt, batch, src, dst)
	}).OnProgress(func(done, total int) {
		log.Info().Int("batch", done).Int("total_batches", total).Msg("Translated batch")
	})

	for _, task := range pool.Execute(ctx, batches) {
		for k, v := range task.Result {
			out[k] = v
		}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Service) translateBatch(ctx context.Context, systemPrompt string, batch []string, src, dst string) (map[string]string, error) {
	protected := make([]string, len(batch))
	mappings := make([][]interpolation.Mapping, len(batch))
	for i, text := range batch {
		protected[i], mappings[i] = interpolation.Protect(text)
	}

	prompt := s.prompts.BuildBatchUserPrompt(protected, s.references(ctx, batch))
	response, err := s.client.Complete(ctx, systemPrompt, prompt)
	if errors.Is(err, errTruncated) && len(batch) > 1 {
		log.Warn().Int("size", len(batch)).Msg("Batch answer truncated, splitting")
		half := len(batch) / 2
		first, err := s.translateBatch(ctx, systemPrompt, batch[:half], src, dst)
		if err != nil {
			return first, err
		}
		second, err := s.translateBatch(ctx, systemPrompt, batch[half:], src, dst)
		maps.Copy(first, second)
		return first, err
	}
	if err != nil {
		return nil, fmt.Errorf("batch translation: %w", err)
	}

	out := make(map[string]string, len(batch))
	for i, part := range splitBatch(response, len(batch)) {
		text := batch[i]
		if part == "" {
			log.Warn().Str("text", textutil.Truncate(text, 30)).Msg("Missing translation in batch response, using fallback")
			translated, err := s.Translate(ctx, text, src, dst)
			if err != nil {
				log.Error().Err(err).Msg("Individual translation failed")
				continue
			}
			out[text] = translated
			continue
		}
		translated := s.restore(text, part, mappings[i])
		s.remember(text, dst, translated)
		out[text] = translated
	}
	return out, nil
}

// TranslateUnits machine-translates every unit that still requires a
// translation. Translated units are marked TranslationIncomplete so they
// are reviewed. It returns the number of units changed.
func TranslateUnits(ctx context.Context, tr Translator, units []stringunit.Unit, src, dst string) (int, error) {
	var texts []string
	for _, u := range units {
		if u.Status == stringunit.TranslationRequired {
			texts = append(texts, u.Original)
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}

	translated, err := tr.MassTranslate(ctx, texts, src, dst)
	n := 0
	for i := range units {
		u := &units[i]
		if u.Status != stringunit.TranslationRequired {
			continue
		}
		if v, ok := translated[u.Original]; ok && v != "" {
			u.SetTranslation(v)
			u.Status = stringunit.TranslationIncomplete
			n++
		}
	}
	return n, err
}
