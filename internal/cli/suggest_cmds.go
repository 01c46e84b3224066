package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"esp-translator/internal/suggest"
	"esp-translator/internal/textutil"
)

// suggester builds the translation memory. Embeddings come from the
// configured HTTP service or, without one, from character n-grams. With a
// suggest database the memory lives in pgvector, otherwise in process.
func (a *app) suggester(ctx context.Context) (*suggest.Suggester, func(), error) {
	cfg := a.cfg.Suggest

	var embedder suggest.Embedder = suggest.NewNgramEmbedder(cfg.Dimensions)
	if cfg.EmbeddingURL != "" {
		embedder = suggest.NewEmbeddingClient(cfg.APIKey, cfg.EmbeddingModel, cfg.EmbeddingURL, cfg.Dimensions)
	}

	if cfg.DatabaseURL == "" {
		return suggest.NewSuggester(embedder, suggest.NewMemoryIndex(), a.cfg.Language, a.cfg.BatchSize), func() {}, nil
	}

	pool, err := connectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	vs := suggest.NewVectorStore(pool, embedder.Dimensions())
	if err := vs.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return suggest.NewSuggester(embedder, vs, a.cfg.Language, a.cfg.BatchSize), pool.Close, nil
}

func (a *app) suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Translation memory built from the translation database",
	}
	cmd.AddCommand(a.suggestIndexCmd())
	cmd.AddCommand(a.suggestQueryCmd())
	return cmd
}

func (a *app) suggestIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Store every known translation in the suggest database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Suggest.DatabaseURL == "" {
				return fmt.Errorf("suggest index needs suggest.database_url or SUGGEST_DATABASE_URL")
			}
			ctx, cancel := setupContext()
			defer cancel()

			st, err := a.loadStore()
			if err != nil {
				return err
			}
			s, closeIndex, err := a.suggester(ctx)
			if err != nil {
				return err
			}
			defer closeIndex()

			n, err := s.Index(ctx, st.Strings())
			if err != nil {
				return err
			}
			log.Info().Int("records", n).Msg("Translation memory updated")
			return nil
		},
	}
}

func (a *app) suggestQueryCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Show known translations of texts similar to text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			s, closeIndex, err := a.suggester(ctx)
			if err != nil {
				return err
			}
			defer closeIndex()

			// Without a database the memory is built for this query only.
			if a.cfg.Suggest.DatabaseURL == "" {
				st, err := a.loadStore()
				if err != nil {
					return err
				}
				if _, err := s.Index(ctx, st.Strings()); err != nil {
					return err
				}
			}

			matches, err := s.Suggest(ctx, args[0], k)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(matches))
			for _, m := range matches {
				rows = append(rows, []string{
					strconv.FormatFloat(m.Score, 'f', 3, 64),
					m.Type,
					textutil.Truncate(m.Original, 50),
					textutil.Truncate(m.Translated, 50),
				})
			}
			fmt.Println(renderTable([]string{"Score", "Type", "Original", "Translation"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "limit", "k", 5, "Number of suggestions")
	return cmd
}
