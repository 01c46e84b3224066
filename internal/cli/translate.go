package cli

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"esp-translator/internal/cache"
	"esp-translator/internal/export"
	"esp-translator/internal/filewalker"
	"esp-translator/internal/parser"
	"esp-translator/internal/store"
	"esp-translator/internal/stringunit"
	"esp-translator/internal/translation"
	"esp-translator/internal/worker"
)

type translateOptions struct {
	dsd        bool
	machine    bool
	references bool
	save       bool
	localized  bool
}

func (a *app) translateCmd() *cobra.Command {
	var opts translateOptions
	cmd := &cobra.Command{
		Use:   "translate <input-dir> <output-dir>",
		Short: "Translate every plugin below a folder from the translation database",
		Long: `Parses every plugin below input-dir, fills in the translations the database
knows, optionally machine-translates the rest and writes translated plugins
(or Dynamic String Distributor files with --dsd) to output-dir.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTranslate(args[0], args[1], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dsd, "dsd", false, "Write Dynamic String Distributor JSON files instead of plugins")
	cmd.Flags().BoolVar(&opts.machine, "machine", false, "Machine-translate strings the database does not know")
	cmd.Flags().BoolVar(&opts.references, "references", false, "Send similar known translations along with machine translation requests")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Add the result to the translation database")
	cmd.Flags().BoolVar(&opts.localized, "localized", false, "Include strings stored in string tables")
	return cmd
}

// openCache returns the extracted-strings cache, backed by PostgreSQL when
// a cache database is configured.
func (a *app) openCache(ctx context.Context) (*cache.StringCache, func(), error) {
	if a.cfg.Cache.DatabaseURL == "" {
		return cache.NewStringCache(nil), func() {}, nil
	}
	pool, err := connectPostgres(ctx, a.cfg.Cache.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	c := cache.NewStringCache(pool)
	if err := c.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := c.Preload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to preload cache")
	}
	return c, pool.Close, nil
}

// translationService builds the machine translator, with references from
// the translation memory when asked.
func (a *app) translationService(ctx context.Context, st *store.Store, references bool) (*translation.Service, func(), error) {
	if a.cfg.Translator.APIKey == "" {
		return nil, nil, fmt.Errorf("machine translation needs translator.api_key or GEMINI_API_KEY")
	}
	client := translation.NewGeminiClient(a.cfg.Translator.APIKey, a.cfg.Translator.Model, a.cfg.Translator.BaseURL)
	svc := translation.NewService(client, a.cfg.BatchSize, a.cfg.Translator.MaxConcurrent)
	if !references {
		return svc, func() {}, nil
	}

	s, closeIndex, err := a.suggester(ctx)
	if err != nil {
		return nil, nil, err
	}
	if a.cfg.Suggest.DatabaseURL == "" {
		if _, err := s.Index(ctx, st.Strings()); err != nil {
			closeIndex()
			return nil, nil, err
		}
	}
	return svc.WithReferences(s), closeIndex, nil
}

func (a *app) runTranslate(inputDir, outputDir string, opts translateOptions) error {
	ctx, cancel := setupContext()
	defer cancel()

	pluginOpts, err := a.pluginOptions()
	if err != nil {
		return err
	}
	st, err := a.loadStore()
	if err != nil {
		return err
	}
	stringCache, closeCache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	parserOpts := []parser.PluginOption{parser.WithCache(stringCache)}
	if opts.localized {
		parserOpts = append(parserOpts, parser.WithLocalized(a.cfg.Language))
	}
	w := filewalker.NewWalker(parser.NewPluginParser(pluginOpts, parserOpts...))
	entries, err := w.Walk(inputDir)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}
	if len(entries) == 0 {
		log.Warn().Str("dir", inputDir).Msg("No plugins found")
		return nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	log.Info().Int("files", len(entries)).Msg("Starting translation pipeline")

	parsePool := worker.NewPool[filewalker.FileEntry, *parser.ParseResult](a.cfg.WorkerCount,
		func(ctx context.Context, entry filewalker.FileEntry) (*parser.ParseResult, error) {
			return entry.Parser.Parse(ctx, entry.Path)
		},
	).OnProgress(func(done, total int) {
		log.Info().Int("done", done).Int("total", total).Msg("Parsed plugin")
	}).Label(func(entry filewalker.FileEntry) string { return entry.Path })
	parseResults := parsePool.Execute(ctx, entries)
	if err := ctx.Err(); err != nil {
		return err
	}

	base, _ := filepath.Abs(inputDir)
	sets, parsed := collectParsed(base, parseResults)

	rc := stringunit.NewReconciler(st.Strings())
	res, err := rc.ReconcileAll(ctx, sets, func(plugin string, done, total int) {
		log.Info().Str("plugin", plugin).Int("done", done).Int("total", total).Msg("Reconciled plugin")
	})
	if err != nil {
		return err
	}

	if opts.machine {
		if err := a.machineTranslate(ctx, st, sets, opts.references); err != nil {
			return err
		}
	}

	t := store.NewTranslation(fmt.Sprintf("%s - %s", filepath.Base(base), st.Language()), st.Dir())
	t.Strings = byPluginName(sets)

	if opts.dsd {
		if _, err := export.DSD(outputDir, t); err != nil {
			return err
		}
	} else {
		a.writePlugins(base, outputDir, parsed, sets)
	}

	if opts.save {
		if err := st.Add(t); err != nil {
			return err
		}
		log.Info().Str("translation", t.Name).Msg("Saved translation")
	}

	log.Info().
		Int("plugins", len(sets)).
		Int("matched", res.Matched()).
		Int("unmatched", res.Unmatched).
		Str("output", outputDir).
		Msg("Translation pipeline complete")
	return nil
}

type parsedPlugin = worker.Task[filewalker.FileEntry, *parser.ParseResult]

// collectParsed keys the successfully parsed plugins by their slash path
// relative to root, so equal file names in different folders stay apart.
// Every unit starts out translated as its original.
func collectParsed(root string, results []parsedPlugin) (map[string][]stringunit.Unit, map[string]parsedPlugin) {
	sets := make(map[string][]stringunit.Unit)
	parsed := make(map[string]parsedPlugin)
	for _, pr := range results {
		if !pr.Done {
			continue
		}
		if pr.Err != nil || pr.Result == nil {
			log.Warn().Err(pr.Err).Str("file", pr.Input.Path).Msg("Skipping plugin that failed to parse")
			continue
		}
		key := pr.Input.Path
		if rel, err := filepath.Rel(root, pr.Input.Path); err == nil {
			key = filepath.ToSlash(rel)
		}
		units := make([]stringunit.Unit, len(pr.Result.Units))
		for i, u := range pr.Result.Units {
			u = u.Clone()
			u.SetTranslation(u.Original)
			units[i] = u
		}
		sets[key] = units
		parsed[key] = pr
	}
	return sets, parsed
}

// byPluginName regroups sets keyed by relative path under the plugin file
// name used by saved translations and DSD folders. When one name occurs in
// several folders the first path in sorted order wins.
func byPluginName(sets map[string][]stringunit.Unit) map[string][]stringunit.Unit {
	paths := make([]string, 0, len(sets))
	for p := range sets {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make(map[string][]stringunit.Unit, len(sets))
	from := make(map[string]string, len(sets))
	for _, p := range paths {
		name := path.Base(p)
		if prev, ok := from[name]; ok {
			log.Warn().Str("plugin", name).Str("kept", prev).Str("dropped", p).Msg("Duplicate plugin name, keeping the first")
			continue
		}
		from[name] = p
		out[name] = sets[p]
	}
	return out
}

func (a *app) machineTranslate(ctx context.Context, st *store.Store, sets map[string][]stringunit.Unit, references bool) error {
	svc, closeRefs, err := a.translationService(ctx, st, references)
	if err != nil {
		return err
	}
	defer closeRefs()

	plugins := make([]string, 0, len(sets))
	for name := range sets {
		plugins = append(plugins, name)
	}
	sort.Strings(plugins)

	for _, name := range plugins {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := translation.TranslateUnits(ctx, svc, sets[name], a.cfg.Translator.SourceLanguage, a.cfg.Language)
		if err != nil {
			log.Error().Err(err).Str("plugin", name).Msg("Machine translation failed")
		}
		log.Info().Str("plugin", name).Int("translated", n).Msg("Machine-translated strings")
	}
	return nil
}

// writePlugins writes the plugins with changed strings to outputDir,
// keeping their path relative to inputDir. Failures are logged per plugin.
func (a *app) writePlugins(inputDir, outputDir string, parsed map[string]parsedPlugin, sets map[string][]stringunit.Unit) {
	outputAbs, _ := filepath.Abs(outputDir)
	for name, pr := range parsed {
		entry := pr.Input
		changed := export.Changed(sets[name])
		if len(changed) == 0 {
			log.Debug().Str("plugin", name).Msg("Nothing translated, skipping")
			continue
		}
		data, err := entry.Parser.Reconstruct(pr.Result, changed)
		if err != nil {
			log.Error().Err(err).Str("file", entry.Path).Msg("Reconstruct failed")
			continue
		}

		rel, err := filepath.Rel(inputDir, entry.Path)
		if err != nil {
			log.Error().Err(err).Msg("Compute relative path")
			continue
		}
		outPath := filepath.Join(outputAbs, rel)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			log.Error().Err(err).Str("path", outPath).Msg("Create output directory")
			continue
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			log.Error().Err(err).Str("path", outPath).Msg("Write output file")
			continue
		}
		log.Info().Str("input", entry.Path).Str("output", outPath).Msg("File translated")
	}
}
