package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"esp-translator/internal/export"
	"esp-translator/internal/parser"
	"esp-translator/internal/stringunit"
	"esp-translator/internal/textutil"
)

func (a *app) dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the translation database",
	}
	cmd.AddCommand(a.dbListCmd())
	cmd.AddCommand(a.dbSearchCmd())
	cmd.AddCommand(a.dbCreateCmd())
	cmd.AddCommand(a.dbDeleteCmd())
	cmd.AddCommand(a.dbRenameCmd())
	cmd.AddCommand(a.dbDedupeCmd())
	cmd.AddCommand(a.dbExportCmd())
	return cmd
}

func (a *app) dbListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			var rows [][]string
			for _, t := range st.Translations() {
				rows = append(rows, []string{
					t.Name,
					t.Version,
					strconv.Itoa(len(t.Strings)),
					strconv.Itoa(len(t.Units())),
					time.Unix(t.Timestamp, 0).Format("2006-01-02 15:04"),
				})
			}
			fmt.Println(renderTable(
				[]string{"Name", "Version", "Plugins", "Strings", "Installed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func (a *app) dbSearchCmd() *cobra.Command {
	var filter stringunit.SearchFilter
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the strings of installed translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter.Empty() {
				return fmt.Errorf("give at least one of --type, --form-id, --editor-id, --original, --string")
			}
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			results := st.Search(filter)
			keys := make([]string, 0, len(results))
			for k := range results {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			var rows [][]string
			for _, k := range keys {
				for _, u := range results[k] {
					rows = append(rows, []string{
						k,
						u.DisplayID(),
						textutil.Truncate(u.Original, 40),
						textutil.Truncate(u.Text(), 40),
					})
				}
			}
			fmt.Println(renderTable([]string{"Translation", "String", "Original", "Translation"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Type, "type", "", "Match the string type, e.g. \"WEAP FULL\"")
	cmd.Flags().StringVar(&filter.FormID, "form-id", "", "Match the form id")
	cmd.Flags().StringVar(&filter.EditorID, "editor-id", "", "Match the editor id")
	cmd.Flags().StringVar(&filter.Original, "original", "", "Match the original text")
	cmd.Flags().StringVar(&filter.String, "string", "", "Match the translated text")
	return cmd
}

func (a *app) dbCreateCmd() *cobra.Command {
	var (
		name      string
		noDB      bool
		localized bool
	)
	cmd := &cobra.Command{
		Use:   "create <plugin...>",
		Short: "Create translations for plugins, filled from the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) != 1 {
				return fmt.Errorf("--name needs exactly one plugin")
			}
			ctx, cancel := setupContext()
			defer cancel()

			opts, err := a.pluginOptions()
			if err != nil {
				return err
			}
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			var options []parser.PluginOption
			if localized {
				options = append(options, parser.WithLocalized(a.cfg.Language))
			}
			p := parser.NewPluginParser(opts, options...)

			for _, path := range args {
				res, err := p.Parse(ctx, path)
				if err != nil {
					return err
				}
				t, result, err := st.CreateForPlugin(filepath.Base(path), res.Units, !noDB)
				if err != nil {
					return err
				}
				if name != "" && t.Name != name {
					if err := st.Rename(t.Name, name); err != nil {
						return err
					}
				}
				log.Info().
					Str("plugin", filepath.Base(path)).
					Str("translation", t.Name).
					Int("exact", result.Exact).
					Int("fallback", result.Fallback).
					Int("unmatched", result.Unmatched).
					Msg("Translation ready")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the translation")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "Do not fill in translations from the database")
	cmd.Flags().BoolVar(&localized, "localized", false, "Include strings stored in string tables")
	return cmd
}

func (a *app) dbDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			if err := st.Delete(args[0]); err != nil {
				return err
			}
			log.Info().Str("translation", args[0]).Msg("Deleted translation")
			return nil
		},
	}
}

func (a *app) dbRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a translation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			return st.Rename(args[0], args[1])
		},
	}
}

func (a *app) dbDedupeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe",
		Short: "Remove duplicate strings from every translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			return st.Dedupe()
		},
	}
}

func (a *app) dbExportCmd() *cobra.Command {
	var (
		tsv       bool
		sourceDir string
	)
	cmd := &cobra.Command{
		Use:   "export <name> <dir>",
		Short: "Export a translation as DSD files, a TSV sheet or translated plugins",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			t, err := st.Get(args[0])
			if err != nil {
				return err
			}
			outDir := args[1]

			switch {
			case sourceDir != "":
				opts, err := a.pluginOptions()
				if err != nil {
					return err
				}
				_, err = export.Plugins(outDir, sourceDir, t, opts)
				return err
			case tsv:
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				path := filepath.Join(outDir, t.Name+".tsv")
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create TSV file: %w", err)
				}
				defer f.Close()
				if err := export.TSV(f, t.Units()); err != nil {
					return err
				}
				log.Info().Str("path", path).Msg("Exported translation to TSV")
				return f.Close()
			default:
				_, err := export.DSD(outDir, t)
				return err
			}
		},
	}
	cmd.Flags().BoolVar(&tsv, "tsv", false, "Write a TSV sheet instead of DSD files")
	cmd.Flags().StringVar(&sourceDir, "plugins", "", "Write translated copies of the plugins found in this folder")
	return cmd
}
