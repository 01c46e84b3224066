package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"esp-translator/internal/parser"
	"esp-translator/internal/plugin"
	"esp-translator/internal/stringtable"
	"esp-translator/internal/stringunit"
	"esp-translator/internal/textutil"
	"esp-translator/internal/worker"
)

func (a *app) extractCmd() *cobra.Command {
	var (
		localized  bool
		unfiltered bool
		jsonPath   string
	)
	cmd := &cobra.Command{
		Use:   "extract <plugin>",
		Short: "List the translatable strings of a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			opts, err := a.pluginOptions()
			if err != nil {
				return err
			}
			var options []parser.PluginOption
			if localized {
				options = append(options, parser.WithLocalized(a.cfg.Language))
			}
			if unfiltered {
				options = append(options, parser.WithUnfiltered())
			}

			res, err := parser.NewPluginParser(opts, options...).Parse(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonPath != "" {
				return writeUnitsJSON(jsonPath, res.Units)
			}
			fmt.Println(unitTable(res.Units))
			return nil
		},
	}
	cmd.Flags().BoolVar(&localized, "localized", false, "Include strings stored in string tables")
	cmd.Flags().BoolVar(&unfiltered, "unfiltered", false, "Include strings that look like identifiers")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Write the strings to this JSON file instead of printing them")
	return cmd
}

func writeUnitsJSON(path string, units []stringunit.Unit) error {
	data, err := json.MarshalIndent(units, "", "    ")
	if err != nil {
		return fmt.Errorf("encode strings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write strings: %w", err)
	}
	log.Info().Str("path", path).Int("strings", len(units)).Msg("Wrote strings")
	return nil
}

func unitTable(units []stringunit.Unit) string {
	rows := make([][]string, 0, len(units))
	for _, u := range units {
		editorID, index := "", ""
		if u.EditorID != nil {
			editorID = *u.EditorID
		}
		if u.Index != nil {
			index = strconv.Itoa(*u.Index)
		}
		rows = append(rows, []string{u.FormID, editorID, u.Type, index, u.Status.String(), textutil.Truncate(u.Text(), 60)})
	}
	return renderTable(
		[]string{"Form ID", "Editor ID", "Type", "Index", "Status", "Text"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}

type verifyResult struct {
	records int
	ok      bool
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <plugin...>",
		Short: "Check that plugins survive a parse and write unchanged",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			opts, err := a.pluginOptions()
			if err != nil {
				return err
			}

			pool := worker.NewPool[string, verifyResult](a.cfg.WorkerCount,
				func(ctx context.Context, path string) (verifyResult, error) {
					return verifyPlugin(path, opts)
				},
			).OnProgress(func(done, total int) {
				log.Debug().Int("done", done).Int("total", total).Msg("Verify progress")
			})

			failed := 0
			var rows [][]string
			for _, task := range pool.Execute(ctx, args) {
				status := "identical"
				switch {
				case !task.Done:
					status = "skipped"
					failed++
				case task.Err != nil:
					status = "error: " + task.Err.Error()
					failed++
				case !task.Result.ok:
					status = "differs"
					failed++
				}
				rows = append(rows, []string{filepath.Base(task.Input), strconv.Itoa(task.Result.records), status})
			}
			fmt.Println(renderTable([]string{"Plugin", "Records", "Round trip"}, rows, []columnAlignment{alignLeft, alignRight}))

			if failed > 0 {
				return fmt.Errorf("%d of %d plugins failed verification", failed, len(args))
			}
			return nil
		},
	}
}

func verifyPlugin(path string, opts plugin.Options) (verifyResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return verifyResult{}, fmt.Errorf("read plugin: %w", err)
	}
	p, err := plugin.Parse(data, filepath.Base(path), opts)
	if err != nil {
		return verifyResult{}, err
	}
	out, err := p.Bytes()
	if err != nil {
		return verifyResult{}, err
	}
	return verifyResult{records: len(p.Records()), ok: bytes.Equal(data, out)}, nil
}

func (a *app) eslifyCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "eslify <plugin>",
		Short: "Renumber a plugin into the light plugin range and flag it as light",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.pluginOptions()
			if err != nil {
				return err
			}
			p, err := plugin.Load(args[0], opts)
			if err != nil {
				return err
			}
			if p.IsLight() {
				log.Info().Str("plugin", p.Name).Msg("Plugin is already light")
				return nil
			}

			n := p.Eslify()
			if output == "" {
				output = args[0]
			}
			if err := p.Save(output); err != nil {
				return err
			}
			log.Info().Str("plugin", p.Name).Int("records", n).Str("output", output).Msg("Converted plugin to light")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the light plugin here instead of overwriting the input")
	return cmd
}

func (a *app) isLightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "is-light <plugin>",
		Short: "Report whether a plugin is a light plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			light, err := plugin.IsLight(args[0])
			if err != nil {
				return err
			}
			fmt.Println(light)
			return nil
		},
	}
}

func (a *app) stringsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strings <table-file>",
		Short: "Print the entries of a .strings, .dlstrings or .ilstrings file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := stringtable.Load(args[0])
			if err != nil {
				return err
			}
			entries := t.Strings()
			ids := make([]uint32, 0, len(entries))
			for id := range entries {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, []string{fmt.Sprintf("%08X", id), textutil.Truncate(entries[id], 80)})
			}
			fmt.Println(renderTable([]string{"ID", "Text"}, rows, nil))
			return nil
		},
	}
}
