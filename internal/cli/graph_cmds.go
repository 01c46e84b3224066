package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"esp-translator/internal/filewalker"
	"esp-translator/internal/graph"
	"esp-translator/internal/parser"
	"esp-translator/internal/plugin"
	"esp-translator/internal/worker"
)

func (a *app) graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Plugin dependency graph in Neo4j",
	}
	cmd.AddCommand(a.graphSyncCmd())
	cmd.AddCommand(a.graphDependentsCmd())
	cmd.AddCommand(a.graphCoverageCmd())
	return cmd
}

func (a *app) graphSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <dir>",
		Short: "Store the plugins below dir and the installed translations in the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			opts, err := a.pluginOptions()
			if err != nil {
				return err
			}
			entries, err := filewalker.NewWalker(parser.NewPluginParser(opts)).Walk(args[0])
			if err != nil {
				return fmt.Errorf("walk plugin directory: %w", err)
			}

			pool := worker.NewPool[filewalker.FileEntry, graph.PluginNode](a.cfg.WorkerCount,
				func(ctx context.Context, entry filewalker.FileEntry) (graph.PluginNode, error) {
					p, err := plugin.Load(entry.Path, opts)
					if err != nil {
						return graph.PluginNode{}, err
					}
					return graph.PluginNode{Name: p.Name, Masters: p.Masters(), Light: p.IsLight()}, nil
				},
			).Label(func(entry filewalker.FileEntry) string { return entry.Path })
			var nodes []graph.PluginNode
			for _, task := range pool.Execute(ctx, entries) {
				if task.Done && task.Err == nil {
					nodes = append(nodes, task.Result)
				}
			}

			st, err := a.loadStore()
			if err != nil {
				return err
			}

			driver, err := connectNeo4j(ctx, a.cfg.Graph)
			if err != nil {
				return err
			}
			defer driver.Close(ctx)

			builder := graph.NewBuilder(driver)
			if err := builder.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure graph schema: %w", err)
			}
			if err := builder.SyncPlugins(ctx, nodes); err != nil {
				return err
			}
			for _, t := range st.Translations() {
				if err := builder.SyncTranslation(ctx, t); err != nil {
					log.Warn().Err(err).Str("translation", t.Name).Msg("Failed to sync translation")
				}
			}
			return nil
		},
	}
}

func (a *app) graphDependentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dependents <master>",
		Short: "List the plugins that need master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.graphQuery(args[0], (*graph.Querier).Dependents)
		},
	}
}

func (a *app) graphCoverageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coverage <plugin>",
		Short: "List the translations covering plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.graphQuery(args[0], (*graph.Querier).Coverage)
		},
	}
}

func (a *app) graphQuery(name string, query func(*graph.Querier, context.Context, string) ([]string, error)) error {
	ctx, cancel := setupContext()
	defer cancel()

	driver, err := connectNeo4j(ctx, a.cfg.Graph)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	names, err := query(graph.NewQuerier(driver), ctx, name)
	if err != nil {
		return err
	}
	if len(names) > 0 {
		fmt.Println(strings.Join(names, "\n"))
	}
	return nil
}
