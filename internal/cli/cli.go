package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mattn/go-isatty"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"esp-translator/internal/config"
	"esp-translator/internal/plugin"
	"esp-translator/internal/store"
)

// app holds the state shared by all commands.
type app struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !isTerminal(os.Stderr)})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "esp-translator",
		Short:         "Translate Bethesda plugins",
		Long:          "Extract, reconcile, machine-translate and write back the strings of .esp, .esm and .esl plugins.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "esp-translator.toml", "Path to the TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(a.extractCmd())
	rootCmd.AddCommand(a.verifyCmd())
	rootCmd.AddCommand(a.eslifyCmd())
	rootCmd.AddCommand(a.isLightCmd())
	rootCmd.AddCommand(a.stringsCmd())
	rootCmd.AddCommand(a.translateCmd())
	rootCmd.AddCommand(a.dbCmd())
	rootCmd.AddCommand(a.graphCmd())
	rootCmd.AddCommand(a.suggestCmd())

	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	if a.verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// pluginOptions builds the decoder options from the configured allow-list.
func (a *app) pluginOptions() (plugin.Options, error) {
	if a.cfg.StringRecords == "" {
		return plugin.Options{}, nil
	}
	records, err := plugin.LoadStringRecords(a.cfg.StringRecords)
	if err != nil {
		return plugin.Options{}, err
	}
	return plugin.Options{StringRecords: records}, nil
}

func (a *app) loadStore() (*store.Store, error) {
	return store.Load(a.cfg.AppDBDir, a.cfg.UserDBDir, a.cfg.Language)
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// connectPostgres opens and pings a PostgreSQL pool.
func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return pool, nil
}

// connectNeo4j opens a driver and verifies that the server answers.
func connectNeo4j(ctx context.Context, cfg config.GraphConfig) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")
	return driver, nil
}

func isTerminal(file *os.File) bool {
	if file == nil {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
