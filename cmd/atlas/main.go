package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"codeatlas/internal/config"
	"codeatlas/internal/evidence"
	"codeatlas/internal/knowledge"
	"codeatlas/internal/logging"
	"codeatlas/internal/registry"
)

var (
	// Global flags
	verbose   bool
	workspace string
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "codeATLAS - confidence-scored codebase analysis pipelines",
	Long: `codeATLAS runs codebase analysis as composable pipelines.

Every analysis step returns a confidence-scored result whose justification
is recorded in an append-only evidence ledger. Steps are discovered by
manifest, validated against their declared input schema, and composed
declaratively (seq, fanout, fallback, retry) from YAML pipeline specs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(workspace); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Boot("atlas starting in %s", workspace)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// runtime is the wired-up set of collaborators the commands share: loaded
// config, the evidence ledger, the fact store, and the registry with the
// builtin constructions registered.
type runtime struct {
	cfg      config.Config
	ledger   evidence.Ledger
	store    *knowledge.Store
	registry *registry.Registry

	closeLedger func() error
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		store:    knowledge.NewStore(),
		registry: registry.New(),
	}

	switch cfg.Ledger.Driver {
	case "memory":
		rt.ledger = evidence.NewMemoryLedger()
		rt.closeLedger = func() error { return nil }
	default:
		ledger, err := evidence.OpenSQLiteLedger(cfg.Ledger.LedgerPath(workspace))
		if err != nil {
			return nil, err
		}
		rt.ledger = ledger
		rt.closeLedger = ledger.Close
	}

	if err := registerBuiltins(rt.registry, rt.store, rt.ledger); err != nil {
		rt.closeLedger()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.closeLedger != nil {
		if err := rt.closeLedger(); err != nil {
			logging.Evidence("Failed to close ledger: %v", err)
		}
	}
}

// commandContext derives the context commands run under: interrupt-aware
// and bounded by the --timeout flag.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Workspace directory")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Command timeout")

	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(factsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
