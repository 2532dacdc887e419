package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/GooferByte/wellness-rewards/internal/bootstrap"
	"github.com/GooferByte/wellness-rewards/internal/config"
	"github.com/GooferByte/wellness-rewards/internal/logger"
	"github.com/GooferByte/wellness-rewards/internal/service"
	"github.com/spf13/cobra"
)

// needsLedger marks commands that run against the engine. Cobra's own help and
// completion commands lack it and never touch the store.
const needsLedger = "wellness/needs-ledger"

// app carries the engine opened for the running command.
type app struct {
	storeDriver string
	sqlitePath  string
	catalogFile string

	engine     *service.Engine
	closeStore func() error
}

// NewRootCmd builds the wellness command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "wellness",
		Short: "Campus wellness reward ledger",
		Long: `Earn coins for daily wellness actions and trade them for campus vouchers.
The ledger is stored locally in SQLite unless STORE_DRIVER or --store points
at another backend.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}

	root.PersistentFlags().StringVar(&a.storeDriver, "store", "", "Store driver: sqlite, postgres, redis or memory")
	root.PersistentFlags().StringVar(&a.sqlitePath, "sqlite-path", "", "SQLite database file (default ~/.wellness/ledger.db)")
	root.PersistentFlags().StringVar(&a.catalogFile, "catalog", "", "Reward catalog file (toml, yaml or json)")

	for _, cmd := range []*cobra.Command{
		balanceCmd(a),
		actionsCmd(a),
		rewardsCmd(a),
		awardCmd(a),
		redeemCmd(a),
		vouchersCmd(a),
		useCmd(a),
		challengeCmd(a),
	} {
		cmd.Annotations = map[string]string{needsLedger: "true"}
		root.AddCommand(cmd)
	}
	return root
}

// Execute runs the CLI against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) config(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Load()
	if a.storeDriver != "" {
		cfg.StoreDriver = a.storeDriver
	}
	if a.sqlitePath != "" {
		cfg.SQLitePath = a.sqlitePath
	}
	if a.catalogFile != "" {
		cfg.RewardCatalogFile = a.catalogFile
	}
	// Nothing configured: keep the ledger on disk rather than in memory. An
	// explicit STORE_DRIVER=memory is honoured.
	if !cmd.Flags().Changed("store") && os.Getenv("STORE_DRIVER") == "" && cfg.StoreDriver == config.DriverMemory {
		cfg.StoreDriver = config.DriverSQLite
	}
	if cfg.StoreDriver == config.DriverSQLite && cfg.SQLitePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, err
		}
		dir := filepath.Join(home, ".wellness")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return cfg, err
		}
		cfg.SQLitePath = filepath.Join(dir, "ledger.db")
	}
	return cfg, nil
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[needsLedger] == "" {
		return nil
	}
	cfg, err := a.config(cmd)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Environment, "warn", "text")
	engine, closeStore, err := bootstrap.Engine(a.ctx(cmd), cfg, log, nil)
	if err != nil {
		return err
	}
	a.engine, a.closeStore = engine, closeStore
	return nil
}

// run wraps a subcommand so the engine is released even when fn fails.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		return errors.Join(err, a.close())
	}
}

func (a *app) close() error {
	if a.engine == nil {
		return nil
	}
	a.engine.Close()
	a.engine = nil
	return a.closeStore()
}

func (a *app) ctx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
