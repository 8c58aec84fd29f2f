// Package cli holds the pharmalink command tree.
package cli

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pharmalink/m/internal/config"
	"pharmalink/m/internal/database"
	"pharmalink/m/internal/migrations"
)

type app struct {
	cfg config.Config
	log *zap.Logger
}

// NewRootCommand builds the root command with serve, migrate and seed.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "pharmalink",
		Short:         "Pharmacy inventory reservations and geo search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.AddCommand(a.serveCommand(), a.migrateCommand(), a.seedCommand())
	return root
}

// Execute runs the command tree with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Production() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// openDB connects and brings the schema up to date.
func (a *app) openDB() (*sqlx.DB, error) {
	db, err := database.Connect(a.cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, err
	}
	a.log.Info("database ready", zap.String("dialect", string(database.DialectOf(db))))
	return db, nil
}

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}
