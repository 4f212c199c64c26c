// Command bizctl runs administrative tasks against the bizdesk database:
// schema migrations, operator accounts, document printing and cache reloads.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/infrastructure/config"
	"github.com/erp/bizdesk/internal/infrastructure/logger"
	"github.com/erp/bizdesk/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	timeout time.Duration

	cfg *config.Config
	log *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "bizctl",
	Short:         "Administrative tasks for bizdesk",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		log, err = logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			logger.Sync(log)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// commandContext bounds a command by the --timeout flag
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// store is the database and data manager shared by the subcommands
type store struct {
	db    *persistence.Database
	repos *persistence.Repositories
	dm    *cache.DataManager
}

func openStore() (*store, error) {
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, logger.MapGormLogLevel(log.Level().String()), cfg.Telemetry.DBSlowQueryThresh),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create sqlite schema: %w", err)
		}
	}
	repos := persistence.NewRepositories(db.DB)
	return &store{
		db:    db,
		repos: repos,
		dm:    cache.NewDataManager(repos.DataSource(), cache.WithLogger(log)),
	}, nil
}

func (s *store) Close() {
	if err := s.db.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
}
