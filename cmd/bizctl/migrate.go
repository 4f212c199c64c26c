package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/erp/bizdesk/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

var (
	migrationsPath string
	migrationsDir  string
)

// migrateCmd runs the versioned SQL migrations against postgres. SQLite
// databases get their schema from the server on start.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply and author versioned schema migrations",
	Long: `Apply, roll back or inspect the versioned SQL migrations.

By default the migrations compiled into the binary are used; --path points
at a directory instead. Connection settings come from the database section
of the configuration (BIZDESK_DATABASE_* in the environment).`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
		return m.Up()
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
		return m.Down()
	}),
}

var migrateStepCmd = &cobra.Command{
	Use:   "step <n>",
	Short: "Apply n migrations, or roll back for a negative n",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n == 0 {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}),
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the applied schema version",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case version == 0:
			fmt.Fprintln(out, "no migrations applied")
		case dirty:
			fmt.Fprintf(out, "%d (dirty)\n", version)
		default:
			fmt.Fprintln(out, version)
		}
		return nil
	}),
}

var migrateForceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Record a version without running migrations",
	Long: `Record a version without running migrations. Use it to clear the
dirty flag after repairing a failed migration by hand.`,
	Args: cobra.ExactArgs(1),
	RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(version)
	}),
}

var migrateCreateCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Write the next numbered up/down migration pair",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description := ""
		if len(args) == 2 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(migrationsDir, args[0], description)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), mf.UpPath)
		fmt.Fprintln(cmd.OutOrStdout(), mf.DownPath)
		return nil
	},
}

var migrateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			names []string
			err   error
		)
		if migrationsPath == "" {
			names, err = migration.EmbeddedMigrations()
		} else {
			names, err = migration.ListMigrations(migrationsPath)
		}
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "Migrations directory (default: embedded migrations)")
	migrateCreateCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "Directory to write the new files to")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStepCmd, migrateVersionCmd,
		migrateForceCmd, migrateCreateCmd, migrateListCmd)
}

// withMigrator opens the postgres database and a migrator around it for fn
func withMigrator(fn func(*cobra.Command, *migration.Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("versioned migrations target postgres, configured driver is %q", cfg.Database.Driver)
		}
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		m, err := migration.New(db, migrationsPath, log)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		return fn(cmd, m, args)
	}
}
