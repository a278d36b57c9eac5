package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"

	"github.com/labflow/backend/internal/infrastructure/config"
	"github.com/labflow/backend/internal/infrastructure/logger"
	"github.com/labflow/backend/internal/infrastructure/migration"
	"github.com/labflow/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrator is the part of *migration.Migrator the commands drive
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (migration.Status, error)
	Close() error
}

type flags struct {
	dir      string
	config   string
	logLevel string
	table    string
}

// opener connects to the configured database
type opener func(ctx context.Context, f *flags, log *zap.Logger) (migrator, error)

func openMigrator(ctx context.Context, f *flags, log *zap.Logger) (migrator, error) {
	cfg, err := config.LoadDatabase(f.config)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", cfg.Database.DBName, err)
	}

	var opts []migration.Option
	if f.dir != "" {
		opts = append(opts, migration.WithPath(f.dir))
	}
	if f.table != "" {
		opts = append(opts, migration.WithMigrationsTable(f.table))
	}
	m, err := migration.New(db, log, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func newRootCmd(open opener) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Labflow database migration tool",
		Long: `Applies the labflow schema migrations embedded in this binary.

Connection settings come from the config file and LABFLOW_DATABASE_HOST,
LABFLOW_DATABASE_PORT, LABFLOW_DATABASE_USER, LABFLOW_DATABASE_PASSWORD,
LABFLOW_DATABASE_DBNAME and LABFLOW_DATABASE_SSLMODE.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.dir, "path", "", "read migrations from a directory instead of the binary")
	pf.StringVar(&f.config, "config", "", "path to a TOML config file")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&f.table, "table", "", "migrations table (default schema_migrations)")

	withMigrator := func(run func(cmd *cobra.Command, m migrator, log *zap.Logger, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(&logger.Config{
				Level:      f.logLevel,
				Format:     "console",
				Output:     "stderr",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync(log) }()

			m, err := open(cmd.Context(), f, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					log.Warn("close migrator", zap.Error(err))
				}
			}()
			return run(cmd, m, log, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ *cobra.Command, m migrator, _ *zap.Logger, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ *cobra.Command, m migrator, _ *zap.Logger, _ []string) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "step <n>",
			Short: "Apply n migrations, negative n rolls back",
			Args:  intArg("step count"),
			RunE: withMigrator(func(_ *cobra.Command, m migrator, _ *zap.Logger, args []string) error {
				n, _ := strconv.Atoi(args[0])
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Record a version without running migrations, to clear a dirty state",
			Args:  intArg("version"),
			RunE: withMigrator(func(_ *cobra.Command, m migrator, _ *zap.Logger, args []string) error {
				v, _ := strconv.Atoi(args[0])
				return m.Force(v)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied migration version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ *zap.Logger, _ []string) error {
				s, err := m.Status()
				if err != nil {
					return err
				}
				writeStatus(cmd.OutOrStdout(), s)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the migrations embedded in this binary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				names, err := migration.List(migrations.FS)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			},
		},
	)
	return root
}

// intArg accepts exactly one integer argument
func intArg(what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return err
		}
		if _, err := strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid %s %q", what, args[0])
		}
		return nil
	}
}

func writeStatus(w io.Writer, s migration.Status) {
	switch {
	case s.Version == 0:
		fmt.Fprintln(w, "no migrations applied")
	case s.Dirty:
		fmt.Fprintf(w, "%d (dirty)\n", s.Version)
	default:
		fmt.Fprintln(w, s.Version)
	}
}
