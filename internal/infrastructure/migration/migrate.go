// Package migration applies the schema in the migrations directory using
// golang-migrate. By default the embedded copy is used; a directory on disk
// can be substituted for development.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/labflow/backend/migrations"
	"go.uber.org/zap"
)

// Status is the schema version recorded in the migrations table. Version 0
// means nothing has been applied.
type Status struct {
	Version uint
	Dirty   bool
}

// Migrator runs schema migrations against one postgres database
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

type options struct {
	dir   string
	fsys  fs.FS
	table string
}

type Option func(*options)

// WithPath reads migrations from a directory instead of the embedded set
func WithPath(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithFS reads migrations from fsys
func WithFS(fsys fs.FS) Option {
	return func(o *options) { o.fsys = fsys }
}

// WithMigrationsTable overrides golang-migrate's schema_migrations table
func WithMigrationsTable(table string) Option {
	return func(o *options) { o.table = table }
}

// New opens a Migrator over an established connection. Close releases the
// connection as well.
func New(db *sql.DB, log *zap.Logger, opts ...Option) (*Migrator, error) {
	o := options{fsys: migrations.FS}
	for _, opt := range opts {
		opt(&o)
	}

	target, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: o.table})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	var m *migrate.Migrate
	if o.dir != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+o.dir, "postgres", target)
	} else {
		var src source.Driver
		if src, err = iofs.New(o.fsys, "."); err != nil {
			return nil, fmt.Errorf("open embedded migrations: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", target)
	}
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	m.Log = migrateLogger{log.Sugar()}
	return &Migrator{m: m, log: log}, nil
}

// Up applies every pending migration
func (m *Migrator) Up() error { return m.apply("up", m.m.Up) }

// Down reverts every applied migration
func (m *Migrator) Down() error { return m.apply("down", m.m.Down) }

// Steps applies n migrations forward, or -n backward when n is negative
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps %+d", n), func() error { return m.m.Steps(n) })
}

// Force records version without running anything. It clears a dirty state
// left by a failed migration once the schema has been repaired by hand.
func (m *Migrator) Force(version int) error {
	m.log.Warn("forcing migration version", zap.Int("version", version))
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Status reports the recorded version
func (m *Migrator) Status() (Status, error) {
	v, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("read migration version: %w", err)
	}
	return Status{Version: v, Dirty: dirty}, nil
}

// Close releases the source and the database connection
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// apply runs op, treating "already there" as success, and logs the version
// before and after.
func (m *Migrator) apply(op string, run func() error) error {
	before, err := m.Status()
	if err != nil {
		return err
	}
	if err := run(); errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("schema already current", zap.String("op", op), zap.Uint("version", before.Version))
		return nil
	} else if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	after, err := m.Status()
	if err != nil {
		return err
	}
	m.log.Info("schema migrated",
		zap.String("op", op),
		zap.Uint("from", before.Version),
		zap.Uint("to", after.Version),
		zap.Bool("dirty", after.Dirty),
	)
	return nil
}

// migrateLogger adapts zap to golang-migrate's progress logger
type migrateLogger struct{ s *zap.SugaredLogger }

func (l migrateLogger) Printf(format string, v ...any) {
	l.s.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (l migrateLogger) Verbose() bool {
	return l.s.Desugar().Core().Enabled(zap.DebugLevel)
}

// List returns the base names of the up migrations in fsys, in version order
func List(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if base, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok && !e.IsDir() {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	return names, nil
}
