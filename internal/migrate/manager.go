package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMigrationsTable = "schema_migrations"
	defaultSeedsTable      = "schema_seeds"

	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// ErrNothingToRollback is returned by Down when no migration is applied.
var ErrNothingToRollback = errors.New("no migrations applied")

// Manager applies SQL migrations and seed files from a filesystem, usually
// the embedded ops/migrations tree.
type Manager struct {
	db              *sql.DB
	files           fs.FS
	migrationsDir   string
	seedsDir        string
	migrationsTable string
	seedsTable      string
	log             *zap.Logger
	now             func() time.Time
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the default migrations bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.migrationsTable = name
		}
	}
}

// WithSeedsTable overrides the default seeds bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.seedsTable = name
		}
	}
}

// WithLogger reports each applied file.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager constructs a Manager reading migrationsDir and seedsDir from files.
func NewManager(db *sql.DB, files fs.FS, migrationsDir, seedsDir string, opts ...Option) *Manager {
	m := &Manager{
		db:              db,
		files:           files,
		migrationsDir:   migrationsDir,
		seedsDir:        seedsDir,
		migrationsTable: defaultMigrationsTable,
		seedsTable:      defaultSeedsTable,
		log:             zap.NewNop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status describes applied and pending migrations.
type Status struct {
	Applied []string
	Pending []string
}

// Up applies all pending migrations in name order and returns their names.
func (m *Manager) Up(ctx context.Context) ([]string, error) {
	return m.applyAll(ctx, m.migrationsDir, upSuffix, m.migrationsTable, "migration")
}

// Seed applies seed files not yet recorded.
func (m *Manager) Seed(ctx context.Context) ([]string, error) {
	return m.applyAll(ctx, m.seedsDir, ".sql", m.seedsTable, "seed")
}

// Down rolls back the most recently applied migration and returns its name.
func (m *Manager) Down(ctx context.Context) (string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return "", err
	}
	applied, err := m.history(ctx, m.migrationsTable)
	if err != nil {
		return "", err
	}
	if len(applied) == 0 {
		return "", ErrNothingToRollback
	}
	last := applied[len(applied)-1]
	downPath := path.Join(m.migrationsDir, strings.TrimSuffix(last, upSuffix)+downSuffix)
	if _, err := fs.Stat(m.files, downPath); err != nil {
		return "", fmt.Errorf("missing down migration for %s", last)
	}
	if err := m.exec(ctx, downPath, fmt.Sprintf(`delete from %s where name = $1`, m.migrationsTable), last); err != nil {
		return "", fmt.Errorf("rollback migration %s: %w", last, err)
	}
	m.log.Info("migration rolled back", zap.String("name", last))
	return last, nil
}

// Status returns applied migrations in order and the ones still pending.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.ensureTables(ctx); err != nil {
		return Status{}, err
	}
	applied, err := m.history(ctx, m.migrationsTable)
	if err != nil {
		return Status{}, err
	}
	files, err := m.collect(m.migrationsDir, upSuffix)
	if err != nil {
		return Status{}, err
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}
	st := Status{Applied: applied}
	for _, f := range files {
		if !done[f] {
			st.Pending = append(st.Pending, f)
		}
	}
	return st, nil
}

func (m *Manager) applyAll(ctx context.Context, dir, suffix, table, kind string) ([]string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	applied, err := m.history(ctx, table)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}
	files, err := m.collect(dir, suffix)
	if err != nil {
		return nil, err
	}
	var ran []string
	for _, name := range files {
		if done[name] {
			continue
		}
		record := fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table)
		if err := m.exec(ctx, path.Join(dir, name), record, name, m.now().UTC()); err != nil {
			return ran, fmt.Errorf("apply %s %s: %w", kind, name, err)
		}
		m.log.Info(kind+" applied", zap.String("name", name))
		ran = append(ran, name)
	}
	return ran, nil
}

func (m *Manager) ensureTables(ctx context.Context) error {
	for _, table := range []string{m.migrationsTable, m.seedsTable} {
		ddl := fmt.Sprintf(`
			create table if not exists %s (
				name text primary key,
				applied_at timestamptz not null default now()
			)`, table)
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// exec runs a SQL file and its bookkeeping statement in one transaction.
func (m *Manager) exec(ctx context.Context, file, bookkeeping string, args ...any) error {
	body, err := fs.ReadFile(m.files, file)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(body)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Manager) history(ctx context.Context, table string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s order by applied_at asc, name asc`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res = append(res, name)
	}
	return res, rows.Err()
}

// collect lists file names in dir with the given suffix, sorted.
func (m *Manager) collect(dir, suffix string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := fs.ReadDir(m.files, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		// down files share the .sql suffix with seeds
		if suffix == ".sql" && strings.HasSuffix(e.Name(), downSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements splits SQL on semicolons outside single-quoted strings and
// drops empty statements and line comments.
func splitStatements(src string) []string {
	var (
		stmts    []string
		current  strings.Builder
		inString bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(stripComments(current.String())); stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}
	for _, r := range src {
		switch {
		case r == '\'':
			inString = !inString
			current.WriteRune(r)
		case r == ';' && !inString:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return stmts
}

func stripComments(stmt string) string {
	lines := strings.Split(stmt, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
