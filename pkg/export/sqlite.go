package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	theme TEXT NOT NULL,
	id TEXT NOT NULL,
	subject TEXT NOT NULL,
	relation TEXT NOT NULL,
	object TEXT NOT NULL,
	PRIMARY KEY (theme, subject, relation, object)
);
CREATE TABLE IF NOT EXISTS themes (
	name TEXT PRIMARY KEY,
	facts INTEGER NOT NULL,
	exported_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);
`

// migrations run in order; the index of an entry is its version minus one.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_facts_relation ON facts(theme, relation, subject)`,
	`CREATE INDEX IF NOT EXISTS idx_facts_object ON facts(theme, object, relation)`,
	`CREATE INDEX IF NOT EXISTS idx_facts_id ON facts(id)`,
}

// SQLite writes themes into a SQLite database, one row per fact.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens or creates the database and brings its schema up to date.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func runMigrations(conn *sql.DB) error {
	var current int
	if err := conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return err
	}
	for v := current; v < len(migrations); v++ {
		if _, err := conn.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := conn.Exec(`INSERT INTO schema_version(version) VALUES (?)`, v+1); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// DB exposes the connection for ad hoc queries.
func (s *SQLite) DB() *sql.DB {
	return s.conn
}

// ExportTheme replaces the rows of a theme with the theme file in dir.
func (s *SQLite) ExportTheme(ctx context.Context, t theme.Theme, dir string) (int64, error) {
	if !t.Available(dir) {
		return 0, fmt.Errorf("%s: %w", t.Name, theme.ErrNotAvailable)
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM facts WHERE theme = ?`, t.Name); err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO facts(theme, id, subject, relation, object) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var n int64
	for f, err := range t.Reader(dir).Read(ctx) {
		if err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, t.Name, f.Reified(), f.Subject, f.Relation, f.Object)
		if err != nil {
			return 0, fmt.Errorf("inserting %s: %w", f, err)
		}
		if added, _ := res.RowsAffected(); added > 0 {
			n += added
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO themes(name, facts) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET facts = excluded.facts, exported_at = CURRENT_TIMESTAMP`,
		t.Name, n); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	slog.Info("theme exported", "theme", t.Name, "facts", n)
	return n, nil
}

// ExportRun exports every theme found in dir.
func (s *SQLite) ExportRun(ctx context.Context, dir string) (map[string]int64, error) {
	themes, err := theme.Discover(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(themes))
	for _, t := range themes {
		n, err := s.ExportTheme(ctx, t, dir)
		if err != nil {
			return nil, err
		}
		out[t.Name] = n
	}
	return out, nil
}

// Facts returns the exported facts of a theme with the given subject.
func (s *SQLite) Facts(ctx context.Context, themeName, subject string) ([]fact.Fact, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, subject, relation, object FROM facts WHERE theme = ? AND subject = ? ORDER BY relation, object`,
		themeName, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fact.Fact
	for rows.Next() {
		var f fact.Fact
		if err := rows.Scan(&f.ID, &f.Subject, &f.Relation, &f.Object); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
