package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/dshills/stylegate/internal/review"
)

// SQLStore is a Store on database/sql. The same schema and queries serve
// SQLite and PostgreSQL; placeholders are rebound for postgres.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id           TEXT PRIMARY KEY,
  created_at   TEXT NOT NULL,
  source       TEXT NOT NULL,
  repo         TEXT NOT NULL DEFAULT '',
  pr_number    INTEGER NOT NULL DEFAULT 0,
  head_sha     TEXT NOT NULL DEFAULT '',
  outcome      TEXT NOT NULL,
  violations   INTEGER NOT NULL,
  critical     BOOLEAN NOT NULL,
  rules_digest TEXT NOT NULL,
  report_json  TEXT NOT NULL DEFAULT ''
)`

const runsIndex = `CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`

// OpenSQLite opens (and creates if missing) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite storage needs a dsn (database file path)")
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, false)
}

// OpenPostgres connects to PostgreSQL.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres storage needs a dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return newSQLStore(ctx, db, true)
}

func newSQLStore(ctx context.Context, db *sql.DB, postgres bool) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	s := &SQLStore{db: db, postgres: postgres}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range []string{schema, runsIndex} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run has no id")
	}
	reportJSON, err := encodeReport(run.Report)
	if err != nil {
		return err
	}
	q := s.rebind(`
		INSERT INTO runs (id, created_at, source, repo, pr_number, head_sha, outcome, violations, critical, rules_digest, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		  outcome = excluded.outcome,
		  violations = excluded.violations,
		  critical = excluded.critical,
		  report_json = excluded.report_json`)
	_, err = s.db.ExecContext(ctx, q,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Source, run.Repo, run.PR, run.HeadSHA,
		string(run.Outcome), run.Violations, run.Critical, run.RulesDigest, reportJSON)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `
		SELECT id, created_at, source, repo, pr_number, head_sha, outcome, violations, critical, rules_digest, report_json
		  FROM runs
		 ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r          Run
			createdAt  string
			outcome    string
			reportJSON string
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.Source, &r.Repo, &r.PR, &r.HeadSHA,
			&outcome, &r.Violations, &r.Critical, &r.RulesDigest, &reportJSON); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		r.Outcome = review.Outcome(outcome)
		if r.Report, err = decodeReport(reportJSON); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *SQLStore) rebind(q string) string {
	if !s.postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
