package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dshills/stylegate/internal/review"
)

// Run is one persisted review run.
type Run struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"createdAt"`
	Source      string         `json:"source"`
	Repo        string         `json:"repo,omitempty"`
	PR          int            `json:"pr,omitempty"`
	HeadSHA     string         `json:"headSha,omitempty"`
	Outcome     review.Outcome `json:"outcome"`
	Violations  int            `json:"violations"`
	Critical    bool           `json:"critical"`
	RulesDigest string         `json:"rulesDigest"`
	Report      *review.Report `json:"report,omitempty"`
}

// Store persists review runs.
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// NewRun builds a run record from a report.
func NewRun(report *review.Report, source, repo string, pr int, headSHA string) Run {
	return Run{
		ID:          report.RunID,
		CreatedAt:   time.Now().UTC(),
		Source:      source,
		Repo:        repo,
		PR:          pr,
		HeadSHA:     headSHA,
		Outcome:     report.Verdict.Outcome,
		Violations:  report.Verdict.TotalViolations,
		Critical:    report.Verdict.HasCritical,
		RulesDigest: report.Rules.Digest,
		Report:      report,
	}
}

// Drivers supported by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver. dsn is a file path for sqlite and a
// connection string for postgres; it is ignored for memory.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q (want memory, sqlite or postgres)", driver)
	}
}

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run)}
}

func (m *MemoryStore) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run has no id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *MemoryStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func encodeReport(r *review.Report) (string, error) {
	if r == nil {
		return "", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	return string(b), nil
}

func decodeReport(s string) (*review.Report, error) {
	if s == "" {
		return nil, nil
	}
	var r review.Report
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &r, nil
}
