package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/store"
)

// Run is a journal entry of one batch run
type Run struct {
	ID           string            `json:"id"`
	Command      string            `json:"command"`
	Policy       string            `json:"policy"`
	RulesVersion string            `json:"rules_version"`
	DryRun       bool              `json:"dry_run"`
	Stats        domain.Stats      `json:"stats"`
	Applied      store.ApplyResult `json:"applied"`
	Error        string            `json:"error,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at,omitzero"`
}

// RunRepository keeps the journal of batch runs, ids are ULIDs so they sort by start time
type RunRepository struct {
	db *sqlx.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

type runSQL struct {
	ID           string     `db:"id"`
	Command      string     `db:"command"`
	Policy       string     `db:"policy"`
	RulesVersion string     `db:"rules_version"`
	DryRun       bool       `db:"dry_run"`
	Stats        string     `db:"stats"`
	Applied      string     `db:"applied"`
	Error        string     `db:"error"`
	StartedAt    time.Time  `db:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"`
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec // ids, not secrets
	}
}

// NewID makes a new run id
func (r *RunRepository) NewID(ts time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(ts), r.entropy).String()
}

// Start records the beginning of a run and returns it with the id set
func (r *RunRepository) Start(ctx context.Context, run Run) (Run, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()
	if run.ID == "" {
		run.ID = r.NewID(run.StartedAt)
	}
	query := `
		INSERT INTO runs (id, command, policy, rules_version, dry_run, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, run.ID, run.Command, run.Policy, run.RulesVersion,
		run.DryRun, run.StartedAt); err != nil {
		return Run{}, fmt.Errorf("start run: %w", err)
	}
	return run, nil
}

// Finish stores results of the run
func (r *RunRepository) Finish(ctx context.Context, run Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	applied, err := json.Marshal(run.Applied)
	if err != nil {
		return fmt.Errorf("marshal apply result: %w", err)
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	query := `UPDATE runs SET stats = ?, applied = ?, error = ?, finished_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, string(stats), string(applied), run.Error, run.FinishedAt.UTC(), run.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, store.ErrNotFound)
	}
	return nil
}

// Get retrieves a run by id
func (r *RunRepository) Get(ctx context.Context, id string) (Run, error) {
	var row runSQL
	err := r.db.GetContext(ctx, &row, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, store.ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return row.toRun()
}

// List retrieves recent runs, newest first
func (r *RunRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runSQL
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM runs ORDER BY id DESC LIMIT ?", limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	res := make([]Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun()
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, nil
}

func (r runSQL) toRun() (Run, error) {
	res := Run{
		ID:           r.ID,
		Command:      r.Command,
		Policy:       r.Policy,
		RulesVersion: r.RulesVersion,
		DryRun:       r.DryRun,
		Error:        r.Error,
		StartedAt:    r.StartedAt.UTC(),
	}
	if r.FinishedAt != nil {
		res.FinishedAt = r.FinishedAt.UTC()
	}
	if err := json.Unmarshal([]byte(r.Stats), &res.Stats); err != nil {
		return Run{}, fmt.Errorf("unmarshal stats of run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Applied), &res.Applied); err != nil {
		return Run{}, fmt.Errorf("unmarshal apply result of run %s: %w", r.ID, err)
	}
	return res, nil
}
