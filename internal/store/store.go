// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists analysis runs to a local SQLite database so past
// batches can be listed and re-read without re-fetching.
// See docs/ARCHITECTURE § Run History.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lafarch/trendArbitrage/pkg/types"
)

const dbFile = "trendarb.db"

// ErrRunNotFound is returned when a run ID has no row in the database.
var ErrRunNotFound = errors.New("run not found")

// Store manages the run-history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the run database at dataDir/trendarb.db, creating
// the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			partial INTEGER NOT NULL DEFAULT 0,
			degraded INTEGER NOT NULL DEFAULT 0,
			keywords INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			keyword TEXT NOT NULL,
			score REAL NOT NULL,
			tier TEXT NOT NULL,
			verdict TEXT NOT NULL,
			diagnosis TEXT,
			total_supply INTEGER NOT NULL,
			supply TEXT NOT NULL,
			supply_unknown TEXT,
			mean_interest REAL NOT NULL,
			momentum REAL NOT NULL,
			velocity REAL NOT NULL,
			insufficient_data INTEGER NOT NULL DEFAULT 0,
			degraded_supply INTEGER NOT NULL DEFAULT 0,
			history TEXT,
			PRIMARY KEY (run_id, keyword)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Keywords   int
	Partial    bool
	Degraded   int
}

// Save persists the batch and all its results in one transaction. Saving
// the same run ID twice is an error.
func (s *Store) Save(ctx context.Context, batch types.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, partial, degraded, keywords)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		batch.RunID,
		batch.StartedAt.UTC().Format(time.RFC3339Nano),
		batch.FinishedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(batch.Partial),
		batch.Degraded,
		len(batch.Results),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", batch.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, rank, keyword, score, tier, verdict, diagnosis,
			total_supply, supply, supply_unknown, mean_interest, momentum, velocity,
			insufficient_data, degraded_supply, history)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range batch.Results {
		supply, err := json.Marshal(r.Supply)
		if err != nil {
			return fmt.Errorf("encoding supply for %q: %w", r.Keyword, err)
		}
		unknown, err := json.Marshal(r.SupplyUnknown)
		if err != nil {
			return fmt.Errorf("encoding supply_unknown for %q: %w", r.Keyword, err)
		}
		history, err := json.Marshal(r.History)
		if err != nil {
			return fmt.Errorf("encoding history for %q: %w", r.Keyword, err)
		}
		_, err = stmt.ExecContext(ctx,
			batch.RunID, i+1, r.Keyword, r.Score, string(r.Tier), string(r.Verdict),
			r.Diagnosis, r.TotalSupply, string(supply), string(unknown),
			r.Stats.MeanInterest, r.Stats.Momentum, r.Stats.Velocity,
			boolToInt(r.Stats.InsufficientData), boolToInt(r.DegradedSupply),
			string(history),
		)
		if err != nil {
			return fmt.Errorf("inserting result %q: %w", r.Keyword, err)
		}
	}

	return tx.Commit()
}

// Runs lists the most recent runs, newest first. limit <= 0 means all.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, partial, degraded, keywords
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished string
		var partial int
		if err := rows.Scan(&r.RunID, &started, &finished, &partial, &r.Degraded, &r.Keywords); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing started_at for %s: %w", r.RunID, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at for %s: %w", r.RunID, err)
		}
		r.Partial = partial != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Batch re-reads a stored run as a full Batch, results in rank order.
// Returns ErrRunNotFound for unknown run IDs.
func (s *Store) Batch(ctx context.Context, runID string) (types.Batch, error) {
	var batch types.Batch
	var started, finished string
	var partial int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, partial, degraded FROM runs WHERE id = ?`,
		runID).Scan(&batch.RunID, &started, &finished, &partial, &batch.Degraded)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Batch{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return types.Batch{}, fmt.Errorf("reading run %s: %w", runID, err)
	}
	batch.Partial = partial != 0
	if batch.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return types.Batch{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if batch.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return types.Batch{}, fmt.Errorf("parsing finished_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, score, tier, verdict, diagnosis, total_supply, supply,
			supply_unknown, mean_interest, momentum, velocity, insufficient_data,
			degraded_supply, history
		 FROM results WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return types.Batch{}, fmt.Errorf("reading results for %s: %w", runID, err)
	}
	defer rows.Close()

	batch.Results = []types.OpportunityResult{}
	for rows.Next() {
		var r types.OpportunityResult
		var tier, verdict, supply, unknown, history string
		var insufficient, degradedSupply int
		err := rows.Scan(&r.Keyword, &r.Score, &tier, &verdict, &r.Diagnosis,
			&r.TotalSupply, &supply, &unknown,
			&r.Stats.MeanInterest, &r.Stats.Momentum, &r.Stats.Velocity,
			&insufficient, &degradedSupply, &history)
		if err != nil {
			return types.Batch{}, fmt.Errorf("scanning result row: %w", err)
		}
		r.Tier = types.CompetitionTier(tier)
		r.Verdict = types.Verdict(verdict)
		r.Stats.InsufficientData = insufficient != 0
		r.DegradedSupply = degradedSupply != 0
		if err := json.Unmarshal([]byte(supply), &r.Supply); err != nil {
			return types.Batch{}, fmt.Errorf("decoding supply for %q: %w", r.Keyword, err)
		}
		if err := json.Unmarshal([]byte(unknown), &r.SupplyUnknown); err != nil {
			return types.Batch{}, fmt.Errorf("decoding supply_unknown for %q: %w", r.Keyword, err)
		}
		if err := json.Unmarshal([]byte(history), &r.History); err != nil {
			return types.Batch{}, fmt.Errorf("decoding history for %q: %w", r.Keyword, err)
		}
		batch.Results = append(batch.Results, r)
	}
	return batch, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
