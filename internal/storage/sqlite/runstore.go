// Package sqlite persists completed spectrum runs for later comparison.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/exoatmos/transitspec/internal/db"
	"github.com/exoatmos/transitspec/internal/spectrum"
)

// RunRecord summarizes one stored run.
type RunRecord struct {
	ID         string
	CreatedAt  time.Time
	ParamsJSON string
	WnLow      float64
	WnHigh     float64
	WnSpacing  float64
	NPoints    int
	Duration   time.Duration
}

// RunStore reads and writes spectrum runs in sqlite.
type RunStore struct {
	db *db.DB
}

func NewRunStore(d *db.DB) *RunStore {
	return &RunStore{db: d}
}

// SaveRun stores a completed spectrum with its run parameters and returns
// the new run id. The run row and all points commit atomically.
func (s *RunStore) SaveRun(params any, sp *spectrum.Spectrum, duration time.Duration) (string, error) {
	if len(sp.Wavenumber) == 0 {
		return "", fmt.Errorf("runstore: empty spectrum")
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("runstore: encode params: %w", err)
	}

	id := uuid.NewString()
	n := len(sp.Wavenumber)
	wnLow := sp.Wavenumber[0]
	wnHigh := sp.Wavenumber[n-1]
	spacing := 0.0
	if n > 1 {
		spacing = (wnHigh - wnLow) / float64(n-1)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("runstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO runs (id, params_json, wn_low, wn_high, wn_spacing, n_points, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(paramsJSON), wnLow, wnHigh, spacing, n, duration.Milliseconds()); err != nil {
		return "", fmt.Errorf("runstore: insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO spectrum_points (run_id, idx, wavenumber, modulation)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("runstore: prepare point insert: %w", err)
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(id, i, sp.Wavenumber[i], sp.Modulation[i]); err != nil {
			return "", fmt.Errorf("runstore: insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("runstore: commit: %w", err)
	}
	return id, nil
}

// LoadSpectrum reads back the spectrum points of a stored run in index order.
func (s *RunStore) LoadSpectrum(runID string) (*spectrum.Spectrum, error) {
	rows, err := s.db.Query(`
		SELECT wavenumber, modulation FROM spectrum_points
		WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("runstore: query points: %w", err)
	}
	defer rows.Close()

	sp := &spectrum.Spectrum{}
	for rows.Next() {
		var wn, mod float64
		if err := rows.Scan(&wn, &mod); err != nil {
			return nil, fmt.Errorf("runstore: scan point: %w", err)
		}
		sp.Wavenumber = append(sp.Wavenumber, wn)
		sp.Modulation = append(sp.Modulation, mod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runstore: iterate points: %w", err)
	}
	if len(sp.Wavenumber) == 0 {
		return nil, fmt.Errorf("runstore: run %s has no spectrum points", runID)
	}
	return sp, nil
}

// GetRun returns the summary row for one run.
func (s *RunStore) GetRun(runID string) (*RunRecord, error) {
	var rec RunRecord
	var durationMs int64
	err := s.db.QueryRow(`
		SELECT id, created_at, params_json, wn_low, wn_high, wn_spacing, n_points, duration_ms
		FROM runs WHERE id = ?`, runID).Scan(
		&rec.ID, &rec.CreatedAt, &rec.ParamsJSON,
		&rec.WnLow, &rec.WnHigh, &rec.WnSpacing, &rec.NPoints, &durationMs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("runstore: run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: query run: %w", err)
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}

// ListRuns returns summaries of the most recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, params_json, wn_low, wn_high, wn_spacing, n_points, duration_ms
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runstore: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var durationMs int64
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.ParamsJSON,
			&rec.WnLow, &rec.WnHigh, &rec.WnSpacing, &rec.NPoints, &durationMs); err != nil {
			return nil, fmt.Errorf("runstore: scan run: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
