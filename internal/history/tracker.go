package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/route-matcher/internal/debug"
	"github.com/route-matcher/internal/route"
)

// ErrNotFound is returned for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// timeLayout has a fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one processed route as stored in the history.
type Run struct {
	ID            string       `json:"id"`
	CreatedAt     time.Time    `json:"created_at"`
	Manifest      string       `json:"manifest"`
	Reference     string       `json:"reference"`
	OutputPath    string       `json:"output_path"`
	Strategy      string       `json:"strategy"`
	MatchColumn   string       `json:"match_column"`
	CityColumn    string       `json:"city_column"`
	FoundCount    int          `json:"found_count"`
	TotalCount    int          `json:"total_count"`
	TotalQuantity int          `json:"total_quantity"`
	TotalWeight   float64      `json:"total_weight"`
	Unresolved    []Unresolved `json:"unresolved,omitempty"`
}

// Unresolved is a candidate key that did not reach its threshold, with the
// best reference value seen for it.
type Unresolved struct {
	Key       string  `json:"key"`
	Hint      string  `json:"hint,omitempty"`
	HintScore float64 `json:"hint_score,omitempty"`
}

// FromReport converts a route report into a history run.
func FromReport(manifest, reference string, r *route.Report) Run {
	hints := make(map[string]int, len(r.NearMisses))
	for i, h := range r.NearMisses {
		if _, ok := hints[h.Key]; !ok {
			hints[h.Key] = i
		}
	}

	run := Run{
		Manifest:      manifest,
		Reference:     reference,
		OutputPath:    r.OutputPath,
		Strategy:      r.Strategy,
		MatchColumn:   r.MatchColumn,
		CityColumn:    r.CityColumn,
		FoundCount:    r.FoundCount,
		TotalCount:    r.TotalCount,
		TotalQuantity: r.TotalQuantity,
		TotalWeight:   r.TotalWeight,
	}
	for _, key := range r.NotFound {
		u := Unresolved{Key: key}
		if i, ok := hints[key]; ok {
			u.Hint = r.NearMisses[i].MatchedValue
			u.HintScore = r.NearMisses[i].Score
		}
		run.Unresolved = append(run.Unresolved, u)
	}
	return run
}

// RecordRun stores run with its unresolved keys and returns the run ID.
// An empty ID or zero CreatedAt is filled in.
func (s *Store) RecordRun(localDebug bool, run Run) (string, error) {
	debug.Header(localDebug, "record run")

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(s.rebind(`
		INSERT INTO route_run (
			run_id, created_at, manifest, reference, output_path, strategy,
			match_column, city_column, found_count, total_count, total_quantity, total_weight
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), run.ID, run.CreatedAt.UTC().Format(timeLayout), run.Manifest, run.Reference,
		run.OutputPath, run.Strategy, run.MatchColumn, run.CityColumn,
		run.FoundCount, run.TotalCount, run.TotalQuantity, run.TotalWeight)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, u := range run.Unresolved {
		_, err = tx.Exec(s.rebind(`
			INSERT INTO route_unresolved (run_id, position, source_key, hint, hint_score)
			VALUES (?, ?, ?, ?, ?)
		`), run.ID, i, u.Key, u.Hint, u.HintScore)
		if err != nil {
			return "", fmt.Errorf("failed to insert unresolved key %q: %w", u.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	debug.Output(localDebug, "recorded run %s: %d/%d found, %d unresolved",
		run.ID, run.FoundCount, run.TotalCount, len(run.Unresolved))
	return run.ID, nil
}

// ListRuns returns the newest runs first, without their unresolved keys.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(s.rebind(`
		SELECT run_id, created_at, manifest, reference, output_path, strategy,
		       match_column, city_column, found_count, total_count, total_quantity, total_weight
		FROM route_run
		ORDER BY created_at DESC, run_id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run with its unresolved keys in original order.
func (s *Store) GetRun(id string) (Run, error) {
	row := s.DB.QueryRow(s.rebind(`
		SELECT run_id, created_at, manifest, reference, output_path, strategy,
		       match_column, city_column, found_count, total_count, total_quantity, total_weight
		FROM route_run
		WHERE run_id = ?
	`), id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := s.DB.Query(s.rebind(`
		SELECT source_key, hint, hint_score
		FROM route_unresolved
		WHERE run_id = ?
		ORDER BY position
	`), id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to query unresolved keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u Unresolved
		if err := rows.Scan(&u.Key, &u.Hint, &u.HintScore); err != nil {
			return Run{}, fmt.Errorf("failed to scan unresolved key: %w", err)
		}
		run.Unresolved = append(run.Unresolved, u)
	}
	return run, rows.Err()
}

// DeleteRun removes a run and its unresolved keys.
func (s *Store) DeleteRun(id string) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.rebind(`DELETE FROM route_unresolved WHERE run_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete unresolved keys: %w", err)
	}
	res, err := tx.Exec(s.rebind(`DELETE FROM route_run WHERE run_id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var created string
	err := row.Scan(&run.ID, &created, &run.Manifest, &run.Reference, &run.OutputPath,
		&run.Strategy, &run.MatchColumn, &run.CityColumn, &run.FoundCount, &run.TotalCount,
		&run.TotalQuantity, &run.TotalWeight)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return run, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	return run, nil
}
