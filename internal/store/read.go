package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ademuri/track-clusters/internal/dataset"
)

var ErrRunNotFound = errors.New("store: run not found")

const runColumns = "id, artist_id, artist_name, created, columns, row_count, market, related_source"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var id, created, columns string
	var name, market, source sql.NullString
	if err := row.Scan(&id, &run.ArtistID, &name, &created, &columns, &run.Rows, &market, &source); err != nil {
		return Run{}, err
	}
	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("parsing run id %q: %w", id, err)
	}
	if run.Created, err = parseDate(created); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(columns), &run.Columns); err != nil {
		return Run{}, fmt.Errorf("decoding columns of run %s: %w", id, err)
	}
	run.ArtistName, run.Market, run.RelatedSource = name.String, market.String, source.String
	return run, nil
}

func parseDate(dateStr string) (time.Time, error) {
	// Unix seconds or RFC 3339.
	dateInt, err := strconv.ParseInt(dateStr, 10, 64)
	if err == nil {
		return time.Unix(dateInt, 0).UTC(), nil
	}

	t, err := time.Parse(time.RFC3339, dateStr)
	if err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("parsing date %q: %w", dateStr, err)
}

// GetRun returns the metadata of one snapshot.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM Run WHERE id = ?", id.String())
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("getting run %s: %w", id, err)
	}
	return run, nil
}

// LatestRun returns the newest snapshot for an artist.
func (s *Store) LatestRun(ctx context.Context, artistID string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM Run WHERE artist_id = ? ORDER BY created DESC, rowid DESC LIMIT 1", artistID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("%w: no snapshot for artist %s", ErrRunNotFound, artistID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("getting latest run for %s: %w", artistID, err)
	}
	return run, nil
}

// ListRuns returns every snapshot, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM Run ORDER BY created DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadRun rebuilds the table stored under id, with its original column and
// row order.
func (s *Store) LoadRun(ctx context.Context, id uuid.UUID) (*dataset.Table, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT data FROM RunRow WHERE run = ? ORDER BY position", id.String())
	if err != nil {
		return nil, fmt.Errorf("loading rows of run %s: %w", id, err)
	}
	defer rows.Close()

	t := dataset.NewTable(run.Columns...)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("decoding row of run %s: %w", id, err)
		}
		t.AppendRow(row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if t.Len() != run.Rows {
		return nil, fmt.Errorf("store: run %s has %d rows, expected %d", id, t.Len(), run.Rows)
	}
	return t, nil
}
