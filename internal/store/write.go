package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ademuri/track-clusters/internal/dataset"
)

// Run describes one persisted snapshot of a fetched track table.
type Run struct {
	ID            uuid.UUID
	ArtistID      string
	ArtistName    string
	Market        string
	RelatedSource string
	Created       time.Time
	Rows          int
	Columns       []string
}

// NewRun returns run metadata with a fresh id and the current time.
func NewRun(artistID, artistName string) Run {
	return Run{
		ID:         uuid.New(),
		ArtistID:   artistID,
		ArtistName: artistName,
		Created:    time.Now().UTC().Truncate(time.Second),
	}
}

// SaveRun stores t under run in one transaction. Row order is preserved.
func (s *Store) SaveRun(ctx context.Context, run Run, t *dataset.Table) error {
	columns, err := json.Marshal(t.Columns())
	if err != nil {
		return fmt.Errorf("encoding columns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO Run (id, artist_id, artist_name, created, columns, row_count, market, related_source) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID.String(), run.ArtistID, run.ArtistName, run.Created.UTC().Format(time.RFC3339), string(columns), t.Len(), run.Market, run.RelatedSource)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO RunRow (run, position, data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing row insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < t.Len(); i++ {
		data, err := json.Marshal(t.Row(i))
		if err != nil {
			return fmt.Errorf("encoding row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID.String(), i, string(data)); err != nil {
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteRun removes a snapshot and its rows.
func (s *Store) DeleteRun(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM Run WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
