package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ademuri/track-clusters/internal/dataset"
)

func createTestDb(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "track-clusters.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New(%s) error: %v", dbPath, err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func sampleTable() *dataset.Table {
	t := dataset.NewTable(dataset.TrackIDColumn, dataset.ArtistNameColumn, "danceability", "album")
	t.AppendRow(map[string]any{
		dataset.TrackIDColumn:    "t1",
		dataset.ArtistNameColumn: "Artist",
		"danceability":           0.5,
		"album":                  map[string]any{"name": "First"},
	})
	t.AppendRow(map[string]any{dataset.TrackIDColumn: "t1", dataset.ArtistNameColumn: "Related"})
	t.AppendRow(map[string]any{dataset.TrackIDColumn: "t0", "danceability": 0.125})
	return t
}

func TestSaveAndLoadRun(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()

	run := NewRun("a1", "Artist")
	run.Market = "ES"
	tbl := sampleTable()
	if err := s.SaveRun(ctx, run, tbl); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.LoadRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if !reflect.DeepEqual(got.Columns(), tbl.Columns()) {
		t.Errorf("columns = %v, want %v", got.Columns(), tbl.Columns())
	}
	if got.Len() != 3 {
		t.Fatalf("rows = %d, want 3", got.Len())
	}
	for i := 0; i < tbl.Len(); i++ {
		if !reflect.DeepEqual(got.Row(i), tbl.Row(i)) {
			t.Errorf("row %d = %v, want %v", i, got.Row(i), tbl.Row(i))
		}
	}

	meta, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if meta.Rows != 3 || meta.Market != "ES" || !meta.Created.Equal(run.Created) {
		t.Errorf("run = %+v", meta)
	}
}

func TestLatestRun(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()

	older := NewRun("a1", "Artist")
	older.Created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := NewRun("a1", "Artist")
	newer.Created = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	other := NewRun("a2", "Other")

	for _, r := range []Run{newer, older, other} {
		if err := s.SaveRun(ctx, r, sampleTable()); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	got, err := s.LatestRun(ctx, "a1")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("LatestRun = %s, want %s", got.ID, newer.ID)
	}

	if _, err := s.LatestRun(ctx, "nobody"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LatestRun(nobody) error = %v, want ErrRunNotFound", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 || runs[len(runs)-1].ID != older.ID {
		t.Errorf("ListRuns = %+v, want three runs ending with the oldest", runs)
	}
}

func TestDeleteRun(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()

	run := NewRun("a1", "Artist")
	if err := s.SaveRun(ctx, run, sampleTable()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, err := s.LoadRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LoadRun after delete error = %v, want ErrRunNotFound", err)
	}
	var rows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM RunRow").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Errorf("%d rows left after delete", rows)
	}
	if err := s.DeleteRun(ctx, uuid.New()); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("DeleteRun(unknown) error = %v, want ErrRunNotFound", err)
	}
}

func TestSaveRunIsAtomic(t *testing.T) {
	s := createTestDb(t)
	ctx := context.Background()

	bad := dataset.NewTable("x")
	bad.AppendRow(map[string]any{"x": 1.0})
	bad.AppendRow(map[string]any{"x": func() {}})

	run := NewRun("a1", "Artist")
	if err := s.SaveRun(ctx, run, bad); err == nil {
		t.Fatal("SaveRun with an unencodable cell succeeded")
	}
	if _, err := s.GetRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("partial run was committed: %v", err)
	}
}

func TestEnsureSchemaUpgradesOldDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(createTables); err != nil {
		t.Fatal(err)
	}
	db.Close()

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New on old database: %v", err)
	}
	defer s.Close()
	for _, c := range []string{"market", "related_source"} {
		ok, err := columnExists(s.db, "Run", c)
		if err != nil || !ok {
			t.Errorf("column %s missing after upgrade (err %v)", c, err)
		}
	}
}

func TestInMemory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	defer s.Close()
	if err := s.SaveRun(context.Background(), NewRun("a1", "A"), sampleTable()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
}
