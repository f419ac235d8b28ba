package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
)

var geofenceCols = []string{"id", "name", "latitude", "longitude", "radius_meters", "created_at", "is_selected", "is_visited"}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect  Dialect
		query    string
		expected string
	}{
		{Postgres, `UPDATE geofences SET is_selected = ? WHERE id = ?`, `UPDATE geofences SET is_selected = $1 WHERE id = $2`},
		{SQLite, `UPDATE geofences SET is_selected = ? WHERE id = ?`, `UPDATE geofences SET is_selected = ? WHERE id = ?`},
		{Postgres, `SELECT 1`, `SELECT 1`},
	}
	for _, tt := range tests {
		if got := tt.dialect.rebind(tt.query); got != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.dialect, tt.expected, got)
		}
	}
}

func TestParseDialect(t *testing.T) {
	if d, err := ParseDialect("sqlite"); err != nil || d != SQLite {
		t.Fatalf("expected sqlite, got %q (%v)", d, err)
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS geofences`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS visits`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS visits_one_open_per_geofence`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS visits_entry_time`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := Migrate(context.Background(), db, SQLite); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateGeofence_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	created := time.Unix(1715003456, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO geofences (name, latitude, longitude, radius_meters, created_at, is_selected, is_visited) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`)).
		WithArgs("Monas", -6.1754, 106.8272, 150.0, created, false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	repo := NewGeofenceRepo(db, Postgres)
	id, err := repo.Create(context.Background(), &domain.GeofenceRegion{
		Name:         "Monas",
		Center:       domain.Point{Lat: -6.1754, Lng: 106.8272},
		RadiusMeters: 150,
		CreatedAt:    created,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 7 {
		t.Errorf("expected id 7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateGeofence_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`INSERT INTO geofences`).WillReturnError(sqlmock.ErrCancelled)

	repo := NewGeofenceRepo(db, SQLite)
	_, err = repo.Create(context.Background(), &domain.GeofenceRegion{Name: "X", RadiusMeters: 1})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestGetGeofence_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	created := time.Unix(1715003456, 0)
	rows := sqlmock.NewRows(geofenceCols).AddRow(3, "Kota Tua", -6.1352, 106.8133, 200.0, created, true, false)
	mock.ExpectQuery(`SELECT (.+) FROM geofences WHERE id = (.+)`).
		WithArgs(int64(3)).
		WillReturnRows(rows)

	repo := NewGeofenceRepo(db, Postgres)
	g, err := repo.Get(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Name != "Kota Tua" {
		t.Errorf("expected Kota Tua, got %s", g.Name)
	}
	if g.Center.Lng != 106.8133 {
		t.Errorf("expected 106.8133, got %f", g.Center.Lng)
	}
	if !g.IsSelected || g.IsVisited {
		t.Errorf("unexpected flags: selected=%v visited=%v", g.IsSelected, g.IsVisited)
	}
}

func TestGetGeofence_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT (.+) FROM geofences WHERE id = (.+)`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(geofenceCols))

	repo := NewGeofenceRepo(db, Postgres)
	_, err = repo.Get(context.Background(), 99)
	if !errors.Is(err, domain.ErrGeofenceNotFound) {
		t.Fatalf("expected ErrGeofenceNotFound, got %v", err)
	}
}

func TestListGeofences_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	created := time.Unix(1715003456, 0)
	rows := sqlmock.NewRows(geofenceCols).
		AddRow(1, "A", 0.0, 1.0, 100.0, created, false, false).
		AddRow(2, "B", 0.0, 2.0, 100.0, created, true, true)
	mock.ExpectQuery(`SELECT (.+) FROM geofences ORDER BY id`).WillReturnRows(rows)

	repo := NewGeofenceRepo(db, SQLite)
	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 geofences, got %d", len(list))
	}
	if list[1].ID != 2 || !list[1].IsVisited {
		t.Errorf("unexpected second geofence: %+v", list[1])
	}
}

func TestListSelected_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT (.+) FROM geofences WHERE is_selected = TRUE`).WillReturnRows(sqlmock.NewRows(geofenceCols))

	repo := NewGeofenceRepo(db, SQLite)
	list, err := repo.ListSelected(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %v", list)
	}
}

func TestUpdateSelection_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE geofences SET is_selected = $1 WHERE id = $2`)).
		WithArgs(true, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewGeofenceRepo(db, Postgres)
	if err := repo.UpdateSelection(context.Background(), 4, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateVisited_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`UPDATE geofences SET is_visited`).
		WithArgs(true, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewGeofenceRepo(db, SQLite)
	err = repo.UpdateVisited(context.Background(), 42, true)
	if !errors.Is(err, domain.ErrGeofenceNotFound) {
		t.Fatalf("expected ErrGeofenceNotFound, got %v", err)
	}
}

func TestClearSelectionsAndVisited(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`UPDATE geofences SET is_selected = FALSE`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE geofences SET is_visited = FALSE`).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewGeofenceRepo(db, Postgres)
	if err := repo.ClearSelections(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// nothing visited yet is still a success
	if err := repo.ClearVisited(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteGeofence(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`DELETE FROM geofences WHERE id`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM geofences WHERE id`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewGeofenceRepo(db, Postgres)
	if err := repo.Delete(context.Background(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(context.Background(), 5); !errors.Is(err, domain.ErrGeofenceNotFound) {
		t.Fatalf("expected ErrGeofenceNotFound on second delete, got %v", err)
	}
}
