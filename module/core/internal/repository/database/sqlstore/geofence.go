package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/internal/repository/database"
)

var _ database.GeofenceRepository = (*GeofenceRepo)(nil)

const geofenceColumns = `id, name, latitude, longitude, radius_meters, created_at, is_selected, is_visited`

type GeofenceRepo struct {
	db      *sql.DB
	dialect Dialect
}

func NewGeofenceRepo(db *sql.DB, dialect Dialect) *GeofenceRepo {
	return &GeofenceRepo{db: db, dialect: dialect}
}

func (r *GeofenceRepo) Create(ctx context.Context, g *domain.GeofenceRegion) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`INSERT INTO geofences (name, latitude, longitude, radius_meters, created_at, is_selected, is_visited) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		g.Name, g.Center.Lat, g.Center.Lng, g.RadiusMeters, g.CreatedAt, g.IsSelected, g.IsVisited,
	).Scan(&id)
	if err != nil {
		return 0, storeErr("insert geofence", err)
	}
	return id, nil
}

func (r *GeofenceRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(`DELETE FROM geofences WHERE id = ?`), id)
	return r.checkAffected("delete geofence", id, res, err)
}

func (r *GeofenceRepo) Get(ctx context.Context, id int64) (*domain.GeofenceRegion, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+geofenceColumns+` FROM geofences WHERE id = ?`), id)

	g, err := scanGeofence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("geofence %d: %w", id, domain.ErrGeofenceNotFound)
	}
	if err != nil {
		return nil, storeErr("get geofence", err)
	}
	return g, nil
}

func (r *GeofenceRepo) List(ctx context.Context) ([]domain.GeofenceRegion, error) {
	return r.list(ctx, `SELECT `+geofenceColumns+` FROM geofences ORDER BY id`)
}

func (r *GeofenceRepo) ListSelected(ctx context.Context) ([]domain.GeofenceRegion, error) {
	return r.list(ctx, `SELECT `+geofenceColumns+` FROM geofences WHERE is_selected = TRUE ORDER BY id`)
}

func (r *GeofenceRepo) UpdateSelection(ctx context.Context, id int64, selected bool) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(`UPDATE geofences SET is_selected = ? WHERE id = ?`), selected, id)
	return r.checkAffected("update selection", id, res, err)
}

func (r *GeofenceRepo) ClearSelections(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE geofences SET is_selected = FALSE WHERE is_selected = TRUE`); err != nil {
		return storeErr("clear selections", err)
	}
	return nil
}

func (r *GeofenceRepo) UpdateVisited(ctx context.Context, id int64, visited bool) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(`UPDATE geofences SET is_visited = ? WHERE id = ?`), visited, id)
	return r.checkAffected("update visited", id, res, err)
}

func (r *GeofenceRepo) ClearVisited(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE geofences SET is_visited = FALSE WHERE is_visited = TRUE`); err != nil {
		return storeErr("clear visited", err)
	}
	return nil
}

func (r *GeofenceRepo) list(ctx context.Context, query string) ([]domain.GeofenceRegion, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list geofences", err)
	}
	defer func() { _ = rows.Close() }()

	results := []domain.GeofenceRegion{}
	for rows.Next() {
		g, err := scanGeofence(rows)
		if err != nil {
			return nil, storeErr("scan geofence", err)
		}
		results = append(results, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list geofences", err)
	}
	return results, nil
}

func (r *GeofenceRepo) checkAffected(op string, id int64, res sql.Result, err error) error {
	if err != nil {
		return storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: geofence %d: %w", op, id, domain.ErrGeofenceNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGeofence(s scanner) (*domain.GeofenceRegion, error) {
	var g domain.GeofenceRegion
	if err := s.Scan(&g.ID, &g.Name, &g.Center.Lat, &g.Center.Lng, &g.RadiusMeters, &g.CreatedAt, &g.IsSelected, &g.IsVisited); err != nil {
		return nil, err
	}
	return &g, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
