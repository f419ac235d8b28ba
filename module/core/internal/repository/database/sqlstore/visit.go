package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/internal/repository/database"
)

var _ database.VisitRepository = (*VisitRepo)(nil)

const visitColumns = `id, geofence_id, geofence_name, entry_time, exit_time, duration_minutes`

type VisitRepo struct {
	db      *sql.DB
	dialect Dialect
}

func NewVisitRepo(db *sql.DB, dialect Dialect) *VisitRepo {
	return &VisitRepo{db: db, dialect: dialect}
}

func (r *VisitRepo) Add(ctx context.Context, v *domain.VisitRecord) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`INSERT INTO visits (geofence_id, geofence_name, entry_time, exit_time, duration_minutes) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		v.GeofenceID, v.GeofenceName, v.EntryTime, v.ExitTime, v.DurationMinutes,
	).Scan(&id)
	if err != nil {
		return 0, storeErr("insert visit", err)
	}
	return id, nil
}

func (r *VisitRepo) GetActive(ctx context.Context, geofenceID int64) (*domain.VisitRecord, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`SELECT `+visitColumns+` FROM visits WHERE geofence_id = ? AND exit_time IS NULL ORDER BY entry_time DESC LIMIT 1`),
		geofenceID,
	)

	v, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get active visit", err)
	}
	return v, nil
}

func (r *VisitRepo) UpdateExitTime(ctx context.Context, visitID int64, exitTime time.Time, durationMinutes int) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(
		`UPDATE visits SET exit_time = ?, duration_minutes = ? WHERE id = ? AND exit_time IS NULL`),
		exitTime, durationMinutes, visitID,
	)
	if err != nil {
		return storeErr("update exit time", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update exit time", err)
	}
	if n == 0 {
		return fmt.Errorf("update exit time: visit %d: %w", visitID, domain.ErrVisitNotOpen)
	}
	return nil
}

func (r *VisitRepo) List(ctx context.Context) ([]domain.VisitRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+visitColumns+` FROM visits ORDER BY entry_time DESC`)
	if err != nil {
		return nil, storeErr("list visits", err)
	}
	defer func() { _ = rows.Close() }()

	results := []domain.VisitRecord{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, storeErr("scan visit", err)
		}
		results = append(results, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list visits", err)
	}
	return results, nil
}

func scanVisit(s scanner) (*domain.VisitRecord, error) {
	var (
		v    domain.VisitRecord
		exit sql.NullTime
	)
	if err := s.Scan(&v.ID, &v.GeofenceID, &v.GeofenceName, &v.EntryTime, &exit, &v.DurationMinutes); err != nil {
		return nil, err
	}
	if exit.Valid {
		t := exit.Time
		v.ExitTime = &t
	}
	return &v, nil
}
