package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"outagewatch/internal/types"
)

// OutageRepository provides data access for the outages table.
type OutageRepository struct {
	db DBTX
}

// NewOutageRepository creates a new OutageRepository.
func NewOutageRepository(db DBTX) *OutageRepository {
	return &OutageRepository{db: db}
}

const outageColumns = `id, site_id, start_time, end_time, active, cause`

func scanOutage(row pgx.Row) (types.OutageEvent, error) {
	var o types.OutageEvent
	var cause *string
	err := row.Scan(&o.ID, &o.SiteID, &o.StartTime, &o.EndTime, &o.Active, &cause)
	o.Cause = derefString(cause)
	return o, err
}

// Create records a new active outage and sets its ID. A zero StartTime is
// replaced by the database clock.
func (r *OutageRepository) Create(ctx context.Context, o *types.OutageEvent) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO outages (site_id, start_time, active, cause)
		 VALUES ($1, COALESCE($2, NOW()), TRUE, $3)
		 RETURNING id, start_time`,
		o.SiteID,
		nilIfZeroTime(o.StartTime),
		nilIfEmpty(o.Cause),
	).Scan(&o.ID, &o.StartTime)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create outage", err)
	}
	o.Active = true
	return nil
}

// Resolve closes an active outage at endTime. Resolving an unknown outage
// returns not_found_outage; resolving one that is already closed returns
// conflict_outage_resolved.
func (r *OutageRepository) Resolve(ctx context.Context, id int64, endTime time.Time) (*types.OutageEvent, error) {
	o, err := scanOutage(r.db.QueryRow(ctx,
		`UPDATE outages SET end_time = GREATEST($2, start_time), active = FALSE
		 WHERE id = $1 AND active
		 RETURNING `+outageColumns,
		id,
		endTime,
	))
	if err == nil {
		return &o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to resolve outage", err)
	}

	var active bool
	err = r.db.QueryRow(ctx, `SELECT active FROM outages WHERE id = $1`, id).Scan(&active)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, types.NewAppError(types.ErrCodeNotFoundOutage, "outage not found", nil)
	case err != nil:
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to look up outage", err)
	}
	return nil, types.NewAppError(types.ErrCodeConflictOutageResolved, "outage already resolved", nil)
}

// ListAll returns every outage ordered by start time.
func (r *OutageRepository) ListAll(ctx context.Context) ([]types.OutageEvent, error) {
	return r.list(ctx, `SELECT `+outageColumns+` FROM outages ORDER BY start_time, id`)
}

// ListBySite returns a site's outages ordered by start time.
func (r *OutageRepository) ListBySite(ctx context.Context, siteID int64) ([]types.OutageEvent, error) {
	return r.list(ctx,
		`SELECT `+outageColumns+` FROM outages WHERE site_id = $1 ORDER BY start_time, id`,
		siteID,
	)
}

func (r *OutageRepository) list(ctx context.Context, sql string, args ...any) ([]types.OutageEvent, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list outages", err)
	}
	defer rows.Close()

	var out []types.OutageEvent
	for rows.Next() {
		o, err := scanOutage(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan outage", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate outages", err)
	}
	return out, nil
}
