package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"outagewatch/internal/types"
)

// SiteRepository provides data access for the sites table.
type SiteRepository struct {
	db DBTX
}

// NewSiteRepository creates a new SiteRepository.
func NewSiteRepository(db DBTX) *SiteRepository {
	return &SiteRepository{db: db}
}

const siteColumns = `id, name, latitude, longitude, contact_email, contact_phone, created_at`

func scanSite(row pgx.Row) (*types.Site, error) {
	var s types.Site
	var email, phone *string
	if err := row.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &email, &phone, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.ContactEmail = derefString(email)
	s.ContactPhone = derefString(phone)
	return &s, nil
}

// Create inserts a site and sets its ID and CreatedAt from the database.
func (r *SiteRepository) Create(ctx context.Context, site *types.Site) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO sites (name, latitude, longitude, contact_email, contact_phone, created_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		 RETURNING id, created_at`,
		site.Name,
		site.Latitude,
		site.Longitude,
		nilIfEmpty(site.ContactEmail),
		nilIfEmpty(site.ContactPhone),
		nilIfZeroTime(site.CreatedAt),
	).Scan(&site.ID, &site.CreatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create site", err)
	}
	return nil
}

// GetByID returns the site or a not_found_site error.
func (r *SiteRepository) GetByID(ctx context.Context, id int64) (*types.Site, error) {
	site, err := scanSite(r.db.QueryRow(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundSite, "site not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve site", err)
	}
	return site, nil
}

// List returns every site ordered by ID.
func (r *SiteRepository) List(ctx context.Context) ([]types.Site, error) {
	rows, err := r.db.Query(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY id`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list sites", err)
	}
	defer rows.Close()

	var sites []types.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan site", err)
		}
		sites = append(sites, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate sites", err)
	}
	return sites, nil
}
