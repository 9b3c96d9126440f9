package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"outagewatch/internal/types"
)

// WeatherRepository stores weather observations. Rows are append-only.
type WeatherRepository struct {
	db DBTX
}

// NewWeatherRepository creates a new WeatherRepository.
func NewWeatherRepository(db DBTX) *WeatherRepository {
	return &WeatherRepository{db: db}
}

const weatherColumns = `id, observed_at, latitude, longitude, temperature, humidity,
	wind_speed, precipitation_1h, cloud_cover, condition, description`

func scanObservation(row pgx.Row) (types.WeatherObservation, error) {
	var o types.WeatherObservation
	var condition, description *string
	err := row.Scan(
		&o.ID,
		&o.Timestamp,
		&o.Latitude,
		&o.Longitude,
		&o.Temperature,
		&o.Humidity,
		&o.WindSpeed,
		&o.PrecipitationLastHour,
		&o.CloudCover,
		&condition,
		&description,
	)
	o.Condition = derefString(condition)
	o.Description = derefString(description)
	return o, err
}

// Insert records an observation and sets its ID.
func (r *WeatherRepository) Insert(ctx context.Context, obs *types.WeatherObservation) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO weather_observations (observed_at, latitude, longitude, temperature,
		 humidity, wind_speed, precipitation_1h, cloud_cover, condition, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		obs.Timestamp,
		obs.Latitude,
		obs.Longitude,
		obs.Temperature,
		obs.Humidity,
		obs.WindSpeed,
		obs.PrecipitationLastHour,
		obs.CloudCover,
		nilIfEmpty(obs.Condition),
		nilIfEmpty(obs.Description),
	).Scan(&obs.ID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert weather observation", err)
	}
	return nil
}

// ListAll returns the full observation history in time order.
func (r *WeatherRepository) ListAll(ctx context.Context) ([]types.WeatherObservation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+weatherColumns+` FROM weather_observations ORDER BY observed_at, id`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list weather observations", err)
	}
	defer rows.Close()

	var out []types.WeatherObservation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan weather observation", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate weather observations", err)
	}
	return out, nil
}
