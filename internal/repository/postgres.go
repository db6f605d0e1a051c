package repository

import (
	"context"
	"fmt"

	"zenrin-geocoding/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository writes geocode results to PostgreSQL. It is an output sink only;
// nothing is read back to answer lookups.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the results table. It needs the PostGIS extension.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	sql := `
	CREATE EXTENSION IF NOT EXISTS postgis;

	CREATE TABLE IF NOT EXISTS geocode_results (
		id BIGSERIAL PRIMARY KEY,
		address TEXT,
		match_level VARCHAR(16),
		postal_code VARCHAR(16),
		prefecture VARCHAR(255),
		municipality VARCHAR(255),
		district VARCHAR(255),
		building_id VARCHAR(64),
		longitude DOUBLE PRECISION NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		geom GEOGRAPHY(POINT, 4326) GENERATED ALWAYS AS (
			ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)::geography
		) STORED,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS geocode_results_geom_idx ON geocode_results USING GIST (geom);
	`
	if _, err := r.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}
	return nil
}

// SaveResults bulk-inserts results and returns the number of rows written.
func (r *Repository) SaveResults(ctx context.Context, results []models.GeocodeResult) (int64, error) {
	n, err := r.db.CopyFrom(
		ctx,
		pgx.Identifier{"geocode_results"},
		[]string{"address", "match_level", "postal_code", "prefecture", "municipality", "district", "building_id", "longitude", "latitude"},
		pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
			res := results[i]
			return []any{
				res.Address,
				string(res.MatchLevel),
				res.PostalCode,
				res.Prefecture,
				res.Municipality,
				res.District,
				res.BuildingID,
				res.Longitude,
				res.Latitude,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to copy results: %w", err)
	}
	return n, nil
}

// CountResults returns how many results are stored.
func (r *Repository) CountResults(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM geocode_results").Scan(&count); err != nil {
		return 0, fmt.Errorf("repository: failed to count results: %w", err)
	}
	return count, nil
}
