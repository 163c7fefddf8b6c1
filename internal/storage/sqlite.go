package storage

import (
	"context"
	"database/sql"
	"fmt"

	"geobot/internal/geoguesser"
	"geobot/internal/storage/migrations"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Open the sqlite database at path and bring its schema up to date
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("Opened location database")
	return db, nil
}

// Location pool kept in the locations table
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) LoadRandom(ctx context.Context, mode geoguesser.Mode, count int) ([]geoguesser.Location, error) {
	if count <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, initial_lat, initial_lng, road_lat, road_lng
		FROM locations
		WHERE mode = ?
		ORDER BY RANDOM()
		LIMIT ?
	`, mode.String(), count)
	if err != nil {
		return nil, fmt.Errorf("loading locations: %w", err)
	}
	defer rows.Close()

	locations := make([]geoguesser.Location, 0, count)
	for rows.Next() {
		var id string
		location := geoguesser.Location{Mode: mode}
		if err := rows.Scan(&id, &location.Initial.Lat, &location.Initial.Lng, &location.Road.Lat, &location.Road.Lng); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		if location.ID, err = uuid.Parse(id); err != nil {
			log.Warn().Str("id", id).Msg("Skipping stored location with invalid id")
			continue
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

func (s *SQLiteStore) SaveMany(ctx context.Context, mode geoguesser.Mode, locations []geoguesser.Location) error {
	if len(locations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO locations (id, mode, initial_lat, initial_lng, road_lat, road_lng)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, location := range locations {
		_, err := stmt.ExecContext(ctx, location.ID.String(), mode.String(),
			location.Initial.Lat, location.Initial.Lng, location.Road.Lat, location.Road.Lng)
		if err != nil {
			return fmt.Errorf("saving location %s: %w", location.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Count(ctx context.Context, mode geoguesser.Mode) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations WHERE mode = ?`, mode.String()).Scan(&count)
	return count, err
}

// Health check for the admin server
func (s *SQLiteStore) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
