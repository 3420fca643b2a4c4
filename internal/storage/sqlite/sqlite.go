package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ipdash/internal/storage/models"
	pkgerrors "ipdash/pkg/errors"
)

// DB implements the Storage interface using SQLite
type DB struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	storage := &DB{db: db}

	// Run migrations
	if err := runMigrations(storage); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// ─── Settings operations ────────────────────────────────────────────────────

func (d *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", &pkgerrors.SettingError{Key: key, Err: pkgerrors.ErrSettingNotFound}
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (d *DB) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := d.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

func (d *DB) GetAllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (d *DB) ListSettings(ctx context.Context) ([]*models.Setting, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT key, value, updated_at FROM settings ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []*models.Setting
	for rows.Next() {
		s := &models.Setting{}
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// ─── Best IP history ────────────────────────────────────────────────────────

// RecordBestIP appends ip unless it equals the latest observation.
func (d *DB) RecordBestIP(ctx context.Context, ip string) (bool, error) {
	query := `
		INSERT INTO best_ip_history (ip)
		SELECT ?
		WHERE COALESCE((SELECT ip FROM best_ip_history ORDER BY id DESC LIMIT 1), '') != ?
	`
	result, err := d.db.ExecContext(ctx, query, ip, ip)
	if err != nil {
		return false, fmt.Errorf("failed to record best ip: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) LatestBestIP(ctx context.Context) (*models.BestIPObservation, error) {
	query := `SELECT id, ip, observed_at FROM best_ip_history ORDER BY id DESC LIMIT 1`
	obs := &models.BestIPObservation{}
	err := d.db.QueryRowContext(ctx, query).Scan(&obs.ID, &obs.IP, &obs.ObservedAt)
	if err == sql.ErrNoRows {
		return nil, pkgerrors.ErrNoHistory
	}
	if err != nil {
		return nil, err
	}
	return obs, nil
}

func (d *DB) BestIPHistory(ctx context.Context, limit int) ([]*models.BestIPObservation, error) {
	query := `
		SELECT id, ip, observed_at
		FROM best_ip_history
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*models.BestIPObservation
	for rows.Next() {
		obs := &models.BestIPObservation{}
		if err := rows.Scan(&obs.ID, &obs.IP, &obs.ObservedAt); err != nil {
			return nil, err
		}
		history = append(history, obs)
	}
	return history, rows.Err()
}
