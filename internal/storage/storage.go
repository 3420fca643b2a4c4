package storage

import (
	"context"

	"ipdash/internal/storage/models"
)

// Storage defines the interface for local client state
type Storage interface {
	// Settings operations
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetAllSettings(ctx context.Context) (map[string]string, error)
	ListSettings(ctx context.Context) ([]*models.Setting, error)

	// Best IP history
	RecordBestIP(ctx context.Context, ip string) (recorded bool, err error)
	LatestBestIP(ctx context.Context) (*models.BestIPObservation, error)
	BestIPHistory(ctx context.Context, limit int) ([]*models.BestIPObservation, error)

	// Close closes the storage connection
	Close() error
}
