package repository

import (
	"database/sql"
	"fmt"
)

// Keys of the persisted view state
const (
	KeySelectedUID       = "selected_uid"
	KeyDisplayOptions    = "display_options"
	KeyThreshold         = "threshold"
	KeyCurrentIndex      = "current_index"
	KeyTrajectoryVisible = "trajectory_visible"
	KeyViewport          = "viewport"
	KeyAutoReloadAt      = "auto_reload_at"
	KeyResetRequested    = "reset_requested"
)

// SettingsRepository handles database operations for persisted view state
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored value for a key; the second result is false when
// the key is absent
func (r *SettingsRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value for a key, replacing any previous value
func (r *SettingsRepository) Set(key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// Delete removes a key; deleting an absent key is not an error
func (r *SettingsRepository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// PurgeAll removes every stored setting
func (r *SettingsRepository) PurgeAll() error {
	if _, err := r.db.Exec("DELETE FROM settings"); err != nil {
		return fmt.Errorf("failed to purge settings: %w", err)
	}
	return nil
}
