package repository

import (
	"database/sql"
	"fmt"
)

// CatalogRepository persists the last-known data directory listing so new
// files can be detected across checks and restarts
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// KnownFiles returns the stored listing, sorted by name
func (r *CatalogRepository) KnownFiles() ([]string, error) {
	rows, err := r.db.Query("SELECT name FROM catalog_files ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog files: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan catalog file name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReplaceFiles replaces the stored listing wholesale
func (r *CatalogRepository) ReplaceFiles(names []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin listing update: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM catalog_files"); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear catalog files: %w", err)
	}
	for _, name := range names {
		if _, err := tx.Exec("INSERT INTO catalog_files (name) VALUES (?)", name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert catalog file %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit listing update: %w", err)
	}
	return nil
}
