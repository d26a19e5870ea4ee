package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"foodDelivery/models"
)

// SettingsRepository stores the key/value UI settings.
type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) List(ctx context.Context) ([]models.UISetting, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	out := []models.UISetting{}
	if err := r.db.SelectContext(ctx, &out, `SELECT setting_key, value, description, updated_at FROM ui_settings ORDER BY setting_key`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.UISetting, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var s models.UISetting
	err := r.db.GetContext(ctx, &s, r.db.Rebind(`SELECT setting_key, value, description, updated_at FROM ui_settings WHERE setting_key = ?`), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Upsert creates or replaces a setting. An empty description keeps the stored one.
func (r *SettingsRepository) Upsert(ctx context.Context, key, value, description string) (*models.UISetting, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
INSERT INTO ui_settings (setting_key, value, description, updated_at) VALUES (?,?,?,?)
ON CONFLICT (setting_key) DO UPDATE SET
  value = excluded.value,
  description = COALESCE(NULLIF(excluded.description, ''), ui_settings.description),
  updated_at = excluded.updated_at`), key, value, description, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, key)
}
