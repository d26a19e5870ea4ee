package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"foodDelivery/models"
)

type AdminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create inserts a new admin with an already hashed password.
func (r *AdminRepository) Create(ctx context.Context, username, passwordHash, name string) (*models.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	a := &models.Admin{Username: username, PasswordHash: passwordHash, Name: name, CreatedAt: time.Now().UTC()}
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
INSERT INTO admins (username, password_hash, name, created_at) VALUES (?,?,?,?) RETURNING id`),
		a.Username, a.PasswordHash, a.Name, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return nil, wrapUnique(err, "username")
	}
	return a, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id int64) (*models.Admin, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, name, email, created_at FROM admins WHERE id = ?`, id)
}

func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, name, email, created_at FROM admins WHERE LOWER(username) = LOWER(?)`, username)
}

func (r *AdminRepository) getOne(ctx context.Context, query string, args ...any) (*models.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var a models.Admin
	if err := r.db.GetContext(ctx, &a, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AdminRepository) UpdateProfile(ctx context.Context, id int64, name string, email *string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE admins SET name = ?, email = ? WHERE id = ?`), name, email, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AdminRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE admins SET password_hash = ? WHERE id = ?`), hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM admins`)
	return n, err
}
