package repository

import (
	"context"
	"database/sql"
	"errors"

	"rentacar/internal/db"
)

type AdminAuthRepository struct {
	DB *sql.DB
}

func NewAdminAuthRepository(database *sql.DB) *AdminAuthRepository {
	return &AdminAuthRepository{DB: database}
}

func (r *AdminAuthRepository) GetByEmail(ctx context.Context, email string) (*db.AdminUser, error) {
	var admin db.AdminUser
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM admin_users WHERE email = $1`, email).Scan(
		&admin.ID, &admin.Email, &admin.PasswordHash, &admin.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

func (r *AdminAuthRepository) Create(ctx context.Context, email, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO admin_users (email, password_hash) VALUES ($1, $2)`, email, passwordHash)
	return err
}
