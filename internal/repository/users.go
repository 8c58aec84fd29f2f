package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmalink/m/domain"
)

const userColumns = `id, email, password_hash, role, name, phone, created_at`

type Users struct {
	db *sqlx.DB
}

func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

var _ UserRepository = (*Users)(nil)

// Create stores u with a lower-cased email. It returns ErrConflict when the
// email is taken.
func (r *Users) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	err := conn(ctx, r.db).QueryRowxContext(ctx,
		`INSERT INTO users (email, password_hash, role, name, phone, created_at) VALUES ($1, $2, $3, $4, $5, $6)
                ON CONFLICT (email) DO NOTHING RETURNING id`,
		u.Email, u.PasswordHash, string(u.Role), u.Name, u.Phone, u.CreatedAt).Scan(&u.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &u,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (r *Users) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}
