package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
)

const userColumns = `id, email, full_name, password_hash, COALESCE(company_id::text, ''), role, last_login_at, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash,
		&u.CompanyID, &u.Role, &u.LastLoginAt, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetUserByEmail")
	defer span.End()

	row := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: email}
	}
	if err != nil {
		return nil, s.storeErr("postgres/users", err)
	}
	return user, nil
}

// GetUserByID fetches a user by ID.
func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetUserByID")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	row := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", userID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	if err != nil {
		return nil, s.storeErr("postgres/users", err)
	}
	return user, nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateUser")
	defer span.End()

	var companyID any
	if user.CompanyID != "" {
		companyID = user.CompanyID
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, full_name, password_hash, company_id, role)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.FullName, user.PasswordHash, companyID, user.Role,
	)
	if err != nil {
		return s.storeErr("postgres/users", err)
	}
	return nil
}
