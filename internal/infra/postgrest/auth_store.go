package postgrest

import (
	"context"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/poa-mx/poa-insights-go/internal/domain"
)

// userRow maps the users table columns.
type userRow struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"password_hash"`
	CompanyID    string     `json:"company_id"`
	Role         string     `json:"role"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		PasswordHash: r.PasswordHash,
		CompanyID:    r.CompanyID,
		Role:         r.Role,
		LastLoginAt:  r.LastLoginAt,
		CreatedAt:    r.CreatedAt,
	}
}

// GetUserByEmail fetches a user by email.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetUserByEmail")
	defer span.End()

	path := "users?email=eq." + url.QueryEscape(email) + "&limit=1"

	var rows []userRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, c.storeErr("postgrest/users", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "user", ID: email}
	}

	user := rows[0].toDomain()
	return &user, nil
}

// GetUserByID fetches a user by ID.
func (c *Client) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "PostgREST.GetUserByID")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := "users?id=eq." + url.QueryEscape(userID) + "&limit=1"

	var rows []userRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, c.storeErr("postgrest/users", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}

	user := rows[0].toDomain()
	return &user, nil
}

// CreateUser inserts a new user row.
func (c *Client) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, span := tracer.Start(ctx, "PostgREST.CreateUser")
	defer span.End()

	data := map[string]any{
		"id":            user.ID,
		"email":         user.Email,
		"full_name":     user.FullName,
		"password_hash": user.PasswordHash,
		"role":          user.Role,
	}
	if user.CompanyID != "" {
		data["company_id"] = user.CompanyID
	}

	if _, err := c.doPost(ctx, "users", data); err != nil {
		return c.storeErr("postgrest/users", err)
	}
	return nil
}
