package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/rbac"
)

var _ model.UserStore = (*UserRepository)(nil)

// UserRepository reads user records owned by the identity system.
type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// GetByID returns the user with id. Roles are normalized; a role outside the hierarchy is
// kept as stored and never satisfies a role check.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var (
		user model.User
		role string
	)
	query := `SELECT id, email, username, role, status, auth_provider
			  FROM users WHERE id = $1 AND deleted_at IS NULL`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Username, &role, &user.Status, &user.AuthProvider,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", classify(err))
	}

	user.Role = model.Role(role)
	if parsed, err := rbac.ParseRole(role); err == nil {
		user.Role = parsed
	}

	return user, nil
}
