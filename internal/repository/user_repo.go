package repository

import (
	"context"
	"errors"
	"fmt"

	"goodfit/internal/model"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, phone, role, created_at, profile_image, subscription_id`

// UserRepository defines operations for application user records
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, currentID string, user *model.User) error
	List(ctx context.Context) ([]model.User, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

// scanUser is the single mapping from a users row to model.User.
func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &role, &u.CreatedAt, &u.ProfileImage, &u.SubscriptionID)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return u, nil
}

// Create inserts a new user; created_at is assigned by the database
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	sql := `INSERT INTO users (id, name, email, phone, role, profile_image, subscription_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING ` + userColumns
	created, err := scanUser(r.db.QueryRow(ctx, sql,
		user.ID, user.Name, user.Email, user.Phone, string(user.Role), user.ProfileImage, user.SubscriptionID))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	*user = *created
	return nil
}

// FindByID retrieves a user by id; (nil, nil) when absent
func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail retrieves the oldest user with the given email; (nil, nil) when absent
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) ORDER BY created_at LIMIT 1`
	user, err := scanUser(r.db.QueryRow(ctx, sql, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Update rewrites the row identified by currentID. user.ID may differ from
// currentID, which re-points the record to a new identity.
func (r *userRepository) Update(ctx context.Context, currentID string, user *model.User) error {
	sql := `UPDATE users
            SET id = $1, name = $2, email = $3, phone = $4, role = $5, profile_image = $6, subscription_id = $7
            WHERE id = $8 RETURNING ` + userColumns
	updated, err := scanUser(r.db.QueryRow(ctx, sql,
		user.ID, user.Name, user.Email, user.Phone, string(user.Role), user.ProfileImage, user.SubscriptionID, currentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	*user = *updated
	return nil
}

// List returns all users, newest first
func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	users, err := collect(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user rows: %w", err)
	}
	return users, nil
}
