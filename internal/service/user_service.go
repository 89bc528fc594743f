package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"goodfit/internal/model"
	"goodfit/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserService applies row rules to application user records. A row is
// visible to its owner, to a caller whose verified email matches it, and to admins.
type UserService interface {
	GetUser(ctx context.Context, caller model.Principal, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, caller model.Principal, email string) (*model.User, error)
	CreateUser(ctx context.Context, caller model.Principal, user *model.User) (*model.User, error)
	UpdateUser(ctx context.Context, caller model.Principal, id string, patch model.UserPatch) (*model.User, error)
	ListUsers(ctx context.Context, caller model.Principal) ([]model.User, error)
}

type userService struct {
	repo              repository.UserRepository
	initialAdminEmail string
}

// NewUserService creates a new UserService. A user created with
// initialAdminEmail becomes ADMIN.
func NewUserService(repo repository.UserRepository, initialAdminEmail string) UserService {
	return &userService{repo: repo, initialAdminEmail: strings.ToLower(initialAdminEmail)}
}

func sameEmail(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

func (s *userService) visible(caller model.Principal, u *model.User) bool {
	return caller.IsAdmin() || u.ID == caller.UserID || sameEmail(caller.Email, u.UserEmail())
}

// GetUser returns the user or ErrUserNotFound when absent or hidden
func (s *userService) GetUser(ctx context.Context, caller model.Principal, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.visible(caller, user) {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// FindUserByEmail returns the oldest visible user with the email
func (s *userService) FindUserByEmail(ctx context.Context, caller model.Principal, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrInvalidInput
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.visible(caller, user) {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateUser inserts the caller's own record. The role is assigned here and
// never taken from the request, except when an admin creates the row.
func (s *userService) CreateUser(ctx context.Context, caller model.Principal, user *model.User) (*model.User, error) {
	if user.ID == "" {
		user.ID = caller.UserID
	}
	if !caller.IsAdmin() {
		if user.ID != caller.UserID {
			return nil, ErrForbidden
		}
		user.Role = model.RoleUser
	}
	if !user.Role.Valid() {
		user.Role = model.RoleUser
	}
	if s.initialAdminEmail != "" && sameEmail(s.initialAdminEmail, user.UserEmail()) {
		user.Role = model.RoleAdmin
		slog.InfoContext(ctx, "initial_admin_assigned", "user_id", user.ID)
	}

	if err := s.repo.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user in repository: %w", err)
	}
	return user, nil
}

// UpdateUser patches the record stored under id. Non-admins may only move a
// record onto their own id and may not change its role.
func (s *userService) UpdateUser(ctx context.Context, caller model.Principal, id string, patch model.UserPatch) (*model.User, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil || !s.visible(caller, existing) {
		return nil, ErrUserNotFound
	}

	updated := *existing
	patch.Apply(&updated)
	if !caller.IsAdmin() {
		if updated.ID != caller.UserID || updated.Role != existing.Role {
			return nil, ErrForbidden
		}
	}
	if !updated.Role.Valid() {
		return nil, ErrInvalidInput
	}

	if err := s.repo.Update(ctx, id, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to update user in repository: %w", err)
	}
	if updated.ID != id {
		slog.InfoContext(ctx, "user_repointed", "from", id, "to", updated.ID)
	}
	return &updated, nil
}

// ListUsers returns every user; admins only
func (s *userService) ListUsers(ctx context.Context, caller model.Principal) ([]model.User, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.repo.List(ctx)
}
