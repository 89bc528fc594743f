// Package resolver maps a verified backend identity to the application user
// record, creating or repairing the record as needed.
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"goodfit/internal/apperr"
	"goodfit/internal/model"
)

// Backend is the users-table access the resolver needs. Lookups return
// nil, nil when no row matches.
type Backend interface {
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	InsertUser(ctx context.Context, user *model.User) (*model.User, error)
	UpdateUser(ctx context.Context, currentID string, patch model.UserPatch) (*model.User, error)
}

// Hints are profile fields known at sign-in time. Blank fields are ignored.
type Hints struct {
	Name  string
	Phone string
	Email string
}

type Resolver struct {
	backend Backend
}

func New(b Backend) *Resolver {
	return &Resolver{backend: b}
}

// Resolve returns the user record for backendUserID. The first rule that
// matches wins:
//  1. a record with that id, backfilled from hints;
//  2. a record with hints.Email, re-pointed to backendUserID and backfilled;
//  3. a new record.
//
// Populated fields are never overwritten, so repeated calls with the same
// arguments leave the stored record unchanged.
func (r *Resolver) Resolve(ctx context.Context, backendUserID string, hints Hints) (*model.User, error) {
	hints = hints.trimmed()

	user, err := r.backend.FindUserByID(ctx, backendUserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUserResolution, err)
	}
	if user != nil {
		return r.persist(ctx, user, backfill(user, hints, ""))
	}

	if hints.Email != "" {
		user, err = r.backend.FindUserByEmail(ctx, hints.Email)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrUserResolution, err)
		}
		if user != nil {
			if user.ID != backendUserID {
				slog.InfoContext(ctx, "user_record_repointed", "from", user.ID, "to", backendUserID)
			}
			return r.persist(ctx, user, backfill(user, hints, backendUserID))
		}
	}

	created, err := r.backend.InsertUser(ctx, &model.User{
		ID:    backendUserID,
		Name:  hints.Name,
		Email: model.StringPtr(hints.Email),
		Phone: model.StringPtr(hints.Phone),
		Role:  model.RoleUser,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUserResolution, err)
	}
	slog.InfoContext(ctx, "user_record_created", "user_id", created.ID)
	return created, nil
}

func (r *Resolver) persist(ctx context.Context, user *model.User, patch *model.UserPatch) (*model.User, error) {
	if patch == nil {
		return user, nil
	}
	updated, err := r.backend.UpdateUser(ctx, user.ID, *patch)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUserResolution, err)
	}
	return updated, nil
}

// backfill builds the patch that fills blank fields of user from hints and
// moves the record to newID when it differs. It returns nil when nothing changes.
func backfill(user *model.User, hints Hints, newID string) *model.UserPatch {
	var patch model.UserPatch
	changed := false
	if newID != "" && newID != user.ID {
		patch.ID = &newID
		changed = true
	}
	if user.Name == "" && hints.Name != "" {
		patch.Name = &hints.Name
		changed = true
	}
	if user.UserEmail() == "" && hints.Email != "" {
		patch.Email = &hints.Email
		changed = true
	}
	if user.UserPhone() == "" && hints.Phone != "" {
		patch.Phone = &hints.Phone
		changed = true
	}
	if !changed {
		return nil
	}
	return &patch
}

func (h Hints) trimmed() Hints {
	return Hints{
		Name:  strings.TrimSpace(h.Name),
		Phone: strings.TrimSpace(h.Phone),
		Email: strings.ToLower(strings.TrimSpace(h.Email)),
	}
}
