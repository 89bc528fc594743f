package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"goodfit/internal/apperr"
	"goodfit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryUsers mimics the users table: lookups by id and by oldest email.
type memoryUsers struct {
	users   []*model.User
	inserts int
	updates int
	failOn  string
}

func (m *memoryUsers) fail(op string) error {
	if m.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (m *memoryUsers) FindUserByID(_ context.Context, id string) (*model.User, error) {
	if err := m.fail("find_id"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryUsers) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	if err := m.fail("find_email"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.UserEmail() == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryUsers) InsertUser(_ context.Context, user *model.User) (*model.User, error) {
	if err := m.fail("insert"); err != nil {
		return nil, err
	}
	m.inserts++
	cp := *user
	cp.CreatedAt = time.Now()
	m.users = append(m.users, &cp)
	out := cp
	return &out, nil
}

func (m *memoryUsers) UpdateUser(_ context.Context, currentID string, patch model.UserPatch) (*model.User, error) {
	if err := m.fail("update"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.ID == currentID {
			m.updates++
			patch.Apply(u)
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.New("not found")
}

func ptr(s string) *string { return &s }

func TestResolve_CreatesNewUser(t *testing.T) {
	users := &memoryUsers{}
	r := New(users)

	user, err := r.Resolve(context.Background(), "id-1", Hints{Name: "Анна", Email: "User@Example.com"})
	require.NoError(t, err)

	assert.Equal(t, "id-1", user.ID)
	assert.Equal(t, "Анна", user.Name)
	assert.Equal(t, "user@example.com", user.UserEmail())
	assert.Nil(t, user.Phone)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.Equal(t, 1, users.inserts)
}

func TestResolve_BackfillsExistingByID(t *testing.T) {
	users := &memoryUsers{users: []*model.User{
		{ID: "id-1", Name: "Анна", Email: ptr("anna@example.com"), Role: model.RolePartner},
	}}
	r := New(users)

	user, err := r.Resolve(context.Background(), "id-1", Hints{Name: "Другое имя", Phone: "+79991234567"})
	require.NoError(t, err)

	assert.Equal(t, "Анна", user.Name, "populated name kept")
	assert.Equal(t, "+79991234567", user.UserPhone())
	assert.Equal(t, "anna@example.com", user.UserEmail())
	assert.Equal(t, model.RolePartner, user.Role)
	assert.Equal(t, 1, users.updates)
}

func TestResolve_NothingToBackfillSkipsWrite(t *testing.T) {
	users := &memoryUsers{users: []*model.User{
		{ID: "id-1", Name: "Анна", Email: ptr("anna@example.com"), Role: model.RoleUser},
	}}
	r := New(users)

	_, err := r.Resolve(context.Background(), "id-1", Hints{Email: "anna@example.com"})
	require.NoError(t, err)
	assert.Zero(t, users.updates)
}

func TestResolve_RepointsOrphanByEmail(t *testing.T) {
	users := &memoryUsers{users: []*model.User{
		{ID: "old-id", Email: ptr("anna@example.com"), Role: model.RoleAdmin},
	}}
	r := New(users)

	user, err := r.Resolve(context.Background(), "new-id", Hints{Name: "Анна", Email: "anna@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "new-id", user.ID)
	assert.Equal(t, "Анна", user.Name)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.Zero(t, users.inserts)
	require.Len(t, users.users, 1)
	assert.Equal(t, "new-id", users.users[0].ID)
}

func TestResolve_PhoneOnlyCreates(t *testing.T) {
	users := &memoryUsers{users: []*model.User{
		{ID: "other", Phone: ptr("+79991234567")},
	}}
	r := New(users)

	user, err := r.Resolve(context.Background(), "id-2", Hints{Phone: "+79991234567"})
	require.NoError(t, err)
	assert.Equal(t, "id-2", user.ID)
	assert.Equal(t, 1, users.inserts)
}

func TestResolve_IsIdempotent(t *testing.T) {
	users := &memoryUsers{}
	r := New(users)
	hints := Hints{Name: "Анна", Email: "anna@example.com", Phone: "+79991234567"}

	first, err := r.Resolve(context.Background(), "id-1", hints)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "id-1", hints)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, users.users, 1)
	assert.Zero(t, users.updates)

	// Blank hints never erase populated fields.
	third, err := r.Resolve(context.Background(), "id-1", Hints{})
	require.NoError(t, err)
	assert.Equal(t, "Анна", third.Name)
	assert.Equal(t, "anna@example.com", third.UserEmail())
	assert.Equal(t, "+79991234567", third.UserPhone())
	assert.Len(t, users.users, 1)
}

func TestResolve_BackendFailures(t *testing.T) {
	for _, op := range []string{"find_id", "find_email", "insert"} {
		t.Run(op, func(t *testing.T) {
			users := &memoryUsers{failOn: op}
			_, err := New(users).Resolve(context.Background(), "id-1", Hints{Email: "a@example.com"})
			assert.ErrorIs(t, err, apperr.ErrUserResolution)
		})
	}

	t.Run("update", func(t *testing.T) {
		users := &memoryUsers{failOn: "update", users: []*model.User{{ID: "id-1"}}}
		_, err := New(users).Resolve(context.Background(), "id-1", Hints{Name: "Анна"})
		assert.ErrorIs(t, err, apperr.ErrUserResolution)
	})
}
