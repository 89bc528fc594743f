package otp

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"goodfit/internal/apperr"
	"goodfit/internal/backend"
	"goodfit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	requested []model.Contact
	verified  []model.Contact
	tokens    []string

	requestErr error
	verifyErr  error
	session    *model.AuthSession
}

func (f *fakeBackend) RequestOneTimeCode(_ context.Context, c model.Contact) error {
	f.requested = append(f.requested, c)
	return f.requestErr
}

func (f *fakeBackend) VerifyOneTimeCode(_ context.Context, c model.Contact, token string) (*model.AuthSession, error) {
	f.verified = append(f.verified, c)
	f.tokens = append(f.tokens, token)
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.session, nil
}

func TestRequestCode_RoutesByContactKind(t *testing.T) {
	fb := &fakeBackend{}
	g := NewGateway(fb)

	require.NoError(t, g.RequestCode(context.Background(), " User@Example.com "))
	require.NoError(t, g.RequestCode(context.Background(), "8 (999) 123-45-67"))

	assert.Equal(t, []model.Contact{
		{Email: "user@example.com"},
		{Phone: "+79991234567"},
	}, fb.requested)
}

func TestRequestCode_DeliveryErrorKeepsBackendMessage(t *testing.T) {
	fb := &fakeBackend{requestErr: &backend.APIError{Status: http.StatusTooManyRequests, Message: "Слишком много запросов"}}
	g := NewGateway(fb)

	err := g.RequestCode(context.Background(), "user@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDelivery)
	assert.ErrorIs(t, err, backend.ErrRateLimited)
	assert.Equal(t, "Слишком много запросов", err.Error())
	assert.Equal(t, "Слишком много запросов", apperr.UserMessage(err))
}

func TestVerifyCode(t *testing.T) {
	email := "user@example.com"

	t.Run("returns the confirmed identity", func(t *testing.T) {
		fb := &fakeBackend{session: &model.AuthSession{AccessToken: "tok", User: model.Identity{ID: "id-1", Email: &email}}}
		g := NewGateway(fb)

		identity, err := g.VerifyCode(context.Background(), email, " 123456 ")
		require.NoError(t, err)
		assert.Equal(t, "id-1", identity.ID)
		assert.Equal(t, []string{"123456"}, fb.tokens)
		assert.Equal(t, []model.Contact{{Email: email}}, fb.verified)
	})

	t.Run("rejected code", func(t *testing.T) {
		fb := &fakeBackend{verifyErr: &backend.APIError{Status: http.StatusUnauthorized, Message: "invalid or expired code"}}
		_, err := NewGateway(fb).VerifyCode(context.Background(), email, "000000")
		assert.ErrorIs(t, err, apperr.ErrInvalidCode)
		assert.NotErrorIs(t, err, apperr.ErrVerification)
	})

	t.Run("backend fault", func(t *testing.T) {
		fb := &fakeBackend{verifyErr: &backend.APIError{Status: http.StatusInternalServerError}}
		_, err := NewGateway(fb).VerifyCode(context.Background(), email, "000000")
		assert.ErrorIs(t, err, apperr.ErrVerification)
	})

	t.Run("transport fault", func(t *testing.T) {
		fb := &fakeBackend{verifyErr: errors.Join(backend.ErrTransport, errors.New("dial tcp"))}
		_, err := NewGateway(fb).VerifyCode(context.Background(), email, "000000")
		assert.ErrorIs(t, err, apperr.ErrVerification)
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "code_requested", CodeRequested.String())
	assert.Equal(t, "verified", Verified.String())
	assert.Equal(t, "failed", Failed.String())
}
