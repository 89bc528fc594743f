package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"goodfit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	event   model.AuthEvent
	session *model.AuthSession
}

type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (l *eventLog) listen(event model.AuthEvent, session *model.AuthSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{event, session})
}

func (l *eventLog) names() []model.AuthEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.AuthEvent, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.event)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testSession(token string) *model.AuthSession {
	email := "user@example.com"
	return &model.AuthSession{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(time.Hour).UTC(),
		User:        model.Identity{ID: "identity-1", Email: &email},
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 2*time.Second, opts...)
	require.NoError(t, err)
	return c
}

func TestAPIError_MapsStatusToSentinel(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"error": "backend says no"})
			})
			err := c.RequestOneTimeCode(context.Background(), model.Contact{Email: "a@b.c"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, "backend says no", Message(err))
		})
	}
}

func TestMessage_NonAPIError(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
}

func TestTransportFailure(t *testing.T) {
	c, err := New("http://127.0.0.1:1", 500*time.Millisecond)
	require.NoError(t, err)

	_, err = c.ListGyms(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestVerifyOneTimeCode_StoresSessionAndEmitsSignedIn(t *testing.T) {
	var got model.VerifyRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/verify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, testSession("tok-1"))
	})
	log := &eventLog{}
	unsubscribe := c.OnAuthStateChange(log.listen)
	defer unsubscribe()

	session, err := c.VerifyOneTimeCode(context.Background(), model.Contact{Phone: "+79991234567"}, "123456")
	require.NoError(t, err)

	assert.Equal(t, "tok-1", session.AccessToken)
	assert.Equal(t, model.OTPTypeSMS, got.Type)
	assert.Equal(t, "+79991234567", got.Phone)
	assert.Equal(t, "tok-1", c.Session().AccessToken)
	assert.Equal(t, []model.AuthEvent{model.AuthEventInitialSession, model.AuthEventSignedIn}, log.names())
}

func TestOnAuthStateChange_Unsubscribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, testSession("tok"))
	})
	log := &eventLog{}
	unsubscribe := c.OnAuthStateChange(log.listen)
	unsubscribe()

	_, err := c.VerifyOneTimeCode(context.Background(), model.Contact{Email: "a@b.c"}, "1")
	require.NoError(t, err)
	assert.Equal(t, []model.AuthEvent{model.AuthEventInitialSession}, log.names())
}

func TestGetSession_NoTokenSkipsNetwork(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusOK, testSession("tok"))
	})

	session, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Zero(t, calls)
}

func TestGetSession_RefreshesAfterUnauthorized(t *testing.T) {
	storage := &MemoryStorage{}
	require.NoError(t, storage.SaveSession(testSession("old")))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/session":
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
		case "/auth/v1/token":
			assert.Equal(t, "Bearer old", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, testSession("new"))
		}
	}, WithSessionStorage(storage))
	log := &eventLog{}
	c.OnAuthStateChange(log.listen)

	session, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "new", session.AccessToken)

	stored, _ := storage.LoadSession()
	assert.Equal(t, "new", stored.AccessToken)
	assert.Contains(t, log.names(), model.AuthEventTokenRefreshed)
}

func TestGetSession_DropsSessionUnknownToBackend(t *testing.T) {
	storage := &MemoryStorage{}
	require.NoError(t, storage.SaveSession(testSession("gone")))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session not found"})
	}, WithSessionStorage(storage))

	session, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Nil(t, c.Session())

	stored, _ := storage.LoadSession()
	assert.Nil(t, stored)
}

func TestGetSession_ServerFaultKeepsSession(t *testing.T) {
	storage := &MemoryStorage{}
	require.NoError(t, storage.SaveSession(testSession("tok")))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db down"})
	}, WithSessionStorage(storage))

	_, err := c.GetSession(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotNil(t, c.Session())
}

func TestSignOut_ClearsLocalStateOnFailure(t *testing.T) {
	storage := &MemoryStorage{}
	require.NoError(t, storage.SaveSession(testSession("tok")))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "db down"})
	}, WithSessionStorage(storage))
	log := &eventLog{}
	c.OnAuthStateChange(log.listen)

	err := c.SignOut(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, c.Session())
	assert.Equal(t, []model.AuthEvent{model.AuthEventInitialSession, model.AuthEventSignedOut}, log.names())
}

func TestSignOut_UnauthorizedIsNotAnError(t *testing.T) {
	storage := &MemoryStorage{}
	require.NoError(t, storage.SaveSession(testSession("tok")))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session not found"})
	}, WithSessionStorage(storage))

	assert.NoError(t, c.SignOut(context.Background()))
	assert.Nil(t, c.Session())
}

func TestRefreshSession_WithoutSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.RefreshSession(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}
