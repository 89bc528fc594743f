package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"goodfit/internal/model"
)

// SessionStorage keeps the current session between runs.
type SessionStorage interface {
	LoadSession() (*model.AuthSession, error)
	SaveSession(session *model.AuthSession) error
	ClearSession() error
}

// MemoryStorage keeps the session for the life of the process only.
type MemoryStorage struct {
	mu      sync.Mutex
	session *model.AuthSession
}

func (m *MemoryStorage) LoadSession() (*model.AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *MemoryStorage) SaveSession(session *model.AuthSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	return nil
}

func (m *MemoryStorage) ClearSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// OnAuthStateChange registers fn for auth events and returns its unsubscribe
// function. fn is called once right away with INITIAL_SESSION.
func (c *Client) OnAuthStateChange(fn AuthListener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	session := c.session
	c.mu.Unlock()

	fn(model.AuthEventInitialSession, session)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) emit(event model.AuthEvent, session *model.AuthSession) {
	c.mu.RLock()
	listeners := make([]AuthListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(event, session)
	}
}

func (c *Client) setSession(session *model.AuthSession) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	var err error
	if session == nil {
		err = c.storage.ClearSession()
	} else {
		err = c.storage.SaveSession(session)
	}
	if err != nil {
		slog.Warn("session_storage_failed", "error", err)
	}
}

// Session returns the locally held session without a network call.
func (c *Client) Session() *model.AuthSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// RequestOneTimeCode asks the backend to send a code to exactly one of
// contact.Email or contact.Phone.
func (c *Client) RequestOneTimeCode(ctx context.Context, contact model.Contact) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/otp", nil, contact, nil)
}

// VerifyOneTimeCode exchanges a code for a session and emits SIGNED_IN.
func (c *Client) VerifyOneTimeCode(ctx context.Context, contact model.Contact, token string) (*model.AuthSession, error) {
	req := model.VerifyRequest{Email: contact.Email, Phone: contact.Phone, Token: token, Type: model.OTPTypeEmail}
	if contact.Email == "" {
		req.Type = model.OTPTypeSMS
	}

	var session model.AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", nil, req, &session); err != nil {
		return nil, err
	}
	c.setSession(&session)
	c.emit(model.AuthEventSignedIn, &session)
	return &session, nil
}

// GetSession confirms the held session with the backend. It returns nil, nil
// when there is no session or the backend no longer knows it; in that case
// the local copy is dropped.
func (c *Client) GetSession(ctx context.Context) (*model.AuthSession, error) {
	if c.accessToken() == "" {
		return nil, nil
	}

	var session model.AuthSession
	err := c.do(ctx, http.MethodGet, "/auth/v1/session", nil, nil, &session)
	if errors.Is(err, ErrUnauthorized) {
		refreshed, rerr := c.RefreshSession(ctx)
		if rerr == nil {
			return refreshed, nil
		}
		if errors.Is(rerr, ErrUnauthorized) {
			c.setSession(nil)
			return nil, nil
		}
		return nil, rerr
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// RefreshSession exchanges the held token for a fresh one and emits TOKEN_REFRESHED.
func (c *Client) RefreshSession(ctx context.Context) (*model.AuthSession, error) {
	if c.accessToken() == "" {
		return nil, ErrNoSession
	}
	var session model.AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", nil, nil, &session); err != nil {
		return nil, err
	}
	c.setSession(&session)
	c.emit(model.AuthEventTokenRefreshed, &session)
	return &session, nil
}

// SignOut invalidates the session on the backend. The local session is
// dropped and SIGNED_OUT emitted even when the backend call fails.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.accessToken() != "" {
		err = c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil)
		if errors.Is(err, ErrUnauthorized) {
			err = nil
		}
	}
	c.setSession(nil)
	c.emit(model.AuthEventSignedOut, nil)
	return err
}
