// Package session holds the signed-in application user. A Store is created by
// the application root, started once and closed on shutdown.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"goodfit/internal/apperr"
	"goodfit/internal/backend"
	"goodfit/internal/contact"
	"goodfit/internal/model"
	"goodfit/internal/otp"
	"goodfit/internal/resolver"
)

// Backend is the auth part of the backend SDK.
type Backend interface {
	GetSession(ctx context.Context) (*model.AuthSession, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn backend.AuthListener) (unsubscribe func())
}

type Gateway interface {
	RequestCode(ctx context.Context, contact string) error
	VerifyCode(ctx context.Context, contact, code string) (*model.Identity, error)
}

type Resolver interface {
	Resolve(ctx context.Context, backendUserID string, hints resolver.Hints) (*model.User, error)
}

// PendingStore keeps the registration name until the code is verified.
type PendingStore interface {
	StashPendingName(ctx context.Context, name string) error
	PendingName(ctx context.Context) (string, error)
	ClearPendingName(ctx context.Context) error
}

// State is a point-in-time copy of the store.
type State struct {
	CurrentUser     *model.User
	Role            model.Role
	IsLoading       bool
	AuthInitialized bool
	Attempt         otp.State
}

// SignedIn reports whether a user is present.
func (s State) SignedIn() bool { return s.CurrentUser != nil }

type Store struct {
	backend  Backend
	gateway  Gateway
	resolver Resolver
	pending  PendingStore
	interval time.Duration

	mu          sync.RWMutex
	user        *model.User
	inFlight    int
	initialized bool
	epoch       uint64
	attempt     otp.State

	initOnce    sync.Once
	unsubscribe func()
	stop        context.CancelFunc
	done        chan struct{}
}

// New builds a store. interval is the period of the session liveness check;
// zero disables it.
func New(b Backend, g Gateway, r Resolver, p PendingStore, interval time.Duration) *Store {
	return &Store{
		backend:  b,
		gateway:  g,
		resolver: r,
		pending:  p,
		interval: interval,
	}
}

// Start subscribes to backend auth events and starts the liveness loop.
func (s *Store) Start(ctx context.Context) {
	loopCtx, stop := context.WithCancel(ctx)
	s.mu.Lock()
	s.stop = stop
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.unsubscribe = s.backend.OnAuthStateChange(func(event model.AuthEvent, session *model.AuthSession) {
		s.OnAuthEvent(loopCtx, event, session)
	})
	go s.liveness(loopCtx)
}

// Close unsubscribes from auth events and waits for the liveness loop to exit.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.stop != nil {
		s.stop()
		<-s.done
		s.stop = nil
	}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		CurrentUser:     s.user,
		IsLoading:       s.inFlight > 0,
		AuthInitialized: s.initialized,
		Attempt:         s.attempt,
	}
	if s.user != nil {
		st.Role = s.user.Role
	}
	return st
}

// begin marks an operation in flight and returns the epoch it started under.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	return s.epoch
}

func (s *Store) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
}

// setUser stores user unless the session was cleared after epoch.
func (s *Store) setUser(ctx context.Context, epoch uint64, user *model.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		slog.InfoContext(ctx, "stale_session_result_discarded", "user_id", user.ID)
		return false
	}
	s.user = user
	return true
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.user = nil
}

func (s *Store) setAttempt(state otp.State) {
	s.mu.Lock()
	s.attempt = state
	s.mu.Unlock()
}

// fail logs err with the notification shown for it and returns it.
func (s *Store) fail(ctx context.Context, op string, err error) error {
	slog.WarnContext(ctx, "session_operation_failed",
		"op", op,
		"message", apperr.UserMessage(err),
		"error", err,
	)
	return err
}

// Initialize resolves an existing backend session, once. AuthInitialized is
// true when it returns, whatever the outcome.
func (s *Store) Initialize(ctx context.Context) error {
	var err error
	s.initOnce.Do(func() {
		epoch := s.begin()
		defer func() {
			s.mu.Lock()
			s.initialized = true
			s.mu.Unlock()
			s.end()
		}()
		err = s.restore(ctx, epoch)
	})
	return err
}

func (s *Store) restore(ctx context.Context, epoch uint64) error {
	session, err := s.backend.GetSession(ctx)
	if err != nil {
		return s.fail(ctx, "initialize", apperr.Wrap(apperr.ErrTransport, err))
	}
	if session == nil {
		return nil
	}
	user, err := s.resolveSession(ctx, session)
	if err != nil {
		return s.fail(ctx, "initialize", err)
	}
	s.setUser(ctx, epoch, user)
	return nil
}

// OnAuthEvent applies a backend auth event.
func (s *Store) OnAuthEvent(ctx context.Context, event model.AuthEvent, session *model.AuthSession) {
	epoch := s.begin()
	defer s.end()

	switch event {
	case model.AuthEventSignedIn, model.AuthEventTokenRefreshed:
		if session == nil {
			return
		}
		user, err := s.resolveSession(ctx, session)
		if err != nil {
			_ = s.fail(ctx, string(event), err)
			return
		}
		s.setUser(ctx, epoch, user)
	case model.AuthEventSignedOut:
		s.clear()
	}
}

func (s *Store) resolveSession(ctx context.Context, session *model.AuthSession) (*model.User, error) {
	hints := resolver.Hints{
		Email: model.StringValue(session.User.Email),
		Phone: model.StringValue(session.User.Phone),
	}
	if name, err := s.pending.PendingName(ctx); err == nil {
		hints.Name = name
	}
	return s.resolver.Resolve(ctx, session.User.ID, hints)
}

// Login sends a one-time code to contact.
func (s *Store) Login(ctx context.Context, contact string) error {
	s.begin()
	defer s.end()

	if err := s.gateway.RequestCode(ctx, contact); err != nil {
		return s.fail(ctx, "login", err)
	}
	s.setAttempt(otp.CodeRequested)
	return nil
}

// Register sends a one-time code and keeps name for the next verification.
func (s *Store) Register(ctx context.Context, name, contact string) error {
	s.begin()
	defer s.end()

	if err := s.pending.StashPendingName(ctx, name); err != nil {
		return s.fail(ctx, "register", err)
	}
	if err := s.gateway.RequestCode(ctx, contact); err != nil {
		return s.fail(ctx, "register", err)
	}
	s.setAttempt(otp.CodeRequested)
	return nil
}

// Verify exchanges code for a session, resolves the user and makes it current.
func (s *Store) Verify(ctx context.Context, raw, code string) (*model.User, error) {
	epoch := s.begin()
	defer s.end()

	identity, err := s.gateway.VerifyCode(ctx, raw, code)
	if err != nil {
		s.setAttempt(otp.Failed)
		return nil, s.fail(ctx, "verify", err)
	}

	addr := contact.ToContact(raw)
	hints := resolver.Hints{Email: addr.Email, Phone: addr.Phone}
	if hints.Email == "" {
		hints.Email = model.StringValue(identity.Email)
	}
	if hints.Phone == "" {
		hints.Phone = model.StringValue(identity.Phone)
	}
	name, err := s.pending.PendingName(ctx)
	if err != nil {
		slog.WarnContext(ctx, "pending_name_unavailable", "error", err)
	}
	hints.Name = name

	user, err := s.resolver.Resolve(ctx, identity.ID, hints)
	if err != nil {
		s.setAttempt(otp.Failed)
		return nil, s.fail(ctx, "verify", err)
	}
	s.setUser(ctx, epoch, user)
	s.setAttempt(otp.Verified)

	if name != "" {
		if err := s.pending.ClearPendingName(ctx); err != nil {
			slog.WarnContext(ctx, "pending_name_not_cleared", "error", err)
		}
	}
	return user, nil
}

// Logout signs out on the backend. Local state is cleared even when that
// fails; the error is still returned.
func (s *Store) Logout(ctx context.Context) error {
	s.begin()
	defer s.end()

	err := s.backend.SignOut(ctx)
	s.clear()
	s.setAttempt(otp.Idle)
	if err != nil {
		return s.fail(ctx, "logout", apperr.Wrap(apperr.ErrTransport, err))
	}
	return nil
}

func (s *Store) liveness(ctx context.Context) {
	defer close(s.done)
	if s.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckLiveness(ctx)
		}
	}
}

// CheckLiveness drops the local user when the backend no longer has a session.
// Errors leave the state as is.
func (s *Store) CheckLiveness(ctx context.Context) {
	if !s.Snapshot().SignedIn() {
		return
	}
	s.begin()
	defer s.end()

	session, err := s.backend.GetSession(ctx)
	if err != nil {
		slog.DebugContext(ctx, "liveness_check_failed", "error", err)
		return
	}
	if session == nil {
		slog.InfoContext(ctx, "session_expired_externally")
		s.clear()
	}
}
