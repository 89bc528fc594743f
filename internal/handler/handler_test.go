package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goodfit/internal/middleware"
	"goodfit/internal/model"
	"goodfit/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthService struct {
	service.AuthService
	tokens     map[string]model.Principal
	requestErr error
	verifyErr  error
	requested  []model.Contact
}

func (f *fakeAuthService) RequestOneTimeCode(_ context.Context, contact model.Contact) error {
	f.requested = append(f.requested, contact)
	return f.requestErr
}

func (f *fakeAuthService) VerifyOneTimeCode(_ context.Context, contact model.Contact, _ string) (*model.AuthSession, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &model.AuthSession{
		AccessToken: "token-1",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        model.Identity{ID: "u1", Email: model.StringPtr(contact.Email), Phone: model.StringPtr(contact.Phone)},
	}, nil
}

func (f *fakeAuthService) Authenticate(_ context.Context, token string) (*model.Principal, error) {
	p, ok := f.tokens[token]
	if !ok {
		return nil, service.ErrSessionNotFound
	}
	return &p, nil
}

func (f *fakeAuthService) SignOut(_ context.Context, token string) error {
	if _, ok := f.tokens[token]; !ok {
		return service.ErrSessionNotFound
	}
	delete(f.tokens, token)
	return nil
}

type fakeBookingService struct {
	service.BookingService
	bookings []model.Booking
	bumped   []string
}

func (f *fakeBookingService) ListMine(_ context.Context, caller model.Principal) ([]model.Booking, error) {
	out := []model.Booking{}
	for _, b := range f.bookings {
		if b.UserID == caller.UserID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingService) ListActive(_ context.Context, caller model.Principal, classID string) ([]model.Booking, error) {
	out := []model.Booking{}
	for _, b := range f.bookings {
		if b.UserID == caller.UserID && b.ClassID == classID && b.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingService) DeleteOwned(_ context.Context, caller model.Principal, id string) (*model.Booking, error) {
	for i, b := range f.bookings {
		if b.ID == id && b.UserID == caller.UserID {
			f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
			return &b, nil
		}
	}
	return nil, service.ErrBookingNotFound
}

func (f *fakeBookingService) IncrementBookedCount(_ context.Context, classID string) error {
	f.bumped = append(f.bumped, "+"+classID)
	return nil
}

type fakeCatalogService struct {
	service.CatalogService
	gyms []model.Gym
}

func (f *fakeCatalogService) ListGyms(context.Context) ([]model.Gym, error) {
	return f.gyms, nil
}

func (f *fakeCatalogService) GetGym(_ context.Context, id string) (*model.Gym, error) {
	for _, g := range f.gyms {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, service.ErrGymNotFound
}

func (f *fakeCatalogService) UpdateGym(_ context.Context, caller model.Principal, gym *model.Gym) (*model.Gym, error) {
	if caller.Role != model.RoleAdmin {
		return nil, service.ErrForbidden
	}
	return gym, nil
}

type testServer struct {
	router   *gin.Engine
	auth     *fakeAuthService
	bookings *fakeBookingService
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	auth := &fakeAuthService{tokens: map[string]model.Principal{
		"user-token":    {UserID: "u1", SessionID: "s1", Role: model.RoleUser},
		"partner-token": {UserID: "p1", SessionID: "s2", Role: model.RolePartner},
		"admin-token":   {UserID: "a1", SessionID: "s3", Role: model.RoleAdmin},
	}}
	bookings := &fakeBookingService{bookings: []model.Booking{
		{ID: "b1", UserID: "u1", ClassID: "c1", Status: model.BookingStatusBooked},
		{ID: "b2", UserID: "u2", ClassID: "c1", Status: model.BookingStatusBooked},
	}}
	catalog := &fakeCatalogService{gyms: []model.Gym{{ID: "g1", Name: "Iron", City: "Москва"}}}

	router := gin.New()
	authMW := middleware.JWTAuthMiddleware(auth)
	root := router.Group("")
	NewAuthHandler(auth).RegisterAuthRoutes(root)
	rest := router.Group("/rest/v1")
	NewBookingHandler(bookings).RegisterBookingRoutes(rest, authMW)
	NewCatalogHandler(catalog).RegisterCatalogRoutes(rest, authMW)

	return &testServer{router: router, auth: auth, bookings: bookings}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestAuthHandler_RequestOTP(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/auth/v1/otp", "", gin.H{"email": "user@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.auth.requested, 1)
	assert.Equal(t, "user@example.com", s.auth.requested[0].Email)

	w = s.do(http.MethodPost, "/auth/v1/otp", "", gin.H{"phone": "+79991234567"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/auth/v1/otp", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/v1/otp", "", gin.H{"email": "a@b.ru", "phone": "+79991234567"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/v1/otp", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_RequestOTPErrors(t *testing.T) {
	s := newTestServer()

	s.auth.requestErr = service.ErrRateLimited
	w := s.do(http.MethodPost, "/auth/v1/otp", "", gin.H{"email": "user@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	s.auth.requestErr = fmt.Errorf("%w: %w", service.ErrDeliveryFailed, fmt.Errorf("resend: domain not verified"))
	w = s.do(http.MethodPost, "/auth/v1/otp", "", gin.H{"email": "user@example.com"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, errorMessage(t, w), "domain not verified")
}

func TestAuthHandler_Verify(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/auth/v1/verify", "", gin.H{"email": "user@example.com", "token": "123456", "type": "email"})
	require.Equal(t, http.StatusOK, w.Code)
	var session model.AuthSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, "token-1", session.AccessToken)

	w = s.do(http.MethodPost, "/auth/v1/verify", "", gin.H{"email": "user@example.com", "token": "123456", "type": "sms"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/auth/v1/verify", "", gin.H{"email": "user@example.com", "token": "123456", "type": "magic"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.auth.verifyErr = service.ErrInvalidCode
	w = s.do(http.MethodPost, "/auth/v1/verify", "", gin.H{"phone": "+79991234567", "token": "000000", "type": "sms"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, service.ErrInvalidCode.Error(), errorMessage(t, w))
}

func TestAuthHandler_Logout(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/auth/v1/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/auth/v1/logout", "user-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/rest/v1/bookings", "user-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandler_OwnerScope(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/rest/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/rest/v1/bookings", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "b1", mine[0].ID)

	w = s.do(http.MethodGet, "/rest/v1/bookings?class_id=c1&active=true", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/rest/v1/bookings/b2", "user-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/rest/v1/bookings/b1?user_id=u2", "user-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "delete scoped to another user removes nothing")

	w = s.do(http.MethodDelete, "/rest/v1/bookings/b1?user_id=u1", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var removed model.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &removed))
	assert.Equal(t, "c1", removed.ClassID)
}

func TestBookingHandler_RPC(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/rest/v1/rpc/increment_booked_count", "user-token", gin.H{"class_id": "c1"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"+c1"}, s.bookings.bumped)

	w = s.do(http.MethodPost, "/rest/v1/rpc/increment_booked_count", "user-token", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoleGating(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/rest/v1/admin/bookings", "partner-token", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/rest/v1/gyms/g1", "user-token", gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/rest/v1/gyms/g1", "partner-token", gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/rest/v1/gyms/g1", "admin-token", gin.H{"name": "Iron Pro"})
	require.Equal(t, http.StatusOK, w.Code)
	var gym model.Gym
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gym))
	assert.Equal(t, "Iron Pro", gym.Name)
	assert.Equal(t, "Москва", gym.City)
}

func TestCatalogHandler_PublicReads(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/rest/v1/gyms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var gyms []model.Gym
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gyms))
	assert.Len(t, gyms, 1)

	w = s.do(http.MethodGet, "/rest/v1/gyms/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
