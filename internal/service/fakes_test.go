package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"goodfit/internal/model"
	"goodfit/internal/repository"
	"goodfit/internal/storage"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newFakeUserRepo(users ...model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.CreatedAt = time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if sameEmail(email, u.UserEmail()) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(_ context.Context, currentID string, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[currentID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, currentID)
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.User{}
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

type fakeIdentityRepo struct {
	identities map[string]model.Identity
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{identities: map[string]model.Identity{}}
}

func (r *fakeIdentityRepo) Create(_ context.Context, identity *model.Identity) error {
	identity.CreatedAt = time.Now()
	r.identities[identity.ID] = *identity
	return nil
}

func (r *fakeIdentityRepo) FindByContact(_ context.Context, c model.Contact) (*model.Identity, error) {
	for _, identity := range r.identities {
		if c.Email != "" && model.StringValue(identity.Email) == c.Email {
			return &identity, nil
		}
		if c.Phone != "" && model.StringValue(identity.Phone) == c.Phone {
			return &identity, nil
		}
	}
	return nil, nil
}

func (r *fakeIdentityRepo) FindByID(_ context.Context, id string) (*model.Identity, error) {
	if identity, ok := r.identities[id]; ok {
		return &identity, nil
	}
	return nil, nil
}

type fakeOTPRepo struct {
	codes []*model.OTPCode
	clock func() time.Time
}

func (r *fakeOTPRepo) Create(_ context.Context, c *model.OTPCode) error {
	c.CreatedAt = r.clock()
	r.codes = append(r.codes, c)
	return nil
}

func (r *fakeOTPRepo) FindLatest(_ context.Context, key string) (*model.OTPCode, error) {
	for i := len(r.codes) - 1; i >= 0; i-- {
		c := r.codes[i]
		if c.ContactKey == key && c.ConsumedAt == nil {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeOTPRepo) IncrementAttempts(_ context.Context, id string) error {
	for _, c := range r.codes {
		if c.ID == id {
			c.Attempts++
		}
	}
	return nil
}

func (r *fakeOTPRepo) Consume(_ context.Context, id string) (bool, error) {
	for _, c := range r.codes {
		if c.ID == id && c.ConsumedAt == nil {
			now := r.clock()
			c.ConsumedAt = &now
			return true, nil
		}
	}
	return false, nil
}

type fakeSessionRepo struct {
	sessions map[string]model.SessionRecord
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]model.SessionRecord{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *model.SessionRecord) error {
	s.CreatedAt = time.Now()
	r.sessions[s.ID] = *s
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id string) (*model.SessionRecord, error) {
	if s, ok := r.sessions[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

type fakeGymRepo struct {
	gyms map[string]model.Gym
}

func newFakeGymRepo(gyms ...model.Gym) *fakeGymRepo {
	r := &fakeGymRepo{gyms: map[string]model.Gym{}}
	for _, g := range gyms {
		r.gyms[g.ID] = g
	}
	return r
}

func (r *fakeGymRepo) Create(_ context.Context, g *model.Gym) error {
	r.gyms[g.ID] = *g
	return nil
}

func (r *fakeGymRepo) FindByID(_ context.Context, id string) (*model.Gym, error) {
	if g, ok := r.gyms[id]; ok {
		return &g, nil
	}
	return nil, nil
}

func (r *fakeGymRepo) List(_ context.Context) ([]model.Gym, error) {
	out := []model.Gym{}
	for _, g := range r.gyms {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

func (r *fakeGymRepo) Update(_ context.Context, g *model.Gym) error {
	if _, ok := r.gyms[g.ID]; !ok {
		return repository.ErrNotFound
	}
	r.gyms[g.ID] = *g
	return nil
}

func (r *fakeGymRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.gyms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.gyms, id)
	return nil
}

func (r *fakeGymRepo) AddImage(_ context.Context, id, imageRef string) error {
	g, ok := r.gyms[id]
	if !ok {
		return repository.ErrNotFound
	}
	g.Images = append(g.Images, imageRef)
	r.gyms[id] = g
	return nil
}

type fakeClassRepo struct {
	classes map[string]model.FitnessClass
}

func newFakeClassRepo(classes ...model.FitnessClass) *fakeClassRepo {
	r := &fakeClassRepo{classes: map[string]model.FitnessClass{}}
	for _, c := range classes {
		r.classes[c.ID] = c
	}
	return r
}

func (r *fakeClassRepo) Create(_ context.Context, c *model.FitnessClass) error {
	r.classes[c.ID] = *c
	return nil
}

func (r *fakeClassRepo) FindByID(_ context.Context, id string) (*model.FitnessClass, error) {
	if c, ok := r.classes[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r *fakeClassRepo) ListByGym(_ context.Context, gymID string) ([]model.FitnessClass, error) {
	out := []model.FitnessClass{}
	for _, c := range r.classes {
		if c.GymID == gymID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeClassRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.classes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.classes, id)
	return nil
}

func (r *fakeClassRepo) IncrementBookedCount(_ context.Context, id string) error {
	if c, ok := r.classes[id]; ok && c.BookedCount < c.Capacity {
		c.BookedCount++
		r.classes[id] = c
	}
	return nil
}

func (r *fakeClassRepo) DecrementBookedCount(_ context.Context, id string) error {
	if c, ok := r.classes[id]; ok && c.BookedCount > 0 {
		c.BookedCount--
		r.classes[id] = c
	}
	return nil
}

type fakeSubscriptionRepo struct {
	plans []model.Subscription
}

func (r *fakeSubscriptionRepo) List(_ context.Context) ([]model.Subscription, error) {
	return r.plans, nil
}

type fakeBookingRepo struct {
	bookings map[string]model.Booking
}

func newFakeBookingRepo(bookings ...model.Booking) *fakeBookingRepo {
	r := &fakeBookingRepo{bookings: map[string]model.Booking{}}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *fakeBookingRepo) Create(_ context.Context, b *model.Booking) error {
	b.CreatedAt = time.Now()
	r.bookings[b.ID] = *b
	return nil
}

func (r *fakeBookingRepo) FindActive(_ context.Context, userID, classID string) ([]model.Booking, error) {
	out := []model.Booking{}
	for _, b := range r.bookings {
		if b.UserID == userID && b.ClassID == classID && b.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) ListByUser(_ context.Context, userID string) ([]model.Booking, error) {
	out := []model.Booking{}
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) ListAll(_ context.Context) ([]model.Booking, error) {
	out := []model.Booking{}
	for _, b := range r.bookings {
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBookingRepo) DeleteOwned(_ context.Context, bookingID, userID string) (*model.Booking, error) {
	b, ok := r.bookings[bookingID]
	if !ok || b.UserID != userID {
		return nil, nil
	}
	delete(r.bookings, bookingID)
	return &b, nil
}

type fakeSender struct {
	codes map[string]string
	err   error
}

func newFakeSender() *fakeSender {
	return &fakeSender{codes: map[string]string{}}
}

func (s *fakeSender) SendCode(_ context.Context, to model.Contact, code string) error {
	if s.err != nil {
		return s.err
	}
	s.codes[to.Key()] = code
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) Close() {}

type fakePresigner struct {
	keys         []string
	contentTypes []string
}

func (p *fakePresigner) PresignUpload(_ context.Context, key, contentType string) (*storage.Upload, error) {
	if contentType == "" {
		return nil, errors.New("content type required")
	}
	p.keys = append(p.keys, key)
	p.contentTypes = append(p.contentTypes, contentType)
	return &storage.Upload{
		UploadURL: "https://storage.test/" + key + "?sig=1",
		ObjectURL: "https://storage.test/" + key,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}
