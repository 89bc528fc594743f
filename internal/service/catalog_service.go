package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"goodfit/internal/model"
	"goodfit/internal/repository"
	"goodfit/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// UploadPresigner issues upload URLs for gym images
type UploadPresigner interface {
	PresignUpload(ctx context.Context, objectKey, contentType string) (*storage.Upload, error)
}

// CatalogService serves gyms, classes and subscription plans. Reads are
// public; writes need ADMIN, or PARTNER on a gym the partner owns.
type CatalogService interface {
	ListGyms(ctx context.Context) ([]model.Gym, error)
	GetGym(ctx context.Context, id string) (*model.Gym, error)
	CreateGym(ctx context.Context, caller model.Principal, gym *model.Gym) (*model.Gym, error)
	UpdateGym(ctx context.Context, caller model.Principal, gym *model.Gym) (*model.Gym, error)
	DeleteGym(ctx context.Context, caller model.Principal, id string) error
	ImageUploadURL(ctx context.Context, caller model.Principal, gymID, fileName, contentType string) (*storage.Upload, error)
	AttachImage(ctx context.Context, caller model.Principal, gymID, imageURL string) (*model.Gym, error)

	ListClasses(ctx context.Context, gymID string) ([]model.FitnessClass, error)
	GetClass(ctx context.Context, id string) (*model.FitnessClass, error)
	CreateClass(ctx context.Context, caller model.Principal, class *model.FitnessClass) (*model.FitnessClass, error)
	DeleteClass(ctx context.Context, caller model.Principal, id string) error

	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
}

type catalogService struct {
	gyms          repository.GymRepository
	classes       repository.ClassRepository
	subscriptions repository.SubscriptionRepository
	presigner     UploadPresigner
}

// NewCatalogService creates a new CatalogService. presigner may be nil when
// object storage is not configured.
func NewCatalogService(
	gyms repository.GymRepository,
	classes repository.ClassRepository,
	subscriptions repository.SubscriptionRepository,
	presigner UploadPresigner,
) CatalogService {
	return &catalogService{gyms: gyms, classes: classes, subscriptions: subscriptions, presigner: presigner}
}

func canManageGym(caller model.Principal, gym *model.Gym) bool {
	switch caller.Role {
	case model.RoleAdmin:
		return true
	case model.RolePartner:
		return gym.OwnerID != nil && *gym.OwnerID == caller.UserID
	}
	return false
}

func (s *catalogService) ListGyms(ctx context.Context) ([]model.Gym, error) {
	return s.gyms.List(ctx)
}

func (s *catalogService) GetGym(ctx context.Context, id string) (*model.Gym, error) {
	gym, err := s.gyms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if gym == nil {
		return nil, ErrGymNotFound
	}
	return gym, nil
}

// manageableGym loads a gym and checks the caller may change it
func (s *catalogService) manageableGym(ctx context.Context, caller model.Principal, id string) (*model.Gym, error) {
	gym, err := s.GetGym(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageGym(caller, gym) {
		return nil, ErrForbidden
	}
	return gym, nil
}

func validateGym(gym *model.Gym) error {
	if strings.TrimSpace(gym.Name) == "" || strings.TrimSpace(gym.City) == "" {
		return fmt.Errorf("%w: name and city are required", ErrInvalidInput)
	}
	return nil
}

// CreateGym inserts a gym. A partner always becomes the owner of gyms it creates.
func (s *catalogService) CreateGym(ctx context.Context, caller model.Principal, gym *model.Gym) (*model.Gym, error) {
	switch caller.Role {
	case model.RoleAdmin:
	case model.RolePartner:
		gym.OwnerID = model.StringPtr(caller.UserID)
	default:
		return nil, ErrForbidden
	}
	if err := validateGym(gym); err != nil {
		return nil, err
	}
	if gym.ID == "" {
		gym.ID = uuid.NewString()
	}
	if err := s.gyms.Create(ctx, gym); err != nil {
		return nil, fmt.Errorf("failed to create gym in repository: %w", err)
	}
	return gym, nil
}

// UpdateGym rewrites a gym. Partners cannot hand their gym to another owner.
func (s *catalogService) UpdateGym(ctx context.Context, caller model.Principal, gym *model.Gym) (*model.Gym, error) {
	existing, err := s.manageableGym(ctx, caller, gym.ID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		gym.OwnerID = existing.OwnerID
	}
	if err := validateGym(gym); err != nil {
		return nil, err
	}
	if err := s.gyms.Update(ctx, gym); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, fmt.Errorf("failed to update gym in repository: %w", err)
	}
	return gym, nil
}

func (s *catalogService) DeleteGym(ctx context.Context, caller model.Principal, id string) error {
	if _, err := s.manageableGym(ctx, caller, id); err != nil {
		return err
	}
	if err := s.gyms.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGymNotFound
		}
		return fmt.Errorf("failed to delete gym in repository: %w", err)
	}
	return nil
}

var imageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// imageType resolves the declared content type, falling back to the file
// extension, and returns the MIME entry when it is an accepted image.
func imageType(fileName, contentType string) *mimetype.MIME {
	contentType, _, _ = strings.Cut(contentType, ";")
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		contentType, _, _ = strings.Cut(mime.TypeByExtension(strings.ToLower(path.Ext(fileName))), ";")
	}
	mt := mimetype.Lookup(contentType)
	if mt == nil {
		return nil
	}
	for _, allowed := range imageTypes {
		if mt.Is(allowed) {
			return mt
		}
	}
	return nil
}

// ImageUploadURL presigns an upload for a new gym image
func (s *catalogService) ImageUploadURL(ctx context.Context, caller model.Principal, gymID, fileName, contentType string) (*storage.Upload, error) {
	if s.presigner == nil {
		return nil, ErrStorageDisabled
	}
	if _, err := s.manageableGym(ctx, caller, gymID); err != nil {
		return nil, err
	}

	mt := imageType(fileName, contentType)
	if mt == nil {
		return nil, fmt.Errorf("%w: only jpeg, png and webp images are allowed", ErrInvalidInput)
	}

	key := fmt.Sprintf("gyms/%s/%d-%s%s", gymID, time.Now().Unix(), uuid.NewString()[:8], mt.Extension())
	return s.presigner.PresignUpload(ctx, key, mt.String())
}

// AttachImage records an uploaded image on the gym
func (s *catalogService) AttachImage(ctx context.Context, caller model.Principal, gymID, imageURL string) (*model.Gym, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, fmt.Errorf("%w: image url is required", ErrInvalidInput)
	}
	if _, err := s.manageableGym(ctx, caller, gymID); err != nil {
		return nil, err
	}
	if err := s.gyms.AddImage(ctx, gymID, imageURL); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}
	return s.GetGym(ctx, gymID)
}

func (s *catalogService) ListClasses(ctx context.Context, gymID string) ([]model.FitnessClass, error) {
	return s.classes.ListByGym(ctx, gymID)
}

func (s *catalogService) GetClass(ctx context.Context, id string) (*model.FitnessClass, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if class == nil {
		return nil, ErrClassNotFound
	}
	return class, nil
}

// CreateClass schedules a class at a gym the caller may manage
func (s *catalogService) CreateClass(ctx context.Context, caller model.Principal, class *model.FitnessClass) (*model.FitnessClass, error) {
	if _, err := s.manageableGym(ctx, caller, class.GymID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(class.Title) == "" || class.Capacity <= 0 || !class.EndTime.After(class.StartTime) {
		return nil, fmt.Errorf("%w: title, positive capacity and end after start are required", ErrInvalidInput)
	}
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if err := s.classes.Create(ctx, class); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrGymNotFound
		}
		return nil, fmt.Errorf("failed to create class in repository: %w", err)
	}
	return class, nil
}

func (s *catalogService) DeleteClass(ctx context.Context, caller model.Principal, id string) error {
	class, err := s.GetClass(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.manageableGym(ctx, caller, class.GymID); err != nil {
		return err
	}
	if err := s.classes.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClassNotFound
		}
		return fmt.Errorf("failed to delete class in repository: %w", err)
	}
	return nil
}

func (s *catalogService) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	return s.subscriptions.List(ctx)
}
