package repository

import (
	"context"
	"errors"
	"fmt"

	"goodfit/internal/model"

	"github.com/jackc/pgx/v5"
)

const gymColumns = `id, name, description, category, city, address, lat, lng, images, owner_id,
	rating, review_count, features, working_hours_open, working_hours_close`

// GymRepository defines operations for gyms
type GymRepository interface {
	Create(ctx context.Context, gym *model.Gym) error
	FindByID(ctx context.Context, id string) (*model.Gym, error)
	List(ctx context.Context) ([]model.Gym, error)
	Update(ctx context.Context, gym *model.Gym) error
	Delete(ctx context.Context, id string) error
	AddImage(ctx context.Context, id, imageRef string) error
}

type gymRepository struct {
	db DB
}

// NewGymRepository creates a new GymRepository
func NewGymRepository(db DB) GymRepository {
	return &gymRepository{db: db}
}

// scanGym is the single mapping from a gyms row to model.Gym.
func scanGym(row pgx.Row) (*model.Gym, error) {
	g := &model.Gym{}
	err := row.Scan(
		&g.ID, &g.Name, &g.Description, &g.Categories, &g.City, &g.Address,
		&g.Location.Lat, &g.Location.Lng, &g.Images, &g.OwnerID,
		&g.Rating, &g.ReviewCount, &g.Features, &g.WorkingHours.Open, &g.WorkingHours.Close,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Create inserts a new gym
func (r *gymRepository) Create(ctx context.Context, g *model.Gym) error {
	sql := `INSERT INTO gyms (id, name, description, category, city, address, lat, lng, images, owner_id,
                rating, review_count, features, working_hours_open, working_hours_close)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING ` + gymColumns
	created, err := scanGym(r.db.QueryRow(ctx, sql,
		g.ID, g.Name, g.Description, nonNil(g.Categories), g.City, g.Address, g.Location.Lat, g.Location.Lng,
		nonNil(g.Images), g.OwnerID, g.Rating, g.ReviewCount, nonNil(g.Features), g.WorkingHours.Open, g.WorkingHours.Close))
	if err != nil {
		return fmt.Errorf("failed to create gym: %w", err)
	}
	*g = *created
	return nil
}

// FindByID retrieves a gym by id; (nil, nil) when absent
func (r *gymRepository) FindByID(ctx context.Context, id string) (*model.Gym, error) {
	gym, err := scanGym(r.db.QueryRow(ctx, `SELECT `+gymColumns+` FROM gyms WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find gym by ID: %w", err)
	}
	return gym, nil
}

// List returns all gyms ordered by rating
func (r *gymRepository) List(ctx context.Context) ([]model.Gym, error) {
	rows, err := r.db.Query(ctx, `SELECT `+gymColumns+` FROM gyms ORDER BY rating DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query gyms: %w", err)
	}
	gyms, err := collect(rows, scanGym)
	if err != nil {
		return nil, fmt.Errorf("failed to scan gym rows: %w", err)
	}
	return gyms, nil
}

// Update modifies an existing gym
func (r *gymRepository) Update(ctx context.Context, g *model.Gym) error {
	sql := `UPDATE gyms
            SET name = $1, description = $2, category = $3, city = $4, address = $5, lat = $6, lng = $7,
                images = $8, owner_id = $9, features = $10, working_hours_open = $11, working_hours_close = $12
            WHERE id = $13 RETURNING ` + gymColumns
	updated, err := scanGym(r.db.QueryRow(ctx, sql,
		g.Name, g.Description, nonNil(g.Categories), g.City, g.Address, g.Location.Lat, g.Location.Lng,
		nonNil(g.Images), g.OwnerID, nonNil(g.Features), g.WorkingHours.Open, g.WorkingHours.Close, g.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update gym: %w", err)
	}
	*g = *updated
	return nil
}

// Delete removes a gym and, through cascades, its classes and bookings
func (r *gymRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM gyms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete gym: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddImage appends an image reference to the gym's image list
func (r *gymRepository) AddImage(ctx context.Context, id, imageRef string) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE gyms SET images = array_append(images, $1) WHERE id = $2`, imageRef, id)
	if err != nil {
		return fmt.Errorf("failed to add gym image: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
