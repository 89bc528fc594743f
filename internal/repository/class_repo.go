package repository

import (
	"context"
	"errors"
	"fmt"

	"goodfit/internal/model"

	"github.com/jackc/pgx/v5"
)

const classColumns = `id, gym_id, title, description, instructor, start_time, end_time, capacity, booked_count, category`

// ClassRepository defines operations for fitness classes
type ClassRepository interface {
	Create(ctx context.Context, class *model.FitnessClass) error
	FindByID(ctx context.Context, id string) (*model.FitnessClass, error)
	ListByGym(ctx context.Context, gymID string) ([]model.FitnessClass, error)
	Delete(ctx context.Context, id string) error
	IncrementBookedCount(ctx context.Context, id string) error
	DecrementBookedCount(ctx context.Context, id string) error
}

type classRepository struct {
	db DB
}

// NewClassRepository creates a new ClassRepository
func NewClassRepository(db DB) ClassRepository {
	return &classRepository{db: db}
}

// scanClass is the single mapping from a classes row to model.FitnessClass.
func scanClass(row pgx.Row) (*model.FitnessClass, error) {
	c := &model.FitnessClass{}
	err := row.Scan(&c.ID, &c.GymID, &c.Title, &c.Description, &c.Instructor,
		&c.StartTime, &c.EndTime, &c.Capacity, &c.BookedCount, &c.Category)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new class with no seats taken
func (r *classRepository) Create(ctx context.Context, c *model.FitnessClass) error {
	sql := `INSERT INTO classes (id, gym_id, title, description, instructor, start_time, end_time, capacity, category)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING ` + classColumns
	created, err := scanClass(r.db.QueryRow(ctx, sql,
		c.ID, c.GymID, c.Title, c.Description, c.Instructor, c.StartTime, c.EndTime, c.Capacity, c.Category))
	if err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}
	*c = *created
	return nil
}

// FindByID retrieves a class by id; (nil, nil) when absent
func (r *classRepository) FindByID(ctx context.Context, id string) (*model.FitnessClass, error) {
	class, err := scanClass(r.db.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find class by ID: %w", err)
	}
	return class, nil
}

// ListByGym returns the classes of a gym in start order
func (r *classRepository) ListByGym(ctx context.Context, gymID string) ([]model.FitnessClass, error) {
	rows, err := r.db.Query(ctx, `SELECT `+classColumns+` FROM classes WHERE gym_id = $1 ORDER BY start_time`, gymID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes by gym: %w", err)
	}
	classes, err := collect(rows, scanClass)
	if err != nil {
		return nil, fmt.Errorf("failed to scan class rows: %w", err)
	}
	return classes, nil
}

// Delete removes a class
func (r *classRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementBookedCount takes one seat through the database procedure
func (r *classRepository) IncrementBookedCount(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `SELECT increment_booked_count($1)`, id); err != nil {
		return fmt.Errorf("failed to increment booked count: %w", err)
	}
	return nil
}

// DecrementBookedCount releases one seat through the database procedure
func (r *classRepository) DecrementBookedCount(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `SELECT decrement_booked_count($1)`, id); err != nil {
		return fmt.Errorf("failed to decrement booked count: %w", err)
	}
	return nil
}
