package repository

import (
	"context"
	"fmt"

	"goodfit/internal/model"

	"github.com/jackc/pgx/v5"
)

// SubscriptionRepository reads membership plans
type SubscriptionRepository interface {
	List(ctx context.Context) ([]model.Subscription, error)
}

type subscriptionRepository struct {
	db DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.Name, &s.DurationDays, &s.Price, &s.Features, &s.IsPopular); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns all plans ordered by duration
func (r *subscriptionRepository) List(ctx context.Context) ([]model.Subscription, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, duration_days, price, features, is_popular FROM subscriptions ORDER BY duration_days`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	subs, err := collect(rows, scanSubscription)
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription rows: %w", err)
	}
	return subs, nil
}
