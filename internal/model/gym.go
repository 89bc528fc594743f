package model

import "time"

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WorkingHours holds opening and closing times as "HH:MM".
type WorkingHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Gym is a venue offering fitness classes.
type Gym struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Categories   []string     `json:"category"`
	City         string       `json:"city"`
	Address      string       `json:"address"`
	Location     GeoPoint     `json:"location"`
	Images       []string     `json:"images"`
	OwnerID      *string      `json:"owner_id,omitempty"`
	Rating       float64      `json:"rating"`
	ReviewCount  int          `json:"review_count"`
	Features     []string     `json:"features"`
	WorkingHours WorkingHours `json:"working_hours"`
}

// FitnessClass is a scheduled class at a gym.
// Invariant: 0 <= BookedCount <= Capacity.
type FitnessClass struct {
	ID          string    `json:"id"`
	GymID       string    `json:"gym_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Instructor  string    `json:"instructor"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Capacity    int       `json:"capacity"`
	BookedCount int       `json:"booked_count"`
	Category    string    `json:"category"`
}

// IsFull reports whether no seats are left.
func (c *FitnessClass) IsFull() bool { return c.BookedCount >= c.Capacity }

// Subscription is a membership plan. Price is in minor currency units.
type Subscription struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	DurationDays int      `json:"duration_days"`
	Price        int64    `json:"price"`
	Features     []string `json:"features"`
	IsPopular    bool     `json:"is_popular"`
}
