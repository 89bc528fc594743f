package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables
func LoadDBConfig() (*DBConfig, error) {
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB establishes a connection to the PostgreSQL database
func ConnectDB(ctx context.Context, cfg *DBConfig) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	maxRetries := 5
	retryInterval := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				slog.Info("connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		slog.Warn("database connection failed", "attempt", i+1, "max_attempts", maxRetries, "error", err, "retry_in", retryInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

// Schema creates the backend tables and capacity procedures if they don't exist.
// booked_count changes only through increment_booked_count and
// decrement_booked_count, which keep it within [0, capacity].
const Schema = `
	CREATE TABLE IF NOT EXISTS auth_identities (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE,
		phone TEXT UNIQUE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (email IS NOT NULL OR phone IS NOT NULL)
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id UUID PRIMARY KEY,
		identity_id UUID NOT NULL REFERENCES auth_identities(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS otp_codes (
		id UUID PRIMARY KEY,
		contact_key TEXT NOT NULL,
		code_hash TEXT NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		consumed_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_otp_codes_contact_key ON otp_codes(contact_key, created_at DESC);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		duration_days INT NOT NULL,
		price BIGINT NOT NULL, -- in minor currency units
		features TEXT[] NOT NULL DEFAULT '{}',
		is_popular BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT,
		phone TEXT,
		role TEXT NOT NULL CHECK (role IN ('USER', 'PARTNER', 'ADMIN')) DEFAULT 'USER',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		profile_image TEXT,
		subscription_id UUID REFERENCES subscriptions(id) ON DELETE SET NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS gyms (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT[] NOT NULL DEFAULT '{}',
		city TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		lng DOUBLE PRECISION NOT NULL DEFAULT 0,
		images TEXT[] NOT NULL DEFAULT '{}',
		owner_id TEXT REFERENCES users(id) ON UPDATE CASCADE ON DELETE SET NULL,
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		review_count INT NOT NULL DEFAULT 0,
		features TEXT[] NOT NULL DEFAULT '{}',
		working_hours_open TEXT NOT NULL DEFAULT '',
		working_hours_close TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_gyms_city ON gyms(city);

	CREATE TABLE IF NOT EXISTS classes (
		id UUID PRIMARY KEY,
		gym_id UUID NOT NULL REFERENCES gyms(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		instructor TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMP WITH TIME ZONE NOT NULL,
		end_time TIMESTAMP WITH TIME ZONE NOT NULL,
		capacity INT NOT NULL CHECK (capacity >= 0),
		booked_count INT NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		CHECK (booked_count >= 0 AND booked_count <= capacity)
	);
	CREATE INDEX IF NOT EXISTS idx_classes_gym_id ON classes(gym_id);

	-- No unique constraint on (user_id, class_id): duplicates are prevented by a
	-- read-before-insert check in the application.
	CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON UPDATE CASCADE ON DELETE CASCADE,
		class_id UUID NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
		gym_id UUID NOT NULL REFERENCES gyms(id) ON DELETE CASCADE,
		status TEXT NOT NULL CHECK (status IN ('BOOKED', 'COMPLETED', 'CANCELLED')) DEFAULT 'BOOKED',
		date_time TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_class_id ON bookings(class_id);

	CREATE OR REPLACE FUNCTION increment_booked_count(class_id UUID)
	RETURNS VOID AS $$
	BEGIN
		UPDATE classes SET booked_count = booked_count + 1
		WHERE id = class_id AND booked_count < capacity;
	END;
	$$ LANGUAGE plpgsql;

	CREATE OR REPLACE FUNCTION decrement_booked_count(class_id UUID)
	RETURNS VOID AS $$
	BEGIN
		UPDATE classes SET booked_count = booked_count - 1
		WHERE id = class_id AND booked_count > 0;
	END;
	$$ LANGUAGE plpgsql;
`

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}

	slog.Info("AutoMigrate applied successfully")
	return nil
}
