package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// stateFile is the client database path below the XDG state directory.
var stateFile = filepath.Join("goodfit", "state.db")

// ServerConfig captures environment driven settings for the backend server.
type ServerConfig struct {
	Port               string
	JWTSecret          string
	JWTExpirationHours int64
	SessionTTL         time.Duration
	OTPTTL             time.Duration
	OTPResendInterval  time.Duration
	OTPMaxAttempts     int
	ResendAPIKey       string
	ResendFrom         string
	NATSURL            string
	InitialAdminEmail  string
	S3                 S3Config
}

// S3Config holds object storage settings for gym images.
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Enabled reports whether enough S3 settings are present to presign uploads.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

// ClientConfig captures settings for the command-line application.
type ClientConfig struct {
	APIURL           string
	HTTPTimeout      time.Duration
	LivenessInterval time.Duration
	StateDB          string
}

type envReader struct {
	missing []string
	invalid []string
}

func (r *envReader) required(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.invalid = append(r.invalid, key)
		return def
	}
	return d
}

// interval is like duration but accepts 0, which turns the feature off.
func (r *envReader) interval(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		r.invalid = append(r.invalid, key)
		return def
	}
	return d
}

func (r *envReader) integer(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		r.invalid = append(r.invalid, key)
		return def
	}
	return n
}

func (r *envReader) err() error {
	var errs []error
	if len(r.missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables not set: %s", strings.Join(r.missing, ", ")))
	}
	if len(r.invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variable values: %s", strings.Join(r.invalid, ", ")))
	}
	return errors.Join(errs...)
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// LoadServerConfig reads the backend settings, applying defaults to optional values.
func LoadServerConfig() (ServerConfig, error) {
	r := &envReader{}
	cfg := ServerConfig{
		Port:               stringOr("SERVER_PORT", "8080"),
		JWTSecret:          r.required("JWT_SECRET_KEY"),
		JWTExpirationHours: r.integer("JWT_EXPIRATION_HOURS", 24),
		SessionTTL:         r.duration("SESSION_TTL", 30*24*time.Hour),
		OTPTTL:             r.duration("OTP_TTL", 10*time.Minute),
		OTPResendInterval:  r.duration("OTP_RESEND_INTERVAL", time.Minute),
		OTPMaxAttempts:     int(r.integer("OTP_MAX_ATTEMPTS", 5)),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		ResendFrom:         stringOr("RESEND_FROM", "GoodFit <no-reply@goodfit.ru>"),
		NATSURL:            os.Getenv("NATS_URL"),
		InitialAdminEmail:  strings.ToLower(strings.TrimSpace(os.Getenv("INITIAL_ADMIN_EMAIL"))),
		S3: S3Config{
			Endpoint:     os.Getenv("S3_ENDPOINT"),
			Region:       os.Getenv("AWS_REGION"),
			Bucket:       os.Getenv("S3_BUCKET_NAME"),
			AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
			UsePathStyle: os.Getenv("S3_USE_PATH_STYLE") == "true",
		},
	}
	if err := r.err(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// LoadClientConfig reads the application settings.
func LoadClientConfig() (ClientConfig, error) {
	r := &envReader{}
	cfg := ClientConfig{
		APIURL:           strings.TrimRight(stringOr("GOODFIT_API_URL", "http://localhost:8080"), "/"),
		HTTPTimeout:      r.duration("GOODFIT_HTTP_TIMEOUT", 15*time.Second),
		LivenessInterval: r.interval("GOODFIT_LIVENESS_INTERVAL", time.Minute),
		StateDB:          strings.TrimSpace(os.Getenv("GOODFIT_STATE_DB")),
	}
	if cfg.StateDB == "" {
		path, err := xdg.StateFile(stateFile)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("failed to resolve state file location: %w", err)
		}
		cfg.StateDB = path
	}
	if err := r.err(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}
