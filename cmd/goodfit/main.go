package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"goodfit/internal/apperr"
	"goodfit/internal/backend"
	"goodfit/internal/booking"
	"goodfit/internal/config"
	"goodfit/internal/localstore"
	"goodfit/internal/logging"
	"goodfit/internal/otp"
	"goodfit/internal/resolver"
	"goodfit/internal/session"

	"github.com/joho/godotenv"
)

// app is the root composition of the command-line client.
type app struct {
	out      io.Writer
	client   *backend.Client
	local    *localstore.Store
	store    *session.Store
	bookings *booking.Service
}

func main() {
	level := slog.LevelWarn
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = logging.ParseLevel(v)
	}
	slog.SetDefault(logging.New(os.Stderr, "goodfit", level))

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, message(err))
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, name string, args []string, out io.Writer) error {
	cmd, ok := lookup(name)
	if !ok {
		usage(os.Stderr)
		return &usageError{msg: "неизвестная команда: " + name}
	}

	cfg, err := config.LoadClientConfig()
	if err != nil {
		return fmt.Errorf("failed to load client config: %w", err)
	}

	a, err := newApp(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer a.close()

	return a.dispatch(ctx, cmd, args)
}

func newApp(ctx context.Context, cfg config.ClientConfig, out io.Writer) (*app, error) {
	local, err := localstore.Open(ctx, cfg.StateDB)
	if err != nil {
		return nil, err
	}

	client, err := backend.New(cfg.APIURL, cfg.HTTPTimeout, backend.WithSessionStorage(local))
	if err != nil {
		local.Close()
		return nil, err
	}

	store := session.New(client, otp.NewGateway(client), resolver.New(client), local, cfg.LivenessInterval)
	store.Start(ctx)

	return &app{
		out:      out,
		client:   client,
		local:    local,
		store:    store,
		bookings: booking.NewService(client),
	}, nil
}

func (a *app) close() {
	a.store.Close()
	if err := a.local.Close(); err != nil {
		slog.Warn("local_store_close_failed", "error", err)
	}
}

// message is the text shown for a failed command.
func message(err error) string {
	if apperr.Classified(err) {
		return apperr.UserMessage(err)
	}
	return err.Error()
}
