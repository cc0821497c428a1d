package wink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"winkcloud/auth"
	"winkcloud/config"
	"winkcloud/internal/logging"
	"winkcloud/internal/storage"
	"winkcloud/transport"
)

// FromConfig builds a client from cfg: logger, transport and credential
// store come from their sections. Saved credentials are used when present,
// otherwise a password grant is performed with the configured account.
// opts are applied after the configured ones. Call Close when done.
func FromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Logging.Format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})

	opened, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	store := storage.NewStoreLogger(opened, logger)

	base := []Option{
		WithLogger(logger),
		WithTransport(transport.NewHTTP(
			transport.WithTimeout(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second),
			transport.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst),
			transport.WithLogger(logger),
		)),
		WithStore(store),
		WithStrictDevices(cfg.Devices.Strict),
		WithTolerance(time.Duration(cfg.Wink.ToleranceSeconds) * time.Second),
	}
	if cfg.Wink.DefaultExpiresIn > 0 {
		base = append(base, WithDefaultExpiresIn(time.Duration(cfg.Wink.DefaultExpiresIn)*time.Second))
	}
	if cfg.Wink.UserAgent != "" {
		base = append(base, WithUserAgent(cfg.Wink.UserAgent))
	}
	if cfg.Wink.AuthPath != "" {
		base = append(base, WithAuthPath(cfg.Wink.AuthPath))
	}
	opts = append(base, opts...)

	client, err := fromStore(ctx, cfg, store, opts)
	if err != nil {
		store.Close()
		return nil, err
	}
	client.closer = store
	return client, nil
}

func fromStore(ctx context.Context, cfg *config.Config, store auth.CredentialStore, opts []Option) (*Client, error) {
	creds, err := store.Load(ctx)
	switch {
	case err == nil:
		o := buildOptions(opts)
		return newClient(o, o.manager(), withStatic(creds, cfg.Wink)), nil
	case !errors.Is(err, auth.ErrNoCredentials):
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	if cfg.Wink.Password == "" {
		return nil, fmt.Errorf("%w: no saved credentials and no password configured", auth.ErrNoCredentials)
	}

	return Login(ctx, auth.Seed{
		ClientID:     cfg.Wink.ClientID,
		ClientSecret: cfg.Wink.ClientSecret,
		BaseURL:      cfg.Wink.BaseURL,
		AuthPath:     cfg.Wink.AuthPath,
		Username:     cfg.Wink.Username,
		UserID:       cfg.Wink.UserID,
		Password:     cfg.Wink.Password,
	}, opts...)
}

// withStatic fills fields missing from saved credentials with configured ones
func withStatic(creds auth.Credentials, wc config.WinkConfig) auth.Credentials {
	if creds.ClientID == "" {
		creds.ClientID = wc.ClientID
	}
	if creds.ClientSecret == "" {
		creds.ClientSecret = wc.ClientSecret
	}
	if creds.BaseURL == "" {
		creds.BaseURL = wc.BaseURL
	}
	return creds
}
