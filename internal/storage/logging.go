package storage

import (
	"context"
	"log/slog"
	"time"

	"winkcloud/auth"
)

// StoreLogger wraps a Storage and logs every call
type StoreLogger struct {
	store  Storage
	logger *slog.Logger
}

// NewStoreLogger creates a logging decorator for store
func NewStoreLogger(store Storage, logger *slog.Logger) Storage {
	return &StoreLogger{
		store:  store,
		logger: logger.With("interface", "CredentialStore"),
	}
}

func (l *StoreLogger) Load(ctx context.Context) (auth.Credentials, error) {
	start := time.Now()
	creds, err := l.store.Load(ctx)
	duration := time.Since(start)

	if err != nil {
		l.logger.Debug("Load failed", "duration", duration, "error", err)
		return auth.Credentials{}, err
	}

	l.logger.Debug("Load completed", "expires", creds.Expires, "duration", duration)
	return creds, nil
}

func (l *StoreLogger) Save(ctx context.Context, creds auth.Credentials) error {
	start := time.Now()
	err := l.store.Save(ctx, creds)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("Save failed", "expires", creds.Expires, "duration", duration, "error", err)
		return err
	}

	l.logger.Info("Save completed", "expires", creds.Expires, "duration", duration)
	return nil
}

func (l *StoreLogger) Close() error {
	if err := l.store.Close(); err != nil {
		l.logger.Error("Close failed", "error", err)
		return err
	}
	return nil
}
