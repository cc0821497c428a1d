package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winkcloud/auth"
)

type failingStorage struct{}

func (failingStorage) Load(ctx context.Context) (auth.Credentials, error) {
	return auth.Credentials{}, auth.ErrNoCredentials
}

func (failingStorage) Save(ctx context.Context, creds auth.Credentials) error {
	return errors.New("disk full")
}

func (failingStorage) Close() error { return nil }

func TestStoreLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	inner, err := Open(DriverMemory, "")
	require.NoError(t, err)
	store := NewStoreLogger(inner, logger)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, auth.Credentials{AccessToken: "a"}))
	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", creds.AccessToken)
	require.NoError(t, store.Close())

	out := buf.String()
	assert.Contains(t, out, "Save completed")
	assert.Contains(t, out, "Load completed")
	assert.Contains(t, out, "interface=CredentialStore")
	assert.NotContains(t, out, "access_token")
}

func TestStoreLogger_PassesErrorsThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := NewStoreLogger(failingStorage{}, logger)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoCredentials)

	err = store.Save(context.Background(), auth.Credentials{})
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "Save failed")
}
