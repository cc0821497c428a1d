package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"winkcloud/internal/logging"
	"winkcloud/transport"
)

// Manager performs grants against the token endpoint and decides when
// credentials are stale. It holds no credential state of its own.
type Manager struct {
	transport        transport.Transport
	now              func() time.Time
	defaultExpiresIn time.Duration
	tolerance        time.Duration
	logger           *slog.Logger
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock overrides time.Now, mostly for tests
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithDefaultExpiresIn sets the lifetime assumed when the server omits expires_in
func WithDefaultExpiresIn(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.defaultExpiresIn = d
		}
	}
}

// WithTolerance sets the default staleness tolerance
func WithTolerance(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 0 {
			m.tolerance = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger == nil {
			logger = logging.Discard()
		}
		m.logger = logger.With("component", "auth")
	}
}

// NewManager creates a token manager that sends grants through t
func NewManager(t transport.Transport, opts ...ManagerOption) *Manager {
	m := &Manager{
		transport:        t,
		now:              func() time.Time { return time.Now().UTC() },
		defaultExpiresIn: DefaultExpiresIn,
		tolerance:        DefaultTolerance,
		logger:           logging.Discard(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// NeedsReauth reports whether creds must be refreshed before use:
// Expires is unknown, or now+tolerance has reached it.
func (m *Manager) NeedsReauth(creds Credentials, tolerance time.Duration) bool {
	if creds.Expires == nil {
		return true
	}
	return !m.now().UTC().Add(tolerance).Before(*creds.Expires)
}

// Stale is NeedsReauth with the credential's own tolerance, falling back to the manager default
func (m *Manager) Stale(creds Credentials) bool {
	return m.NeedsReauth(creds, creds.ToleranceOr(m.tolerance))
}

// Authenticate performs the initial grant for seed
func (m *Manager) Authenticate(ctx context.Context, seed Seed) (Credentials, error) {
	if seed.ClientID == "" || seed.ClientSecret == "" || seed.BaseURL == "" {
		return Credentials{}, fmt.Errorf("%w: client_id, client_secret and base_url are required", ErrInvalidSeed)
	}
	if seed.Username == "" && seed.UserID == "" {
		return Credentials{}, fmt.Errorf("%w: username or user_id is required", ErrInvalidSeed)
	}

	grantType := seed.GrantType
	if grantType == "" {
		grantType = "password"
	}

	fields := map[string]string{
		"grant_type": grantType,
		"password":   seed.Password,
	}
	if seed.Username != "" {
		fields["username"] = seed.Username
	} else {
		fields["user_id"] = seed.UserID
	}

	base := Credentials{
		ClientID:     seed.ClientID,
		ClientSecret: seed.ClientSecret,
		BaseURL:      seed.BaseURL,
		AuthPath:     seed.AuthPath,
		Tolerance:    seed.Tolerance,
		UserID:       seed.UserID,
		Username:     seed.Username,
	}

	creds, err := m.grant(ctx, base, fields)
	if err != nil {
		return Credentials{}, err
	}

	m.logger.Info("authenticated", "grant_type", grantType, "expires", creds.Expires)
	return creds, nil
}

// Refresh exchanges the refresh token in creds for a new token pair
func (m *Manager) Refresh(ctx context.Context, creds Credentials) (Credentials, error) {
	if creds.RefreshToken == "" {
		return Credentials{}, ErrNoRefreshToken
	}

	refreshed, err := m.grant(ctx, creds, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": creds.RefreshToken,
	})
	if err != nil {
		return Credentials{}, err
	}

	m.logger.Info("access token refreshed", "expires", refreshed.Expires)
	return refreshed, nil
}

type grantResponse struct {
	Data *struct {
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		ExpiresIn    json.Number `json:"expires_in"`
	} `json:"data"`
}

// grant posts fields plus the client pair and returns base with fresh tokens and expiry
func (m *Manager) grant(ctx context.Context, base Credentials, fields map[string]string) (Credentials, error) {
	body := map[string]string{
		"client_id":     base.ClientID,
		"client_secret": base.ClientSecret,
	}
	for k, v := range fields {
		body[k] = v
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to marshal grant request: %w", err)
	}

	url := strings.TrimRight(base.BaseURL, "/") + base.authPath()
	resp, err := m.transport.Send(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    url,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   bodyBytes,
	})
	if err != nil {
		return Credentials{}, transport.Wrap(http.MethodPost, url, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		m.logger.Warn("grant rejected", "grant_type", fields["grant_type"], "status", resp.StatusCode)
		return Credentials{}, &AuthError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var parsed grantResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrInvalidGrantResponse, err)
	}
	if parsed.Data == nil || parsed.Data.AccessToken == "" {
		return Credentials{}, fmt.Errorf("%w: missing access_token", ErrInvalidGrantResponse)
	}

	expiresIn := m.defaultExpiresIn
	if parsed.Data.ExpiresIn != "" {
		secs, err := parsed.Data.ExpiresIn.Float64()
		if err != nil {
			return Credentials{}, fmt.Errorf("%w: expires_in %q: %v", ErrInvalidGrantResponse, parsed.Data.ExpiresIn, err)
		}
		if secs > 0 {
			expiresIn = maxExpiresIn
			if secs < maxExpiresIn.Seconds() {
				expiresIn = time.Duration(secs * float64(time.Second))
			}
		}
	}

	expires := m.now().UTC().Add(expiresIn)

	out := base
	out.AccessToken = parsed.Data.AccessToken
	if parsed.Data.RefreshToken != "" {
		out.RefreshToken = parsed.Data.RefreshToken
	}
	out.Expires = &expires
	return out, nil
}
