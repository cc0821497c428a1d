// Package wink is the entry point to the Wink cloud: it wires credentials,
// the authorized API client and the device registry together and keeps the
// current device snapshot.
package wink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"winkcloud/api"
	"winkcloud/auth"
	"winkcloud/devices"
	"winkcloud/internal/logging"
	"winkcloud/transport"
)

// ErrUnknownDevice is returned by Populate in strict mode when a descriptor
// matches no registered kind
var ErrUnknownDevice = errors.New("unknown device kind")

// Client is safe for concurrent use
type Client struct {
	api      *api.Client
	session  *auth.Session
	manager  *auth.Manager
	registry *devices.Registry
	logger   *slog.Logger
	strict   bool
	closer   io.Closer

	index atomic.Pointer[index]
}

type options struct {
	transport        transport.Transport
	registry         *devices.Registry
	logger           *slog.Logger
	store            auth.CredentialStore
	userAgent        string
	headers          http.Header
	tolerance        *time.Duration
	defaultExpiresIn time.Duration
	authPath         string
	clock            func() time.Time
	strict           bool
}

// Option configures a Client
type Option func(*options)

// WithTransport replaces the default net/http transport
func WithTransport(t transport.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithRegistry replaces the registry of built-in device kinds
func WithRegistry(r *devices.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithLogger sets the logger shared by every component
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore persists refreshed credentials to store
func WithStore(store auth.CredentialStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithUserAgent replaces api.DefaultUserAgent
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		o.userAgent = userAgent
	}
}

// WithHeaders adds headers sent on every resource call
func WithHeaders(headers http.Header) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// WithTolerance sets how long before expiry a token counts as stale
func WithTolerance(d time.Duration) Option {
	return func(o *options) {
		o.tolerance = &d
	}
}

// WithDefaultExpiresIn sets the lifetime assumed when a grant omits expires_in
func WithDefaultExpiresIn(d time.Duration) Option {
	return func(o *options) {
		o.defaultExpiresIn = d
	}
}

// WithAuthPath overrides the token endpoint path
func WithAuthPath(path string) Option {
	return func(o *options) {
		o.authPath = path
	}
}

// WithClock replaces time.Now for expiry arithmetic
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithStrictDevices makes Populate fail on devices of unregistered kinds
// instead of skipping them
func WithStrictDevices(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.transport == nil {
		o.transport = transport.NewHTTP(transport.WithLogger(o.logger))
	}
	if o.registry == nil {
		o.registry = defaultRegistry()
	}

	return o
}

// defaultRegistry panics only if a built-in kind is invalid
func defaultRegistry() *devices.Registry {
	r := devices.NewRegistry()
	if err := devices.RegisterDefaults(r); err != nil {
		panic(fmt.Sprintf("wink: register built-in device kinds: %v", err))
	}
	return r
}

func (o *options) manager() *auth.Manager {
	mopts := []auth.ManagerOption{auth.WithLogger(o.logger)}
	if o.clock != nil {
		mopts = append(mopts, auth.WithClock(o.clock))
	}
	if o.defaultExpiresIn > 0 {
		mopts = append(mopts, auth.WithDefaultExpiresIn(o.defaultExpiresIn))
	}
	if o.tolerance != nil {
		mopts = append(mopts, auth.WithTolerance(*o.tolerance))
	}
	return auth.NewManager(o.transport, mopts...)
}

func newClient(o *options, manager *auth.Manager, creds auth.Credentials) *Client {
	if o.authPath != "" {
		creds.AuthPath = o.authPath
	}

	session := auth.NewSession(manager, creds, o.store, o.logger)

	aopts := []api.Option{api.WithLogger(o.logger)}
	if o.userAgent != "" {
		aopts = append(aopts, api.WithUserAgent(o.userAgent))
	}
	if len(o.headers) > 0 {
		aopts = append(aopts, api.WithHeaders(o.headers))
	}

	c := &Client{
		api:      api.NewClient(session, o.transport, aopts...),
		session:  session,
		manager:  manager,
		registry: o.registry,
		logger:   o.logger.With("component", "wink"),
		strict:   o.strict,
	}
	c.index.Store(newIndex())

	return c
}

// New creates a client around existing credentials. Refreshes are only
// persisted when WithStore is given.
func New(creds auth.Credentials, opts ...Option) *Client {
	o := buildOptions(opts)
	return newClient(o, o.manager(), creds)
}

// Open creates a client from the credentials saved in store and persists
// every refresh back to it
func Open(ctx context.Context, store auth.CredentialStore, opts ...Option) (*Client, error) {
	creds, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	o := buildOptions(append(append([]Option(nil), opts...), WithStore(store)))
	return newClient(o, o.manager(), creds), nil
}

// Login performs the initial grant for seed. The resulting credentials are
// saved when WithStore is given.
func Login(ctx context.Context, seed auth.Seed, opts ...Option) (*Client, error) {
	o := buildOptions(opts)
	if o.authPath != "" && seed.AuthPath == "" {
		seed.AuthPath = o.authPath
	}

	manager := o.manager()
	creds, err := manager.Authenticate(ctx, seed)
	if err != nil {
		return nil, err
	}

	c := newClient(o, manager, creds)
	if o.store != nil {
		if err := o.store.Save(ctx, creds); err != nil {
			return nil, fmt.Errorf("failed to save credentials: %w", err)
		}
	}
	return c, nil
}

// Credentials returns the credentials held right now
func (c *Client) Credentials() auth.Credentials {
	return c.session.Current()
}

// API exposes the underlying authorized client for endpoints without a
// dedicated accessor
func (c *Client) API() *api.Client {
	return c.api
}

// Registry returns the registry used to classify devices
func (c *Client) Registry() *devices.Registry {
	return c.registry
}

// Close releases the credential store opened by FromConfig. It is a no-op
// for clients built any other way.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Get implements devices.Owner
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.api.Get(ctx, path, out)
}

// Put implements devices.Owner
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.api.Put(ctx, path, body, out)
}

// Post implements devices.Owner
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.api.Post(ctx, path, body, out)
}

// Delete implements devices.Owner
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.api.Delete(ctx, path)
}
