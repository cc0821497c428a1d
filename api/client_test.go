package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winkcloud/auth"
	"winkcloud/transport"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func validCredentials(baseURL string) auth.Credentials {
	expires := fixedNow.Add(time.Hour)
	return auth.Credentials{
		AccessToken:  "access-0",
		RefreshToken: "refresh-0",
		Expires:      &expires,
		ClientID:     "client",
		ClientSecret: "secret",
		BaseURL:      baseURL,
	}
}

func newTestClient(creds auth.Credentials, tr transport.Transport, opts ...Option) *Client {
	manager := auth.NewManager(tr, auth.WithClock(func() time.Time { return fixedNow }))
	return NewClient(auth.NewSession(manager, creds, nil, nil), tr, opts...)
}

// recorder answers every call with the same status and body and keeps the last request
type recorder struct {
	mu     sync.Mutex
	last   transport.Request
	calls  int
	status int
	body   string
}

func (r *recorder) Send(ctx context.Context, req transport.Request) (transport.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = req
	r.calls++
	return transport.Response{StatusCode: r.status, Body: []byte(r.body)}, nil
}

func TestClient_GetExtractsData(t *testing.T) {
	rec := &recorder{status: 200, body: `{"data":{"user_id":"7","email":"a@b.c"},"errors":[]}`}
	client := newTestClient(validCredentials("https://api.example.com"), rec)

	var profile map[string]any
	require.NoError(t, client.Get(context.Background(), "/users/me", &profile))

	assert.Equal(t, map[string]any{"user_id": "7", "email": "a@b.c"}, profile)
	assert.Equal(t, "GET", rec.last.Method)
	assert.Equal(t, "https://api.example.com/users/me", rec.last.URL)
	assert.Equal(t, "Bearer access-0", rec.last.Header.Get("Authorization"))
	assert.Equal(t, DefaultUserAgent, rec.last.Header.Get("User-Agent"))
	assert.Empty(t, rec.last.Header.Get("Content-Type"))
	assert.Empty(t, rec.last.Body)
}

func TestClient_Headers(t *testing.T) {
	rec := &recorder{status: 200, body: `{}`}
	client := newTestClient(validCredentials("https://x"), rec,
		WithUserAgent("test-agent/1.0"),
		WithHeaders(http.Header{"x-client": []string{"tests"}}))

	_, err := client.Raw(context.Background(), Request{
		Method: "GET",
		Path:   "/icons",
		Header: http.Header{
			"authorization": []string{"Bearer stolen"},
			"X-Extra":       []string{"1"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer access-0", rec.last.Header.Get("Authorization"))
	assert.Len(t, rec.last.Header.Values("Authorization"), 1)
	assert.Equal(t, "test-agent/1.0", rec.last.Header.Get("User-Agent"))
	assert.Equal(t, "tests", rec.last.Header.Get("X-Client"))
	assert.Equal(t, "1", rec.last.Header.Get("X-Extra"))
}

func TestClient_BodyEncoding(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "map", body: map[string]any{"email": "a@b.c"}, want: `{"email":"a@b.c"}`},
		{name: "string", body: `{"raw":true}`, want: `{"raw":true}`},
		{name: "bytes", body: []byte(`{"b":1}`), want: `{"b":1}`},
		{name: "struct", body: struct {
			Name string `json:"name"`
		}{"Lamp"}, want: `{"name":"Lamp"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{status: 202, body: ``}
			client := newTestClient(validCredentials("https://x"), rec)

			require.NoError(t, client.Put(context.Background(), "/users/me", tt.body, nil))
			assert.Equal(t, tt.want, string(rec.last.Body))
			assert.Equal(t, "application/json", rec.last.Header.Get("Content-Type"))
		})
	}
}

func TestClient_UnexpectedStatus(t *testing.T) {
	rec := &recorder{status: 403, body: `{"data":null}`}
	client := newTestClient(validCredentials("https://x"), rec)

	err := client.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, StatusSet{200}, statusErr.Expected)
	assert.Equal(t, 403, statusErr.Actual)
	assert.Equal(t, "GET", statusErr.Method)
	assert.Equal(t, "/users/me", statusErr.Path)
	assert.Equal(t, "expected status {200}, but got 403 for GET /users/me", err.Error())
}

func TestClient_ExpectedStatuses(t *testing.T) {
	tests := []struct {
		name    string
		call    func(c *Client) error
		status  int
		wantErr bool
	}{
		{name: "post 201", status: 201, call: func(c *Client) error { return c.Post(context.Background(), "/p", map[string]any{}, nil) }},
		{name: "put 204", status: 204, call: func(c *Client) error { return c.Put(context.Background(), "/p", map[string]any{}, nil) }},
		{name: "put 400", status: 400, wantErr: true, call: func(c *Client) error { return c.Put(context.Background(), "/p", map[string]any{}, nil) }},
		{name: "delete 204", status: 204, call: func(c *Client) error { return c.Delete(context.Background(), "/p") }},
		{name: "delete 200", status: 200, wantErr: true, call: func(c *Client) error { return c.Delete(context.Background(), "/p") }},
		{name: "get 201", status: 201, wantErr: true, call: func(c *Client) error { return c.Get(context.Background(), "/p", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(validCredentials("https://x"), &recorder{status: tt.status})
			err := tt.call(client)
			if tt.wantErr {
				var statusErr *HTTPStatusError
				assert.True(t, errors.As(err, &statusErr))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClient_CustomExpectedAndBaseURL(t *testing.T) {
	rec := &recorder{status: 418, body: `{"data":{"ok":true}}`}
	client := newTestClient(validCredentials("https://x"), rec)

	data, err := client.Raw(context.Background(), Request{
		Method:   "GET",
		Path:     "/teapot",
		Expected: StatusSet{418},
		BaseURL:  "https://other.example.com/",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, "https://other.example.com/teapot", rec.last.URL)
}

func TestClient_APIErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{name: "string list", body: `{"errors":["bad token","try again"]}`, want: []string{"bad token", "try again"}},
		{name: "object list", body: `{"errors":[{"message":"invalid field"}]}`, want: []string{"invalid field"}},
		{name: "bare string", body: `{"errors":"nope"}`, want: []string{"nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(validCredentials("https://x"), &recorder{status: 200, body: tt.body})

			err := client.Get(context.Background(), "/users/me", nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.want, apiErr.Messages)
			assert.Equal(t, 200, apiErr.StatusCode)
		})
	}
}

func TestClient_APIErrorJoinsMessages(t *testing.T) {
	client := newTestClient(validCredentials("https://x"), &recorder{status: 200, body: `{"errors":["a","b"]}`})
	err := client.Get(context.Background(), "/channels", nil)
	assert.EqualError(t, err, "api error for GET /channels: a\nb")
}

func TestClient_EmptyErrorsIgnored(t *testing.T) {
	for _, body := range []string{`{"errors":[]}`, `{"errors":null}`, `{"errors":""}`, `not json`, `[1,2]`} {
		client := newTestClient(validCredentials("https://x"), &recorder{status: 200, body: body})
		data, err := client.Raw(context.Background(), Request{Method: "GET", Path: "/x"})
		require.NoError(t, err, body)
		assert.JSONEq(t, `{}`, string(data), body)
	}
}

func TestClient_MissingDataLeavesOutUntouched(t *testing.T) {
	client := newTestClient(validCredentials("https://x"), &recorder{status: 200, body: `{"pagination":{}}`})

	out := []string{"kept"}
	require.NoError(t, client.Get(context.Background(), "/x", &out))
	assert.Equal(t, []string{"kept"}, out)
}

func TestClient_DecodeError(t *testing.T) {
	client := newTestClient(validCredentials("https://x"), &recorder{status: 200, body: `{"data":"text"}`})

	var out map[string]any
	err := client.Get(context.Background(), "/x", &out)
	assert.ErrorContains(t, err, "failed to decode GET /x response")
}

func TestClient_TransportErrorIsDistinct(t *testing.T) {
	tr := transport.Func(func(ctx context.Context, req transport.Request) (transport.Response, error) {
		return transport.Response{}, context.DeadlineExceeded
	})
	client := newTestClient(validCredentials("https://x"), tr)

	err := client.Get(context.Background(), "/users/me", nil)
	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	assert.True(t, terr.Timeout())
	assert.Equal(t, "https://x/users/me", terr.URL)

	var statusErr *HTTPStatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestClient_RefreshesStaleCredentialsBeforeRequest(t *testing.T) {
	var grants atomic.Int32
	var resourceAuth []string
	var mu sync.Mutex

	tr := transport.Func(func(ctx context.Context, req transport.Request) (transport.Response, error) {
		if req.URL == "https://x/oauth2/token" {
			grants.Add(1)
			time.Sleep(10 * time.Millisecond)
			return transport.Response{StatusCode: 200, Body: []byte(`{"data":{"access_token":"access-1","refresh_token":"refresh-1","expires_in":900}}`)}, nil
		}
		mu.Lock()
		resourceAuth = append(resourceAuth, req.Header.Get("Authorization"))
		mu.Unlock()
		return transport.Response{StatusCode: 200, Body: []byte(`{"data":{}}`)}, nil
	})

	creds := validCredentials("https://x")
	creds.Expires = nil

	store := auth.NewMemoryStore(nil)
	manager := auth.NewManager(tr, auth.WithClock(func() time.Time { return fixedNow }))
	session := auth.NewSession(manager, creds, store, nil)
	client := NewClient(session, tr)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.Get(context.Background(), "/users/me", nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), grants.Load())
	require.Len(t, resourceAuth, 8)
	for _, h := range resourceAuth {
		assert.Equal(t, "Bearer access-1", h)
	}

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", saved.AccessToken)
}

func TestClient_RefreshFailureSurfacesAuthError(t *testing.T) {
	rec := &recorder{status: 401, body: `{}`}
	creds := validCredentials("https://x")
	creds.Expires = nil
	client := newTestClient(creds, rec)

	err := client.Get(context.Background(), "/users/me", nil)
	var authErr *auth.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, 401, authErr.StatusCode)
	assert.Equal(t, 1, rec.calls)
}

func TestClient_OverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/linked_services", r.URL.Path)
		assert.Equal(t, "Bearer access-0", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "twitter", payload["service_type"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"linked_service_id": "9"}})
	}))
	defer server.Close()

	client := newTestClient(validCredentials(server.URL), transport.NewHTTP())

	var created map[string]any
	err := client.Post(context.Background(), "/users/me/linked_services", map[string]any{"service_type": "twitter"}, &created)
	require.NoError(t, err)
	assert.Equal(t, "9", created["linked_service_id"])
}

func TestStatusSet(t *testing.T) {
	assert.True(t, ExpectWrite.Contains(204))
	assert.False(t, ExpectOK.Contains(204))
	assert.Equal(t, "{200,201,202,204}", ExpectWrite.String())
}

func TestClient_NilLogger(t *testing.T) {
	var client *Client
	assert.NotPanics(t, func() {
		client = newTestClient(validCredentials("https://x"), &recorder{status: 200, body: `{}`}, WithLogger(nil))
	})
	assert.NotNil(t, client.logger)
}
