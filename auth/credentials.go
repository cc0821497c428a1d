// Package auth implements the Wink OAuth credential lifecycle: the initial
// password grant, staleness detection and refresh-token renewal.
package auth

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultAuthPath  = "/oauth2/token"
	DefaultExpiresIn = 900 * time.Second
	DefaultTolerance = 10 * time.Second

	// maxExpiresIn caps server-supplied lifetimes so expiry arithmetic cannot overflow
	maxExpiresIn = 10 * 365 * 24 * time.Hour

	// expiresLayout is the persisted form of Credentials.Expires, always UTC
	expiresLayout = "2006-01-02 15:04:05"
)

// Credentials is the state needed to call the Wink API on behalf of a user.
// Values are replaced as a whole on refresh, never edited field by field.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expires      *time.Time // absolute UTC expiry of AccessToken; nil means unknown
	ClientID     string
	ClientSecret string
	BaseURL      string
	AuthPath     string // empty means DefaultAuthPath
	Tolerance    *int   // seconds; overrides the manager default when set
	UserID       string
	Username     string
}

// ToleranceOr returns the credential-level tolerance or def when none is set
func (c Credentials) ToleranceOr(def time.Duration) time.Duration {
	if c.Tolerance == nil {
		return def
	}
	return time.Duration(*c.Tolerance) * time.Second
}

func (c Credentials) authPath() string {
	if c.AuthPath == "" {
		return DefaultAuthPath
	}
	return c.AuthPath
}

type credentialsJSON struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      string `json:"expires,omitempty"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	BaseURL      string `json:"base_url"`
	AuthPath     string `json:"auth_path,omitempty"`
	Tolerance    *int   `json:"tolerance,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	Username     string `json:"username,omitempty"`
}

// MarshalJSON writes expires as "YYYY-MM-DD HH:MM:SS" in UTC
func (c Credentials) MarshalJSON() ([]byte, error) {
	out := credentialsJSON{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		BaseURL:      c.BaseURL,
		AuthPath:     c.AuthPath,
		Tolerance:    c.Tolerance,
		UserID:       c.UserID,
		Username:     c.Username,
	}
	if c.Expires != nil {
		out.Expires = c.Expires.UTC().Format(expiresLayout)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts expires in the persisted layout or RFC 3339
func (c *Credentials) UnmarshalJSON(data []byte) error {
	var in credentialsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*c = Credentials{
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		ClientID:     in.ClientID,
		ClientSecret: in.ClientSecret,
		BaseURL:      in.BaseURL,
		AuthPath:     in.AuthPath,
		Tolerance:    in.Tolerance,
		UserID:       in.UserID,
		Username:     in.Username,
	}

	if in.Expires != "" {
		expires, err := parseExpires(in.Expires)
		if err != nil {
			return err
		}
		c.Expires = &expires
	}
	return nil
}

func parseExpires(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(expiresLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expires value %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Seed is the input to the initial grant. The password is only ever sent,
// never copied into the resulting Credentials.
type Seed struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	AuthPath     string
	GrantType    string // defaults to "password"
	Username     string // takes precedence over UserID
	UserID       string
	Password     string
	Tolerance    *int
}
