package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Client talks to the authentication service over HTTP. The refresh token
// lives only in the client's cookie jar.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client with its own cookie jar.
func NewClient(baseURL string) (*Client, error) {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: 10 * time.Second})
}

// NewClientWithHTTP uses hc, installing a cookie jar if it has none.
func NewClientWithHTTP(baseURL string, hc *http.Client) (*Client, error) {
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}
	return &Client{BaseURL: strings.TrimSuffix(baseURL, "/"), HTTPClient: hc}, nil
}

// Login exchanges credentials for an access token and stores the refresh
// cookie.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates the stored refresh cookie.
func (c *Client) Refresh(ctx context.Context) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshWith presents token explicitly instead of the jar's cookie. The
// rotated cookie from the response is discarded, the jar is left untouched.
func (c *Client) RefreshWith(ctx context.Context, token string) (*TokenResponse, error) {
	hc := *c.HTTPClient
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	hc.Jar = jar
	raw := &Client{BaseURL: c.BaseURL, HTTPClient: &hc}

	var out TokenResponse
	headers := map[string]string{"Cookie": (&http.Cookie{Name: RefreshCookieName, Value: token}).String()}
	if err := raw.doJSON(ctx, http.MethodPost, "/auth/refresh", nil, &out, headers); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the stored refresh token. The service clears the cookie
// whether or not the token was still valid.
func (c *Client) Logout(ctx context.Context) error {
	var out MessageResponse
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, &out, nil)
}

// Me returns the user the access token belongs to.
func (c *Client) Me(ctx context.Context, accessToken string) (*UserResponse, error) {
	var out UserResponse
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out, headers); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshCookie returns the refresh token currently held in the jar.
func (c *Client) RefreshCookie() string {
	u, err := url.Parse(c.url("/auth/refresh"))
	if err != nil {
		return ""
	}
	for _, ck := range c.HTTPClient.Jar.Cookies(u) {
		if ck.Name == RefreshCookieName {
			return ck.Value
		}
	}
	return ""
}

// Health checks liveness.
func (c *Client) Health(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready checks that the service can reach its database.
func (c *Client) Ready(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/ready", nil, &out, nil); err != nil {
		return nil, fmt.Errorf("not ready: %w", err)
	}
	return &out, nil
}
