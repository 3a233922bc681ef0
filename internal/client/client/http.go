package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
)

// Identity is the account identity carried by an access token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthResult is returned by Authenticate and Refresh. ExpiresAt is zero when
// the server did not report an expiry.
type AuthResult struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Identity
}

// APIError is a non-2xx response. It unwraps to the matching sentinel.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is kept
// as given.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	res := &AuthResult{}
	err := c.do(ctx, http.MethodPost, "/auth", "", map[string]string{"email": email, "password": password}, res)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			apiErr.kind = common.ErrUnauthenticated
		}
		return nil, err
	}
	return res, nil
}

func (c *HTTPClient) Profile(ctx context.Context, token string) (Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/auth/profile", token, nil, &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, token string) (*AuthResult, error) {
	res := &AuthResult{}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", token, nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *HTTPClient) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/user", "", body, nil)
}

func (c *HTTPClient) ChangePassword(ctx context.Context, token, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	err := c.do(ctx, http.MethodPut, "/user/password", token, body, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
		apiErr.kind = common.ErrUnauthenticated
	}
	return err
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

func newAPIError(resp *http.Response) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	e := &APIError{Status: resp.StatusCode, Message: payload.Error}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		e.kind = common.ErrUnauthenticated
	case resp.StatusCode == http.StatusForbidden:
		e.kind = common.ErrForbidden
	case resp.StatusCode == http.StatusConflict:
		e.kind = common.ErrorAlreadyExists
	case resp.StatusCode == http.StatusNotFound:
		e.kind = common.ErrorNotFound
	case resp.StatusCode == http.StatusBadRequest:
		e.kind = common.ErrorValidation
	case resp.StatusCode >= 500:
		e.kind = ErrUnavailable
	default:
		e.kind = ErrUnexpectedResponse
	}
	return e
}
