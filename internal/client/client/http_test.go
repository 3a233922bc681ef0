package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", time.Second)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAuthenticate_Success(t *testing.T) {
	exp := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth", r.URL.Path)
		assert.Empty(t, r.Header.Get(common.AuthorizationHeaderName))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])
		assert.Equal(t, "pw", body["password"])

		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken": "tok", "expiresAt": exp, "id": "u1", "username": "Ana", "email": "ana@example.com",
		})
	})

	res, err := c.Authenticate(context.Background(), "ana@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", res.AccessToken)
	assert.True(t, exp.Equal(res.ExpiresAt))
	assert.Equal(t, Identity{ID: "u1", Username: "Ana", Email: "ana@example.com"}, res.Identity)
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Authentication failed"})
	})

	_, err := c.Authenticate(context.Background(), "ana@example.com", "bad")
	require.ErrorIs(t, err, common.ErrUnauthenticated)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Authentication failed", apiErr.Message)
}

func TestProfileAndRefresh_SendBearer(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(common.AuthorizationHeaderName) != "Bearer good" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			return
		}
		switch r.URL.Path {
		case "/auth/profile":
			writeJSON(w, http.StatusOK, map[string]string{"id": "u1", "username": "Ana", "email": "a@b.c"})
		case "/auth/refresh":
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "next", "id": "u1", "username": "Ana", "email": "a@b.c"})
		}
	})
	ctx := context.Background()

	id, err := c.Profile(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.ID)

	res, err := c.Refresh(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "next", res.AccessToken)
	assert.True(t, res.ExpiresAt.IsZero())

	_, err = c.Profile(ctx, "bad")
	require.ErrorIs(t, err, common.ErrUnauthenticated)
	_, err = c.Refresh(ctx, "bad")
	require.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, common.ErrForbidden},
		{http.StatusConflict, common.ErrorAlreadyExists},
		{http.StatusNotFound, common.ErrorNotFound},
		{http.StatusBadRequest, common.ErrorValidation},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusTeapot, ErrUnexpectedResponse},
	}
	for _, tt := range tests {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		err := c.Register(context.Background(), "Ana", "a@b.c", "pw")
		require.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestChangePassword(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["currentPassword"] != "old" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Authentication failed"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, c.ChangePassword(ctx, "tok", "old", "new"))
	require.ErrorIs(t, c.ChangePassword(ctx, "tok", "bad", "new"), common.ErrUnauthenticated)
}

func TestTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL, 50*time.Millisecond)
	_, err := c.Profile(context.Background(), "tok")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestMalformedBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	_, err := c.Profile(context.Background(), "tok")
	require.ErrorIs(t, err, ErrUnexpectedResponse)
}
