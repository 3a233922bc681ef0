// Package client is the HTTP API client for the folio backend.
//
// HTTPClient talks to the REST surface (POST /auth, GET /auth/profile,
// POST /auth/refresh, POST /user, PUT /user/password). Every call is bounded
// by the configured request timeout. Responses are mapped to sentinel errors
// so callers can use errors.Is:
//
//   - 401, and 400 from POST /auth: common.ErrUnauthenticated
//   - 403: common.ErrForbidden
//   - 409: common.ErrorAlreadyExists
//   - other 400: common.ErrorValidation
//   - transport failures and timeouts: ErrUnavailable
//
// The client holds no token state; callers pass the token explicitly. Token
// lifetime management belongs to the session package.
package client
