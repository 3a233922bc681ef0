// Package common contains shared constants and sentinel errors used across
// folio components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token on
// protected requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authorization scheme prefix, including the trailing space.
const BearerScheme = "Bearer "
