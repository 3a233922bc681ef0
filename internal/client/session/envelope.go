package session

import (
	"time"

	"github.com/dmitrijs2005/folio/internal/client/client"
)

// Envelope is the client-held session: the current backend access token plus
// the bookkeeping needed to refresh it. Values handed out by the Controller
// are snapshots; changing them has no effect on the session.
type Envelope struct {
	AccessToken string
	Identity    client.Identity
	// ExpiresAt is the backend token's expiry.
	ExpiresAt time.Time
	// CreatedAt is the login time; the envelope dies at CreatedAt+MaxAge
	// however often the token is refreshed.
	CreatedAt time.Time
	// Err is set to common.ErrRefreshFailed once a refresh was refused.
	Err error
}

// NeedsRefresh reports whether now is past ExpiresAt-skew.
func (e Envelope) NeedsRefresh(now time.Time, skew time.Duration) bool {
	return now.After(e.ExpiresAt.Add(-skew))
}

// Expired reports whether the envelope outlived maxAge.
func (e Envelope) Expired(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && !now.Before(e.CreatedAt.Add(maxAge))
}
