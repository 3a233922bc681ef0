// Package validator periodically confirms with the server that the current
// access token is still accepted.
//
// It complements the deadline-based refresh in the session package: where
// that one refreshes ahead of a known expiry, the validator refreshes after an
// observed rejection. A rejected token gets exactly one refresh; if that
// fails, or the new token is rejected too, the session is reported invalid.
package validator

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/folio/internal/client/client"
	"github.com/dmitrijs2005/folio/internal/client/session"
	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/logging"
)

const DefaultInterval = 10 * time.Minute

// Status is the outcome of one validation.
//
// IsValid is false only when the session is gone or the server rejected it
// and one refresh could not recover it. A transient failure (server
// unreachable) leaves IsValid true and sets Err. NeedsRefresh reports that a
// rejection was seen and a refresh was attempted.
type Status struct {
	IsValid      bool
	NeedsRefresh bool
	Err          error
}

// Prober performs the authenticated round-trip.
type Prober interface {
	Profile(ctx context.Context, token string) (client.Identity, error)
}

// Session is the part of session.Controller the validator drives.
type Session interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (session.Envelope, error)
}

type Validator struct {
	session Session
	prober  Prober
	logger  logging.Logger
}

func New(s Session, p Prober, l logging.Logger) *Validator {
	return &Validator{session: s, prober: p, logger: l.With("module", "validator")}
}

func (v *Validator) Validate(ctx context.Context) Status {
	token, err := v.session.Token(ctx)
	if err != nil {
		return Status{IsValid: false, Err: err}
	}

	err = v.probe(ctx, token)
	if err == nil {
		return Status{IsValid: true}
	}
	if !errors.Is(err, common.ErrUnauthenticated) {
		v.logger.Warn(ctx, "validation inconclusive", "error", err)
		return Status{IsValid: true, Err: err}
	}

	v.logger.Info(ctx, "token rejected, refreshing")

	env, err := v.session.Refresh(ctx)
	if err != nil {
		return Status{IsValid: false, NeedsRefresh: true, Err: err}
	}

	if err := v.probe(ctx, env.AccessToken); err != nil {
		if errors.Is(err, common.ErrUnauthenticated) {
			return Status{IsValid: false, NeedsRefresh: true, Err: err}
		}
		return Status{IsValid: true, NeedsRefresh: true, Err: err}
	}
	return Status{IsValid: true, NeedsRefresh: true}
}

func (v *Validator) probe(ctx context.Context, token string) error {
	_, err := v.prober.Profile(ctx, token)
	return err
}

// Run validates immediately and then every interval until ctx is done,
// passing each result to onStatus. Ticks with no active session are skipped.
func (v *Validator) Run(ctx context.Context, interval time.Duration, onStatus func(Status)) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	report := func() {
		st := v.Validate(ctx)
		if errors.Is(st.Err, common.ErrNoSession) || ctx.Err() != nil {
			return
		}
		onStatus(st)
	}

	report()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report()
		case <-ctx.Done():
			return
		}
	}
}
