package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/folio/internal/client/client"
	"github.com/dmitrijs2005/folio/internal/common"
)

// getSimpleText and getPassword are indirections used in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Register(ctx, name, email, string(password)); err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			a.println("Account already exists.")
		case errors.Is(err, common.ErrorValidation):
			a.println("Invalid name, email or password.")
		default:
			a.println("Registration failed:", err)
		}
		return err
	}

	a.println("Success! You can log in now.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	env, err := a.session.Login(ctx, email, string(password))
	if err != nil {
		if errors.Is(err, common.ErrUnauthenticated) {
			a.println("Authentication failed.")
		} else {
			a.println("Login failed:", err)
		}
		return err
	}

	a.println(fmt.Sprintf("Logged in as %s (%s)", env.Identity.Username, env.Identity.Email))
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	token, err := a.session.Token(ctx)
	if err != nil {
		return a.sessionError(ctx, err)
	}

	id, err := a.api.Profile(ctx, token)
	if err != nil {
		return a.sessionError(ctx, err)
	}

	a.println(fmt.Sprintf("id:       %s\nusername: %s\nemail:    %s", id.ID, id.Username, id.Email))
	return nil
}

func (a *App) Status(ctx context.Context) error {
	env, ok := a.session.Current()
	if !ok {
		a.println("Not logged in.")
		return nil
	}

	st := a.validator.Validate(ctx)
	if !st.IsValid {
		a.forceLogout(ctx, st.Err)
		return st.Err
	}

	env, _ = a.session.Current()
	a.println(fmt.Sprintf("Logged in as %s, token expires %s, session started %s",
		env.Identity.Email, env.ExpiresAt.Local().Format(time.RFC1123), env.CreatedAt.Local().Format(time.RFC1123)))
	if st.Err != nil {
		a.println("Server could not be reached:", st.Err)
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	env, err := a.session.Refresh(ctx)
	if err != nil {
		return a.sessionError(ctx, err)
	}
	a.println("Token refreshed, expires " + env.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	current, err := getPassword("Current password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	token, err := a.session.Token(ctx)
	if err != nil {
		return a.sessionError(ctx, err)
	}

	if err := a.api.ChangePassword(ctx, token, string(current), string(next)); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			a.println("Current password is wrong.")
			return err
		}
		return a.sessionError(ctx, err)
	}

	a.println("Password changed.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.println("Logged out.")
	return nil
}

// sessionError reports err and ends the session when err requires it.
func (a *App) sessionError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrNoSession):
		a.println("Not logged in.")
	case endsSession(err):
		a.forceLogout(ctx, err)
	case errors.Is(err, client.ErrUnavailable):
		a.println("Server unavailable, try again later.")
	default:
		a.println("Error:", err)
	}
	return err
}
