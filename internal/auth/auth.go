// Package auth decides the first screen and handles login, registration and
// logout against the persisted session.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"techworld_client/internal/api"
	"techworld_client/internal/nav"
	"techworld_client/internal/session"
	"techworld_client/internal/ui"
)

// State is where bootstrap and the login flow currently stand.
type State int

const (
	Checking State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	}
	return "checking"
}

const minPasswordLen = 6

// Backend is the part of the API client auth needs.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) ([]byte, error)
	Register(ctx context.Context, creds api.Credentials) (api.MessageResponse, error)
}

// Flow owns the session lifecycle: bootstrap, login, register, logout and
// forced expiry.
type Flow struct {
	api      Backend
	sessions *session.Store
	nav      nav.Navigator
	ui       ui.Prompter
	log      *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	state State
}

// NewFlow starts in Checking until Bootstrap runs.
func NewFlow(b Backend, st *session.Store, n nav.Navigator, p ui.Prompter, log *slog.Logger) *Flow {
	return &Flow{
		api:      b,
		sessions: st,
		nav:      n,
		ui:       p,
		log:      log,
		now:      time.Now,
		state:    Checking,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Bootstrap resolves the launch route. Storage problems of any kind send the
// user to Login; they never abort the app.
func (f *Flow) Bootstrap(ctx context.Context) State {
	sess, err := f.sessions.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNoSession):
		f.log.Info("no stored session")
		return f.resolve(Unauthenticated)
	case err != nil:
		f.log.Warn("session unreadable, treating as logged out", "err", err)
		return f.resolve(Unauthenticated)
	case !sess.HasToken():
		f.log.Info("stored session has no token")
		return f.resolve(Unauthenticated)
	}

	if sess.Expired(f.now()) {
		// the server has the final say; a 401 on the next write logs us out
		f.log.Warn("stored token looks expired", "user_id", sess.UserID())
	}
	return f.resolve(Authenticated)
}

func (f *Flow) resolve(s State) State {
	f.setState(s)
	if s == Authenticated {
		f.nav.Replace(nav.Main, nil)
	} else {
		f.nav.Replace(nav.Login, nil)
	}
	return s
}

// Login stays on the current screen on any failure and writes no session.
func (f *Flow) Login(ctx context.Context, email, password string) bool {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		f.ui.Alert("Login", "Please enter your email and password.")
		return false
	}

	raw, err := f.api.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			f.log.Info("login rejected", "status", apiErr.Status)
			f.ui.Alert("Login failed", "Incorrect email or password.")
		} else {
			f.log.Error("login request failed", "err", err)
			f.ui.Alert("Login error", "Something went wrong while logging in. Please try again.")
		}
		return false
	}

	sess, err := f.sessions.SaveRaw(ctx, raw)
	if err != nil {
		f.log.Error("saving session failed", "err", err)
		f.ui.Alert("Login error", "Something went wrong while logging in. Please try again.")
		return false
	}
	if !sess.HasToken() {
		f.log.Warn("login response carried no token")
	}

	f.setState(Authenticated)
	f.log.Info("logged in", "user_id", sess.UserID())
	f.ui.Alert("Success", "Logged in successfully.")
	f.nav.Navigate(nav.Main, nil)
	return true
}

// Register validates the form locally before calling the server and sends
// the user to Login on success.
func (f *Flow) Register(ctx context.Context, email, password, confirm string) bool {
	email = strings.TrimSpace(email)
	switch {
	case email == "" || password == "" || confirm == "":
		f.ui.Alert("Register", "Please fill in every field.")
		return false
	case !strings.Contains(email, "@"):
		f.ui.Alert("Register", "Please enter a valid email address.")
		return false
	case utf8.RuneCountInString(password) < minPasswordLen:
		f.ui.Alert("Register", "Password must be at least 6 characters.")
		return false
	case password != confirm:
		f.ui.Alert("Register", "Passwords do not match.")
		return false
	}

	resp, err := f.api.Register(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		f.log.Warn("register failed", "status", api.Status(err), "err", err)
		f.ui.Alert("Register failed", api.Message(err, "Could not create the account. Please try again."))
		return false
	}

	msg := resp.Message
	if msg == "" {
		msg = "Account created. You can log in now."
	}
	f.ui.Alert("Success", msg)
	f.nav.Navigate(nav.Login, nil)
	return true
}

// Logout asks first; the session is only dropped on confirmation.
func (f *Flow) Logout(ctx context.Context) bool {
	if !f.ui.Confirm("Confirm", "Are you sure you want to log out?") {
		return false
	}
	if err := f.sessions.Clear(ctx); err != nil {
		f.log.Error("logout failed", "err", err)
		f.ui.Alert("Error", "Something went wrong while logging out.")
		return false
	}
	f.setState(Unauthenticated)
	f.nav.Replace(nav.Login, nil)
	return true
}

// Expire is the shared reaction to a 401: drop the session and force the
// user back to Login.
func (f *Flow) Expire(ctx context.Context) {
	if err := f.sessions.Clear(ctx); err != nil {
		f.log.Error("clearing expired session failed", "err", err)
	}
	f.setState(Unauthenticated)
	f.ui.Alert("Session expired", "Your session has expired. Please log in again.")
	f.nav.Replace(nav.Login, nil)
}
