// Package account backs the profile tab and the account settings screen.
package account

import (
	"context"
	"errors"
	"log/slog"

	"techworld_client/internal/auth"
	"techworld_client/internal/models"
	"techworld_client/internal/nav"
	"techworld_client/internal/session"
	"techworld_client/internal/ui"
)

type Screen struct {
	sessions *session.Store
	flow     *auth.Flow
	nav      nav.Navigator
	ui       ui.Prompter
	log      *slog.Logger
}

func NewScreen(st *session.Store, flow *auth.Flow, n nav.Navigator, p ui.Prompter, log *slog.Logger) *Screen {
	return &Screen{sessions: st, flow: flow, nav: n, ui: p, log: log}
}

// Profile returns the logged-in user, or a guest placeholder.
func (s *Screen) Profile(ctx context.Context) models.User {
	sess, err := s.sessions.Load(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			s.log.Warn("session unreadable", "err", err)
		}
		return models.User{Name: "Guest User"}
	}
	return sess.User
}

func (s *Screen) OpenSettings() {
	s.nav.Navigate(nav.AccountSetting, nil)
}

// Settings reads the stored user for the settings screen. Without one the
// screen cannot be shown and the user is sent back.
func (s *Screen) Settings(ctx context.Context) (models.User, error) {
	sess, err := s.sessions.Load(ctx)
	if err != nil {
		s.log.Warn("account settings without session", "err", err)
		s.ui.Alert("Error", "User information not found. Please log in again.")
		s.nav.GoBack()
		return models.User{}, err
	}
	return sess.User, nil
}

func (s *Screen) Logout(ctx context.Context) bool {
	return s.flow.Logout(ctx)
}
