// Package session persists the logged-in user and token as a single JSON blob.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"techworld_client/internal/models"
	"techworld_client/internal/storage"
)

// Key is the storage slot holding the session blob.
const Key = "userData"

var (
	// ErrNoSession means nothing usable is stored: the user is logged out.
	ErrNoSession = errors.New("no session")
	// ErrCorrupt wraps the decode error of a malformed blob.
	ErrCorrupt = errors.New("session data corrupt")
)

// Session is the login response as persisted.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// HasToken reports whether a non-blank token is present.
func (s Session) HasToken() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Claims is the subset of the token payload the client looks at.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Claims reads the token payload without verifying the signature; the client
// never holds the signing key. Only used for diagnostics and the user id fallback.
func (s Session) Claims() (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, mc); err != nil {
		return Claims{}, err
	}

	var c Claims
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if sub, err := mc.GetSubject(); err == nil && sub != "" {
		c.Subject = sub
	} else if uid, ok := mc["user_id"].(string); ok {
		c.Subject = uid
	}
	return c, nil
}

// Expired reports whether the token carries an exp claim in the past.
func (s Session) Expired(now time.Time) bool {
	c, err := s.Claims()
	if err != nil || c.ExpiresAt.IsZero() {
		return false
	}
	return now.After(c.ExpiresAt)
}

// UserID prefers the stored user record and falls back to the token subject.
func (s Session) UserID() string {
	if s.User.ID != "" {
		return s.User.ID
	}
	if c, err := s.Claims(); err == nil {
		return c.Subject
	}
	return ""
}

// Store reads and writes the session blob through a storage backend.
type Store struct {
	kv storage.Store
}

func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Load returns ErrNoSession when nothing is stored and ErrCorrupt when the
// blob does not decode.
func (s *Store) Load(ctx context.Context) (Session, error) {
	raw, ok, err := s.kv.GetItem(ctx, Key)
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return Session{}, ErrNoSession
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return sess, nil
}

// Save replaces the stored blob with sess.
func (s *Store) Save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.kv.SetItem(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// SaveRaw stores the login response verbatim after checking it decodes.
func (s *Store) SaveRaw(ctx context.Context, raw []byte) (Session, error) {
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := s.kv.SetItem(ctx, Key, string(raw)); err != nil {
		return Session{}, fmt.Errorf("write session: %w", err)
	}
	return sess, nil
}

// Clear removes the blob; clearing an absent session is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.RemoveItem(ctx, Key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
