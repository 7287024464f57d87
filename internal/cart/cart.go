// Package cart is the cart screen: optimistic quantity edits confirmed
// against the server, with a full re-fetch whenever a write fails.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"techworld_client/internal/api"
	"techworld_client/internal/models"
	"techworld_client/internal/nav"
	"techworld_client/internal/session"
	"techworld_client/internal/ui"
	"techworld_client/internal/utils"
)

var (
	// ErrUnknownLine is returned for edits to a product the cart does not hold.
	ErrUnknownLine = errors.New("product not in cart")
	// ErrMissingPrice aborts an edit before anything is sent.
	ErrMissingPrice = errors.New("cart line has no price")
	// ErrEmptyCart is returned by Checkout.
	ErrEmptyCart = errors.New("cart is empty")
)

// Backend is the part of the API client the cart needs.
type Backend interface {
	ListCart(ctx context.Context, token string) (models.Cart, error)
	UpdateCartItem(ctx context.Context, token string, req api.CartItemRequest) (api.MessageResponse, error)
	SubscribeCart(ctx context.Context, token string) (*api.CartEvents, error)
}

// Expirer ends the session after the server rejects the token.
type Expirer interface {
	Expire(ctx context.Context)
}

// Screen is the local copy of the server cart. All methods are safe for
// concurrent use.
type Screen struct {
	api      Backend
	sessions *session.Store
	expire   Expirer
	nav      nav.Navigator
	ui       ui.Prompter
	log      *slog.Logger

	mu    sync.Mutex
	lines []models.CartLine

	reload singleflight.Group
}

func NewScreen(b Backend, st *session.Store, exp Expirer, n nav.Navigator, p ui.Prompter, log *slog.Logger) *Screen {
	return &Screen{api: b, sessions: st, expire: exp, nav: n, ui: p, log: log}
}

// session loads the stored session or sends the user to Login.
func (s *Screen) session(ctx context.Context) (session.Session, error) {
	sess, err := s.sessions.Load(ctx)
	if err == nil && sess.HasToken() {
		return sess, nil
	}
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		s.log.Warn("session unreadable", "err", err)
	}
	s.setLines(nil)
	s.ui.Alert("Error", "User information not found. Please log in again.")
	s.nav.Replace(nav.Login, nil)
	return session.Session{}, session.ErrNoSession
}

// Load replaces the local lines with the server cart. On failure the cart
// shows empty.
func (s *Screen) Load(ctx context.Context) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	c, err := s.api.ListCart(ctx, sess.Token)
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		s.setLines(nil)
		s.expire.Expire(ctx)
		return err
	case err != nil:
		s.setLines(nil)
		s.log.Error("loading cart failed", "err", err)
		if api.Status(err) != 0 || errors.Is(err, api.ErrDecode) {
			s.ui.Alert("Error", api.Message(err, "Could not load the cart from the server."))
		} else {
			s.ui.Alert("Error", "Could not reach the server to load the cart.")
		}
		return err
	}

	s.setLines(c.Lines())
	return nil
}

// Reconcile re-fetches the cart. Overlapping calls share one request.
func (s *Screen) Reconcile(ctx context.Context) error {
	_, err, shared := s.reload.Do("cart", func() (any, error) {
		return nil, s.Load(ctx)
	})
	if shared {
		s.log.Debug("cart reload coalesced")
	}
	return err
}

func (s *Screen) setLines(lines []models.CartLine) {
	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()
}

// Lines returns a copy of the current lines.
func (s *Screen) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartLine(nil), s.lines...)
}

// Total is recomputed from the current lines on every call.
func (s *Screen) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Total(s.lines)
}

// Increase adds one unit locally and confirms the new quantity.
func (s *Screen) Increase(ctx context.Context, productID string) error {
	return s.change(ctx, productID, func(q int) int { return q + 1 })
}

// Decrease never goes below 1; removing a line is Remove.
func (s *Screen) Decrease(ctx context.Context, productID string) error {
	return s.change(ctx, productID, func(q int) int {
		if q <= 1 {
			return 1
		}
		return q - 1
	})
}

// Remove asks first. Declining leaves the cart untouched and sends nothing.
func (s *Screen) Remove(ctx context.Context, productID string) error {
	if !s.ui.Confirm("Remove product", "Are you sure you want to remove this product from your cart?") {
		return nil
	}
	return s.change(ctx, productID, func(int) int { return 0 })
}

// change applies next to the line locally, then confirms the new quantity
// with the server. Quantity 0 drops the line.
func (s *Screen) change(ctx context.Context, productID string, next func(int) int) error {
	sess, err := s.session(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	i := s.indexLocked(productID)
	if i < 0 {
		s.mu.Unlock()
		return ErrUnknownLine
	}
	line := s.lines[i]
	if !line.Price.Valid {
		s.mu.Unlock()
		s.log.Error("no price for cart line", "product_id", productID)
		s.ui.Alert("Error", "Price not found for this product.")
		s.Reconcile(ctx)
		return ErrMissingPrice
	}
	qty := next(line.Quantity)
	if qty <= 0 {
		s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
	} else {
		s.lines[i].Quantity = qty
	}
	s.mu.Unlock()

	return s.push(ctx, sess, productID, qty, line.Price.Decimal)
}

func (s *Screen) indexLocked(productID string) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Screen) push(ctx context.Context, sess session.Session, productID string, qty int, price decimal.Decimal) error {
	req := api.NewCartItemRequest(sess.UserID(), productID, qty, price)
	_, err := s.api.UpdateCartItem(ctx, sess.Token, req)
	switch {
	case err == nil:
		s.log.Info("cart updated", "product_id", productID, "quantity", qty)
		return nil
	case errors.Is(err, api.ErrUnauthorized):
		s.log.Warn("cart update rejected, session expired", "product_id", productID)
		s.setLines(nil)
		s.expire.Expire(ctx)
		return err
	}

	s.log.Error("cart update failed", "product_id", productID, "quantity", qty, "err", err)
	if api.Status(err) != 0 || errors.Is(err, api.ErrDecode) {
		s.ui.Alert("Error", api.Message(err, "Could not update the cart on the server."))
	} else {
		s.ui.Alert("Error", "Could not reach the server to update the cart.")
	}
	s.Reconcile(ctx)
	return err
}

// Checkout is not offered yet; it only reports what would be paid.
func (s *Screen) Checkout() error {
	lines := s.Lines()
	if len(lines) == 0 {
		s.ui.Alert("Cart", "Your cart is empty.")
		return ErrEmptyCart
	}
	s.ui.Alert("Checkout", fmt.Sprintf("Checkout is not available yet. Total: %s", utils.FormatVND(models.Total(lines))))
	return nil
}

// Watch reloads the cart whenever the server reports a change, until ctx
// ends or the stream drops.
func (s *Screen) Watch(ctx context.Context) error {
	sess, err := s.sessions.Load(ctx)
	if err != nil || !sess.HasToken() {
		return session.ErrNoSession
	}

	events, err := s.api.SubscribeCart(ctx, sess.Token)
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		s.setLines(nil)
		s.expire.Expire(ctx)
		return err
	case err != nil:
		return err
	}
	defer events.Close()
	stop := context.AfterFunc(ctx, func() { events.Close() })
	defer stop()

	s.log.Info("cart live sync started")
	for {
		ev, err := events.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("cart events: %w", err)
		}
		switch ev.Type {
		case "cart_updated":
			s.log.Debug("cart changed remotely", "count", ev.Count)
			s.Reconcile(ctx)
		case "error":
			s.log.Warn("cart event error", "message", ev.Message)
		}
	}
}
