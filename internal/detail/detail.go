// Package detail shows one product and puts it in the cart.
package detail

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"techworld_client/internal/api"
	"techworld_client/internal/models"
	"techworld_client/internal/nav"
	"techworld_client/internal/session"
	"techworld_client/internal/ui"
	"techworld_client/internal/utils"
)

var (
	ErrNoProduct = errors.New("no product loaded")
	ErrNoPrice   = errors.New("product has no price")
)

// Backend is the part of the API client the detail screen needs.
type Backend interface {
	ProductDetail(ctx context.Context, id string) (models.Product, error)
	AddCartItem(ctx context.Context, token string, req api.CartItemRequest) (api.MessageResponse, error)
	ProductURL(id string) string
}

// Expirer ends the session after the server rejects the token.
type Expirer interface {
	Expire(ctx context.Context)
}

// Screen holds at most one fully loaded product.
type Screen struct {
	api      Backend
	sessions *session.Store
	expire   Expirer
	nav      nav.Navigator
	ui       ui.Prompter
	log      *slog.Logger

	mu      sync.Mutex
	product *models.Product
}

func NewScreen(b Backend, st *session.Store, exp Expirer, n nav.Navigator, p ui.Prompter, log *slog.Logger) *Screen {
	return &Screen{api: b, sessions: st, expire: exp, nav: n, ui: p, log: log}
}

// Load replaces the shown product. Any failure leaves the screen empty and
// pops back to where the user came from.
func (s *Screen) Load(ctx context.Context, id string) error {
	s.setProduct(nil)

	id = strings.TrimSpace(id)
	if id == "" {
		s.ui.Alert("Error", "Missing product id.")
		s.nav.GoBack()
		return ErrNoProduct
	}

	p, err := s.api.ProductDetail(ctx, id)
	if err != nil {
		s.log.Error("loading product failed", "product_id", id, "err", err)
		s.ui.Alert("Error", api.Message(err, "Could not load product details."))
		s.nav.GoBack()
		return err
	}

	s.setProduct(&p)
	return nil
}

func (s *Screen) setProduct(p *models.Product) {
	s.mu.Lock()
	s.product = p
	s.mu.Unlock()
}

// Product returns the loaded product, if any.
func (s *Screen) Product() (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.product == nil {
		return models.Product{}, false
	}
	return *s.product, true
}

// SpecRows lists the labelled specification rows of the loaded product.
func (s *Screen) SpecRows() []models.SpecRow {
	p, ok := s.Product()
	if !ok {
		return nil
	}
	return p.SpecRows()
}

// AddToCart adds one unit of the loaded product at its current price.
func (s *Screen) AddToCart(ctx context.Context) error {
	p, ok := s.Product()
	if !ok {
		return ErrNoProduct
	}

	sess, err := s.sessions.Load(ctx)
	if err != nil || !sess.HasToken() {
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			s.log.Warn("session unreadable", "err", err)
		}
		if s.ui.Confirm("Login required", "You need to log in to add products to your cart. Log in now?") {
			s.nav.Navigate(nav.Login, nil)
		}
		return session.ErrNoSession
	}

	if !p.Price.Valid {
		s.ui.Alert("Error", "This product has no price and cannot be added.")
		return ErrNoPrice
	}

	req := api.NewCartItemRequest(sess.UserID(), p.ID, 1, p.Price.Decimal)
	resp, err := s.api.AddCartItem(ctx, sess.Token, req)
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		s.log.Warn("add to cart rejected, session expired", "product_id", p.ID)
		s.expire.Expire(ctx)
		return err
	case err != nil:
		s.log.Error("add to cart failed", "product_id", p.ID, "err", err)
		s.ui.Alert("Error", api.Message(err, "Could not add the product to your cart."))
		return err
	}

	msg := resp.Message
	if msg == "" {
		msg = "Added to cart."
	}
	s.log.Info("added to cart", "product_id", p.ID)
	s.ui.Alert("Success", msg)
	return nil
}

// ShareQR renders the product link as a terminal QR code.
func (s *Screen) ShareQR() (string, string, error) {
	p, ok := s.Product()
	if !ok {
		return "", "", ErrNoProduct
	}
	link := s.api.ProductURL(p.ID)
	qr, err := utils.TerminalQR(link)
	if err != nil {
		return "", "", err
	}
	return link, qr, nil
}

// SharePNG writes the product link as a PNG QR code to path.
func (s *Screen) SharePNG(path string) (string, error) {
	p, ok := s.Product()
	if !ok {
		return "", ErrNoProduct
	}
	link := s.api.ProductURL(p.ID)
	if err := utils.WriteQRPNG(link, path, 256); err != nil {
		s.log.Error("writing share qr failed", "path", path, "err", err)
		return "", err
	}
	return link, nil
}
