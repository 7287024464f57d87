// Package catalog loads the product list and filters it by name.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"techworld_client/internal/api"
	"techworld_client/internal/models"
	"techworld_client/internal/nav"
	"techworld_client/internal/session"
	"techworld_client/internal/ui"
)

// Backend is the part of the API client the catalog needs.
type Backend interface {
	ListProducts(ctx context.Context, token string) ([]models.Product, error)
}

// Screen holds the last loaded catalog and the current name filter.
type Screen struct {
	api      Backend
	sessions *session.Store
	nav      nav.Navigator
	ui       ui.Prompter
	log      *slog.Logger

	mu       sync.Mutex
	products []models.Product
	filtered []models.Product
	query    string
}

func NewScreen(b Backend, st *session.Store, n nav.Navigator, p ui.Prompter, log *slog.Logger) *Screen {
	return &Screen{api: b, sessions: st, nav: n, ui: p, log: log}
}

// Load fetches the catalog once. On any failure the list is left empty and
// the user is told why.
func (s *Screen) Load(ctx context.Context) error {
	sess, err := s.sessions.Load(ctx)
	if err != nil || !sess.HasToken() {
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			s.log.Warn("session unreadable", "err", err)
		}
		s.set(nil)
		s.ui.Alert("Error", "Login token not found. Please log in again.")
		return session.ErrNoSession
	}

	products, err := s.api.ListProducts(ctx, sess.Token)
	if err != nil {
		s.set(nil)
		s.log.Error("loading products failed", "err", err)
		if st := api.Status(err); st != 0 {
			s.ui.Alert("Error", fmt.Sprintf("Could not load products (status %d).", st))
		} else if errors.Is(err, api.ErrDecode) {
			s.ui.Alert("Error", "The server sent a product list this app cannot read.")
		} else {
			s.ui.Alert("Error", "Could not reach the server. Please check your connection.")
		}
		return err
	}

	s.log.Debug("products loaded", "count", len(products))
	s.set(products)
	return nil
}

func (s *Screen) set(products []models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
	s.filtered = match(products, s.query)
}

// Filter keeps the products whose name contains q, ignoring case.
func (s *Screen) Filter(q string) []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
	s.filtered = match(s.products, q)
	return append([]models.Product(nil), s.filtered...)
}

func match(products []models.Product, q string) []models.Product {
	if q == "" {
		return append([]models.Product(nil), products...)
	}
	fold := cases.Fold()
	needle := fold.String(q)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(fold.String(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}

// Products is the full list from the last successful load.
func (s *Screen) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Product(nil), s.products...)
}

// Filtered is the list as narrowed by the current query.
func (s *Screen) Filtered() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Product(nil), s.filtered...)
}

func (s *Screen) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Open shows the detail screen for product id.
func (s *Screen) Open(id string) {
	s.nav.Navigate(nav.ProductDetail, nav.Params{"productId": id})
}

func (s *Screen) OpenCart() {
	s.nav.Navigate(nav.Cart, nil)
}
