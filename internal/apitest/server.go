// Package apitest runs an in-memory stand-in for the shop backend so the
// client flows can be exercised end to end over real HTTP.
package apitest

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"techworld_client/internal/models"
)

// Route names accepted by Fail, Calls and Intercept.
const (
	RouteLogin    = "login"
	RouteRegister = "register"
	RouteProducts = "products"
	RouteDetail   = "detail"
	RouteCart     = "cart"
	RouteAdd      = "add"
	RouteUpdate   = "update"
	RouteWS       = "ws"
)

type account struct {
	user         models.User
	passwordHash []byte
}

type cartEntry struct {
	productID string
	quantity  int
}

type failure struct {
	status  int
	message string
}

// UpdateCall records one PATCH body as the server decoded it.
type UpdateCall struct {
	UserID          string
	ProductID       string
	Quantity        int
	PriceAtAddition string
}

type Server struct {
	*httptest.Server

	secret []byte

	mu        sync.Mutex
	accounts  map[string]*account // by email
	products  []models.Product
	carts     map[string][]cartEntry // by user id
	failures  map[string]failure
	hooks     map[string]func()
	calls     map[string]int
	updates   []UpdateCall
	listeners map[string]map[chan struct{}]struct{}
}

func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:    []byte("apitest-secret"),
		accounts:  make(map[string]*account),
		carts:     make(map[string][]cartEntry),
		failures:  make(map[string]failure),
		hooks:     make(map[string]func()),
		calls:     make(map[string]int),
		listeners: make(map[string]map[chan struct{}]struct{}),
	}

	r := gin.New()
	registerRoutes(r, s)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account and returns the stored user.
func (s *Server) AddUser(email, password string) models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := models.User{
		ID:       primitive.NewObjectID().Hex(),
		Username: email,
		Email:    email,
	}
	s.mu.Lock()
	s.accounts[strings.ToLower(email)] = &account{user: u, passwordHash: hash}
	s.mu.Unlock()
	return u
}

// AddProduct stores p, assigning an ObjectID when p has none.
func (s *Server) AddProduct(p models.Product) models.Product {
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	s.mu.Lock()
	s.products = append(s.products, p)
	s.mu.Unlock()
	return p
}

func (s *Server) SetCartQuantity(userID, productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setQuantityLocked(userID, productID, qty)
}

func (s *Server) CartQuantity(userID, productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.carts[userID] {
		if e.productID == productID {
			return e.quantity
		}
	}
	return 0
}

// Token issues a token the server accepts, valid for ttl (negative = expired).
func (s *Server) Token(userID string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return tok
}

// Fail makes route answer status/message until Recover is called.
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	s.failures[route] = failure{status: status, message: message}
	s.mu.Unlock()
}

func (s *Server) Recover(route string) {
	s.mu.Lock()
	delete(s.failures, route)
	s.mu.Unlock()
}

// Intercept runs fn at the start of every request to route, before any
// failure or state change is applied.
func (s *Server) Intercept(route string, fn func()) {
	s.mu.Lock()
	s.hooks[route] = fn
	s.mu.Unlock()
}

func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) Updates() []UpdateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UpdateCall(nil), s.updates...)
}

// Notify pushes a cart_updated event to every live subscriber of userID.
func (s *Server) Notify(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked(userID)
}

func (s *Server) notifyLocked(userID string) {
	for ch := range s.listeners[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Server) setQuantityLocked(userID, productID string, qty int) {
	cart := s.carts[userID]
	out := cart[:0]
	found := false
	for _, e := range cart {
		if e.productID == productID {
			found = true
			if qty <= 0 {
				continue
			}
			e.quantity = qty
		}
		out = append(out, e)
	}
	if !found && qty > 0 {
		out = append(out, cartEntry{productID: productID, quantity: qty})
	}
	s.carts[userID] = out
}

func (s *Server) productLocked(id string) (models.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}
