package apitest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"techworld_client/internal/models"
)

func userJSON(u models.User) gin.H {
	return gin.H{
		"_id":      u.ID,
		"username": u.Username,
		"email":    u.Email,
		"phone":    u.Phone,
		"address":  u.Address,
	}
}

func (s *Server) login(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(input.Email)]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(input.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  userJSON(acc.user),
		"token": s.Token(acc.user.ID, 24*time.Hour),
	})
}

func (s *Server) register(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	s.mu.Lock()
	_, exists := s.accounts[email]
	s.mu.Unlock()
	if exists {
		c.JSON(http.StatusConflict, gin.H{"message": "an account with this email already exists"})
		return
	}

	s.AddUser(email, input.Password)
	c.JSON(http.StatusCreated, gin.H{"message": "account created"})
}

func (s *Server) listProducts(c *gin.Context) {
	s.mu.Lock()
	out := append([]models.Product{}, s.products...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) productDetail(c *gin.Context) {
	id := c.Param("id")
	if !primitive.IsValidObjectID(id) {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	s.mu.Lock()
	p, ok := s.productLocked(id)
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getCart(c *gin.Context) {
	userID := c.GetString("user_id")

	s.mu.Lock()
	items := make([]gin.H, 0, len(s.carts[userID]))
	for _, e := range s.carts[userID] {
		p, ok := s.productLocked(e.productID)
		if !ok {
			continue
		}
		items = append(items, gin.H{"productId": p, "quantity": e.quantity})
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"userId": userID, "items": items})
}

type cartItemInput struct {
	UserID          string          `json:"userId"`
	ProductID       string          `json:"productId"`
	Quantity        *int            `json:"quantity"`
	PriceAtAddition decimal.Decimal `json:"priceAtAddition"`
}

func (s *Server) addToCart(c *gin.Context) {
	userID := c.GetString("user_id")

	var input cartItemInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	if *input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "quantity must be positive"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.productLocked(input.ProductID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	current := 0
	for _, e := range s.carts[userID] {
		if e.productID == input.ProductID {
			current = e.quantity
		}
	}
	s.setQuantityLocked(userID, input.ProductID, current+*input.Quantity)
	s.notifyLocked(userID)

	c.JSON(http.StatusOK, gin.H{"message": "added to cart"})
}

// updateCart sets an absolute quantity; 0 removes the line.
func (s *Server) updateCart(c *gin.Context) {
	userID := c.GetString("user_id")

	var input cartItemInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Quantity == nil || *input.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid quantity"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, UpdateCall{
		UserID:          input.UserID,
		ProductID:       input.ProductID,
		Quantity:        *input.Quantity,
		PriceAtAddition: input.PriceAtAddition.String(),
	})

	found := false
	for _, e := range s.carts[userID] {
		if e.productID == input.ProductID {
			found = true
		}
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not in cart"})
		return
	}
	s.setQuantityLocked(userID, input.ProductID, *input.Quantity)
	s.notifyLocked(userID)

	c.JSON(http.StatusOK, gin.H{"message": "cart updated"})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) cartWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := make(chan struct{}, 1)
	s.mu.Lock()
	if s.listeners[userID] == nil {
		s.listeners[userID] = make(map[chan struct{}]struct{})
	}
	s.listeners[userID][ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.listeners[userID], ch)
		s.mu.Unlock()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{"type": "connected"}); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-ch:
			s.mu.Lock()
			count := len(s.carts[userID])
			s.mu.Unlock()
			if err := conn.WriteJSON(gin.H{"type": "cart_updated", "count": count}); err != nil {
				return
			}
		case <-time.After(30 * time.Second):
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
