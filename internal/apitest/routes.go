package apitest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func registerRoutes(r *gin.Engine, s *Server) {
	r.POST("/users/login", s.track(RouteLogin), s.login)
	r.POST("/users/register", s.track(RouteRegister), s.register)

	r.GET("/products/api/list", s.track(RouteProducts), s.authRequired(), s.listProducts)
	r.GET("/products/api/details/:id", s.track(RouteDetail), s.productDetail)

	carts := r.Group("/carts/api")
	carts.GET("/list", s.track(RouteCart), s.authRequired(), s.getCart)
	carts.POST("/add-items", s.track(RouteAdd), s.authRequired(), s.addToCart)
	carts.PATCH("/update-items", s.track(RouteUpdate), s.authRequired(), s.updateCart)
	carts.GET("/ws", s.track(RouteWS), s.authRequired(), s.cartWebSocket)
}

// track counts the call, runs the test hook and applies injected failures.
func (s *Server) track(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.calls[route]++
		hook := s.hooks[route]
		s.mu.Unlock()

		if hook != nil {
			hook()
		}

		s.mu.Lock()
		f, failing := s.failures[route]
		s.mu.Unlock()
		if failing {
			if f.message != "" {
				c.AbortWithStatusJSON(f.status, gin.H{"message": f.message})
			} else {
				c.AbortWithStatus(f.status)
			}
			return
		}
		c.Next()
	}
}

func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "malformed authorization header"})
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "user_id missing"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
