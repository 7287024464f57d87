package api

import (
	"context"
	"net/http"
)

// Credentials is the body of both login and register.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login returns the raw session blob ({user, token}) so it can be persisted
// exactly as the server sent it.
func (c *Client) Login(ctx context.Context, creds Credentials) ([]byte, error) {
	return c.doRaw(ctx, "login", http.MethodPost, "/users/login", "", creds)
}

// MessageResponse is the {message} body most write endpoints answer with.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register creates an account; it does not log in.
func (c *Client) Register(ctx context.Context, creds Credentials) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, "register", http.MethodPost, "/users/register", "", creds, &out)
	return out, err
}
