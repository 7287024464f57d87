package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"techworld_client/internal/models"
)

// CartItemRequest is the body of both add and update calls. Quantity 0 on
// update removes the line.
type CartItemRequest struct {
	UserID          string      `json:"userId"`
	ProductID       string      `json:"productId"`
	Quantity        int         `json:"quantity"`
	PriceAtAddition json.Number `json:"priceAtAddition"`
}

// NewCartItemRequest sends the price as a bare JSON number, not the quoted
// string decimal.Decimal marshals to by default.
func NewCartItemRequest(userID, productID string, quantity int, price decimal.Decimal) CartItemRequest {
	return CartItemRequest{
		UserID:          userID,
		ProductID:       productID,
		Quantity:        quantity,
		PriceAtAddition: json.Number(price.String()),
	}
}

// ListCart fetches the cart of the user the token belongs to.
func (c *Client) ListCart(ctx context.Context, token string) (models.Cart, error) {
	var out models.Cart
	err := c.do(ctx, "list cart", http.MethodGet, "/carts/api/list", token, nil, &out)
	return out, err
}

// AddCartItem adds req.Quantity to whatever the cart already holds.
func (c *Client) AddCartItem(ctx context.Context, token string, req CartItemRequest) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, "add cart item", http.MethodPost, "/carts/api/add-items", token, req, &out)
	return out, err
}

// UpdateCartItem sets the absolute quantity of a line.
func (c *Client) UpdateCartItem(ctx context.Context, token string, req CartItemRequest) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, "update cart item", http.MethodPatch, "/carts/api/update-items", token, req, &out)
	return out, err
}
