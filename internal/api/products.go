package api

import (
	"context"
	"net/http"
	"net/url"

	"techworld_client/internal/models"
)

// ListProducts fetches the whole catalog.
func (c *Client) ListProducts(ctx context.Context, token string) ([]models.Product, error) {
	var out []models.Product
	if err := c.do(ctx, "list products", http.MethodGet, "/products/api/list", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductDetail fetches one product; it needs no token.
func (c *Client) ProductDetail(ctx context.Context, id string) (models.Product, error) {
	var out models.Product
	err := c.do(ctx, "product detail", http.MethodGet, "/products/api/details/"+url.PathEscape(id), "", nil, &out)
	return out, err
}

// ProductURL is the public link for a product, used when sharing.
func (c *Client) ProductURL(id string) string {
	return c.baseURL + "/products/api/details/" + url.PathEscape(id)
}
