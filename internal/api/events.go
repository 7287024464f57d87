package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// CartEvent is one message on the cart stream: "connected", "cart_updated"
// or "error".
type CartEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// CartEvents is a live subscription to server-side cart changes.
type CartEvents struct {
	conn *websocket.Conn
}

// Next blocks until the next event or until the connection drops.
func (e *CartEvents) Next() (CartEvent, error) {
	var ev CartEvent
	if err := e.conn.ReadJSON(&ev); err != nil {
		return CartEvent{}, err
	}
	return ev, nil
}

// Close ends the subscription; a blocked Next returns an error.
func (e *CartEvents) Close() error {
	return e.conn.Close()
}

// SubscribeCart opens the cart websocket. A rejected handshake comes back
// as *Error so ErrUnauthorized can be matched.
func (c *Client) SubscribeCart(ctx context.Context, token string) (*CartEvents, error) {
	wsURL := c.baseURL + "/carts/api/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, h)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, &Error{Op: "subscribe cart", Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("subscribe cart: %w", err)
	}
	return &CartEvents{conn: conn}, nil
}
