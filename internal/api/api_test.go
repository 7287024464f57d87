package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"techworld_client/internal/apitest"
	"techworld_client/internal/logger"
	"techworld_client/internal/models"
)

func newClient(url string) *Client {
	return New(url, 5*time.Second, WithLogger(logger.Discard()))
}

func TestRequestHeaders(t *testing.T) {
	headers := make(chan http.Header, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		if strings.HasPrefix(r.URL.Path, "/products/api/details/") {
			w.Write([]byte(`{"_id":"abc"}`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := newClient(srv.URL+"/").ListProducts(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	got := <-headers
	if got.Get("Authorization") != "Bearer tok" {
		t.Fatalf("authorization = %q", got.Get("Authorization"))
	}
	if got.Get("Content-Type") != "application/json" || got.Get("Accept") != "application/json" {
		t.Fatalf("content headers = %v", got)
	}
	if _, err := uuid.Parse(got.Get("X-Request-ID")); err != nil {
		t.Fatalf("request id %q: %v", got.Get("X-Request-ID"), err)
	}

	if _, err := newClient(srv.URL).ProductDetail(context.Background(), "abc"); err != nil {
		t.Fatal(err)
	}
	if got := <-headers; got.Get("Authorization") != "" {
		t.Fatal("no token, no authorization header")
	}
}

func TestErrors(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(srv.URL)
	ctx := context.Background()

	t.Run("unauthorized", func(t *testing.T) {
		_, err := c.ListCart(ctx, "garbage")
		if !errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
		if Status(err) != http.StatusUnauthorized {
			t.Fatalf("status = %d", Status(err))
		}
		if Message(err, "x") != "invalid or expired token" {
			t.Fatalf("message = %q", Message(err, "x"))
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.ProductDetail(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("empty body uses fallback", func(t *testing.T) {
		srv.Fail(apitest.RouteProducts, http.StatusBadGateway, "")
		defer srv.Recover(apitest.RouteProducts)
		_, err := c.ListProducts(ctx, "tok")
		if Message(err, "fallback") != "fallback" || Status(err) != http.StatusBadGateway {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("transport", func(t *testing.T) {
		dead := newClient("http://127.0.0.1:1")
		_, err := dead.ListProducts(ctx, "tok")
		if err == nil || Status(err) != 0 || !strings.HasPrefix(err.Error(), "list products:") {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestLoginReturnsRawBlob(t *testing.T) {
	srv := apitest.New(t)
	u := srv.AddUser("an@example.com", "secret1")
	c := newClient(srv.URL)

	raw, err := c.Login(context.Background(), Credentials{Email: "an@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	var blob struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	if err := json.Unmarshal(raw, &blob); err != nil {
		t.Fatal(err)
	}
	if blob.User.ID != u.ID || blob.Token == "" {
		t.Fatalf("blob = %s", raw)
	}

	_, err = c.Login(context.Background(), Credentials{Email: "an@example.com", Password: "bad"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
}

func TestCartRoundTrip(t *testing.T) {
	srv := apitest.New(t)
	u := srv.AddUser("an@example.com", "secret1")
	p := srv.AddProduct(models.Product{
		Name:   "Galaxy S24",
		Price:  decimal.NewNullDecimal(decimal.RequireFromString("21990000")),
		Images: []string{"a.jpg", "b.jpg"},
	})
	c := newClient(srv.URL)
	ctx := context.Background()
	tok := srv.Token(u.ID, time.Hour)

	if _, err := c.AddCartItem(ctx, tok, NewCartItemRequest(u.ID, p.ID, 2, p.Price.Decimal)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.UpdateCartItem(ctx, tok, NewCartItemRequest(u.ID, p.ID, 5, p.Price.Decimal)); err != nil {
		t.Fatal(err)
	}

	cart, err := c.ListCart(ctx, tok)
	if err != nil {
		t.Fatal(err)
	}
	lines := cart.Lines()
	if len(lines) != 1 || lines[0].Quantity != 5 || lines[0].Image != "a.jpg" {
		t.Fatalf("lines = %+v", lines)
	}
	if up := srv.Updates()[0]; up.PriceAtAddition != "21990000" {
		t.Fatalf("price sent as %q", up.PriceAtAddition)
	}
}

func TestCartItemRequestPriceIsNumber(t *testing.T) {
	req := NewCartItemRequest("u1", "p1", 0, decimal.RequireFromString("100000.50"))
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"userId":"u1","productId":"p1","quantity":0,"priceAtAddition":100000.5}`
	if string(b) != want {
		t.Fatalf("got %s", b)
	}
}

func TestSubscribeCart(t *testing.T) {
	srv := apitest.New(t)
	u := srv.AddUser("an@example.com", "secret1")
	c := newClient(srv.URL)
	ctx := context.Background()

	if _, err := c.SubscribeCart(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}

	events, err := c.SubscribeCart(ctx, srv.Token(u.ID, time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	defer events.Close()

	ev, err := events.Next()
	if err != nil || ev.Type != "connected" {
		t.Fatalf("first event = %+v, %v", ev, err)
	}
	srv.Notify(u.ID)
	ev, err = events.Next()
	if err != nil || ev.Type != "cart_updated" {
		t.Fatalf("event = %+v, %v", ev, err)
	}
}

func TestDecodeFailureIsNotTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products":"not a list"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).ListProducts(context.Background(), "tok")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v", err)
	}
	if Status(err) != 0 || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("decode error should carry no status: %v", err)
	}
	var syntaxOrType *json.UnmarshalTypeError
	if !errors.As(err, &syntaxOrType) {
		t.Fatalf("json cause lost: %v", err)
	}
}
