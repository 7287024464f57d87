package cart

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"techworld_client/internal/api"
	"techworld_client/internal/apitest"
	"techworld_client/internal/auth"
	"techworld_client/internal/logger"
	"techworld_client/internal/models"
	"techworld_client/internal/nav"
	"techworld_client/internal/session"
	"techworld_client/internal/storage"
	"techworld_client/internal/ui"
)

type fixture struct {
	srv      *apitest.Server
	sessions *session.Store
	nav      *nav.Stack
	ui       *ui.Recorder
	flow     *auth.Flow
	screen   *Screen
	user     models.User
	phone    models.Product
	laptop   models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	srv := apitest.New(t)
	f := &fixture{
		srv:      srv,
		sessions: session.NewStore(storage.NewMemoryStore()),
		nav:      nav.NewStack(),
		ui:       &ui.Recorder{},
	}
	client := api.New(srv.URL, 5*time.Second, api.WithLogger(logger.Discard()))
	f.flow = auth.NewFlow(client, f.sessions, f.nav, f.ui, logger.Discard())
	f.screen = NewScreen(client, f.sessions, f.flow, f.nav, f.ui, logger.Discard())

	f.user = srv.AddUser("an@example.com", "secret1")
	if err := f.sessions.Save(ctx, session.Session{User: f.user, Token: srv.Token(f.user.ID, time.Hour)}); err != nil {
		t.Fatal(err)
	}
	f.phone = srv.AddProduct(models.Product{Name: "Galaxy S24", Price: decimal.NewNullDecimal(decimal.NewFromInt(100000))})
	f.laptop = srv.AddProduct(models.Product{Name: "ThinkPad X1", Price: decimal.NewNullDecimal(decimal.NewFromInt(2500000))})

	f.nav.Replace(nav.Main, nil)
	f.nav.Navigate(nav.Cart, nil)
	return f
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	if err := f.screen.Load(context.Background()); err != nil {
		t.Fatalf("load: %v (%+v)", err, f.ui.Alerts())
	}
}

func quantity(lines []models.CartLine, id string) int {
	for _, l := range lines {
		if l.ProductID == id {
			return l.Quantity
		}
	}
	return 0
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 2)
	f.srv.SetCartQuantity(f.user.ID, f.laptop.ID, 1)
	f.load(t)

	lines := f.screen.Lines()
	if len(lines) != 2 || quantity(lines, f.phone.ID) != 2 {
		t.Fatalf("lines = %+v", lines)
	}
	if got := f.screen.Total(); !got.Equal(decimal.NewFromInt(2700000)) {
		t.Fatalf("total = %s", got)
	}

	t.Run("server error empties cart", func(t *testing.T) {
		f.srv.Fail(apitest.RouteCart, http.StatusInternalServerError, "cart service down")
		defer f.srv.Recover(apitest.RouteCart)
		if err := f.screen.Load(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if len(f.screen.Lines()) != 0 {
			t.Fatal("lines should be empty")
		}
		if f.ui.Last().Message != "cart service down" {
			t.Fatalf("alert = %+v", f.ui.Last())
		}
	})

	t.Run("no session", func(t *testing.T) {
		_ = f.sessions.Clear(context.Background())
		if err := f.screen.Load(context.Background()); !errors.Is(err, session.ErrNoSession) {
			t.Fatalf("err = %v", err)
		}
		if f.nav.Current().Route != nav.Login {
			t.Fatalf("route = %s", f.nav.Current().Route)
		}
	})
}

func TestIncreaseIsOptimistic(t *testing.T) {
	f := newFixture(t)
	f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 1)
	f.load(t)

	var (
		mu        sync.Mutex
		seenQty   int
		seenTotal decimal.Decimal
	)
	f.srv.Intercept(apitest.RouteUpdate, func() {
		mu.Lock()
		defer mu.Unlock()
		seenQty = quantity(f.screen.Lines(), f.phone.ID)
		seenTotal = f.screen.Total()
	})

	if err := f.screen.Increase(context.Background(), f.phone.ID); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if seenQty != 2 || !seenTotal.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("before confirmation: qty %d total %s", seenQty, seenTotal)
	}
	if q := f.srv.CartQuantity(f.user.ID, f.phone.ID); q != 2 {
		t.Fatalf("server quantity = %d", q)
	}

	ups := f.srv.Updates()
	if len(ups) != 1 {
		t.Fatalf("updates = %+v", ups)
	}
	want := apitest.UpdateCall{UserID: f.user.ID, ProductID: f.phone.ID, Quantity: 2, PriceAtAddition: "100000"}
	if ups[0] != want {
		t.Fatalf("update = %+v, want %+v", ups[0], want)
	}
}

func TestDecreaseStopsAtOne(t *testing.T) {
	f := newFixture(t)
	f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 2)
	f.load(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := f.screen.Decrease(ctx, f.phone.ID); err != nil {
			t.Fatal(err)
		}
		if q := quantity(f.screen.Lines(), f.phone.ID); q != 1 {
			t.Fatalf("after %d decreases qty = %d", i+1, q)
		}
	}
	for _, u := range f.srv.Updates() {
		if u.Quantity < 1 {
			t.Fatalf("sent quantity %d", u.Quantity)
		}
	}
	if q := f.srv.CartQuantity(f.user.ID, f.phone.ID); q != 1 {
		t.Fatalf("server quantity = %d", q)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("declined", func(t *testing.T) {
		f := newFixture(t)
		f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 3)
		f.load(t)
		f.ui.Answer = false

		if err := f.screen.Remove(ctx, f.phone.ID); err != nil {
			t.Fatal(err)
		}
		if quantity(f.screen.Lines(), f.phone.ID) != 3 {
			t.Fatal("line should be kept")
		}
		if f.srv.Calls(apitest.RouteUpdate) != 0 {
			t.Fatal("no request expected")
		}
	})

	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t)
		f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 3)
		f.srv.SetCartQuantity(f.user.ID, f.laptop.ID, 1)
		f.load(t)
		f.ui.Answer = true

		if err := f.screen.Remove(ctx, f.phone.ID); err != nil {
			t.Fatal(err)
		}
		lines := f.screen.Lines()
		if len(lines) != 1 || lines[0].ProductID != f.laptop.ID {
			t.Fatalf("lines = %+v", lines)
		}
		if ups := f.srv.Updates(); len(ups) != 1 || ups[0].Quantity != 0 {
			t.Fatalf("updates = %+v", ups)
		}
		if f.srv.CartQuantity(f.user.ID, f.phone.ID) != 0 {
			t.Fatal("server still has the line")
		}
	})
}

func TestUnauthorizedUpdateLogsOut(t *testing.T) {
	f := newFixture(t)
	if f.flow.Bootstrap(context.Background()) != auth.Authenticated {
		t.Fatal("fixture session should bootstrap to authenticated")
	}
	f.nav.Navigate(nav.Cart, nil)
	f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 1)
	f.load(t)
	f.srv.Fail(apitest.RouteUpdate, http.StatusUnauthorized, "invalid or expired token")

	err := f.screen.Increase(context.Background(), f.phone.ID)
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.sessions.Load(context.Background()); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("session kept: %v", err)
	}
	if f.nav.Current().Route != nav.Login || f.nav.Depth() != 1 {
		t.Fatalf("route = %s depth %d", f.nav.Current().Route, f.nav.Depth())
	}
	if st := f.flow.State(); st != auth.Unauthenticated {
		t.Fatalf("auth state = %v after expiry", st)
	}
}

// failingPatch drops every PATCH before it leaves the process.
type failingPatch struct{}

func (failingPatch) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Method == http.MethodPatch {
		return nil, errors.New("connection reset by peer")
	}
	return http.DefaultTransport.RoundTrip(r)
}

func TestUnreachableUpdateReconciles(t *testing.T) {
	f := newFixture(t)
	f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 3)
	client := api.New(f.srv.URL, 5*time.Second,
		api.WithLogger(logger.Discard()),
		api.WithHTTPClient(&http.Client{Transport: failingPatch{}}),
	)
	f.screen = NewScreen(client, f.sessions, f.flow, f.nav, f.ui, logger.Discard())
	f.load(t)

	err := f.screen.Decrease(context.Background(), f.phone.ID)
	if err == nil || api.Status(err) != 0 {
		t.Fatalf("err = %v", err)
	}
	if q := quantity(f.screen.Lines(), f.phone.ID); q != 3 {
		t.Fatalf("qty after reconcile = %d, want server value 3", q)
	}
	if n := f.srv.Calls(apitest.RouteCart); n != 2 {
		t.Fatalf("cart fetches = %d", n)
	}
	if f.srv.Calls(apitest.RouteUpdate) != 0 {
		t.Fatal("PATCH should never reach the server")
	}
	if msg := f.ui.Last().Message; msg != "Could not reach the server to update the cart." {
		t.Fatalf("alert = %q", msg)
	}
	if _, err := f.sessions.Load(context.Background()); err != nil {
		t.Fatalf("session lost: %v", err)
	}
}

func TestFailedUpdateReconciles(t *testing.T) {
	f := newFixture(t)
	f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 3)
	f.load(t)
	f.srv.Fail(apitest.RouteUpdate, http.StatusInternalServerError, "")

	if err := f.screen.Increase(context.Background(), f.phone.ID); err == nil {
		t.Fatal("expected error")
	}
	if q := quantity(f.screen.Lines(), f.phone.ID); q != 3 {
		t.Fatalf("qty after reconcile = %d, want server value 3", q)
	}
	if n := f.srv.Calls(apitest.RouteCart); n != 2 {
		t.Fatalf("cart fetches = %d", n)
	}
	if f.ui.Last().Message != "Could not update the cart on the server." {
		t.Fatalf("alert = %+v", f.ui.Last())
	}
}

func TestMissingPriceSkipsUpdate(t *testing.T) {
	f := newFixture(t)
	free := f.srv.AddProduct(models.Product{Name: "Sticker"})
	f.srv.SetCartQuantity(f.user.ID, free.ID, 1)
	f.load(t)

	if err := f.screen.Increase(context.Background(), free.ID); !errors.Is(err, ErrMissingPrice) {
		t.Fatalf("err = %v", err)
	}
	if f.srv.Calls(apitest.RouteUpdate) != 0 {
		t.Fatal("no PATCH expected")
	}
	if n := f.srv.Calls(apitest.RouteCart); n != 2 {
		t.Fatalf("cart fetches = %d", n)
	}
	if quantity(f.screen.Lines(), free.ID) != 1 {
		t.Fatal("line should be unchanged")
	}
}

func TestUnknownLine(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	if err := f.screen.Increase(context.Background(), "nope"); !errors.Is(err, ErrUnknownLine) {
		t.Fatalf("err = %v", err)
	}
}

func TestConcurrentIncreases(t *testing.T) {
	f := newFixture(t)
	f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 1)
	f.load(t)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			return f.screen.Increase(ctx, f.phone.ID)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if q := quantity(f.screen.Lines(), f.phone.ID); q != 11 {
		t.Fatalf("local qty = %d", q)
	}
	if n := len(f.srv.Updates()); n != 10 {
		t.Fatalf("updates = %d", n)
	}
}

func TestReconcileCoalesces(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	f.srv.Intercept(apitest.RouteCart, func() {
		entered <- struct{}{}
		<-release
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.screen.Reconcile(context.Background())
	}()
	<-entered

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.screen.Reconcile(context.Background())
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := f.srv.Calls(apitest.RouteCart); n != 1 {
		t.Fatalf("cart fetches = %d, want 1", n)
	}
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	if err := f.screen.Checkout(); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("err = %v", err)
	}

	f.srv.SetCartQuantity(f.user.ID, f.phone.ID, 1)
	f.load(t)
	if err := f.screen.Checkout(); err != nil {
		t.Fatal(err)
	}
	if f.ui.Last().Title != "Checkout" {
		t.Fatalf("alert = %+v", f.ui.Last())
	}
}

func TestWatchReloadsOnServerChange(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.screen.Watch(ctx) }()

	// wait for the subscription before changing the cart elsewhere
	deadline := time.Now().Add(2 * time.Second)
	for f.srv.Calls(apitest.RouteWS) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	for time.Now().Before(deadline) {
		f.srv.SetCartQuantity(f.user.ID, f.laptop.ID, 4)
		f.srv.Notify(f.user.ID)
		time.Sleep(50 * time.Millisecond)
		if quantity(f.screen.Lines(), f.laptop.ID) == 4 {
			break
		}
	}
	if q := quantity(f.screen.Lines(), f.laptop.ID); q != 4 {
		t.Fatalf("qty = %d, want 4 from remote change", q)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(apitest.RouteWS, http.StatusUnauthorized, "invalid or expired token")
	err := f.screen.Watch(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if f.nav.Current().Route != nav.Login {
		t.Fatalf("route = %s", f.nav.Current().Route)
	}
}
