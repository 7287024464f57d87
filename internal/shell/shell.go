// Package shell is the terminal front end: it shows the current screen and
// turns typed commands into screen actions.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"techworld_client/internal/account"
	"techworld_client/internal/auth"
	"techworld_client/internal/cart"
	"techworld_client/internal/catalog"
	"techworld_client/internal/detail"
	"techworld_client/internal/nav"
)

var errQuit = errors.New("quit")

type Deps struct {
	In  *bufio.Reader
	Out io.Writer
	Log *slog.Logger

	Nav     *nav.Stack
	Auth    *auth.Flow
	Catalog *catalog.Screen
	Detail  *detail.Screen
	Cart    *cart.Screen
	Account *account.Screen

	// LiveSync subscribes to server cart events while the cart is open.
	LiveSync bool
}

type Shell struct {
	Deps

	shown     view
	stopWatch context.CancelFunc
}

// view identifies what is on screen; a change means the new screen mounts.
type view struct {
	route nav.Route
	tab   nav.Tab
	depth int
	param string
}

func New(d Deps) *Shell {
	s := &Shell{Deps: d}
	s.Nav.OnChange(func(e nav.Entry) {
		s.Log.Debug("route changed", "route", string(e.Route), "params", e.Params)
	})
	return s
}

// Run bootstraps the session and reads commands until quit, EOF or ctx ends.
func (s *Shell) Run(ctx context.Context) error {
	defer s.watchOff()

	s.Auth.Bootstrap(ctx)
	s.settle(ctx)
	fmt.Fprintln(s.Out, "Type 'help' for commands.")

	done := make(chan error, 1)
	go func() { done <- s.loop(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Shell) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(s.Out, "%s> ", s.prompt())
		line, err := s.In.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			if cerr := s.Exec(ctx, line); errors.Is(cerr, errQuit) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (s *Shell) prompt() string {
	cur := s.Nav.Current()
	if cur.Route == nav.Main {
		return strings.ToLower(string(s.Nav.Tab()))
	}
	return strings.ToLower(string(cur.Route))
}

// Exec runs one command line. Command failures are reported to the user and
// never end the session; only quit returns an error.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	s.Log.Debug("command", "cmd", cmd, "route", string(s.Nav.Current().Route))

	switch cmd {
	case "quit", "exit":
		return errQuit
	case "help":
		s.help()
		return nil
	case "login":
		if len(args) != 2 {
			return s.usage("login <email> <password>")
		}
		s.Auth.Login(ctx, args[0], args[1])
	case "register":
		if s.Nav.Current().Route != nav.Register {
			s.Nav.Navigate(nav.Register, nil)
		}
		if len(args) != 3 {
			return s.usage("register <email> <password> <confirm>")
		}
		s.Auth.Register(ctx, args[0], args[1], args[2])
	case "list":
		s.Catalog.Load(ctx)
		s.renderProducts()
	case "search":
		s.Catalog.Filter(strings.Join(args, " "))
		s.renderProducts()
	case "open":
		if len(args) != 1 {
			return s.usage("open <n|product id>")
		}
		s.open(args[0])
	case "add":
		if !s.on(nav.ProductDetail, "open a product first") {
			return nil
		}
		s.Detail.AddToCart(ctx)
	case "share":
		if !s.on(nav.ProductDetail, "open a product first") {
			return nil
		}
		s.share(args)
	case "cart":
		if s.Nav.Current().Route != nav.Cart {
			s.Catalog.OpenCart()
		} else {
			s.Cart.Load(ctx)
			s.renderCart()
		}
	case "inc", "dec", "rm":
		if len(args) != 1 {
			return s.usage(cmd + " <n>")
		}
		s.edit(ctx, cmd, args[0])
	case "checkout":
		if !s.on(nav.Cart, "open the cart first") {
			return nil
		}
		s.Cart.Checkout()
	case "tab":
		if len(args) != 1 {
			return s.usage("tab <home|notification|person>")
		}
		s.tab(args[0])
	case "settings":
		s.Account.OpenSettings()
	case "logout":
		if s.Account.Logout(ctx) {
			s.watchOff()
		}
	case "back":
		s.Nav.GoBack()
	default:
		fmt.Fprintf(s.Out, "unknown command %q, try 'help'\n", cmd)
		return nil
	}

	s.settle(ctx)
	return nil
}

// settle mounts whatever screen the last action left us on. Mounting can
// itself navigate (a failed load goes back), so it repeats until stable.
func (s *Shell) settle(ctx context.Context) {
	for i := 0; i < 4; i++ {
		cur := s.Nav.Current()
		v := view{route: cur.Route, tab: s.Nav.Tab(), depth: s.Nav.Depth(), param: cur.Param("productId")}
		if v == s.shown {
			return
		}
		s.shown = v
		s.mount(ctx, cur)
	}
}

func (s *Shell) mount(ctx context.Context, cur nav.Entry) {
	if cur.Route != nav.Cart {
		s.watchOff()
	}

	switch cur.Route {
	case nav.Login:
		fmt.Fprintln(s.Out, "\n== Login ==\nlogin <email> <password>   or   register <email> <password> <confirm>")
	case nav.Register:
		fmt.Fprintln(s.Out, "\n== Register ==\nregister <email> <password> <confirm>")
	case nav.Main:
		s.mountTab(ctx)
	case nav.ProductDetail:
		if s.Detail.Load(ctx, cur.Param("productId")) == nil {
			s.renderDetail()
		}
	case nav.Cart:
		if s.Cart.Load(ctx) == nil {
			s.renderCart()
			s.watchOn(ctx)
		}
	case nav.AccountSetting:
		if u, err := s.Account.Settings(ctx); err == nil {
			fmt.Fprintln(s.Out, "\n== Account settings ==")
			tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Username\t%s\n", u.Username)
			fmt.Fprintf(tw, "Email\t%s\n", u.Email)
			fmt.Fprintf(tw, "Phone\t%s\n", u.Phone)
			fmt.Fprintf(tw, "Address\t%s\n", u.Address)
			tw.Flush()
		}
	}
}

func (s *Shell) mountTab(ctx context.Context) {
	switch s.Nav.Tab() {
	case nav.TabHome:
		fmt.Fprintln(s.Out, "\n== Home ==")
		s.Catalog.Load(ctx)
		s.renderProducts()
	case nav.TabNotification:
		fmt.Fprintln(s.Out, "\n== Notifications ==\nNo notifications yet.")
	case nav.TabPerson:
		u := s.Account.Profile(ctx)
		fmt.Fprintf(s.Out, "\n== Profile ==\n%s\n%s\n(settings, logout)\n", u.DisplayName(), u.Email)
	}
}

func (s *Shell) tab(name string) {
	var t nav.Tab
	switch strings.ToLower(name) {
	case "home":
		t = nav.TabHome
	case "notification", "notifications":
		t = nav.TabNotification
	case "person", "profile":
		t = nav.TabPerson
	default:
		fmt.Fprintf(s.Out, "unknown tab %q\n", name)
		return
	}
	if s.Nav.Current().Route != nav.Main {
		fmt.Fprintln(s.Out, "tabs are only available on the main screen")
		return
	}
	s.Nav.SelectTab(t)
}

func (s *Shell) on(r nav.Route, hint string) bool {
	if s.Nav.Current().Route == r {
		return true
	}
	fmt.Fprintln(s.Out, hint)
	return false
}

func (s *Shell) usage(u string) error {
	fmt.Fprintf(s.Out, "usage: %s\n", u)
	return nil
}

// open accepts a 1-based position in the shown list or a raw product id.
func (s *Shell) open(arg string) {
	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		list := s.Catalog.Filtered()
		if n < 1 || n > len(list) {
			fmt.Fprintf(s.Out, "no product #%d\n", n)
			return
		}
		id = list[n-1].ID
	}
	s.Catalog.Open(id)
}

func (s *Shell) edit(ctx context.Context, cmd, arg string) {
	if !s.on(nav.Cart, "open the cart first") {
		return
	}
	lines := s.Cart.Lines()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(lines) {
		fmt.Fprintf(s.Out, "no cart line %q\n", arg)
		return
	}
	id := lines[n-1].ProductID

	switch cmd {
	case "inc":
		err = s.Cart.Increase(ctx, id)
	case "dec":
		err = s.Cart.Decrease(ctx, id)
	case "rm":
		err = s.Cart.Remove(ctx, id)
	}
	if err != nil {
		s.Log.Debug("cart edit failed", "cmd", cmd, "err", err)
	}
	if s.Nav.Current().Route == nav.Cart {
		s.renderCart()
	}
}

// share prints a terminal QR code, or writes a PNG when given a file name.
func (s *Shell) share(args []string) {
	if len(args) == 1 {
		link, err := s.Detail.SharePNG(args[0])
		if err != nil {
			fmt.Fprintf(s.Out, "cannot share: %v\n", err)
			return
		}
		fmt.Fprintf(s.Out, "QR code for %s written to %s\n", link, args[0])
		return
	}
	link, qr, err := s.Detail.ShareQR()
	if err != nil {
		fmt.Fprintf(s.Out, "cannot share: %v\n", err)
		return
	}
	fmt.Fprintf(s.Out, "%s\n%s\n", qr, link)
}

func (s *Shell) watchOn(ctx context.Context) {
	if !s.LiveSync || s.stopWatch != nil {
		return
	}
	wctx, cancel := context.WithCancel(ctx)
	s.stopWatch = cancel
	go func() {
		if err := s.Cart.Watch(wctx); err != nil && !errors.Is(err, context.Canceled) {
			s.Log.Warn("cart live sync stopped", "err", err)
		}
	}()
}

func (s *Shell) watchOff() {
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}

func (s *Shell) help() {
	fmt.Fprint(s.Out, `
  login <email> <password>           log in
  register <email> <pw> <confirm>    create an account
  list                               reload the product list
  search <text>                      filter products by name
  open <n|id>                        show a product
  add                                add the shown product to the cart
  share [file.png]                   show (or save) a QR code for the shown product
  cart                               open (or reload) the cart
  inc|dec|rm <n>                     change cart line n
  checkout                           check out
  tab <home|notification|person>     switch tab
  settings                           account settings
  logout                             log out
  back                               go back
  quit                               exit
`)
}
