// Package nav is the navigation shell: a stack of named routes with the
// bottom tab group living inside the Main route.
package nav

import "sync"

type Route string

const (
	AuthLoading    Route = "AuthLoading"
	Login          Route = "Login"
	Register       Route = "Register"
	Main           Route = "Main"
	AccountSetting Route = "AccountSetting"
	ProductDetail  Route = "ProductDetail"
	Cart           Route = "Cart"
)

type Tab string

const (
	TabHome         Tab = "Home"
	TabNotification Tab = "Notification"
	TabPerson       Tab = "Person"
)

// Params carries route arguments, e.g. {"productId": "..."}.
type Params map[string]string

type Entry struct {
	Route  Route
	Params Params
}

// Param returns the named parameter or "".
func (e Entry) Param(key string) string {
	if e.Params == nil {
		return ""
	}
	return e.Params[key]
}

// Navigator is the subset the screens depend on.
type Navigator interface {
	Navigate(r Route, p Params)
	Replace(r Route, p Params)
	GoBack()
	Current() Entry
}

// Stack implements Navigator. Safe for concurrent use.
type Stack struct {
	mu        sync.Mutex
	entries   []Entry
	tab       Tab
	observers []func(Entry)
}

func NewStack() *Stack {
	return &Stack{
		entries: []Entry{{Route: AuthLoading}},
		tab:     TabHome,
	}
}

// OnChange registers fn to be called after every transition.
func (s *Stack) OnChange(fn func(Entry)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Stack) Navigate(r Route, p Params) {
	s.mu.Lock()
	s.entries = append(s.entries, Entry{Route: r, Params: p})
	s.notifyLocked()
}

// Replace resets the stack so r becomes the only entry; there is no way back
// to AuthLoading or to a screen the user logged out of.
func (s *Stack) Replace(r Route, p Params) {
	s.mu.Lock()
	s.entries = []Entry{{Route: r, Params: p}}
	if r == Main {
		s.tab = TabHome
	}
	s.notifyLocked()
}

func (s *Stack) GoBack() {
	s.mu.Lock()
	if len(s.entries) <= 1 {
		s.mu.Unlock()
		return
	}
	s.entries = s.entries[:len(s.entries)-1]
	s.notifyLocked()
}

func (s *Stack) Current() Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[len(s.entries)-1]
}

func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Stack) SelectTab(t Tab) {
	s.mu.Lock()
	s.tab = t
	s.mu.Unlock()
}

func (s *Stack) Tab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// notifyLocked releases the lock before calling observers.
func (s *Stack) notifyLocked() {
	cur := s.entries[len(s.entries)-1]
	obs := append([]func(Entry){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(cur)
	}
}
