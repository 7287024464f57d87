// Package ui holds the user-facing alert and confirmation surface the
// screens report through.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

type Prompter interface {
	Alert(title, message string)
	// Confirm asks a yes/no question; destructive actions only proceed on true.
	Confirm(title, message string) bool
}

// Terminal prints alerts and reads y/n answers from a line reader shared
// with the shell.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
	in  *bufio.Reader
}

func NewTerminal(in *bufio.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

func (t *Terminal) Alert(title, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "\n[%s] %s\n", title, message)
}

func (t *Terminal) Confirm(title, message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "\n[%s] %s [y/N]: ", title, message)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

type Message struct {
	Title   string
	Message string
}

// Recorder captures alerts and answers confirmations with a fixed reply.
type Recorder struct {
	mu       sync.Mutex
	Answer   bool
	alerts   []Message
	confirms []Message
}

func (r *Recorder) Alert(title, message string) {
	r.mu.Lock()
	r.alerts = append(r.alerts, Message{title, message})
	r.mu.Unlock()
}

func (r *Recorder) Confirm(title, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirms = append(r.confirms, Message{title, message})
	return r.Answer
}

func (r *Recorder) Alerts() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.alerts...)
}

func (r *Recorder) Confirms() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.confirms...)
}

// Last returns the most recent alert, or a zero Message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.alerts) == 0 {
		return Message{}
	}
	return r.alerts[len(r.alerts)-1]
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.alerts = nil
	r.confirms = nil
	r.mu.Unlock()
}
