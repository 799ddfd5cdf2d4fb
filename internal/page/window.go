// Package page models the unprivileged page realm the interceptor runs in:
// the window message bus, the document click surface, the global function
// registry and the served document source.
//
// Every message crosses the realm boundary as JSON bytes; listeners get
// their own copy, never a shared reference.
package page

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"

	"github.com/remowork/soundswap/internal/logger"
)

// ErrNotReady is returned by PostMessage before the document has loaded.
var ErrNotReady = errors.New("page window not ready")

// TargetAny addresses a message to any origin.
const TargetAny = "*"

// MessageEvent is one message delivered to the window.
type MessageEvent struct {
	// Origin is the origin of the sender.
	Origin string
	Data   []byte
}

// MessageHandler handles a window message.
type MessageHandler func(MessageEvent)

type messageListener struct {
	id int
	fn MessageHandler
}

// Window is the page's window object.
type Window struct {
	origin   string
	document *Document
	logger   *slog.Logger

	mu        sync.Mutex
	ready     bool
	unloaded  bool
	nextID    int
	listeners []messageListener
	globals   map[string]any

	// dispatchMu keeps delivery single-threaded, like the page event loop.
	dispatchMu sync.Mutex
}

// NewWindow creates a window for pageURL whose document serves source.
// The window starts ready; use SetReady(false) to model a document still
// loading.
func NewWindow(pageURL, source string, log *slog.Logger) (*Window, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("page url %q must be absolute", pageURL)
	}

	return &Window{
		origin:   u.Scheme + "://" + u.Host,
		document: NewDocument(u, source),
		logger:   logger.OrDiscard(log),
		ready:    true,
		globals:  make(map[string]any),
	}, nil
}

// Origin returns the window origin, scheme://host[:port].
func (w *Window) Origin() string {
	return w.origin
}

// Document returns the window's document.
func (w *Window) Document() *Document {
	return w.document
}

// SetReady marks whether the document accepts messages.
func (w *Window) SetReady(ready bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ready = ready
}

// Unload tears the page down: listeners and globals are dropped and later
// messages go nowhere.
func (w *Window) Unload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unloaded = true
	w.listeners = nil
	clear(w.globals)
	w.document.reset()
}

// AddMessageListener registers fn and returns a function removing it.
func (w *Window) AddMessageListener(fn MessageHandler) (remove func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	w.listeners = append(w.listeners, messageListener{id: id, fn: fn})

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.listeners = slices.DeleteFunc(w.listeners, func(l messageListener) bool { return l.id == id })
	}
}

// PostMessage delivers data from senderOrigin to every message listener.
// A targetOrigin other than TargetAny that does not equal the window
// origin drops the message silently, as does an unloaded window.
func (w *Window) PostMessage(data []byte, targetOrigin, senderOrigin string) error {
	w.mu.Lock()
	if w.unloaded {
		w.mu.Unlock()
		w.logger.Debug("message for unloaded page dropped")
		return nil
	}
	if !w.ready {
		w.mu.Unlock()
		return ErrNotReady
	}
	if targetOrigin != TargetAny && targetOrigin != w.origin {
		w.mu.Unlock()
		w.logger.Debug("message target origin mismatch", "target", targetOrigin, "origin", w.origin)
		return nil
	}
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()

	w.dispatchMu.Lock()
	defer w.dispatchMu.Unlock()

	for _, l := range listeners {
		l.fn(MessageEvent{Origin: senderOrigin, Data: slices.Clone(data)})
	}
	return nil
}

// SetGlobal registers a value on the window object.
func (w *Window) SetGlobal(name string, v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unloaded {
		return
	}
	w.globals[name] = v
}

// Global looks up a value registered on the window object.
func (w *Window) Global(name string) (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.globals[name]
	return v, ok
}
