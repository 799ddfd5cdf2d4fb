package page

import (
	"net/url"
	"slices"
	"strings"
	"sync"
)

// Element is a node in the page's DOM.
type Element struct {
	Tag     string
	ID      string
	Classes []string
	Text    string

	parent   *Element
	children []*Element
}

// NewElement creates a detached element.
func NewElement(tag, text string, classes ...string) *Element {
	return &Element{Tag: tag, Text: text, Classes: classes}
}

// Append adds children and returns e.
func (e *Element) Append(children ...*Element) *Element {
	for _, c := range children {
		c.parent = e
		e.children = append(e.children, c)
	}
	return e
}

// Parent returns the parent element or nil.
func (e *Element) Parent() *Element {
	return e.parent
}

// HasClass reports whether e carries class name.
func (e *Element) HasClass(name string) bool {
	return slices.Contains(e.Classes, name)
}

// TextContent returns the text of e and its descendants in document order.
func (e *Element) TextContent() string {
	var sb strings.Builder
	e.writeText(&sb)
	return sb.String()
}

func (e *Element) writeText(sb *strings.Builder) {
	sb.WriteString(e.Text)
	for _, c := range e.children {
		c.writeText(sb)
	}
}

// ClickEvent is a click dispatched through the document.
type ClickEvent struct {
	Target *Element

	stopped bool
}

// StopPropagation prevents later phases from seeing the event.
func (ev *ClickEvent) StopPropagation() {
	ev.stopped = true
}

// ClickHandler handles a click.
type ClickHandler func(*ClickEvent)

type clickListener struct {
	id      int
	capture bool
	fn      ClickHandler
}

// Document is the page document: the served source and a click surface.
type Document struct {
	url    *url.URL
	source string

	mu        sync.Mutex
	nextID    int
	listeners []clickListener
}

// NewDocument creates a document for u serving source.
func NewDocument(u *url.URL, source string) *Document {
	return &Document{url: u, source: source}
}

// URL returns the document URL.
func (d *Document) URL() *url.URL {
	u := *d.url
	return &u
}

// Source returns the document HTML as served.
func (d *Document) Source() string {
	return d.source
}

// AddClickListener registers fn for the capture or bubble phase.
func (d *Document) AddClickListener(fn ClickHandler, capture bool) (remove func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, clickListener{id: id, capture: capture, fn: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.listeners = slices.DeleteFunc(d.listeners, func(l clickListener) bool { return l.id == id })
	}
}

// Click dispatches a click on target: document capture listeners first,
// then bubble listeners, unless a capture listener stops propagation.
func (d *Document) Click(target *Element) {
	d.mu.Lock()
	listeners := slices.Clone(d.listeners)
	d.mu.Unlock()

	ev := &ClickEvent{Target: target}
	for _, phase := range []bool{true, false} {
		for _, l := range listeners {
			if l.capture != phase {
				continue
			}
			l.fn(ev)
		}
		if ev.stopped {
			return
		}
	}
}

func (d *Document) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = nil
}
