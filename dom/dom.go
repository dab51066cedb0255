// Package dom is an in-memory host document for kickstart applications.
//
// It is enough of a document to bind, compose into and dispatch events on
// without a browser, which makes it the host used by the plan command and by
// tests.
package dom

import (
	"strings"
	"sync"

	"github.com/GoCodeAlone/kickstart"
)

// Document is an in-memory kickstart.Host.
type Document struct {
	mu         sync.RWMutex
	body       *Element
	listeners  map[string][]kickstart.EventListener
	dispatched []string
}

// NewDocument creates a document with an empty body.
func NewDocument() *Document {
	doc := &Document{
		listeners: make(map[string][]kickstart.EventListener),
	}
	doc.body = doc.CreateElement("body", "")
	return doc
}

// CreateElement creates a detached element owned by the document.
func (d *Document) CreateElement(tagName, id string) *Element {
	return &Element{
		doc:        d,
		tagName:    strings.ToLower(tagName),
		id:         id,
		attributes: make(map[string]string),
		properties: make(map[string]any),
	}
}

// BodyElement returns the document body.
func (d *Document) BodyElement() *Element {
	return d.body
}

// ResolveElement returns the first element in document order with the given id.
func (d *Document) ResolveElement(id string) kickstart.Element {
	if found := d.body.find(id); found != nil {
		return found
	}
	return nil
}

// AddEventListener registers a document-level listener.
func (d *Document) AddEventListener(name string, listener kickstart.EventListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], listener)
}

// DispatchEvent dispatches name at target. A bubbling event visits the
// target's ancestors after the target; document listeners run last. A nil
// target dispatches on the document only.
func (d *Document) DispatchEvent(target kickstart.Element, name string, init kickstart.EventInit) bool {
	evt := &Event{name: name, target: target, detail: init.Detail, cancelable: init.Cancelable}

	d.mu.Lock()
	d.dispatched = append(d.dispatched, name)
	d.mu.Unlock()

	if el, ok := target.(*Element); ok && el != nil {
		for current := el; current != nil; current = current.Parent() {
			current.fire(evt)
			if !init.Bubbles || evt.stopped {
				break
			}
		}
		if !init.Bubbles || evt.stopped {
			return !evt.DefaultPrevented()
		}
	}

	d.mu.RLock()
	listeners := append([]kickstart.EventListener(nil), d.listeners[name]...)
	d.mu.RUnlock()
	for _, listener := range listeners {
		listener(evt)
	}
	return !evt.DefaultPrevented()
}

// Dispatched returns the names of every event dispatched so far, in order.
func (d *Document) Dispatched() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.dispatched...)
}

// Element is a node of a Document.
type Element struct {
	doc     *Document
	tagName string
	id      string

	mu         sync.RWMutex
	parent     *Element
	children   []*Element
	attributes map[string]string
	properties map[string]any
	listeners  map[string][]kickstart.EventListener
}

// ID returns the element id.
func (e *Element) ID() string { return e.id }

// TagName returns the lower-case tag name.
func (e *Element) TagName() string { return e.tagName }

// SetAttribute sets an attribute.
func (e *Element) SetAttribute(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attributes[name] = value
}

// Attribute returns an attribute and whether it is set.
func (e *Element) Attribute(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	value, ok := e.attributes[name]
	return value, ok
}

// SetProperty sets a script-visible property.
func (e *Element) SetProperty(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.properties[name] = value
}

// Property returns a property and whether it is set.
func (e *Element) Property(name string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	value, ok := e.properties[name]
	return value, ok
}

// Parent returns the parent element, or nil.
func (e *Element) Parent() *Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parent
}

// Children returns the child elements in order.
func (e *Element) Children() []kickstart.Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	children := make([]kickstart.Element, len(e.children))
	for i, child := range e.children {
		children[i] = child
	}
	return children
}

// AppendChild moves child to the end of e's children. Elements that don't
// belong to this package are ignored.
func (e *Element) AppendChild(child kickstart.Element) {
	el, ok := child.(*Element)
	if !ok || el == nil {
		return
	}
	if previous := el.Parent(); previous != nil {
		previous.RemoveChild(el)
	}

	e.mu.Lock()
	e.children = append(e.children, el)
	e.mu.Unlock()

	el.mu.Lock()
	el.parent = e
	el.mu.Unlock()
}

// RemoveChild detaches child and reports whether it was a child of e.
func (e *Element) RemoveChild(child kickstart.Element) bool {
	el, ok := child.(*Element)
	if !ok || el == nil {
		return false
	}

	e.mu.Lock()
	removed := false
	for i, candidate := range e.children {
		if candidate == el {
			e.children = append(e.children[:i], e.children[i+1:]...)
			removed = true
			break
		}
	}
	e.mu.Unlock()

	if removed {
		el.mu.Lock()
		el.parent = nil
		el.mu.Unlock()
	}
	return removed
}

// AddEventListener registers a listener on the element.
func (e *Element) AddEventListener(name string, listener kickstart.EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string][]kickstart.EventListener)
	}
	e.listeners[name] = append(e.listeners[name], listener)
}

// Dispatch dispatches name at the element through its document.
func (e *Element) Dispatch(name string, init kickstart.EventInit) bool {
	return e.doc.DispatchEvent(e, name, init)
}

func (e *Element) fire(evt *Event) {
	e.mu.RLock()
	listeners := append([]kickstart.EventListener(nil), e.listeners[evt.name]...)
	e.mu.RUnlock()
	for _, listener := range listeners {
		listener(evt)
	}
}

func (e *Element) find(id string) *Element {
	if e.id == id {
		return e
	}
	e.mu.RLock()
	children := append([]*Element(nil), e.children...)
	e.mu.RUnlock()
	for _, child := range children {
		if found := child.find(id); found != nil {
			return found
		}
	}
	return nil
}

// Event is a dispatched document event.
type Event struct {
	name       string
	target     kickstart.Element
	detail     any
	cancelable bool
	prevented  bool
	stopped    bool
}

// Type returns the event name.
func (e *Event) Type() string { return e.name }

// Target returns the element the event was dispatched at, or nil.
func (e *Event) Target() kickstart.Element { return e.target }

// Detail returns the event payload.
func (e *Event) Detail() any { return e.detail }

// PreventDefault cancels the default action of a cancelable event.
func (e *Event) PreventDefault() {
	if e.cancelable {
		e.prevented = true
	}
}

// DefaultPrevented reports whether PreventDefault took effect.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// StopPropagation stops the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.stopped = true }
