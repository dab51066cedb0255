package kickstart

// DefaultHostID is the element id looked up when no application host is given.
const DefaultHostID = "applicationHost"

// HostProperty is the element property set to the owning *Application once
// the element becomes the application host.
const HostProperty = "kickstart"

// Lifecycle notifications dispatched on the host document.
const (
	EventStarted  = "kickstart-started"
	EventComposed = "kickstart-composed"
	EventSubmit   = "submit"
)

// Host is the document abstraction the application binds to.
type Host interface {
	// ResolveElement returns the element with the given id, or nil.
	ResolveElement(id string) Element

	// DispatchEvent dispatches a named event at target, or at the document
	// itself when target is nil. It reports whether the default action is
	// still allowed.
	DispatchEvent(target Element, name string, init EventInit) bool

	// AddEventListener registers a document-level listener.
	AddEventListener(name string, listener EventListener)
}

// Element is a node of the host document.
type Element interface {
	ID() string
	TagName() string
	Attribute(name string) (string, bool)
	SetProperty(name string, value any)
	Property(name string) (any, bool)
	Children() []Element
	AppendChild(child Element)
	RemoveChild(child Element) bool
}

// EventInit carries the dispatch flags of an event.
type EventInit struct {
	Bubbles    bool
	Cancelable bool
	Detail     any
}

// Event is a dispatched host event.
type Event interface {
	Type() string
	Target() Element
	Detail() any
	PreventDefault()
	DefaultPrevented() bool
}

// EventListener handles dispatched events.
type EventListener func(evt Event)
