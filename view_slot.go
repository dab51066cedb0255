package kickstart

import "sync"

// View is a composed unit of nodes living in a ViewSlot.
type View interface {
	Nodes() []Element
	Attached()
	Detached()
}

// ViewSlot manages the views rendered into an anchor element.
type ViewSlot struct {
	mu                sync.Mutex
	anchor            Element
	anchorIsContainer bool
	views             []View
	attached          bool
}

// NewViewSlot creates a slot over anchor. When anchorIsContainer is true the
// views render as children of anchor.
func NewViewSlot(anchor Element, anchorIsContainer bool) *ViewSlot {
	return &ViewSlot{
		anchor:            anchor,
		anchorIsContainer: anchorIsContainer,
	}
}

// Anchor returns the anchor element.
func (s *ViewSlot) Anchor() Element {
	return s.anchor
}

// AnchorIsContainer reports whether views render inside the anchor.
func (s *ViewSlot) AnchorIsContainer() bool {
	return s.anchorIsContainer
}

// TransformChildNodesIntoView captures the anchor's existing children into a
// view placed first in the slot, so pre-rendered markup is owned by the slot.
func (s *ViewSlot) TransformChildNodesIntoView() View {
	view := &staticView{nodes: s.anchor.Children()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append([]View{view}, s.views...)
	return view
}

// Add renders view into the anchor and attaches it if the slot already is.
func (s *ViewSlot) Add(view View) {
	for _, node := range view.Nodes() {
		s.anchor.AppendChild(node)
	}

	s.mu.Lock()
	s.views = append(s.views, view)
	attached := s.attached
	s.mu.Unlock()

	if attached {
		view.Attached()
	}
}

// RemoveAll removes every view from the slot and detaches them.
func (s *ViewSlot) RemoveAll() {
	s.mu.Lock()
	views := s.views
	s.views = nil
	attached := s.attached
	s.mu.Unlock()

	for _, view := range views {
		for _, node := range view.Nodes() {
			s.anchor.RemoveChild(node)
		}
		if attached {
			view.Detached()
		}
	}
}

// Attached marks the slot attached and notifies its views. Calling it again
// has no effect.
func (s *ViewSlot) Attached() {
	s.mu.Lock()
	if s.attached {
		s.mu.Unlock()
		return
	}
	s.attached = true
	views := append([]View(nil), s.views...)
	s.mu.Unlock()

	for _, view := range views {
		view.Attached()
	}
}

// IsAttached reports whether Attached has been called.
func (s *ViewSlot) IsAttached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// Views returns the views currently in the slot.
func (s *ViewSlot) Views() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]View(nil), s.views...)
}

type staticView struct {
	nodes []Element
}

func (v *staticView) Nodes() []Element { return v.nodes }
func (v *staticView) Attached()        {}
func (v *staticView) Detached()        {}
