package observable

import (
	"strings"
	"sync"
)

// Flag describes what happened to an element.
type Flag uint8

const (
	FlagEnabled Flag = 1 << iota
	FlagDisabled
	FlagValueChanged
)

// FlagAll matches every event.
const FlagAll = FlagEnabled | FlagDisabled | FlagValueChanged

// Has reports whether any bit of o is set in f.
func (f Flag) Has(o Flag) bool { return f&o != 0 }

func (f Flag) String() string {
	var parts []string
	if f.Has(FlagEnabled) {
		parts = append(parts, "enabled")
	}
	if f.Has(FlagDisabled) {
		parts = append(parts, "disabled")
	}
	if f.Has(FlagValueChanged) {
		parts = append(parts, "value_changed")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Event is delivered to observers.
type Event struct {
	Element Element
	Flags   Flag
}

// Observer receives events. Observers run on the goroutine that caused the
// event and must not block.
type Observer func(Event)

// Element is a node of the object tree.
type Element interface {
	ID() string
	Path() string
	Parent() Element
	Enabled() bool
	Children() []Element
	Base() *Node
}

// Node holds the tree bookkeeping shared by all elements. Types embed it and
// call Init from their constructor.
type Node struct {
	mu       sync.RWMutex
	self     Element
	id       string
	parent   Element
	root     *Root
	children []Element
	enabled  bool
}

// Init attaches the element self below parent. A nil parent creates a
// detached element.
func (n *Node) Init(self Element, id string, parent Element) {
	n.self = self
	n.id = id
	n.parent = parent
	if parent == nil {
		return
	}
	pb := parent.Base()
	n.root = pb.root
	pb.mu.Lock()
	pb.children = append(pb.children, self)
	pb.mu.Unlock()
}

// Base returns the node itself.
func (n *Node) Base() *Node { return n }

// ID returns the element id.
func (n *Node) ID() string { return n.id }

// Parent returns the parent element or nil for the root.
func (n *Node) Parent() Element { return n.parent }

// Path returns the absolute path of the element. The root has an empty path.
func (n *Node) Path() string {
	if n.parent == nil {
		return ""
	}
	return n.parent.Path() + "/" + n.id
}

// Enabled reports whether the element is enabled.
func (n *Node) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// SetEnabled changes the enabled flag and notifies observers on change.
func (n *Node) SetEnabled(enabled bool) {
	n.mu.Lock()
	if n.enabled == enabled {
		n.mu.Unlock()
		return
	}
	n.enabled = enabled
	n.mu.Unlock()
	if enabled {
		n.Notify(FlagEnabled)
	} else {
		n.Notify(FlagDisabled)
	}
}

// Children returns a copy of the child list.
func (n *Node) Children() []Element {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Element, len(n.children))
	copy(out, n.children)
	return out
}

// RemoveChild detaches a child. The child is disabled first so observers see
// it go away.
func (n *Node) RemoveChild(child Element) {
	child.Base().SetEnabled(false)
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

// Notify delivers an event for this element to the root observers.
func (n *Node) Notify(flags Flag) {
	if n.root == nil || n.self == nil {
		return
	}
	n.root.dispatch(Event{Element: n.self, Flags: flags})
}

// Walk visits e and its descendants depth first. Returning false from fn
// skips the children of the visited element.
func Walk(e Element, fn func(Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children() {
		Walk(c, fn)
	}
}

// Root is the top of a tree and owns the observer list.
type Root struct {
	Node

	obsMu     sync.RWMutex
	observers []observerEntry
	nextID    int
}

type observerEntry struct {
	id    int
	flags Flag
	fn    Observer
}

// InitRoot prepares r as the root of a new tree. self is the outer type
// embedding Root, or r itself.
func (r *Root) InitRoot(self Element) {
	r.Init(self, "", nil)
	r.root = r
	r.enabled = true
}

// NewRoot creates a standalone root.
func NewRoot() *Root {
	r := &Root{}
	r.InitRoot(r)
	return r
}

// AddObserver registers fn for events matching flags and returns a function
// removing it again.
func (r *Root) AddObserver(fn Observer, flags Flag) (remove func()) {
	r.obsMu.Lock()
	r.nextID++
	id := r.nextID
	r.observers = append(r.observers, observerEntry{id: id, flags: flags, fn: fn})
	r.obsMu.Unlock()
	return func() {
		r.obsMu.Lock()
		defer r.obsMu.Unlock()
		for i, o := range r.observers {
			if o.id == id {
				r.observers = append(r.observers[:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

func (r *Root) dispatch(ev Event) {
	r.obsMu.RLock()
	obs := make([]observerEntry, len(r.observers))
	copy(obs, r.observers)
	r.obsMu.RUnlock()
	for _, o := range obs {
		if o.flags.Has(ev.Flags) {
			o.fn(ev)
		}
	}
}
