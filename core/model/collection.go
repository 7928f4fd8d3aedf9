package model

import (
	"sort"
	"sync"

	"github.com/kilianp07/carbridge/core/observable"
)

// Group is a plain container node.
type Group struct {
	observable.Node
}

func newGroup(id string, parent observable.Element) *Group {
	g := &Group{}
	g.Init(g, id, parent)
	g.SetEnabled(true)
	return g
}

// Collection is a container of elements keyed by id.
type Collection[T observable.Element] struct {
	observable.Node

	itemsMu sync.RWMutex
	items   map[string]T
}

func (c *Collection[T]) initCollection(self observable.Element, id string, parent observable.Element, enabled bool) {
	c.Init(self, id, parent)
	c.items = make(map[string]T)
	if enabled {
		c.SetEnabled(true)
	}
}

// Get returns the item with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.itemsMu.RLock()
	defer c.itemsMu.RUnlock()
	it, ok := c.items[id]
	return it, ok
}

// Has reports whether an item with the given id exists.
func (c *Collection[T]) Has(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// List returns the items ordered by id.
func (c *Collection[T]) List() []T {
	c.itemsMu.RLock()
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.items[id])
	}
	c.itemsMu.RUnlock()
	return out
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.itemsMu.RLock()
	defer c.itemsMu.RUnlock()
	return len(c.items)
}

// Remove disables and detaches the item with the given id.
func (c *Collection[T]) Remove(id string) bool {
	c.itemsMu.Lock()
	it, ok := c.items[id]
	delete(c.items, id)
	c.itemsMu.Unlock()
	if ok {
		c.RemoveChild(it)
	}
	return ok
}

func (c *Collection[T]) getOrAdd(id string, build func() T) T {
	c.itemsMu.Lock()
	if it, ok := c.items[id]; ok {
		c.itemsMu.Unlock()
		return it
	}
	c.itemsMu.Unlock()
	// build attaches to the tree and may emit events, so it runs unlocked.
	it := build()
	c.itemsMu.Lock()
	c.items[id] = it
	c.itemsMu.Unlock()
	return it
}

// Commands holds the commands of a vehicle part. It becomes enabled with its
// first command.
type Commands struct {
	Collection[*observable.Command]
}

func newCommands(parent observable.Element) *Commands {
	c := &Commands{}
	c.initCollection(c, "commands", parent, false)
	return c
}

// Add registers a command. An existing command with the same id is returned
// unchanged.
func (c *Commands) Add(id string, arguments []string, handler func(arg string) error) *observable.Command {
	cmd := c.getOrAdd(id, func() *observable.Command {
		return observable.NewCommand(id, c, arguments, handler)
	})
	c.SetEnabled(true)
	return cmd
}

// Well known command ids and arguments.
const (
	CommandWakeSleep  = "wake-sleep"
	CommandLockUnlock = "lock-unlock"
	CommandStartStop  = "start-stop"
)

var (
	WakeSleepArguments  = []string{"wake", "sleep"}
	LockUnlockArguments = []string{"lock", "unlock"}
	StartStopArguments  = []string{"start", "stop"}
)
