package observable

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownCommand is returned by handlers for arguments they do not know.
var ErrUnknownCommand = errors.New("unknown command argument")

// Command is a writable element that triggers an action on the vehicle.
type Command struct {
	Node

	cmdMu     sync.RWMutex
	arguments []string
	handler   func(arg string) error
	hooks     []Hook[string]
}

// NewCommand creates an enabled command below parent. When arguments is non
// empty only those arguments are accepted.
func NewCommand(id string, parent Element, arguments []string, handler func(arg string) error) *Command {
	c := &Command{arguments: arguments, handler: handler}
	c.Init(c, id, parent)
	c.SetEnabled(true)
	return c
}

// Arguments returns the accepted arguments.
func (c *Command) Arguments() []string {
	out := make([]string, len(c.arguments))
	copy(out, c.arguments)
	return out
}

// AddHook registers a hook run before the handler. Early hooks run first.
func (c *Command) AddHook(h Hook[string], early bool) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	if early {
		c.hooks = append([]Hook[string]{h}, c.hooks...)
		return
	}
	c.hooks = append(c.hooks, h)
}

// Write runs the hooks and executes the command.
func (c *Command) Write(raw string) error {
	c.cmdMu.RLock()
	hooks := c.hooks
	handler := c.handler
	c.cmdMu.RUnlock()
	arg := strings.TrimSpace(raw)
	for _, h := range hooks {
		var err error
		if arg, err = h(arg); err != nil {
			return fmt.Errorf("%s: %w", c.Path(), err)
		}
	}
	if len(c.arguments) > 0 && !contains(c.arguments, arg) {
		return fmt.Errorf("%s: %w %q", c.Path(), ErrUnknownCommand, arg)
	}
	if handler == nil {
		return fmt.Errorf("%s: %w", c.Path(), ErrNotWritable)
	}
	if err := handler(arg); err != nil {
		return fmt.Errorf("%s: %w", c.Path(), err)
	}
	return nil
}

// Formatted reports no value; commands have no state.
func (c *Command) Formatted() (string, bool) { return "", false }

// Unit is always empty for commands.
func (c *Command) Unit() Unit { return "" }

// Options returns the accepted arguments.
func (c *Command) Options() []string { return c.Arguments() }

// Range is empty for commands.
func (c *Command) Range() Range { return Range{} }

// Writable is true for commands.
func (c *Command) Writable() bool { return true }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
