// Package component defines the contract shared by connectors and plugins.
package component

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/carbridge/core/factory"
	"github.com/kilianp07/carbridge/core/logger"
	"github.com/kilianp07/carbridge/core/metrics"
	"github.com/kilianp07/carbridge/core/model"
)

// Module is a connector or plugin. Start must not block; long running work
// belongs in Run when the module implements Runner.
type Module interface {
	ID() string
	Start(ctx context.Context) error
	Stop() error
}

// Runner is implemented by modules with a blocking loop. Run returns when ctx
// is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Depender lists the plugin ids a module needs to be started first.
type Depender interface {
	Dependencies() []string
}

// Env is handed to module factories.
type Env struct {
	Tree    *model.CarConnectivity
	Log     logger.Logger
	Metrics metrics.Hub
	Plugins *Set
}

// Registry builds modules by type name.
type Registry = factory.Registry[Env, Module]

// NewRegistry returns an empty module registry.
func NewRegistry() *Registry { return factory.NewRegistry[Env, Module]() }

// Set holds created modules by id, in creation order.
type Set struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Module
}

// NewSet returns an empty set.
func NewSet() *Set { return &Set{byID: make(map[string]Module)} }

// Add stores m. Ids must be unique.
func (s *Set) Add(m Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[m.ID()]; ok {
		return fmt.Errorf("duplicate module id %q", m.ID())
	}
	s.byID[m.ID()] = m
	s.order = append(s.order, m.ID())
	return nil
}

// Get returns the module with the given id.
func (s *Set) Get(id string) (Module, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	return m, ok
}

// List returns the modules in creation order.
func (s *Set) List() []Module {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Module, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// StartOrder sorts modules so that dependencies come first. Modules without
// ordering constraints keep their relative order.
func StartOrder(mods []Module) ([]Module, error) {
	index := make(map[string]int, len(mods))
	for i, m := range mods {
		index[m.ID()] = i
	}
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(mods))
	out := make([]Module, 0, len(mods))
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle at %q", mods[i].ID())
		}
		state[i] = visiting
		if d, ok := mods[i].(Depender); ok {
			deps := append([]string(nil), d.Dependencies()...)
			sort.Strings(deps)
			for _, dep := range deps {
				j, ok := index[dep]
				if !ok {
					return fmt.Errorf("module %q depends on %q which is not configured", mods[i].ID(), dep)
				}
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		state[i] = done
		out = append(out, mods[i])
		return nil
	}
	for i := range mods {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}
