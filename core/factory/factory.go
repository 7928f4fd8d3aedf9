package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// ModuleConfig contains the type name and raw configuration for a module.
type ModuleConfig struct {
	Type     string         `json:"type"`
	Conf     map[string]any `json:"config"`
	Disabled bool           `json:"disabled"`
}

// Factory constructs an implementation of T from an environment value E and
// the raw module config.
type Factory[E, T any] func(env E, conf map[string]any) (T, error)

// Registry stores factories keyed by module type.
type Registry[E, T any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[E, T]
}

// NewRegistry returns an empty factory registry.
func NewRegistry[E, T any]() *Registry[E, T] {
	return &Registry[E, T]{factories: make(map[string]Factory[E, T])}
}

// Register adds a factory for the given type name.
func (r *Registry[E, T]) Register(name string, f Factory[E, T]) error {
	if f == nil {
		return fmt.Errorf("factory nil for %s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("factory already registered for %s", name)
	}
	r.factories[name] = f
	return nil
}

// Has reports whether a factory is registered for the type.
func (r *Registry[E, T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Types lists the registered type names in sorted order.
func (r *Registry[E, T]) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Create instantiates a module based on its configuration.
func (r *Registry[E, T]) Create(env E, cfg ModuleConfig) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown module type %s", cfg.Type)
	}
	conf := cfg.Conf
	if conf == nil {
		conf = map[string]any{}
	}
	return f(env, conf)
}

// Decode fills out the provided struct using json tags. Strings are converted
// to numbers, booleans and durations where the target field asks for them.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
