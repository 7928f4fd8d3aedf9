// Package plugins holds the registries of connector and plugin types. The
// builtin types register themselves in init.
package plugins

import (
	"fmt"

	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
)

var (
	// Connectors builds modules feeding vehicles into the garage.
	Connectors = component.NewRegistry()
	// Plugins builds modules exporting the garage.
	Plugins = component.NewRegistry()
)

// RegisterConnector adds a connector type.
func RegisterConnector[M component.Module](name string, c func(component.Env, map[string]any) (M, error)) error {
	return Connectors.Register(name, erase(c))
}

// RegisterPlugin adds a plugin type.
func RegisterPlugin[M component.Module](name string, c func(component.Env, map[string]any) (M, error)) error {
	return Plugins.Register(name, erase(c))
}

func erase[M component.Module](c func(component.Env, map[string]any) (M, error)) factory.Factory[component.Env, component.Module] {
	return func(env component.Env, conf map[string]any) (component.Module, error) {
		m, err := c(env, conf)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("register builtin: %v", err))
	}
}
