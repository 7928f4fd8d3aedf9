package component

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModule struct {
	id   string
	deps []string
}

func (f fakeModule) ID() string                  { return f.id }
func (f fakeModule) Start(context.Context) error { return nil }
func (f fakeModule) Stop() error                 { return nil }
func (f fakeModule) Dependencies() []string      { return f.deps }

func ids(mods []Module) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.ID()
	}
	return out
}

func TestStartOrder(t *testing.T) {
	mods := []Module{
		fakeModule{id: "mqtt_homeassistant", deps: []string{"mqtt"}},
		fakeModule{id: "prometheus"},
		fakeModule{id: "mqtt"},
	}
	out, err := StartOrder(mods)
	require.NoError(t, err)
	assert.Equal(t, []string{"mqtt", "mqtt_homeassistant", "prometheus"}, ids(out))
}

func TestStartOrderErrors(t *testing.T) {
	_, err := StartOrder([]Module{fakeModule{id: "a", deps: []string{"missing"}}})
	assert.ErrorContains(t, err, "not configured")

	_, err = StartOrder([]Module{
		fakeModule{id: "a", deps: []string{"b"}},
		fakeModule{id: "b", deps: []string{"a"}},
	})
	assert.ErrorContains(t, err, "cycle")
}

func TestSet(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(fakeModule{id: "a"}))
	require.NoError(t, s.Add(fakeModule{id: "b"}))
	assert.Error(t, s.Add(fakeModule{id: "a"}))

	m, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", m.ID())
	assert.Equal(t, []string{"a", "b"}, ids(s.List()))

	var nilSet *Set
	_, ok = nilSet.Get("a")
	assert.False(t, ok)
}
