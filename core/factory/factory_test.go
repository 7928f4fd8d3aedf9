package factory

import (
	"testing"
	"time"
)

type sample struct {
	A    int
	Name string
}

type sampleConf struct {
	A     int           `json:"a"`
	Every time.Duration `json:"every"`
	On    bool          `json:"on"`
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[string, *sample]()
	if err := reg.Register("s", func(name string, conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{A: c.A, Name: name}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create("first", ModuleConfig{Type: "s", Conf: map[string]any{"a": 3}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.A != 3 || inst.Name != "first" {
		t.Fatalf("unexpected instance %+v", inst)
	}
	if !reg.Has("s") || reg.Has("t") {
		t.Fatal("Has mismatch")
	}
	if types := reg.Types(); len(types) != 1 || types[0] != "s" {
		t.Fatalf("unexpected types %v", types)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[struct{}, int]()
	if err := reg.Register("x", func(struct{}, map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(struct{}, map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("z", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := reg.Create(struct{}{}, ModuleConfig{Type: "y"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestDecodeWeakTypes(t *testing.T) {
	var c sampleConf
	err := Decode(map[string]any{"a": "7", "every": "1m30s", "on": "true"}, &c)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.A != 7 || c.Every != 90*time.Second || !c.On {
		t.Fatalf("unexpected decode result %+v", c)
	}
}
