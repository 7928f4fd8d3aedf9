package observable

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotWritable is returned when writing to an attribute without a
	// write handler.
	ErrNotWritable = errors.New("attribute is not writable")
	// ErrInvalidValue is returned when a payload cannot be parsed.
	ErrInvalidValue = errors.New("invalid value")
)

// Unit is the unit of measurement of an attribute value.
type Unit string

// Range describes numeric limits of a changeable attribute.
type Range struct {
	Min  *float64
	Max  *float64
	Step *float64
}

// Valuer is the type independent view of an attribute used by plugins.
type Valuer interface {
	Element
	// Formatted returns the value as MQTT payload and whether a value is set.
	Formatted() (string, bool)
	Unit() Unit
	Options() []string
	Range() Range
	Writable() bool
	Write(raw string) error
}

// Codec converts values from and to their payload representation.
type Codec[T any] struct {
	Format func(T) string
	Parse  func(string) (T, error)
}

// Hook may transform a written value before it reaches the write handler.
type Hook[T any] func(T) (T, error)

// Attribute is a typed value in the tree.
type Attribute[T comparable] struct {
	Node

	valMu       sync.RWMutex
	value       T
	hasValue    bool
	unit        Unit
	options     []string
	rng         Range
	codec       Codec[T]
	hooks       []Hook[T]
	onWrite     func(T) error
	lastChanged time.Time
	lastUpdated time.Time
}

// NewAttribute creates an attribute using the given codec.
func NewAttribute[T comparable](id string, parent Element, unit Unit, codec Codec[T]) *Attribute[T] {
	a := &Attribute[T]{unit: unit, codec: codec}
	a.Init(a, id, parent)
	return a
}

// NewString creates a string attribute.
func NewString(id string, parent Element) *Attribute[string] {
	return NewAttribute(id, parent, "", StringCodec)
}

// NewFloat creates a float attribute.
func NewFloat(id string, parent Element, unit Unit) *Attribute[float64] {
	return NewAttribute(id, parent, unit, FloatCodec)
}

// NewInt creates an integer attribute.
func NewInt(id string, parent Element, unit Unit) *Attribute[int] {
	return NewAttribute(id, parent, unit, IntCodec)
}

// NewBool creates a boolean attribute.
func NewBool(id string, parent Element) *Attribute[bool] {
	return NewAttribute(id, parent, "", BoolCodec)
}

// NewTime creates a timestamp attribute.
func NewTime(id string, parent Element) *Attribute[time.Time] {
	return NewAttribute(id, parent, "", TimeCodec)
}

// NewEnum creates an attribute restricted to the given options.
func NewEnum[T ~string](id string, parent Element, options []T) *Attribute[T] {
	opts := make([]string, len(options))
	for i, o := range options {
		opts[i] = string(o)
	}
	a := NewAttribute(id, parent, "", EnumCodec[T](opts))
	a.options = opts
	return a
}

// Value returns the current value and whether one is set.
func (a *Attribute[T]) Value() (T, bool) {
	a.valMu.RLock()
	defer a.valMu.RUnlock()
	return a.value, a.hasValue
}

// HasValue reports whether a value is set.
func (a *Attribute[T]) HasValue() bool {
	_, ok := a.Value()
	return ok
}

// SetValue stores v. The attribute is enabled if needed and observers are
// notified when either the enabled flag or the value changed.
func (a *Attribute[T]) SetValue(v T) {
	now := time.Now()
	a.valMu.Lock()
	changed := !a.hasValue || a.value != v
	a.value = v
	a.hasValue = true
	a.lastUpdated = now
	if changed {
		a.lastChanged = now
	}
	a.valMu.Unlock()

	var flags Flag
	a.mu.Lock()
	if !a.enabled {
		a.enabled = true
		flags |= FlagEnabled
	}
	a.mu.Unlock()
	if changed {
		flags |= FlagValueChanged
	}
	if flags != 0 {
		a.Notify(flags)
	}
}

// Clear removes the value.
func (a *Attribute[T]) Clear() {
	a.valMu.Lock()
	had := a.hasValue
	var zero T
	a.value = zero
	a.hasValue = false
	a.valMu.Unlock()
	if had {
		a.Notify(FlagValueChanged)
	}
}

// LastChanged returns when the value last changed.
func (a *Attribute[T]) LastChanged() time.Time {
	a.valMu.RLock()
	defer a.valMu.RUnlock()
	return a.lastChanged
}

// Unit returns the unit of measurement.
func (a *Attribute[T]) Unit() Unit { return a.unit }

// Options returns the allowed values of an enum attribute.
func (a *Attribute[T]) Options() []string {
	if len(a.options) == 0 {
		return nil
	}
	out := make([]string, len(a.options))
	copy(out, a.options)
	return out
}

// Range returns the numeric limits.
func (a *Attribute[T]) Range() Range {
	a.valMu.RLock()
	defer a.valMu.RUnlock()
	return a.rng
}

// SetRange sets the numeric limits. Pass nil for open bounds.
func (a *Attribute[T]) SetRange(r Range) {
	a.valMu.Lock()
	a.rng = r
	a.valMu.Unlock()
}

// Formatted returns the payload representation of the value.
func (a *Attribute[T]) Formatted() (string, bool) {
	v, ok := a.Value()
	if !ok {
		return "", false
	}
	return a.codec.Format(v), true
}

// SetWriteHandler makes the attribute changeable. fn receives the parsed and
// hooked value.
func (a *Attribute[T]) SetWriteHandler(fn func(T) error) {
	a.valMu.Lock()
	a.onWrite = fn
	a.valMu.Unlock()
}

// Writable reports whether the attribute accepts writes.
func (a *Attribute[T]) Writable() bool {
	a.valMu.RLock()
	defer a.valMu.RUnlock()
	return a.onWrite != nil
}

// AddHook registers a hook run on writes. Early hooks run before the others.
func (a *Attribute[T]) AddHook(h Hook[T], early bool) {
	a.valMu.Lock()
	defer a.valMu.Unlock()
	if early {
		a.hooks = append([]Hook[T]{h}, a.hooks...)
		return
	}
	a.hooks = append(a.hooks, h)
}

// Write parses raw and requests the value.
func (a *Attribute[T]) Write(raw string) error {
	v, err := a.codec.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Path(), err)
	}
	return a.Request(v)
}

// Request runs the hooks and hands the value to the write handler. The
// handler decides whether and when the value is applied.
func (a *Attribute[T]) Request(v T) error {
	a.valMu.RLock()
	hooks := a.hooks
	fn := a.onWrite
	rng := a.rng
	a.valMu.RUnlock()
	if fn == nil {
		return fmt.Errorf("%s: %w", a.Path(), ErrNotWritable)
	}
	for _, h := range hooks {
		var err error
		if v, err = h(v); err != nil {
			return fmt.Errorf("%s: %w", a.Path(), err)
		}
	}
	if err := checkRange(any(v), rng); err != nil {
		return fmt.Errorf("%s: %w", a.Path(), err)
	}
	return fn(v)
}

func checkRange(v any, r Range) error {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	default:
		return nil
	}
	if r.Min != nil && f < *r.Min {
		return fmt.Errorf("%w: %v below minimum %v", ErrInvalidValue, f, *r.Min)
	}
	if r.Max != nil && f > *r.Max {
		return fmt.Errorf("%w: %v above maximum %v", ErrInvalidValue, f, *r.Max)
	}
	return nil
}

// StringCodec passes strings through.
var StringCodec = Codec[string]{
	Format: func(s string) string { return s },
	Parse:  func(s string) (string, error) { return s, nil },
}

// FloatCodec formats floats with the minimal number of digits.
var FloatCodec = Codec[float64]{
	Format: func(f float64) string {
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatFloat(f, 'f', 1, 64)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	},
	Parse: func(s string) (float64, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
		}
		return f, nil
	},
}

// IntCodec formats integers.
var IntCodec = Codec[int]{
	Format: strconv.Itoa,
	Parse: func(s string) (int, error) {
		s = strings.TrimSpace(s)
		if i, err := strconv.Atoi(s); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, s)
		}
		return int(f), nil
	},
}

// BoolCodec uses True and False, the payloads Home Assistant entities are
// configured with.
var BoolCodec = Codec[bool]{
	Format: func(b bool) string {
		if b {
			return "True"
		}
		return "False"
	},
	Parse: func(s string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "on", "1", "yes":
			return true, nil
		case "false", "off", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, s)
	},
}

// TimeCodec uses RFC 3339 timestamps.
var TimeCodec = Codec[time.Time]{
	Format: func(t time.Time) string { return t.Format(time.RFC3339) },
	Parse: func(s string) (time.Time, error) {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not a RFC 3339 timestamp", ErrInvalidValue, s)
		}
		return t, nil
	},
}

// EnumCodec accepts only the given options.
func EnumCodec[T ~string](options []string) Codec[T] {
	return Codec[T]{
		Format: func(v T) string { return string(v) },
		Parse: func(s string) (T, error) {
			s = strings.TrimSpace(s)
			for _, o := range options {
				if o == s {
					return T(s), nil
				}
			}
			return "", fmt.Errorf("%w: %q is not one of %s", ErrInvalidValue, s, strings.Join(options, ", "))
		},
	}
}

// Float returns a pointer to f, handy for ranges.
func Float(f float64) *float64 { return &f }
