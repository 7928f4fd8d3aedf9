package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingMonitor struct {
	errs    []error
	tags    []map[string]string
	panics  []any
	flushed int
}

func (r *recordingMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recordingMonitor) CapturePanic(v any)  { r.panics = append(r.panics, v) }
func (r *recordingMonitor) Flush(time.Duration) { r.flushed++ }

func TestCaptureModule(t *testing.T) {
	m := &recordingMonitor{}
	Init(m)
	t.Cleanup(func() { Init(nil) })

	CaptureException(nil, nil)
	CaptureModule(errors.New("boom"), "mqtt", "start")
	assert.Len(t, m.errs, 1)
	assert.Equal(t, map[string]string{"module": "mqtt", "phase": "start"}, m.tags[0])
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	m := &recordingMonitor{}
	Init(m)
	t.Cleanup(func() { Init(nil) })

	assert.PanicsWithValue(t, "kaput", func() {
		defer Recover()
		panic("kaput")
	})
	assert.Equal(t, []any{"kaput"}, m.panics)
	assert.Equal(t, 1, m.flushed)
}

func TestInitNilResets(t *testing.T) {
	Init(nil)
	assert.Equal(t, NopMonitor{}, get())
	assert.NotPanics(t, func() { Flush(time.Millisecond) })
}
