package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/carbridge/core/metrics"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *bodyRecorder) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.bodies) == 0 {
		return ""
	}
	return b.bodies[len(b.bodies)-1]
}

func TestInfluxSinkRecordAttribute(t *testing.T) {
	rec := &bodyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	soc := 54.1234

	require.NoError(t, sink.RecordAttribute(coremetrics.AttributeEvent{
		VIN: "VIN1", Path: "/garage/VIN1/drives/primary/level", Numeric: &soc, Unit: "%", Time: now,
	}))
	p := write.NewPointWithMeasurement("vehicle_attribute").
		AddTag("vin", "VIN1").
		AddTag("path", "/garage/VIN1/drives/primary/level").
		AddTag("unit", "%").
		AddField("value", 54.123).
		SetTime(now)
	assert.Equal(t, strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)), rec.last())

	require.NoError(t, sink.RecordAttribute(coremetrics.AttributeEvent{
		VIN: "VIN1", Path: "/garage/VIN1/state", Value: "parking", Time: now,
	}))
	assert.Contains(t, rec.last(), `state="parking"`)
}

func TestInfluxSinkSkipsSuccessfulPublishes(t *testing.T) {
	rec := &bodyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	require.NoError(t, sink.RecordPublish(coremetrics.PublishEvent{Plugin: "mqtt", Topic: "t", Time: time.Now()}))
	assert.Empty(t, rec.last())

	require.NoError(t, sink.RecordPublish(coremetrics.PublishEvent{Plugin: "mqtt", Topic: "t", Err: errors.New("boom"), Time: time.Now()}))
	assert.Contains(t, rec.last(), "mqtt_publish_error")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(context.Background(), srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, ok := sink.(*InfluxSink)
	assert.False(t, ok, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}
