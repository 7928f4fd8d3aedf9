package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/carbridge/core/metrics"
	"github.com/kilianp07/carbridge/infra/logger"
)

// InfluxSink writes attribute history and bridge events to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(ctx context.Context, url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPublish only records failed publishes; successful ones are too
// frequent to be useful as points.
func (s *InfluxSink) RecordPublish(ev coremetrics.PublishEvent) error {
	if ev.Err == nil {
		return nil
	}
	p := write.NewPointWithMeasurement("mqtt_publish_error").
		AddTag("plugin", ev.Plugin).
		AddTag("topic", ev.Topic).
		AddField("error", ev.Err.Error()).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordAttribute writes a vehicle_attribute point.
func (s *InfluxSink) RecordAttribute(ev coremetrics.AttributeEvent) error {
	p := write.NewPointWithMeasurement("vehicle_attribute").
		AddTag("vin", ev.VIN).
		AddTag("path", ev.Path)
	if ev.Unit != "" {
		p = p.AddTag("unit", ev.Unit)
	}
	if ev.Numeric != nil {
		p = p.AddField("value", round3(*ev.Numeric))
	} else {
		p = p.AddField("state", ev.Value)
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordConnection writes a component_connection point.
func (s *InfluxSink) RecordConnection(ev coremetrics.ConnectionEvent) error {
	p := write.NewPointWithMeasurement("component_connection").
		AddTag("component", ev.Component).
		AddField("state", ev.State).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
