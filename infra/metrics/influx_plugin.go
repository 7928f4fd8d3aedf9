package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
	coremetrics "github.com/kilianp07/carbridge/core/metrics"
	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/core/observable"
	"github.com/kilianp07/carbridge/infra/logger"
	"github.com/kilianp07/carbridge/internal/eventbus"
)

// InfluxPluginID is the id of the influxdb plugin in the tree.
const InfluxPluginID = "influxdb"

// InfluxConfig configures the InfluxDB writer.
type InfluxConfig struct {
	URL        string `json:"url"`
	Token      string `json:"token"`
	Org        string `json:"org"`
	Bucket     string `json:"bucket"`
	BufferSize int    `json:"buffer_size"`
	LogLevel   string `json:"log_level"`
}

// SetDefaults fills optional fields.
func (c *InfluxConfig) SetDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
}

// Validate checks the configuration after defaults were applied.
func (c InfluxConfig) Validate() error {
	for key, v := range map[string]string{"url": c.URL, "org": c.Org, "bucket": c.Bucket} {
		if v == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	return nil
}

type influxRecorder interface {
	coremetrics.Sink
	coremetrics.AttributeRecorder
}

// newInfluxRecorder is replaced in tests.
var newInfluxRecorder = func(ctx context.Context, c InfluxConfig) influxRecorder {
	s := NewInfluxSinkWithFallback(ctx, c.URL, c.Token, c.Org, c.Bucket)
	if r, ok := s.(influxRecorder); ok {
		return r
	}
	return coremetrics.NopSink{}
}

// InfluxPlugin records vehicle attribute changes as vehicle_attribute points.
type InfluxPlugin struct {
	cfg  InfluxConfig
	tree *model.CarConnectivity
	comp *model.Component
	log  logger.Logger
	hub  coremetrics.Hub
	now  func() time.Time

	bus            *eventbus.TypedBus[coremetrics.AttributeEvent]
	events         <-chan coremetrics.AttributeEvent
	rec            influxRecorder
	removeObserver func()
}

// NewInfluxPlugin creates the plugin from its raw configuration.
func NewInfluxPlugin(env component.Env, conf map[string]any) (*InfluxPlugin, error) {
	var cfg InfluxConfig
	if err := factory.Decode(conf, &cfg); err != nil {
		return nil, fmt.Errorf("influxdb config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("influxdb config: %w", err)
	}
	hub := env.Metrics
	if hub == nil {
		hub = NewMultiSink()
	}
	p := &InfluxPlugin{
		cfg:  cfg,
		tree: env.Tree,
		log:  logger.NewWithLevel("influxdb", cfg.LogLevel),
		hub:  hub,
		now:  time.Now,
		bus:  eventbus.NewTyped[coremetrics.AttributeEvent](),
	}
	p.comp = env.Tree.Plugins.Add(InfluxPluginID, "InfluxDB", false)
	return p, nil
}

// ID returns the plugin id.
func (p *InfluxPlugin) ID() string { return InfluxPluginID }

// Start checks the database and starts following attribute changes. An
// unreachable database leaves the plugin running as a no-op.
func (p *InfluxPlugin) Start(ctx context.Context) error {
	p.rec = newInfluxRecorder(ctx, p.cfg)
	if _, nop := p.rec.(coremetrics.NopSink); nop {
		p.log.Warnf("influxdb at %s unavailable, attribute history disabled", p.cfg.URL)
		p.comp.Healthy.SetValue(false)
	} else {
		p.hub.Add(p.rec)
		p.comp.Healthy.SetValue(true)
	}
	p.events = p.bus.Subscribe(p.cfg.BufferSize)
	p.removeObserver = p.tree.AddObserver(p.observe, observable.FlagValueChanged)
	return nil
}

// Run writes queued attribute changes until ctx is cancelled.
func (p *InfluxPlugin) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-p.events:
			if !ok {
				return nil
			}
			if err := p.rec.RecordAttribute(ev); err != nil {
				p.log.Warnf("write %s/%s: %v", ev.VIN, ev.Path, err)
			}
		}
	}
}

// Stop detaches from the tree and releases the client.
func (p *InfluxPlugin) Stop() error {
	if p.removeObserver != nil {
		p.removeObserver()
	}
	p.bus.Close()
	if dropped := p.bus.Dropped(); dropped > 0 {
		p.log.Warnf("%d attribute changes dropped", dropped)
	}
	if c, ok := p.rec.(interface{ Close() }); ok {
		c.Close()
	}
	p.comp.Healthy.SetValue(false)
	return nil
}

func (p *InfluxPlugin) observe(ev observable.Event) {
	if ae, ok := AttributeEventFor(ev.Element, p.now()); ok {
		p.bus.Publish(ae)
	}
}

// AttributeEventFor describes the current value of a vehicle attribute. It
// returns false for elements outside the garage and attributes without a
// value.
func AttributeEventFor(e observable.Element, at time.Time) (coremetrics.AttributeEvent, bool) {
	v, ok := e.(observable.Valuer)
	if !ok {
		return coremetrics.AttributeEvent{}, false
	}
	rest, ok := strings.CutPrefix(v.Path(), "/garage/")
	if !ok {
		return coremetrics.AttributeEvent{}, false
	}
	vin, path, ok := strings.Cut(rest, "/")
	if !ok {
		return coremetrics.AttributeEvent{}, false
	}
	s, ok := v.Formatted()
	if !ok {
		return coremetrics.AttributeEvent{}, false
	}
	ev := coremetrics.AttributeEvent{VIN: vin, Path: path, Value: s, Unit: string(v.Unit()), Time: at}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		ev.Numeric = &f
	}
	return ev, true
}
