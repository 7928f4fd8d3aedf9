package metrics

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kilianp07/carbridge/api/vehicles"
	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
	coremetrics "github.com/kilianp07/carbridge/core/metrics"
	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/core/observable"
	"github.com/kilianp07/carbridge/infra/logger"
)

// PrometheusPluginID is the id of the prometheus plugin in the tree.
const PrometheusPluginID = "prometheus"

// PrometheusConfig configures the metrics endpoint.
type PrometheusConfig struct {
	Address  string `json:"address"`
	LogLevel string `json:"log_level"`
}

// SetDefaults fills optional fields.
func (c *PrometheusConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":9100"
	}
}

// PrometheusPlugin serves /metrics, /healthz and the garage API and feeds the bridge events
// into Prometheus collectors.
type PrometheusPlugin struct {
	cfg      PrometheusConfig
	tree     *model.CarConnectivity
	comp     *model.Component
	log      logger.Logger
	hub      coremetrics.Hub
	registry *prometheus.Registry
	sink     *PromSink

	mu             sync.Mutex
	ln             net.Listener
	removeObserver func()
}

// NewPrometheusPlugin creates the plugin from its raw configuration. Each
// plugin owns its registry so several bridges can run in one process.
func NewPrometheusPlugin(env component.Env, conf map[string]any) (*PrometheusPlugin, error) {
	var cfg PrometheusConfig
	if err := factory.Decode(conf, &cfg); err != nil {
		return nil, fmt.Errorf("prometheus config: %w", err)
	}
	cfg.SetDefaults()
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		return nil, fmt.Errorf("prometheus sink: %w", err)
	}
	hub := env.Metrics
	if hub == nil {
		hub = NewMultiSink()
	}
	p := &PrometheusPlugin{
		cfg:      cfg,
		tree:     env.Tree,
		log:      logger.NewWithLevel("prometheus", cfg.LogLevel),
		hub:      hub,
		registry: reg,
		sink:     sink,
	}
	p.comp = env.Tree.Plugins.Add(PrometheusPluginID, "Prometheus", false)
	return p, nil
}

// ID returns the plugin id.
func (p *PrometheusPlugin) ID() string { return PrometheusPluginID }

// Registry returns the registry the plugin serves.
func (p *PrometheusPlugin) Registry() *prometheus.Registry { return p.registry }

// Addr returns the listen address once started.
func (p *PrometheusPlugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ln == nil {
		return ""
	}
	return p.ln.Addr().String()
}

// Start binds the listen address and attaches the sink to the hub.
func (p *PrometheusPlugin) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", p.cfg.Address)
	if err != nil {
		p.comp.Healthy.SetValue(false)
		return fmt.Errorf("listen %s: %w", p.cfg.Address, err)
	}
	p.mu.Lock()
	p.ln = ln
	p.mu.Unlock()
	p.hub.Add(p.sink)
	_ = p.sink.RecordGarageSize(garageSize(p.tree))
	p.removeObserver = p.tree.AddObserver(p.observe, observable.FlagEnabled|observable.FlagDisabled)
	p.comp.Healthy.SetValue(true)
	p.log.Infof("serving metrics on %s", ln.Addr())
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (p *PrometheusPlugin) Run(ctx context.Context) error {
	p.mu.Lock()
	ln := p.ln
	p.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("prometheus plugin not started")
	}
	r := NewRouter(p.registry, p.health)
	r.Mount("/api/vehicles", vehicles.NewHandler(p.tree))
	return Serve(ctx, ln, r)
}

// Stop detaches from the tree.
func (p *PrometheusPlugin) Stop() error {
	if p.removeObserver != nil {
		p.removeObserver()
	}
	p.comp.Healthy.SetValue(false)
	return nil
}

func (p *PrometheusPlugin) observe(ev observable.Event) {
	if _, ok := ev.Element.(*model.Vehicle); ok {
		_ = p.sink.RecordGarageSize(garageSize(p.tree))
	}
}

// health reports the healthy flag of every connector and plugin. Components
// that never reported are unhealthy.
func (p *PrometheusPlugin) health() map[string]bool {
	out := make(map[string]bool)
	for _, group := range []*model.Components{p.tree.Connectors, p.tree.Plugins} {
		for _, c := range group.List() {
			ok, _ := c.Healthy.Value()
			out[group.ID()+"/"+c.ID()] = ok
		}
	}
	return out
}

// garageSize counts the enabled vehicles. Vehicles are attached before their
// enabled event and disabled before they are detached.
func garageSize(tree *model.CarConnectivity) int {
	n := 0
	for _, c := range tree.Garage.Children() {
		if _, ok := c.(*model.Vehicle); ok && c.Enabled() {
			n++
		}
	}
	return n
}
