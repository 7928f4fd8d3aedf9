// Package simulated provides a connector driving a garage of simulated
// vehicles. It needs no vendor account and backs demos and tests.
package simulated

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
	"github.com/kilianp07/carbridge/core/logger"
	"github.com/kilianp07/carbridge/core/model"
	infralogger "github.com/kilianp07/carbridge/infra/logger"
)

// ConnectorID is the id of the connector in the tree.
const ConnectorID = "simulated"

// Connector advances the simulated vehicles every interval.
type Connector struct {
	cfg  Config
	tree *model.CarConnectivity
	comp *model.Component
	log  logger.Logger
	now  func() time.Time

	mu       sync.Mutex
	vehicles []*vehicle
}

// New creates the connector from its raw configuration.
func New(env component.Env, conf map[string]any) (*Connector, error) {
	var cfg Config
	if err := factory.Decode(conf, &cfg); err != nil {
		return nil, fmt.Errorf("simulated config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simulated config: %w", err)
	}
	c := &Connector{
		cfg:  cfg,
		tree: env.Tree,
		log:  infralogger.NewWithLevel("simulated", cfg.LogLevel),
		now:  time.Now,
	}
	c.comp = env.Tree.Connectors.Add(ConnectorID, "Simulated", true)
	return c, nil
}

// ID returns the connector id.
func (c *Connector) ID() string { return ConnectorID }

// Start adds the configured vehicles to the garage.
func (c *Connector) Start(_ context.Context) error {
	c.comp.ConnectionState.SetValue(model.ConnectionConnecting)
	now := c.now()
	c.mu.Lock()
	for _, vc := range c.cfg.Vehicles {
		c.vehicles = append(c.vehicles, newVehicle(c.tree, vc, *c.cfg.OutsideTemperature, now))
	}
	n := len(c.vehicles)
	c.mu.Unlock()
	c.comp.ConnectionState.SetValue(model.ConnectionConnected)
	c.comp.Healthy.SetValue(true)
	c.log.Infof("simulating %d vehicles every %s", n, c.cfg.interval())
	return nil
}

// Run steps the simulation until ctx is cancelled.
func (c *Connector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Step(c.cfg.interval())
		}
	}
}

// Step advances every vehicle by dt.
func (c *Connector) Step(dt time.Duration) {
	now := c.now()
	c.mu.Lock()
	vs := append([]*vehicle(nil), c.vehicles...)
	c.mu.Unlock()
	for _, v := range vs {
		v.step(now, dt)
	}
}

// Stop marks the connector as disconnected. The vehicles stay in the garage.
func (c *Connector) Stop() error {
	c.comp.ConnectionState.SetValue(model.ConnectionDisconnected)
	c.comp.Healthy.SetValue(false)
	return nil
}
