// Package file provides a connector that mirrors vehicle snapshots from a
// YAML or JSON file into the garage and follows changes of that file.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
	"github.com/kilianp07/carbridge/core/logger"
	"github.com/kilianp07/carbridge/core/model"
	infralogger "github.com/kilianp07/carbridge/infra/logger"
)

// ConnectorID is the id of the connector in the tree.
const ConnectorID = "file"

// Config of the file connector.
type Config struct {
	Path       string `json:"path"`
	Watch      *bool  `json:"watch"`
	DebounceMS int    `json:"debounce_ms"`
	LogLevel   string `json:"log_level"`
}

// SetDefaults fills optional fields.
func (c *Config) SetDefaults() {
	if c.Watch == nil {
		w := true
		c.Watch = &w
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = 500
	}
	if c.Path != "" {
		c.Path = filepath.Clean(c.Path)
	}
}

// Validate checks the configuration after defaults were applied.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// Connector applies snapshot files to the garage.
type Connector struct {
	cfg  Config
	tree *model.CarConnectivity
	comp *model.Component
	log  logger.Logger

	mu    sync.Mutex
	owned map[string]model.VehicleType
}

// New creates the connector from its raw configuration.
func New(env component.Env, conf map[string]any) (*Connector, error) {
	var cfg Config
	if err := factory.Decode(conf, &cfg); err != nil {
		return nil, fmt.Errorf("file config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("file config: %w", err)
	}
	c := &Connector{
		cfg:   cfg,
		tree:  env.Tree,
		log:   infralogger.NewWithLevel("file", cfg.LogLevel),
		owned: make(map[string]model.VehicleType),
	}
	c.comp = env.Tree.Connectors.Add(ConnectorID, "File", false)
	return c, nil
}

// ID returns the connector id.
func (c *Connector) ID() string { return ConnectorID }

// Start applies the snapshot file once.
func (c *Connector) Start(_ context.Context) error {
	if err := c.Load(); err != nil {
		c.comp.Healthy.SetValue(false)
		return err
	}
	return nil
}

// Load reads the snapshot file and applies it. Vehicles this connector added
// earlier and missing from the file are removed from the garage.
func (c *Connector) Load() error {
	data, err := os.ReadFile(c.cfg.Path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := ParseSnapshot(data)
	if err != nil {
		return fmt.Errorf("%s: %w", c.cfg.Path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool, len(snap.Vehicles))
	a := &applier{}
	for _, vs := range snap.Vehicles {
		t := vehicleType(vs.Type)
		if prev, ok := c.owned[vs.VIN]; ok && prev != t {
			c.tree.Garage.RemoveVehicle(vs.VIN)
		}
		v := c.tree.Garage.AddVehicle(vs.VIN, t)
		c.owned[vs.VIN] = t
		seen[vs.VIN] = true
		a.apply(v, vs)
	}
	for vin := range c.owned {
		if !seen[vin] {
			c.tree.Garage.RemoveVehicle(vin)
			delete(c.owned, vin)
			c.log.Infof("vehicle %s removed from snapshot", vin)
		}
	}
	c.comp.Healthy.SetValue(true)
	if err := a.err(); err != nil {
		c.log.Warnf("snapshot %s has invalid values: %v", c.cfg.Path, err)
		return err
	}
	c.log.Debugf("applied %d vehicles from %s", len(snap.Vehicles), c.cfg.Path)
	return nil
}

// Run reloads the snapshot on changes until ctx is cancelled.
func (c *Connector) Run(ctx context.Context) error {
	if !*c.cfg.Watch {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	// Editors replace files, so the directory is watched.
	if err := watcher.Add(filepath.Dir(c.cfg.Path)); err != nil {
		return fmt.Errorf("watch %s: %w", c.cfg.Path, err)
	}
	c.log.Infof("watching %s", c.cfg.Path)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != c.cfg.Path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			debounce.Reset(time.Duration(c.cfg.DebounceMS) * time.Millisecond)
		case <-debounce.C:
			if err := c.Load(); err != nil {
				c.log.Errorf("reload %s: %v", c.cfg.Path, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Errorf("watcher: %v", err)
		}
	}
}

// Stop marks the connector unhealthy. The vehicles stay in the garage.
func (c *Connector) Stop() error {
	c.comp.Healthy.SetValue(false)
	return nil
}
