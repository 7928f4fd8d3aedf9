// Package app wires the configured connectors and plugins around one object
// tree and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/carbridge/app/plugins"
	"github.com/kilianp07/carbridge/config"
	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/core/monitoring"
	"github.com/kilianp07/carbridge/infra/logger"
	inframetrics "github.com/kilianp07/carbridge/infra/metrics"
)

// Service owns the tree and the modules built from the configuration.
type Service struct {
	tree       *model.CarConnectivity
	hub        *inframetrics.MultiSink
	set        *component.Set
	connectors []component.Module
	plugins    []component.Module
	log        logger.Logger

	started []component.Module
}

// New creates every enabled connector and plugin. Nothing is started yet.
func New(cfg *config.Config, version string) (*Service, error) {
	s := &Service{
		tree: model.New(version),
		hub:  inframetrics.NewMultiSink(),
		set:  component.NewSet(),
		log:  logger.NewWithLevel("service", cfg.CarConnectivity.LogLevel),
	}
	env := component.Env{Tree: s.tree, Log: s.log, Metrics: s.hub, Plugins: s.set}
	var err error
	if s.connectors, err = s.create(plugins.Connectors, env, "connectors", cfg.CarConnectivity.Connectors); err != nil {
		return nil, err
	}
	if s.plugins, err = s.create(plugins.Plugins, env, "plugins", cfg.CarConnectivity.Plugins); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) create(reg *component.Registry, env component.Env, kind string, mods []factory.ModuleConfig) ([]component.Module, error) {
	var out []component.Module
	for i, mc := range config.Enabled(mods) {
		if !reg.Has(mc.Type) {
			return nil, fmt.Errorf("%w: %s[%d]: unknown type %q, known: %v", config.ErrConfiguration, kind, i, mc.Type, reg.Types())
		}
		m, err := reg.Create(env, mc)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", kind, mc.Type, err)
		}
		if err := s.set.Add(m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", config.ErrConfiguration, kind, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Tree returns the object tree.
func (s *Service) Tree() *model.CarConnectivity { return s.tree }

// Module returns the module with the given id.
func (s *Service) Module(id string) (component.Module, bool) { return s.set.Get(id) }

// StartConnectors starts the connectors only, which fills the garage.
func (s *Service) StartConnectors(ctx context.Context) error {
	return s.start(ctx, s.connectors)
}

// Run starts the connectors and then the plugins in dependency order, runs
// their loops until ctx is cancelled or one of them fails and stops
// everything in reverse order.
func (s *Service) Run(ctx context.Context) error {
	order, err := component.StartOrder(s.plugins)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}
	defer s.Stop()
	if err := s.StartConnectors(ctx); err != nil {
		return err
	}
	if err := s.start(ctx, order); err != nil {
		return err
	}
	s.log.Infof("bridge running with %d connectors and %d plugins", len(s.connectors), len(s.plugins))

	g, gctx := errgroup.WithContext(ctx)
	runners := 0
	for _, m := range s.started {
		r, ok := m.(component.Runner)
		if !ok {
			continue
		}
		runners++
		g.Go(func() error {
			defer monitoring.Recover()
			if err := r.Run(gctx); err != nil {
				monitoring.CaptureModule(err, m.ID(), "run")
				return fmt.Errorf("%s: %w", m.ID(), err)
			}
			return nil
		})
	}
	if runners == 0 {
		<-ctx.Done()
		return nil
	}
	return g.Wait()
}

func (s *Service) start(ctx context.Context, mods []component.Module) error {
	for _, m := range mods {
		s.log.Debugf("starting %s", m.ID())
		if err := m.Start(ctx); err != nil {
			monitoring.CaptureModule(err, m.ID(), "start")
			return fmt.Errorf("start %s: %w", m.ID(), err)
		}
		s.started = append(s.started, m)
	}
	return nil
}

// Stop stops the started modules in reverse start order. It is safe to call
// more than once.
func (s *Service) Stop() error {
	var errs []error
	for _, m := range slices.Backward(s.started) {
		if err := m.Stop(); err != nil {
			s.log.Warnf("stop %s: %v", m.ID(), err)
			errs = append(errs, fmt.Errorf("stop %s: %w", m.ID(), err))
		}
	}
	s.started = nil
	monitoring.Flush(2 * time.Second)
	return errors.Join(errs...)
}
