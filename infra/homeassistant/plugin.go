package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
	corehomeassistant "github.com/kilianp07/carbridge/core/homeassistant"
	"github.com/kilianp07/carbridge/core/logger"
	coremetrics "github.com/kilianp07/carbridge/core/metrics"
	"github.com/kilianp07/carbridge/core/model"
	coremqtt "github.com/kilianp07/carbridge/core/mqtt"
	"github.com/kilianp07/carbridge/core/observable"
	infralogger "github.com/kilianp07/carbridge/infra/logger"
	inframetrics "github.com/kilianp07/carbridge/infra/metrics"
)

// PluginID is the id of the plugin in the tree.
const PluginID = "mqtt_homeassistant"

// MQTTPluginID is the plugin the discovery messages are published through.
const MQTTPluginID = "mqtt"

const helperQueueSize = 256

type message struct {
	topic   string
	payload []byte
}

// Plugin publishes Home Assistant discovery messages for the garage and the
// bridge through the mqtt plugin.
type Plugin struct {
	id      string
	cfg     Config
	tree    *model.CarConnectivity
	comp    *model.Component
	plugins *component.Set
	log     logger.Logger
	metrics coremetrics.Hub
	limiter *rate.Limiter

	client coremqtt.Client

	// wake holds at most one pending discovery request.
	wake    chan struct{}
	helpers chan message

	mu     sync.Mutex
	force  bool
	hashes map[string]string
	// removals holds devices whose discovery message still has to be
	// cleared.
	removals map[string]struct{}
	hooked   map[*observable.Command]bool
	remove   []func()
}

// New creates the plugin from its raw configuration.
func New(env component.Env, conf map[string]any) (*Plugin, error) {
	var cfg Config
	if err := factory.Decode(conf, &cfg); err != nil {
		return nil, fmt.Errorf("mqtt_homeassistant config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mqtt_homeassistant config: %w", err)
	}
	hub := env.Metrics
	if hub == nil {
		hub = inframetrics.NewMultiSink()
	}
	p := &Plugin{
		id:       PluginID,
		cfg:      cfg,
		tree:     env.Tree,
		plugins:  env.Plugins,
		log:      infralogger.NewWithLevel("homeassistant", cfg.LogLevel),
		metrics:  hub,
		limiter:  rate.NewLimiter(rate.Every(cfg.interval()), 1),
		wake:     make(chan struct{}, 1),
		helpers:  make(chan message, helperQueueSize),
		hashes:   make(map[string]string),
		removals: make(map[string]struct{}),
		hooked:   make(map[*observable.Command]bool),
	}
	p.comp = env.Tree.Plugins.Add(p.id, "MQTT Home Assistant", false)
	return p, nil
}

// ID returns the plugin id.
func (p *Plugin) ID() string { return p.id }

// Dependencies makes the mqtt plugin start first.
func (p *Plugin) Dependencies() []string { return []string{MQTTPluginID} }

// Start looks up the mqtt plugin and hooks into its connection and message
// callbacks.
func (p *Plugin) Start(_ context.Context) error {
	client, err := p.mqttClient()
	if err != nil {
		return err
	}
	p.client = client
	if err := client.Subscribe(p.statusTopic()); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.statusTopic(), err)
	}
	p.remove = append(p.remove,
		client.OnConnect(p.onConnect),
		client.OnMessage(p.onMessage),
		p.tree.AddObserver(p.observe, observable.FlagAll),
	)
	p.comp.Healthy.SetValue(true)
	if client.Connected() {
		p.onConnect()
	}
	p.log.Infof("home assistant discovery on %s/device/+/config", p.cfg.HomeAssistantPrefix)
	return nil
}

// Run publishes discovery messages and helper topics until ctx is cancelled.
func (p *Plugin) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-p.helpers:
			p.publishHelper(m)
		case <-p.wake:
			if err := p.limiter.Wait(ctx); err != nil {
				return nil
			}
			p.mu.Lock()
			force := p.force
			p.force = false
			p.mu.Unlock()
			p.publishDiscovery(force)
		}
	}
}

// Stop detaches the plugin from the tree and the mqtt plugin.
func (p *Plugin) Stop() error {
	for _, remove := range p.remove {
		remove()
	}
	p.remove = nil
	p.comp.Healthy.SetValue(false)
	return nil
}

func (p *Plugin) mqttClient() (coremqtt.Client, error) {
	mod, ok := p.plugins.Get(MQTTPluginID)
	if !ok {
		return nil, fmt.Errorf("mqtt_homeassistant requires the %q plugin", MQTTPluginID)
	}
	client, ok := mod.(coremqtt.Client)
	if !ok {
		return nil, fmt.Errorf("plugin %q does not provide an MQTT client", MQTTPluginID)
	}
	return client, nil
}

// Discovery is a discovery message with its topic.
type Discovery struct {
	Topic   string
	Message *corehomeassistant.Message
}

// Messages builds the discovery messages for the current tree without
// publishing them. Vehicles without VIN are left out.
func (p *Plugin) Messages() ([]Discovery, error) {
	client, err := p.mqttClient()
	if err != nil {
		return nil, err
	}
	o := optionsFor(client, p.tree)
	var out []Discovery
	for _, v := range p.tree.Garage.Vehicles() {
		if !v.Enabled() {
			continue
		}
		msg, err := corehomeassistant.VehicleMessage(v, o)
		if err != nil {
			p.log.Warnf("skipping vehicle %s: %v", v.ID(), err)
			continue
		}
		out = append(out, Discovery{Topic: corehomeassistant.VehicleTopic(p.cfg.HomeAssistantPrefix, msg.Device.IDs), Message: msg})
	}
	bridge := corehomeassistant.BridgeMessage(p.tree, o)
	out = append(out, Discovery{Topic: corehomeassistant.BridgeTopic(p.cfg.HomeAssistantPrefix, o.Prefix), Message: bridge})
	return out, nil
}

func (p *Plugin) statusTopic() string {
	return corehomeassistant.StatusTopic(p.cfg.HomeAssistantPrefix)
}

func optionsFor(client coremqtt.Client, tree *model.CarConnectivity) corehomeassistant.Options {
	return corehomeassistant.Options{
		Prefix:            client.Prefix(),
		AvailabilityTopic: client.ConnectionStateTopic(),
		Version:           tree.Version,
	}
}

// schedule requests a discovery round. Requests made while one is pending
// are merged into it.
func (p *Plugin) schedule(force bool) {
	if force {
		p.mu.Lock()
		p.force = true
		p.mu.Unlock()
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Plugin) onConnect() {
	p.schedule(true)
	for _, v := range p.tree.Garage.Vehicles() {
		if v.Enabled() {
			p.queueVehicleHelpers(v)
		}
	}
}

func (p *Plugin) onMessage(topic string, payload []byte) {
	if topic != p.statusTopic() {
		return
	}
	if strings.EqualFold(strings.TrimSpace(string(payload)), "online") {
		p.log.Infof("home assistant is online, republishing discovery")
		p.schedule(true)
	}
}

// observe runs on the goroutine that changed the tree and only queues work.
func (p *Plugin) observe(ev observable.Event) {
	if ev.Flags.Has(observable.FlagDisabled) {
		if v, ok := ev.Element.(*model.Vehicle); ok {
			p.queueRemoval(v)
		}
		return
	}
	if ev.Flags.Has(observable.FlagEnabled) {
		p.schedule(false)
	}
	switch e := ev.Element.(type) {
	case *observable.Attribute[float64]:
		if pos, ok := e.Parent().(*model.Position); ok && (e.ID() == "latitude" || e.ID() == "longitude") {
			p.queuePosition(pos)
		}
	case *observable.Attribute[model.ChargingState]:
		if c, ok := e.Parent().(*model.Charging); ok {
			p.queueCharging(c)
		}
	case *observable.Attribute[model.ClimatizationState]:
		if c, ok := e.Parent().(*model.Climatization); ok {
			p.queueClimatization(c)
		}
	}
}

func (p *Plugin) queue(topic string, payload []byte) {
	select {
	case p.helpers <- message{topic: topic, payload: payload}:
	default:
		p.log.Warnf("helper queue full, dropping %s", topic)
	}
}

func (p *Plugin) queueVehicleHelpers(v *model.Vehicle) {
	p.queuePosition(v.Position)
	if v.Charging != nil {
		p.queueCharging(v.Charging)
	}
	p.queueClimatization(v.Climatization)
}

func (p *Plugin) queuePosition(pos *model.Position) {
	if p.client == nil {
		return
	}
	payload, ok, err := corehomeassistant.PositionAttributes(pos)
	if err != nil {
		p.log.Errorf("position attributes: %v", err)
		return
	}
	if ok {
		p.queue(corehomeassistant.PositionAttributesTopic(p.client.Prefix(), pos), payload)
	}
}

func (p *Plugin) queueCharging(c *model.Charging) {
	if p.client == nil || !c.State.Enabled() {
		return
	}
	s, ok := c.State.Value()
	if !ok {
		return
	}
	p.queue(corehomeassistant.BinaryStateTopic(p.client.Prefix(), c), []byte(corehomeassistant.ChargingBinaryState(s)))
}

func (p *Plugin) queueClimatization(c *model.Climatization) {
	if p.client == nil || !c.State.Enabled() {
		return
	}
	s, ok := c.State.Value()
	if !ok {
		return
	}
	prefix := p.client.Prefix()
	p.queue(corehomeassistant.BinaryStateTopic(prefix, c), []byte(corehomeassistant.ClimatizationBinaryState(s)))
	action, mode := corehomeassistant.HVAC(s)
	p.queue(corehomeassistant.HVACActionTopic(prefix, c), []byte(action))
	p.queue(corehomeassistant.HVACModeTopic(prefix, c), []byte(mode))
}

// queueRemoval marks the discovery message of a removed vehicle for
// clearing so Home Assistant drops the device.
func (p *Plugin) queueRemoval(v *model.Vehicle) {
	p.mu.Lock()
	_, known := p.hashes[v.ID()]
	if known {
		p.removals[v.ID()] = struct{}{}
	}
	p.mu.Unlock()
	if known {
		p.schedule(false)
	}
}

// publishRemovals sends the empty discovery message of removed vehicles.
// Failed clears stay pending for the next round.
func (p *Plugin) publishRemovals() {
	p.mu.Lock()
	ids := slices.Collect(maps.Keys(p.removals))
	p.mu.Unlock()
	for _, id := range ids {
		if v, ok := p.tree.Garage.Vehicle(id); ok && v.Enabled() {
			p.mu.Lock()
			delete(p.removals, id)
			p.mu.Unlock()
			continue
		}
		if err := p.client.Publish(corehomeassistant.VehicleTopic(p.cfg.HomeAssistantPrefix, id), nil, *p.cfg.Retain); err != nil {
			p.log.Warnf("clear discovery %s: %v", id, err)
			continue
		}
		p.mu.Lock()
		delete(p.removals, id)
		delete(p.hashes, id)
		p.mu.Unlock()
		p.log.Infof("cleared discovery for removed vehicle %s", id)
	}
}

func (p *Plugin) publishHelper(m message) {
	err := p.client.Publish(m.topic, m.payload, *p.cfg.Retain)
	switch {
	case errors.Is(err, coremqtt.ErrNotConnected):
		p.log.Debugf("not connected, %s is sent after connect", m.topic)
	case err != nil:
		p.log.Warnf("publish %s: %v", m.topic, err)
	}
}

// publishDiscovery publishes every discovery message whose content changed,
// or all of them when force is set.
func (p *Plugin) publishDiscovery(force bool) {
	if p.client == nil || !p.client.Connected() {
		p.log.Debugf("not connected, skipping discovery")
		return
	}
	p.publishRemovals()
	o := optionsFor(p.client, p.tree)
	for _, v := range p.tree.Garage.Vehicles() {
		if !v.Enabled() {
			continue
		}
		msg, err := corehomeassistant.VehicleMessage(v, o)
		if err != nil {
			p.log.Warnf("skipping vehicle %s: %v", v.ID(), err)
			continue
		}
		p.hookClimateModes(v)
		p.publishMessage(msg.Device.IDs, corehomeassistant.VehicleTopic(p.cfg.HomeAssistantPrefix, msg.Device.IDs), msg, force)
	}
	bridge := corehomeassistant.BridgeMessage(p.tree, o)
	p.publishMessage(bridge.Device.IDs, corehomeassistant.BridgeTopic(p.cfg.HomeAssistantPrefix, o.Prefix), bridge, force)
}

func (p *Plugin) publishMessage(device, topic string, msg *corehomeassistant.Message, force bool) {
	hash, err := msg.Hash()
	if err != nil {
		p.log.Errorf("discovery %s: %v", device, err)
		return
	}
	p.mu.Lock()
	unchanged := p.hashes[device] == hash
	p.mu.Unlock()
	publish := force || !unchanged
	defer func() {
		_ = p.metrics.RecordDiscovery(coremetrics.DiscoveryEvent{
			Plugin: p.id, Device: device, Forced: force, Published: publish, Time: time.Now(),
		})
	}()
	if !publish {
		return
	}
	payload, err := msg.Payload()
	if err != nil {
		p.log.Errorf("discovery %s: %v", device, err)
		publish = false
		return
	}
	if err := p.client.Publish(topic, payload, *p.cfg.Retain); err != nil {
		p.log.Warnf("publish discovery %s: %v", device, err)
		publish = false
		return
	}
	p.mu.Lock()
	p.hashes[device] = hash
	p.mu.Unlock()
	p.log.Debugf("published discovery for %s", device)
}

// hookClimateModes lets the climate entity write its modes to the
// climatization start-stop command.
func (p *Plugin) hookClimateModes(v *model.Vehicle) {
	cmd, ok := v.Climatization.Commands.Get(model.CommandStartStop)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hooked[cmd] {
		return
	}
	cmd.AddHook(corehomeassistant.ClimateModeHook, true)
	p.hooked[cmd] = true
}
