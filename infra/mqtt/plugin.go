package mqtt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
	coremetrics "github.com/kilianp07/carbridge/core/metrics"
	"github.com/kilianp07/carbridge/core/model"
	coremqtt "github.com/kilianp07/carbridge/core/mqtt"
	"github.com/kilianp07/carbridge/core/observable"
	"github.com/kilianp07/carbridge/infra/logger"
	inframetrics "github.com/kilianp07/carbridge/infra/metrics"
)

// WriteTopicSuffix is appended to the topic of a writable element to form
// the topic accepting new values.
const WriteTopicSuffix = coremqtt.WriteTopicSuffix

// PluginID is the id of the mqtt plugin in the tree.
const PluginID = "mqtt"

type opKind int

const (
	opPublish opKind = iota
	opSubscribe
	opUnsubscribe
	opResync
	opClear
)

type op struct {
	kind    opKind
	topic   string
	payload []byte
	retain  bool
}

// Plugin mirrors the object tree onto an MQTT broker.
type Plugin struct {
	id      string
	cfg     Config
	tree    *model.CarConnectivity
	comp    *model.Component
	log     logger.Logger
	metrics coremetrics.Hub

	cli   pahoClient
	queue chan op

	mu        sync.RWMutex
	connected bool
	nextCB    uint64
	onConnect []callback[func()]
	onMessage []callback[coremqtt.MessageHandler]
	writable  map[string]observable.Valuer
	extra     map[string]struct{}
	// cleared holds retained topics whose empty message is not sent yet.
	cleared        map[string]struct{}
	removeObserver func()
}

type callback[F any] struct {
	id uint64
	fn F
}

var _ coremqtt.Client = (*Plugin)(nil)

// New creates the plugin from its raw configuration.
func New(env component.Env, conf map[string]any) (*Plugin, error) {
	var cfg Config
	if err := factory.Decode(conf, &cfg); err != nil {
		return nil, fmt.Errorf("mqtt config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mqtt config: %w", err)
	}
	hub := env.Metrics
	if hub == nil {
		hub = inframetrics.NewMultiSink()
	}
	p := &Plugin{
		id:       PluginID,
		cfg:      cfg,
		tree:     env.Tree,
		log:      logger.NewWithLevel("mqtt", cfg.LogLevel),
		metrics:  hub,
		queue:    make(chan op, cfg.QueueSize),
		writable: make(map[string]observable.Valuer),
		extra:    make(map[string]struct{}),
		cleared:  make(map[string]struct{}),
	}
	p.comp = env.Tree.Plugins.Add(p.id, "MQTT", true)
	return p, nil
}

// ID returns the plugin id.
func (p *Plugin) ID() string { return p.id }

// Prefix returns the topic prefix.
func (p *Plugin) Prefix() string { return p.cfg.Prefix }

// TopicFor returns the topic of an element.
func (p *Plugin) TopicFor(e observable.Element) string { return p.cfg.Prefix + e.Path() }

// ConnectionStateTopic returns the retained availability topic.
func (p *Plugin) ConnectionStateTopic() string { return p.TopicFor(p.comp.ConnectionState) }

// ErrorTopic receives write errors.
func (p *Plugin) ErrorTopic() string { return p.TopicFor(p.comp) + "/error" }

// Connected reports whether the broker connection is up.
func (p *Plugin) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.cli != nil
}

// Publish sends payload synchronously with QoS 1.
func (p *Plugin) Publish(topic string, payload []byte, retain bool) error {
	return p.publish(topic, payload, retain)
}

// Subscribe adds a topic that is kept subscribed across reconnects.
func (p *Plugin) Subscribe(topic string) error {
	p.mu.Lock()
	p.extra[topic] = struct{}{}
	p.mu.Unlock()
	if !p.Connected() {
		return nil
	}
	return p.subscribe(topic)
}

// OnConnect registers fn to run after every connect. The returned function
// unregisters it.
func (p *Plugin) OnConnect(fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextCB++
	id := p.nextCB
	p.onConnect = append(p.onConnect, callback[func()]{id: id, fn: fn})
	return func() {
		p.mu.Lock()
		p.onConnect = slices.DeleteFunc(p.onConnect, func(c callback[func()]) bool { return c.id == id })
		p.mu.Unlock()
	}
}

// OnMessage registers fn for every received message. The returned function
// unregisters it.
func (p *Plugin) OnMessage(fn coremqtt.MessageHandler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextCB++
	id := p.nextCB
	p.onMessage = append(p.onMessage, callback[coremqtt.MessageHandler]{id: id, fn: fn})
	return func() {
		p.mu.Lock()
		p.onMessage = slices.DeleteFunc(p.onMessage, func(c callback[coremqtt.MessageHandler]) bool { return c.id == id })
		p.mu.Unlock()
	}
}

// Start connects to the broker. The connection is retried in the background
// when the broker is not reachable yet.
func (p *Plugin) Start(_ context.Context) error {
	opts, err := NewClientOptions(p.cfg, p.ConnectionStateTopic())
	if err != nil {
		return err
	}
	opts.SetOnConnectHandler(p.onConnected)
	opts.SetConnectionLostHandler(p.onConnectionLost)
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		p.log.Warnf("reconnecting to MQTT broker %s", p.cfg.BrokerURL())
		p.comp.ConnectionState.SetValue(model.ConnectionReconnecting)
	})
	opts.SetDefaultPublishHandler(p.handleMessage)

	p.removeObserver = p.tree.AddObserver(p.observe, observable.FlagAll)
	p.comp.Healthy.SetValue(false)
	p.comp.ConnectionState.SetValue(model.ConnectionConnecting)

	cli := newMQTTClient(opts)
	p.mu.Lock()
	p.cli = cli
	p.mu.Unlock()
	token := cli.Connect()
	if token.WaitTimeout(connectTimeout) && token.Error() != nil {
		p.removeObserver()
		p.comp.ConnectionState.SetValue(model.ConnectionError)
		return fmt.Errorf("connect %s: %w", p.cfg.BrokerURL(), token.Error())
	}
	p.log.Infof("mqtt plugin started, broker %s, prefix %s", p.cfg.BrokerURL(), p.cfg.Prefix)
	return nil
}

// Run processes queued publishes until ctx is cancelled.
func (p *Plugin) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-p.queue:
			p.process(o)
		}
	}
}

// Stop announces the disconnect and closes the connection.
func (p *Plugin) Stop() error {
	if p.removeObserver != nil {
		p.removeObserver()
	}
	if p.Connected() {
		if err := p.publish(p.ConnectionStateTopic(), []byte(model.ConnectionDisconnected), true); err != nil {
			p.log.Warnf("announce disconnect: %v", err)
		}
		p.cli.Disconnect(250)
	}
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.comp.ConnectionState.SetValue(model.ConnectionDisconnected)
	p.comp.Healthy.SetValue(false)
	return nil
}

func (p *Plugin) onConnected(paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	p.log.Infof("connected to %s", p.cfg.BrokerURL())
	p.comp.ConnectionState.SetValue(model.ConnectionConnected)
	p.comp.Healthy.SetValue(true)
	_ = p.metrics.RecordConnection(coremetrics.ConnectionEvent{Component: p.id, State: string(model.ConnectionConnected), Time: time.Now()})
	p.enqueue(op{kind: opResync})
}

func (p *Plugin) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.log.Errorf("connection lost: %v", err)
	p.comp.ConnectionState.SetValue(model.ConnectionDisconnected)
	p.comp.Healthy.SetValue(false)
	_ = p.metrics.RecordConnection(coremetrics.ConnectionEvent{Component: p.id, State: string(model.ConnectionDisconnected), Time: time.Now()})
}

// observe runs on the goroutine that changed the tree and only queues work.
func (p *Plugin) observe(ev observable.Event) {
	if ev.Flags.Has(observable.FlagDisabled) {
		// Children of a disabled container stay enabled themselves.
		observable.Walk(ev.Element, func(e observable.Element) bool {
			if v, ok := e.(observable.Valuer); ok {
				p.forget(v)
			}
			return true
		})
		return
	}
	v, ok := ev.Element.(observable.Valuer)
	if !ok {
		return
	}
	topic := p.TopicFor(v)
	if v.Writable() && p.addWritable(topic, v) {
		p.enqueue(op{kind: opSubscribe, topic: topic + WriteTopicSuffix})
	}
	if s, ok := v.Formatted(); ok {
		p.mu.Lock()
		delete(p.cleared, topic)
		p.mu.Unlock()
		p.enqueue(op{kind: opPublish, topic: topic, payload: []byte(s), retain: p.retainFor(v)})
	}
}

// forget unsubscribes the write topic of v and clears its retained value. A
// clear that cannot be sent now is sent by the next resync.
func (p *Plugin) forget(v observable.Valuer) {
	topic := p.TopicFor(v)
	p.dropWritable(topic)
	if _, has := v.Formatted(); has && p.retainFor(v) {
		p.mu.Lock()
		p.cleared[topic] = struct{}{}
		p.mu.Unlock()
		p.enqueue(op{kind: opClear, topic: topic})
	}
}

// clear sends the empty retained message of a pending topic.
func (p *Plugin) clear(topic string) error {
	p.mu.RLock()
	_, pending := p.cleared[topic]
	p.mu.RUnlock()
	if !pending {
		return nil
	}
	if err := p.publish(topic, nil, true); err != nil {
		return err
	}
	p.mu.Lock()
	delete(p.cleared, topic)
	p.mu.Unlock()
	return nil
}

func (p *Plugin) retainFor(v observable.Valuer) bool {
	if p.comp.ConnectionState != nil && v == observable.Valuer(p.comp.ConnectionState) {
		return true
	}
	return p.cfg.RetainState
}

func (p *Plugin) addWritable(topic string, v observable.Valuer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := topic + WriteTopicSuffix
	if _, ok := p.writable[key]; ok {
		return false
	}
	p.writable[key] = v
	return true
}

func (p *Plugin) dropWritable(topic string) {
	key := topic + WriteTopicSuffix
	p.mu.Lock()
	_, ok := p.writable[key]
	delete(p.writable, key)
	p.mu.Unlock()
	if ok {
		p.enqueue(op{kind: opUnsubscribe, topic: key})
	}
}

func (p *Plugin) enqueue(o op) {
	select {
	case p.queue <- o:
	default:
		p.log.Warnf("publish queue full, dropping %s", o.topic)
	}
}

func (p *Plugin) process(o op) {
	var err error
	switch o.kind {
	case opPublish:
		err = p.publish(o.topic, o.payload, o.retain)
	case opSubscribe:
		if p.Connected() {
			err = p.subscribe(o.topic)
		}
	case opUnsubscribe:
		if p.Connected() {
			err = p.unsubscribe(o.topic)
		}
	case opClear:
		err = p.clear(o.topic)
	case opResync:
		p.resync()
	}
	switch {
	case errors.Is(err, coremqtt.ErrNotConnected):
		p.log.Debugf("not connected, %s is sent on reconnect", o.topic)
	case err != nil:
		p.log.Errorf("%v", err)
	}
}

// resync runs after every connect: callbacks first, then a full resend of the
// tree and the subscriptions.
func (p *Plugin) resync() {
	p.mu.RLock()
	callbacks := append([]callback[func()]{}, p.onConnect...)
	p.mu.RUnlock()
	for _, c := range callbacks {
		c.fn()
	}

	sent := 0
	observable.Walk(p.tree, func(e observable.Element) bool {
		if !e.Enabled() {
			return false
		}
		v, ok := e.(observable.Valuer)
		if !ok {
			return true
		}
		topic := p.TopicFor(v)
		if v.Writable() {
			p.addWritable(topic, v)
		}
		if s, ok := v.Formatted(); ok {
			if err := p.publish(topic, []byte(s), p.retainFor(v)); err != nil {
				p.log.Warnf("resend %s: %v", topic, err)
			} else {
				sent++
			}
		}
		return true
	})

	p.mu.RLock()
	pending := make([]string, 0, len(p.cleared))
	for t := range p.cleared {
		pending = append(pending, t)
	}
	p.mu.RUnlock()
	for _, t := range pending {
		if err := p.clear(t); err != nil {
			p.log.Warnf("clear %s: %v", t, err)
		}
	}

	p.mu.RLock()
	topics := make([]string, 0, len(p.writable)+len(p.extra))
	for t := range p.writable {
		topics = append(topics, t)
	}
	for t := range p.extra {
		topics = append(topics, t)
	}
	p.mu.RUnlock()
	for _, t := range topics {
		if err := p.subscribe(t); err != nil {
			p.log.Errorf("subscribe %s: %v", t, err)
		}
	}
	p.log.Infof("resent %d values, subscribed %d topics", sent, len(topics))
}

func (p *Plugin) handleMessage(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	payload := msg.Payload()

	p.mu.RLock()
	handlers := append([]callback[coremqtt.MessageHandler]{}, p.onMessage...)
	v, known := p.writable[topic]
	p.mu.RUnlock()
	for _, h := range handlers {
		h.fn(topic, payload)
	}

	if !strings.HasSuffix(topic, WriteTopicSuffix) {
		return
	}
	if msg.Retained() {
		p.log.Warnf("ignoring retained write on %s", topic)
		return
	}
	var err error
	if !known {
		err = fmt.Errorf("%s: %w", topic, observable.ErrNotWritable)
	} else {
		err = v.Write(string(payload))
	}
	_ = p.metrics.RecordWrite(coremetrics.WriteEvent{Plugin: p.id, Path: strings.TrimSuffix(topic, WriteTopicSuffix), Err: err, Time: time.Now()})
	if err != nil {
		p.log.Warnf("write %s: %v", topic, err)
		p.enqueue(op{kind: opPublish, topic: p.ErrorTopic(), payload: []byte(err.Error())})
		return
	}
	p.log.Debugf("wrote %q to %s", payload, topic)
}

func (p *Plugin) recordPublish(topic string, retain bool, err error) {
	if errors.Is(err, coremqtt.ErrNotConnected) {
		return
	}
	_ = p.metrics.RecordPublish(coremetrics.PublishEvent{Plugin: p.id, Topic: topic, Retained: retain, Err: err, Time: time.Now()})
}
