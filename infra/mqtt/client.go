package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/carbridge/core/mqtt"
)

// pahoClient is the subset of paho.Client used by the plugin.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

const (
	qos            = byte(1)
	connectTimeout = 10 * time.Second
	tokenTimeout   = 10 * time.Second
)

// publish sends payload with QoS 1 and retries with exponential backoff.
func (p *Plugin) publish(topic string, payload []byte, retain bool) error {
	if !p.Connected() {
		return coremqtt.ErrNotConnected
	}
	backoff := time.Duration(p.cfg.BackoffMS) * time.Millisecond
	var err error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retain, payload)
		if !token.WaitTimeout(tokenTimeout) {
			err = fmt.Errorf("publish %s: timeout", topic)
		} else {
			err = token.Error()
		}
		if err == nil {
			break
		}
		p.log.Warnf("publish attempt %d to %s failed: %v", attempt+1, topic, err)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(backoff * time.Duration(1<<attempt))
		}
	}
	p.recordPublish(topic, retain, err)
	return err
}

func (p *Plugin) subscribe(topic string) error {
	token := p.cli.Subscribe(topic, qos, p.handleMessage)
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	return token.Error()
}

func (p *Plugin) unsubscribe(topic string) error {
	token := p.cli.Unsubscribe(topic)
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("unsubscribe %s: timeout", topic)
	}
	return token.Error()
}
