package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Config defines the broker connection and topic layout of the mqtt plugin.
type Config struct {
	Broker           string `json:"broker"`
	Port             int    `json:"port"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	ClientID         string `json:"client_id"`
	Prefix           string `json:"prefix"`
	KeepaliveSeconds int    `json:"keepalive_seconds"`
	UseTLS           bool   `json:"use_tls"`
	CABundle         string `json:"ca_bundle"`
	ClientCert       string `json:"client_cert"`
	ClientKey        string `json:"client_key"`
	TLSInsecure      bool   `json:"tls_insecure"`
	RetainState      bool   `json:"retain_state"`
	LogLevel         string `json:"log_level"`
	MaxRetries       int    `json:"max_retries"`
	BackoffMS        int    `json:"backoff_ms"`
	QueueSize        int    `json:"queue_size"`

	TLSConfig *tls.Config `json:"-"`
}

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "carconnectivity/0"

// SetDefaults fills optional fields.
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = 1883
		if c.UseTLS {
			c.Port = 8883
		}
	}
	if c.ClientID == "" {
		c.ClientID = "carbridge-" + uuid.NewString()
	}
	c.Prefix = strings.TrimRight(c.Prefix, "/")
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.KeepaliveSeconds <= 0 {
		c.KeepaliveSeconds = 60
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		return fmt.Errorf("client_cert and client_key must be set together")
	}
	return nil
}

// BrokerURL returns the broker as URL. A broker given with scheme is used
// unchanged.
func (c Config) BrokerURL() string {
	if strings.Contains(c.Broker, "://") {
		return c.Broker
	}
	scheme := "tcp"
	if c.UseTLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Broker, c.Port)
}

// NewClientOptions builds paho client options. willTopic receives a
// retained "disconnected" when the connection drops.
func NewClientOptions(cfg Config, willTopic string) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.BrokerURL()).SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)
	opts.SetKeepAlive(time.Duration(cfg.KeepaliveSeconds) * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if willTopic != "" {
		opts.SetWill(willTopic, "disconnected", 1, true)
	}
	return opts, nil
}

// LoadTLSConfig loads CA bundle and client certificate from the configured
// files. Without a CA bundle the system roots are used.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSInsecure} //nolint:gosec // opt-in via tls_insecure
	if c.CABundle != "" {
		caBytes, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, fmt.Errorf("no certificates in %s", c.CABundle)
		}
		cfg.RootCAs = pool
	}
	if c.ClientCert != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
