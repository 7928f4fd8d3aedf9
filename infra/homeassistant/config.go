package homeassistant

import (
	"fmt"
	"strings"
	"time"

	corehomeassistant "github.com/kilianp07/carbridge/core/homeassistant"
)

// Config of the mqtt_homeassistant plugin.
type Config struct {
	HomeAssistantPrefix string `json:"homeassistant_prefix"`
	// Retain is applied to discovery and helper topics. Unset means true.
	Retain *bool `json:"retain"`
	// DiscoveryIntervalMS is the minimum time between two discovery rounds.
	DiscoveryIntervalMS int    `json:"discovery_interval_ms"`
	LogLevel            string `json:"log_level"`
}

// SetDefaults fills optional fields.
func (c *Config) SetDefaults() {
	c.HomeAssistantPrefix = strings.Trim(c.HomeAssistantPrefix, "/")
	if c.HomeAssistantPrefix == "" {
		c.HomeAssistantPrefix = corehomeassistant.DefaultPrefix
	}
	if c.Retain == nil {
		t := true
		c.Retain = &t
	}
	if c.DiscoveryIntervalMS <= 0 {
		c.DiscoveryIntervalMS = 1000
	}
}

// Validate checks the configuration after defaults were applied.
func (c Config) Validate() error {
	if strings.ContainsAny(c.HomeAssistantPrefix, "+#") {
		return fmt.Errorf("homeassistant_prefix %q must not contain wildcards", c.HomeAssistantPrefix)
	}
	return nil
}

func (c Config) interval() time.Duration {
	return time.Duration(c.DiscoveryIntervalMS) * time.Millisecond
}
