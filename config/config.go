package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/carbridge/core/factory"
	"github.com/kilianp07/carbridge/infra/logger"
)

// ErrConfiguration marks invalid configuration files.
var ErrConfiguration = errors.New("configuration error")

// EnvPrefix is the prefix of environment overrides. Nested keys are
// separated with a double underscore, e.g.
// CARBRIDGE_CARCONNECTIVITY__LOG_LEVEL=debug.
const EnvPrefix = "CARBRIDGE_"

const rootKey = "carConnectivity"

// Config is the content of a configuration file.
type Config struct {
	CarConnectivity CarConnectivity `json:"carConnectivity"`
}

// CarConnectivity lists the connectors and plugins to run.
type CarConnectivity struct {
	LogLevel   string                 `json:"log_level"`
	LogFile    logger.FileConfig      `json:"log_file"`
	Connectors []factory.ModuleConfig `json:"connectors"`
	Plugins    []factory.ModuleConfig `json:"plugins"`
	Sentry     SentryConfig           `json:"sentry"`
}

// Load reads a YAML or JSON file, applies environment overrides, defaults and
// validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: unsupported config format: %q", ErrConfiguration, ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	if !k.Exists(rootKey) {
		return nil, fmt.Errorf("%w: missing %q object", ErrConfiguration, rootKey)
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps CARBRIDGE_CARCONNECTIVITY__SENTRY__DSN to
// carConnectivity.sentry.dsn.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	s = strings.ReplaceAll(s, "__", ".")
	if s == strings.ToLower(rootKey) || strings.HasPrefix(s, strings.ToLower(rootKey)+".") {
		s = rootKey + s[len(rootKey):]
	}
	return s
}

// SetDefaults fills optional fields.
func (c *Config) SetDefaults() {
	if c.CarConnectivity.LogLevel == "" {
		c.CarConnectivity.LogLevel = "info"
	}
}

// Validate checks the module lists and the rules between plugins.
func (c *Config) Validate() error {
	cc := c.CarConnectivity
	if err := validateLevel(cc.LogLevel); err != nil {
		return err
	}
	if err := validateLogFile(cc.LogFile); err != nil {
		return err
	}
	if err := validateModules("connectors", cc.Connectors); err != nil {
		return err
	}
	if err := validateModules("plugins", cc.Plugins); err != nil {
		return err
	}
	for _, p := range Enabled(cc.Plugins) {
		switch p.Type {
		case "mqtt":
			for _, key := range []string{"broker", "username", "password"} {
				if v, ok := p.Conf[key]; !ok || v == nil || fmt.Sprint(v) == "" {
					return fmt.Errorf("%w: plugin mqtt: %q is required", ErrConfiguration, key)
				}
			}
		case "mqtt_homeassistant":
			if _, ok := Find(cc.Plugins, "mqtt"); !ok {
				return fmt.Errorf("%w: plugin mqtt_homeassistant requires an enabled mqtt plugin", ErrConfiguration)
			}
		}
		if lvl, ok := p.Conf["log_level"]; ok {
			if err := validateLevel(fmt.Sprint(lvl)); err != nil {
				return fmt.Errorf("plugin %s: %w", p.Type, err)
			}
		}
	}
	return nil
}

func validateModules(kind string, mods []factory.ModuleConfig) error {
	for i, m := range mods {
		if strings.TrimSpace(m.Type) == "" {
			return fmt.Errorf("%w: %s[%d]: type is required", ErrConfiguration, kind, i)
		}
	}
	return nil
}

// Enabled returns the entries that are not disabled.
func Enabled(mods []factory.ModuleConfig) []factory.ModuleConfig {
	out := make([]factory.ModuleConfig, 0, len(mods))
	for _, m := range mods {
		if !m.Disabled {
			out = append(out, m)
		}
	}
	return out
}

// Find returns the first enabled entry of the given type.
func Find(mods []factory.ModuleConfig, typ string) (factory.ModuleConfig, bool) {
	for _, m := range Enabled(mods) {
		if m.Type == typ {
			return m, true
		}
	}
	return factory.ModuleConfig{}, false
}
