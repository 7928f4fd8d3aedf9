package config

import (
	"strings"

	"github.com/kilianp07/carbridge/core/factory"
)

const redacted = "********"

var sensitiveKeys = map[string]struct{}{
	"password": {},
	"username": {},
	"token":    {},
	"dsn":      {},
}

// Redact returns a copy of conf with credentials replaced. Nested maps and
// lists are walked.
func Redact(conf map[string]any) map[string]any {
	out := make(map[string]any, len(conf))
	for k, v := range conf {
		if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return Redact(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = redactValue(e)
		}
		return out
	default:
		return v
	}
}

// Redacted returns a copy of the configuration safe for logging.
func (c Config) Redacted() Config {
	cc := c.CarConnectivity
	out := cc
	out.Connectors = redactModules(cc.Connectors)
	out.Plugins = redactModules(cc.Plugins)
	if out.Sentry.DSN != "" {
		out.Sentry.DSN = redacted
	}
	return Config{CarConnectivity: out}
}

func redactModules(mods []factory.ModuleConfig) []factory.ModuleConfig {
	out := make([]factory.ModuleConfig, len(mods))
	for i, m := range mods {
		out[i] = m
		out[i].Conf = Redact(m.Conf)
	}
	return out
}
