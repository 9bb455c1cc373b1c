// Package config loads and validates orchestrator configuration: the
// server list, the global outbound network allowlist, and observability
// toggles.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// MaxRestarts bounds restart attempts for any single server before it
	// is marked failed (spec §3, §4.9).
	MaxRestarts = 5

	// UnresolvedEnvRef is the sentinel left in place of a config value
	// whose ${VAR} reference could not be resolved against the process
	// environment at load time.
	UnresolvedEnvRef = "\x00unresolved-env-ref\x00"
)

// Duration wraps time.Duration so it marshals to/from JSON as a string
// like "30s" instead of a bare nanosecond integer.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Config is the top-level orchestrator configuration (spec §6).
type Config struct {
	Observability ObservabilityConfig     `json:"observability"`
	Network       NetworkConfig           `json:"network"`
	Servers       map[string]*ServerConfig `json:"servers"`
}

// ObservabilityConfig toggles logging level and optional tracing/error
// reporting backends.
type ObservabilityConfig struct {
	LogLevel  string `json:"logLevel"`
	OTel      bool   `json:"otel"`
	SentryDSN string `json:"sentryDsn,omitempty"`
}

// NetworkConfig carries the global egress allowlist (spec §3, §4.3).
type NetworkConfig struct {
	OutboundAllowlist []string `json:"outboundAllowlist"`
}

// EnvVarDecl declares one environment variable a server requires.
type EnvVarDecl struct {
	Required bool   `json:"required"`
	Schema   string `json:"schema,omitempty"`
}

// Limits holds the per-server guard parameters (spec §3).
type Limits struct {
	TimeoutMs         int `json:"timeoutMs"`
	RatePerWindow     int `json:"ratePerWindow"`
	RateWindowMs      int `json:"rateWindowMs"`
	ErrorThresholdPct int `json:"errorThresholdPct"`
	ResetTimeoutMs    int `json:"resetTimeoutMs"`
}

// ServerConfig is immutable after load (spec §3).
type ServerConfig struct {
	Name       string                `json:"-"` // populated from the map key
	Command    string                `json:"command"`
	Args       []string              `json:"args"`
	WorkingDir string                `json:"workingDir,omitempty"`
	Env        map[string]EnvVarDecl `json:"env"`
	Enabled    bool                  `json:"enabled"`
	Scopes     []string              `json:"scopes"`
	Limits     Limits                `json:"limits"`

	// StabilityWindowMs is how long a server must run continuously before
	// its restartCount resets to zero (Open Question, spec §9; resolved
	// in SPEC_FULL.md §4.9 recommendation (a)).
	StabilityWindowMs int `json:"stabilityWindowMs,omitempty"`

	// ProbeArgs overrides the arguments used for the health probe
	// invocation; defaults to Args + "--health" when empty (spec §4.6).
	ProbeArgs []string `json:"probeArgs,omitempty"`
	// ProbeTimeoutMs bounds the probe child process (spec §4.6).
	ProbeTimeoutMs int `json:"probeTimeoutMs,omitempty"`
}

const (
	defaultStabilityWindowMs = 60_000
	defaultProbeTimeoutMs    = 5_000
	defaultProbeIntervalMs   = 5_000
)

// DefaultProbeIntervalMs is the orchestrator-wide health probe cadence
// (spec §4.6: "a few seconds").
const DefaultProbeIntervalMs = defaultProbeIntervalMs

// applyDefaults fills zero-valued optional fields after load.
func (s *ServerConfig) applyDefaults() {
	if s.StabilityWindowMs <= 0 {
		s.StabilityWindowMs = defaultStabilityWindowMs
	}
	if s.ProbeTimeoutMs <= 0 {
		s.ProbeTimeoutMs = defaultProbeTimeoutMs
	}
	if len(s.ProbeArgs) == 0 {
		probeArgs := make([]string, 0, len(s.Args)+1)
		probeArgs = append(probeArgs, s.Args...)
		probeArgs = append(probeArgs, "--health")
		s.ProbeArgs = probeArgs
	}
}

// HasScope reports whether scope is among the server's declared scopes.
func (s *ServerConfig) HasScope(scope string) bool {
	for _, sc := range s.Scopes {
		if sc == scope {
			return true
		}
	}
	return false
}
