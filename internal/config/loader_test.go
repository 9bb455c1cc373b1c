package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "orchestrator.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `{
		"observability": {"logLevel": "info", "otel": false},
		"network": {"outboundAllowlist": ["example.com"]},
		"servers": {
			"a": {
				"command": "./server-a",
				"enabled": true,
				"scopes": ["read"],
				"env": {"TOKEN": {"required": true}},
				"limits": {"timeoutMs": 1000, "ratePerWindow": 10, "rateWindowMs": 1000, "errorThresholdPct": 50, "resetTimeoutMs": 5000}
			}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, cfg.Servers, "a")
	assert.Equal(t, "a", cfg.Servers["a"].Name)
	assert.Equal(t, defaultStabilityWindowMs, cfg.Servers["a"].StabilityWindowMs)
	assert.Equal(t, []string{"--health"}, cfg.Servers["a"].ProbeArgs)
}

func TestLoad_RejectsBadLimits(t *testing.T) {
	path := writeConfig(t, `{
		"servers": {"a": {"command": "x", "enabled": true, "limits": {"timeoutMs": 0, "ratePerWindow": 1, "rateWindowMs": 1, "errorThresholdPct": 1, "resetTimeoutMs": 1}}}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_RejectsMalformedAllowlistEntry(t *testing.T) {
	path := writeConfig(t, `{"network": {"outboundAllowlist": ["example.com/path"]}}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ResolvesEnvRef(t *testing.T) {
	t.Setenv("SERVER_BIN", "/usr/local/bin/server-a")
	path := writeConfig(t, `{
		"servers": {"a": {"command": "${SERVER_BIN}", "enabled": true, "limits": {"timeoutMs": 1, "ratePerWindow": 1, "rateWindowMs": 1, "errorThresholdPct": 1, "resetTimeoutMs": 1}}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/server-a", cfg.Servers["a"].Command)
}

func TestLoad_UnresolvedEnvRefSentinel(t *testing.T) {
	path := writeConfig(t, `{
		"servers": {"a": {"command": "${DOES_NOT_EXIST_12345}", "enabled": true, "limits": {"timeoutMs": 1, "ratePerWindow": 1, "rateWindowMs": 1, "errorThresholdPct": 1, "resetTimeoutMs": 1}}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, ContainsUnresolvedRef(cfg.Servers["a"].Command))
}
