// Package registry holds the canonical, immutable-after-start mapping
// from server name to configuration (spec §4.7).
package registry

import "github.com/mcporch/orchestrator/internal/config"

// Registry is the orchestrator's server directory. It is built once at
// startup and never mutated afterward; disabling a server requires a
// restart of the orchestrator (spec §4.7).
type Registry struct {
	servers map[string]*config.ServerConfig
}

// New builds a Registry from the loaded configuration's server map.
func New(servers map[string]*config.ServerConfig) *Registry {
	r := &Registry{servers: make(map[string]*config.ServerConfig, len(servers))}
	for name, sc := range servers {
		r.servers[name] = sc
	}
	return r
}

// Get returns the configuration for name, or (nil, false).
func (r *Registry) Get(name string) (*config.ServerConfig, bool) {
	sc, ok := r.servers[name]
	return sc, ok
}

// All returns every registered server configuration, enabled or not.
func (r *Registry) All() map[string]*config.ServerConfig {
	out := make(map[string]*config.ServerConfig, len(r.servers))
	for k, v := range r.servers {
		out[k] = v
	}
	return out
}

// GetEnabledServers returns the configurations of servers with
// Enabled == true (spec §4.7).
func (r *Registry) GetEnabledServers() []*config.ServerConfig {
	out := make([]*config.ServerConfig, 0, len(r.servers))
	for _, sc := range r.servers {
		if sc.Enabled {
			out = append(out, sc)
		}
	}
	return out
}
