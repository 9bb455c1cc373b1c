// Package envcheck validates that each server's required environment
// variables are present before the orchestrator spawns it (spec §4.2).
package envcheck

import (
	"os"
	"sort"

	"github.com/mcporch/orchestrator/internal/config"
)

// Result is the outcome of validating one server's environment.
type Result struct {
	OK      bool
	Missing []string
}

// Validate checks sc.Env against the process environment (and any
// values already present in overrideEnv, e.g. resolved per-server
// values from config) and returns which required keys are missing.
// The orchestrator does not start servers for which OK is false; it
// continues with other servers (spec §4.2: fail-soft per server).
func Validate(sc *config.ServerConfig, overrideEnv map[string]string) Result {
	var missing []string

	for key, decl := range sc.Env {
		if !decl.Required {
			continue
		}
		if _, ok := overrideEnv[key]; ok {
			continue
		}
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		missing = append(missing, key)
	}

	sort.Strings(missing)
	return Result{OK: len(missing) == 0, Missing: missing}
}
