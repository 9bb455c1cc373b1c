package config

import (
	"bytes"
	"encoding/json"
	"os"
	"regexp"
	"strings"
)

// envRefPattern matches "${VAR}" references inside string config values.
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads orchestrator configuration from path, resolves ${VAR}
// references against the process environment, and validates the result.
// It returns *Error (spec §7 ConfigError) on any structural problem.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errorf("cannot read config file %s: %v", path, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errorf("malformed config json: %v", err)
	}

	if cfg.Servers == nil {
		cfg.Servers = map[string]*ServerConfig{}
	}

	for name, sc := range cfg.Servers {
		if sc == nil {
			return nil, errorf("server %q has a null definition", name)
		}
		sc.Name = name
		resolveEnvRefs(sc)
		sc.applyDefaults()
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveEnvRefs resolves ${VAR} references in a server's declared
// environment variable schema keys' default values is out of scope —
// this resolves references embedded in Command/Args/WorkingDir, the
// only string fields config values commonly parameterize.
func resolveEnvRefs(sc *ServerConfig) {
	sc.Command = resolveString(sc.Command)
	for i, a := range sc.Args {
		sc.Args[i] = resolveString(a)
	}
	sc.WorkingDir = resolveString(sc.WorkingDir)
}

func resolveString(s string) string {
	if s == "" {
		return s
	}
	return envRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envRefPattern.FindStringSubmatch(match)
		name := groups[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return UnresolvedEnvRef
	})
}

// ContainsUnresolvedRef reports whether s still carries the unresolved
// env-reference sentinel after Load.
func ContainsUnresolvedRef(s string) bool {
	return strings.Contains(s, UnresolvedEnvRef)
}
