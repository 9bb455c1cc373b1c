package config

import "strings"

// validate rejects a missing command on an enabled server, invalid limit
// values, and malformed outbound allowlist entries (spec §4.1). Unknown
// fields are rejected earlier, by the decoder in Load. Duplicate server
// names never reach this point: the JSON decoder keeps only the last
// definition of a repeated key.
func validate(cfg *Config) error {
	for _, host := range cfg.Network.OutboundAllowlist {
		if strings.TrimSpace(host) == "" {
			return errorf("network.outboundAllowlist contains an empty entry")
		}
		if strings.ContainsAny(host, "/ \t") {
			return errorf("network.outboundAllowlist entry %q is not a bare hostname", host)
		}
	}

	for name, sc := range cfg.Servers {
		if strings.TrimSpace(name) == "" {
			return errorf("server name must not be empty")
		}
		if !sc.Enabled {
			continue
		}
		if sc.Command == "" {
			return errorf("server %q: enabled server must declare a command", name)
		}
		if err := validateLimits(name, sc.Limits); err != nil {
			return err
		}
	}

	return nil
}

func validateLimits(name string, l Limits) error {
	switch {
	case l.TimeoutMs <= 0:
		return errorf("server %q: limits.timeoutMs must be positive", name)
	case l.TimeoutMs > 600_000:
		return errorf("server %q: limits.timeoutMs is absurdly large (>10m)", name)
	case l.RatePerWindow <= 0:
		return errorf("server %q: limits.ratePerWindow must be positive", name)
	case l.RateWindowMs <= 0:
		return errorf("server %q: limits.rateWindowMs must be positive", name)
	case l.ErrorThresholdPct <= 0 || l.ErrorThresholdPct > 100:
		return errorf("server %q: limits.errorThresholdPct must be in (0,100]", name)
	case l.ResetTimeoutMs <= 0:
		return errorf("server %q: limits.resetTimeoutMs must be positive", name)
	}
	return nil
}
