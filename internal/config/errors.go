package config

import "fmt"

// Error is the fatal configuration error kind (spec §7: ConfigError).
// The orchestrator exits non-zero when the Config Loader returns one.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config error: %s", e.Reason)
}

func errorf(format string, args ...interface{}) error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}
