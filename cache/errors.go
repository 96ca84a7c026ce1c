package cache

import "fmt"

// ConfigError reports a malformed or out-of-range cache configuration.
// Construction fails fast: no Cache is produced when this error is
// returned.
type ConfigError struct {
	input string
	msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cache: invalid configuration %q: %s; "+
		"expected form sets:ways:blocksize[:lru] with sets and blocksize "+
		"positive powers of two, blocksize at least 8, and ways at least 1",
		e.input, e.msg)
}

func newConfigError(input, msg string) *ConfigError {
	return &ConfigError{input: input, msg: msg}
}

// InvariantViolation indicates a defensive check inside the engine failed.
// Its presence means a bug in the engine, not a bad input; callers should
// treat it as fatal.
type InvariantViolation struct {
	msg string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("cache: invariant violated: %s", e.msg)
}

func newInvariantViolation(msg string) *InvariantViolation {
	return &InvariantViolation{msg: msg}
}
