package loom

import "fmt"

// ConfigurationError reports misuse of the builder chain: a misordered,
// duplicate, or post-registration call. It is raised by panic while the
// pipeline is being assembled and is never produced during invocation.
type ConfigurationError struct {
	// Op is the chain operation that was rejected, e.g. "Handler".
	Op string
	// Reason describes the definition state that made the call invalid.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("loom: %s: %s", e.Op, e.Reason)
}

// configPanic aborts chain construction with a *ConfigurationError.
func configPanic(op, reason string) {
	panic(&ConfigurationError{Op: op, Reason: reason})
}
