package interaction

import "fmt"

// ValidationError reports a bad interaction config. No state has changed.
type ValidationError struct {
	PluginID string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("interaction %s config invalid: %s", e.PluginID, e.Reason)
}

// AvailabilityError reports a context-gated interaction. No state has
// changed.
type AvailabilityError struct {
	PluginID string
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("interaction %s not available in this context", e.PluginID)
}

// UnknownPluginError reports a lookup for an id nobody registered.
type UnknownPluginError struct {
	PluginID string
}

func (e *UnknownPluginError) Error() string {
	return fmt.Sprintf("unknown interaction %s", e.PluginID)
}

// ExecutionError wraps a panic or error thrown by a plugin's Execute. It is
// caught at the caller boundary and converted to a failure result.
type ExecutionError struct {
	PluginID string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("interaction %s execution failed: %v", e.PluginID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
