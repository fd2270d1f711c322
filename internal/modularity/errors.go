package modularity

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("module configuration failed")

	// ErrInvalidState matches every *StateError.
	ErrInvalidState = errors.New("invalid pipeline state")

	// ErrContextSealed is returned by a ConfigurationContext after its run ended.
	ErrContextSealed = errors.New("configuration context is sealed")
)

// ConfigurationError reports the module hook that aborted a run.
type ConfigurationError struct {
	Module string
	Phase  Phase
	Cause  error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("module %s failed during %s: %v", e.Module, e.Phase, e.Cause)
}

// Unwrap returns the hook error.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is.
func (e *ConfigurationError) Is(target error) bool {
	if target == ErrConfiguration {
		return true
	}
	_, ok := target.(*ConfigurationError)
	return ok
}

// StateError is returned when Run is called outside the NotStarted state.
type StateError struct {
	State State
}

// Error implements the error interface.
func (e *StateError) Error() string {
	switch e.State {
	case StateCompleted:
		return "services have already been configured"
	case StateRunning:
		return "services are being configured"
	default:
		return fmt.Sprintf("pipeline cannot run in state %s", e.State)
	}
}

// Is implements errors.Is.
func (e *StateError) Is(target error) bool {
	if target == ErrInvalidState {
		return true
	}
	_, ok := target.(*StateError)
	return ok
}
