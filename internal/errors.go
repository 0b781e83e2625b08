package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAgents is returned when a session would start without participants
	ErrNoAgents = errors.New("no agents configured")
	// ErrUnknownAgent is returned for an agent id missing from the registry
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrSessionNotFound is returned by stores for a missing session id
	ErrSessionNotFound = errors.New("session not found")
)

// ConfigError represents invalid configuration detected before deliberation starts
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s]: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// StorageError represents errors persisting or reading sessions
type StorageError struct {
	Path string
	Op   string // "open", "write", "read", "index"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// InvokeError describes why a single agent call failed. It never crosses the invoker
// boundary as a Go error; its Reason ends up in AgentResponse.Error.
type InvokeError struct {
	AgentID string
	Reason  string // "timeout", "cancelled", "exit status N", "start", "empty response"
	Detail  string
}

func (e *InvokeError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
