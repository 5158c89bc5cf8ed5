package ai

import (
	"errors"
	"fmt"
)

// CodeAuthentication is the exit code for a rejected API key.
const CodeAuthentication = 30

// Common AI collaborator errors
var (
	// ErrAuthentication is returned when the OpenAI API rejects the key.
	// It is fatal to the whole run.
	ErrAuthentication = errors.New("OpenAI API key failed to authenticate")

	// ErrRequestFailed is returned for any other completion failure.
	// It is recoverable per tag.
	ErrRequestFailed = errors.New("OpenAI request failed")
)

// Error wraps a completion failure with the operation that produced it.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ai: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ai: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// ExitCode maps authentication failures to the process exit-code taxonomy.
func (e *Error) ExitCode() int {
	if errors.Is(e.Err, ErrAuthentication) {
		return CodeAuthentication
	}
	return 1
}
