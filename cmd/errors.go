package cmd

import (
	"errors"

	"tagassist/internal/prompt"
)

// Exit codes for argument and usage failures.
const (
	CodeArgGeneral        = 10
	CodeArgUnknownCommand = 11
	CodeArgOpenAIKey      = 12
	CodeArgBadFilePair    = 13
	CodeArgImageRead      = 14
)

// argError is a usage failure carrying its exit code.
type argError struct {
	code int
	msg  string
}

func (e *argError) Error() string {
	return e.msg
}

func (e *argError) ExitCode() int {
	return e.code
}

// exitCoder is implemented by errors that map to a specific process exit
// code (argument errors here, backend errors in doctree, auth in ai).
type exitCoder interface {
	ExitCode() int
}

// exitCode resolves the process exit code for a failed run.
func exitCode(err error) int {
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	if errors.Is(err, prompt.ErrUnknownKind) {
		return CodeArgUnknownCommand
	}
	return 1
}
