package doctree

import (
	"errors"
	"fmt"
)

// Exit codes reported for document backend failures.
const (
	CodeInit          = 20
	CodeActivation    = 21
	CodeAuthorization = 22
	CodeRender        = 23
	CodeOpen          = 24
	CodeSave          = 25
	CodeNoTags        = 26
)

// Common document backend errors
var (
	// ErrNoBackend is returned by Open when no backend is registered
	// under the requested name.
	ErrNoBackend = errors.New("no document backend registered")

	// ErrActivation is returned when backend license activation fails.
	ErrActivation = errors.New("failed to activate the document backend license")

	// ErrAuthorization is returned when backend account authorization fails.
	ErrAuthorization = errors.New("failed to authorize the document backend account")

	// ErrRender is returned when a page region cannot be rasterized.
	ErrRender = errors.New("failed to render page region")

	// ErrOpen is returned when the input document cannot be opened.
	ErrOpen = errors.New("failed to open document")

	// ErrSave is returned when the output document cannot be written.
	ErrSave = errors.New("failed to save document")

	// ErrNoStructTree is returned for documents without a structure tree.
	ErrNoStructTree = errors.New("document has no structure tree")
)

var exitCodes = map[error]int{
	ErrNoBackend:     CodeInit,
	ErrActivation:    CodeActivation,
	ErrAuthorization: CodeAuthorization,
	ErrRender:        CodeRender,
	ErrOpen:          CodeOpen,
	ErrSave:          CodeSave,
	ErrNoStructTree:  CodeNoTags,
}

// Error wraps a backend failure with the operation that produced it.
type Error struct {
	// Op is the operation that failed (e.g. "Open", "Save", "Render").
	Op string

	// Err is one of the sentinel errors above.
	Err error

	// Details provides backend-specific context.
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("doctree: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("doctree: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// ExitCode maps the wrapped sentinel to the process exit-code taxonomy.
func (e *Error) ExitCode() int {
	if code, ok := exitCodes[e.Err]; ok {
		return code
	}
	return CodeInit
}

// NewError creates an Error for the given operation and sentinel.
func NewError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
