package prompt

import (
	"errors"
	"fmt"
)

// Kind selects the enrichment operation.
type Kind int

const (
	KindAltText Kind = iota
	KindTableSummary
	KindMathML
)

// ErrUnknownKind is returned for an unrecognized operation kind.
var ErrUnknownKind = errors.New("unrecognized operation")

func (k Kind) String() string {
	switch k {
	case KindAltText:
		return "generate-alt-text"
	case KindTableSummary:
		return "generate-table-summary"
	case KindMathML:
		return "generate-mathml"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a subcommand name to its Kind.
func ParseKind(subcommand string) (Kind, error) {
	switch subcommand {
	case "generate-alt-text":
		return KindAltText, nil
	case "generate-table-summary":
		return KindTableSummary, nil
	case "generate-mathml":
		return KindMathML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownKind, subcommand)
}

// DefaultTagPattern returns the default tag regex for the operation.
func (k Kind) DefaultTagPattern() string {
	switch k {
	case KindTableSummary:
		return "Table"
	case KindMathML:
		return "Formula"
	default:
		return "Figure|Formula"
	}
}
