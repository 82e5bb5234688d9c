package planner

import (
	"fmt"

	"github.com/wundergraph/qp-analyzer/pkg/queryplan"
)

// SchemaError is returned when the supergraph SDL cannot be parsed or is not a supergraph.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string {
	return "invalid supergraph schema: " + e.Message
}

// DocumentError is returned when an operation cannot be parsed, normalized or validated.
type DocumentError struct {
	// Source names the operation document, e.g. a file path or "-" for stdin
	Source  string
	Message string
}

func (e *DocumentError) Error() string {
	if e.Source == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "invalid query planner configuration: " + e.Message
}

// PlanError is returned when no query plan can be built for an operation.
type PlanError struct {
	// Path is the response path of the selection that could not be planned
	Path    string
	Message string
}

func (e *PlanError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (at %q)", e.Message, e.Path)
}

func planErrorf(path []string, format string, args ...any) *PlanError {
	return &PlanError{
		Path:    queryplan.PathString(path),
		Message: fmt.Sprintf(format, args...),
	}
}
