// Package unsafeparser is for testing purposes only when error handling is overhead and panics are ok
package unsafeparser

import (
	"os"

	"github.com/wundergraph/qp-analyzer/pkg/planner"
)

func ParseSupergraphString(input string) *planner.Supergraph {
	supergraph, err := planner.ParseSupergraph(input)
	if err != nil {
		panic(err)
	}
	return supergraph
}

func ParseSupergraphFile(filePath string) *planner.Supergraph {
	return ParseSupergraphString(ReadFile(filePath))
}

func ParseOperationString(supergraph *planner.Supergraph, input string) *planner.Operation {
	operation, err := planner.ParseOperation(supergraph, input, "")
	if err != nil {
		panic(err)
	}
	return operation
}

func ReadFile(filePath string) string {
	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		panic(err)
	}
	return string(fileBytes)
}
