// Package hostapi exposes the analyzer to host runtimes that exchange strings and JSON,
// such as the WebAssembly build. Results are returned as JSON documents.
package hostapi

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/wundergraph/qp-analyzer/pkg/analyzer"
	"github.com/wundergraph/qp-analyzer/pkg/planner"
)

type API struct {
	analyzer *analyzer.Analyzer
}

func New(options ...analyzer.Option) *API {
	return &API{
		analyzer: analyzer.New(options...),
	}
}

// ParseArgs decodes planner args from JSON. Missing fields keep their defaults,
// unknown fields are ignored and an empty document selects planner.DefaultArgs.
func ParseArgs(argsJSON string) (planner.Args, error) {
	args := planner.DefaultArgs()
	trimmed := bytes.TrimSpace([]byte(argsJSON))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return args, nil
	}
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return planner.Args{}, err
	}
	return args, nil
}

func (a *API) OverrideLabels(schema string) ([]string, error) {
	return a.analyzer.OverrideLabels(schema)
}

// BuildAllPlans returns the JSON array of results for every override combination.
func (a *API) BuildAllPlans(schema, query, queryPath, argsJSON string, verbose bool) (string, error) {
	args, err := ParseArgs(argsJSON)
	if err != nil {
		return "", err
	}
	results, err := a.analyzer.BuildAllPlans(schema, query, queryPath, args.Configuration(), verbose)
	if err != nil {
		return "", err
	}
	return marshal(results)
}

// BuildOnePlan returns the JSON object of the result for the given override conditions.
func (a *API) BuildOnePlan(schema, query, queryPath, argsJSON string, conditions []string, overrideAll bool) (string, error) {
	args, err := ParseArgs(argsJSON)
	if err != nil {
		return "", err
	}
	result, err := a.analyzer.BuildOnePlan(schema, query, queryPath, args.Configuration(), conditions, overrideAll)
	if err != nil {
		return "", err
	}
	return marshal(result)
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(data), nil
}
