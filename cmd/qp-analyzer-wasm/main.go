//go:build js && wasm

// Command qp-analyzer-wasm registers the analyzer on the JavaScript global object:
//
//	qpAnalyzer.overrideLabels(schema)
//	qpAnalyzer.buildAllPlans(schema, query, queryPath, plannerArgs, verbose)
//	qpAnalyzer.buildOnePlan(schema, query, queryPath, plannerArgs, overrideConditions, overrideAll)
//
// Every function returns {value} on success and {error} with the error message on failure.
// buildAllPlans yields an array of result objects and buildOnePlan a single result object,
// plannerArgs is a JSON string, a plain object or null.
package main

import (
	"syscall/js"

	"github.com/wundergraph/qp-analyzer/pkg/hostapi"
)

func main() {
	api := hostapi.New()

	js.Global().Set("qpAnalyzer", js.ValueOf(map[string]any{
		"overrideLabels": js.FuncOf(func(_ js.Value, args []js.Value) any {
			labels, err := api.OverrideLabels(stringArg(args, 0))
			if err != nil {
				return failure(err)
			}
			values := make([]any, 0, len(labels))
			for _, label := range labels {
				values = append(values, label)
			}
			return success(values)
		}),
		"buildAllPlans": js.FuncOf(func(_ js.Value, args []js.Value) any {
			out, err := api.BuildAllPlans(stringArg(args, 0), stringArg(args, 1), stringArg(args, 2), jsonArg(args, 3), boolArg(args, 4))
			if err != nil {
				return failure(err)
			}
			return success(parseJSON(out))
		}),
		"buildOnePlan": js.FuncOf(func(_ js.Value, args []js.Value) any {
			out, err := api.BuildOnePlan(stringArg(args, 0), stringArg(args, 1), stringArg(args, 2), jsonArg(args, 3), stringsArg(args, 4), boolArg(args, 5))
			if err != nil {
				return failure(err)
			}
			return success(parseJSON(out))
		}),
	}))

	// keep the functions callable
	select {}
}

func success(value any) any {
	return map[string]any{"value": value}
}

func failure(err error) any {
	return map[string]any{"error": err.Error()}
}

// parseJSON turns a JSON document into the equivalent JavaScript value.
func parseJSON(document string) js.Value {
	return js.Global().Get("JSON").Call("parse", document)
}

func stringArg(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func boolArg(args []js.Value, i int) bool {
	return i < len(args) && args[i].Truthy()
}

// jsonArg accepts a JSON string or a plain object, which is stringified.
func jsonArg(args []js.Value, i int) string {
	if i >= len(args) {
		return ""
	}
	switch args[i].Type() {
	case js.TypeString:
		return args[i].String()
	case js.TypeObject:
		return js.Global().Get("JSON").Call("stringify", args[i]).String()
	}
	return ""
}

func stringsArg(args []js.Value, i int) []string {
	if i >= len(args) || args[i].Type() != js.TypeObject {
		return nil
	}
	out := make([]string, 0, args[i].Length())
	for j := 0; j < args[i].Length(); j++ {
		out = append(out, args[i].Index(j).String())
	}
	return out
}
