package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"

	"github.com/wundergraph/qp-analyzer/internal/pkg/unsafeparser"
	"github.com/wundergraph/qp-analyzer/pkg/overrides"
	"github.com/wundergraph/qp-analyzer/pkg/planner"
	"github.com/wundergraph/qp-analyzer/pkg/queryplan"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubPlanner returns a single fetch naming the active conditions and fails
// on the combination listed in failOn.
type stubPlanner struct {
	labels  []string
	failOn  string
	parsed  []string
	planned [][]string
}

func (s *stubPlanner) OverrideConditionLabels() []string {
	return s.labels
}

func (s *stubPlanner) ParseOperation(query, source string) (*planner.Operation, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &planner.DocumentError{Source: source, Message: "syntax error: unexpected EOF"}
	}
	s.parsed = append(s.parsed, source)
	return &planner.Operation{Kind: planner.OperationKindQuery, Source: source}, nil
}

func (s *stubPlanner) BuildQueryPlan(_ *planner.Operation, options planner.QueryPlanOptions) (*queryplan.QueryPlan, error) {
	conditions := append([]string{}, options.OverrideConditions...)
	s.planned = append(s.planned, conditions)
	if s.failOn != "" && strings.Join(conditions, ",") == s.failOn {
		return nil, errors.New("exceeded the maximum number of evaluated plans")
	}
	return &queryplan.QueryPlan{
		Node: queryplan.FetchNode(&queryplan.Fetch{
			ServiceName:   "s",
			Operation:     fmt.Sprintf("{\n  conditions(active: %q)\n}", strings.Join(conditions, ",")),
			OperationKind: "query",
		}),
		Statistics: queryplan.Statistics{EvaluatedPlanCount: 1},
	}, nil
}

func stubFactory(stub *stubPlanner) PlannerFactory {
	return func(string, planner.Configuration) (QueryPlanner, error) {
		return stub, nil
	}
}

type recordingObserver struct {
	started []int
	planned []string
}

func (r *recordingObserver) CombinationStarted(index int, _ overrides.Combination) {
	r.started = append(r.started, index)
}

func (r *recordingObserver) CombinationPlanned(_ int, combination overrides.Combination, _ *queryplan.QueryPlan) {
	r.planned = append(r.planned, combination.String())
}

func conditionsOf(results []QueryPlanResult) [][]string {
	out := make([][]string, 0, len(results))
	for _, result := range results {
		out = append(out, result.QueryPlanConfig.OverrideConditions)
	}
	return out
}

func TestAnalyzer_OverrideLabels(t *testing.T) {
	t.Run("discovery order", func(t *testing.T) {
		a := New(WithPlannerFactory(stubFactory(&stubPlanner{labels: []string{"b", "a"}})))
		labels, err := a.OverrideLabels("schema")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, labels)
	})

	t.Run("engine errors are returned as is", func(t *testing.T) {
		a := New(WithPlannerFactory(func(string, planner.Configuration) (QueryPlanner, error) {
			return nil, &planner.SchemaError{Message: "unsupported federation version"}
		}))
		_, err := a.OverrideLabels("schema")
		var schemaErr *planner.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, "invalid supergraph schema: unsupported federation version", err.Error())
	})
}

func TestAnalyzer_BuildAllPlans(t *testing.T) {
	t.Run("no labels yields exactly one plan", func(t *testing.T) {
		stub := &stubPlanner{}
		results, err := New(WithPlannerFactory(stubFactory(stub))).BuildAllPlans("schema", "{ a }", "query.graphql", planner.DefaultConfiguration(), false)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, []string{}, results[0].QueryPlanConfig.OverrideConditions)
		assert.Equal(t, []string{"query.graphql"}, stub.parsed)
	})

	t.Run("one engine call per combination in enumeration order", func(t *testing.T) {
		stub := &stubPlanner{labels: []string{"a", "b"}}
		results, err := New(WithPlannerFactory(stubFactory(stub))).BuildAllPlans("schema", "{ a }", "-", planner.DefaultConfiguration(), false)
		require.NoError(t, err)

		expected := [][]string{{}, {"a"}, {"b"}, {"a", "b"}}
		assert.Equal(t, expected, conditionsOf(results))
		assert.Equal(t, expected, stub.planned)
		assert.Contains(t, results[3].QueryPlanDisplay, `conditions(active: "a,b")`)
	})

	t.Run("three labels", func(t *testing.T) {
		stub := &stubPlanner{labels: []string{"a", "b", "c"}}
		results, err := New(WithPlannerFactory(stubFactory(stub))).BuildAllPlans("schema", "{ a }", "-", planner.DefaultConfiguration(), false)
		require.NoError(t, err)
		assert.Len(t, results, 8)
		assert.Equal(t, []string{}, results[0].QueryPlanConfig.OverrideConditions)
		assert.Equal(t, []string{"a", "b", "c"}, results[7].QueryPlanConfig.OverrideConditions)
	})

	t.Run("first failure aborts the run", func(t *testing.T) {
		stub := &stubPlanner{labels: []string{"a", "b"}, failOn: "b"}
		results, err := New(WithPlannerFactory(stubFactory(stub))).BuildAllPlans("schema", "{ a }", "-", planner.DefaultConfiguration(), false)
		assert.Nil(t, results)

		var buildErr *PlanBuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Equal(t, 2, buildErr.Index)
		assert.Equal(t, overrides.Combination{"b"}, buildErr.Combination)
		assert.Equal(t, `override combination #2 ["b"]: exceeded the maximum number of evaluated plans`, err.Error())
		assert.Len(t, stub.planned, 3)
	})

	t.Run("failure on the fifth of eight combinations", func(t *testing.T) {
		stub := &stubPlanner{labels: []string{"a", "b", "c"}, failOn: "c"}
		results, err := New(WithPlannerFactory(stubFactory(stub))).BuildAllPlans("schema", "{ a }", "-", planner.DefaultConfiguration(), false)
		assert.Nil(t, results)

		var buildErr *PlanBuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Equal(t, 4, buildErr.Index)
		assert.Equal(t, overrides.Combination{"c"}, buildErr.Combination)
		assert.Len(t, stub.planned, 5)
	})

	t.Run("document errors stop before planning", func(t *testing.T) {
		stub := &stubPlanner{labels: []string{"a"}}
		_, err := New(WithPlannerFactory(stubFactory(stub))).BuildAllPlans("schema", " ", "query.graphql", planner.DefaultConfiguration(), false)
		var documentErr *planner.DocumentError
		require.ErrorAs(t, err, &documentErr)
		assert.Equal(t, "query.graphql", documentErr.Source)
		assert.Empty(t, stub.planned)
	})

	t.Run("too many labels", func(t *testing.T) {
		labels := make([]string, overrides.MaxLabels+1)
		for i := range labels {
			labels[i] = fmt.Sprintf("label-%d", i)
		}
		stub := &stubPlanner{labels: labels}
		_, err := New(WithPlannerFactory(stubFactory(stub))).BuildAllPlans("schema", "{ a }", "-", planner.DefaultConfiguration(), false)
		assert.ErrorIs(t, err, overrides.ErrTooManyLabels)
		assert.Empty(t, stub.planned)
	})

	t.Run("observer", func(t *testing.T) {
		recorder := &recordingObserver{}
		stub := &stubPlanner{labels: []string{"a"}}
		_, err := New(WithPlannerFactory(stubFactory(stub)), WithObserver(recorder)).BuildAllPlans("schema", "{ a }", "-", planner.DefaultConfiguration(), false)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, recorder.started)
		assert.Equal(t, []string{"[]", `["a"]`}, recorder.planned)
	})

	t.Run("verbose prints banners and plans", func(t *testing.T) {
		out := &bytes.Buffer{}
		recorder := &recordingObserver{}
		stub := &stubPlanner{labels: []string{"a"}}
		a := New(WithPlannerFactory(stubFactory(stub)), WithObserver(recorder), WithOutput(out))
		results, err := a.BuildAllPlans("schema", "{ a }", "-", planner.DefaultConfiguration(), true)
		require.NoError(t, err)
		require.Len(t, results, 2)

		output := out.String()
		assert.Contains(t, output, "Override Combination #0: []")
		assert.Contains(t, output, `Override Combination #1: ["a"]`)
		assert.Contains(t, output, rule+"\n")
		assert.Contains(t, output, results[1].QueryPlanDisplay+"\n\n")
		assert.Equal(t, []int{0, 1}, recorder.started)
	})
}

func TestAnalyzer_BuildOnePlan(t *testing.T) {
	build := func(t *testing.T, stub *stubPlanner, conditions []string, overrideAll bool) (*QueryPlanResult, error) {
		t.Helper()
		return New(WithPlannerFactory(stubFactory(stub))).BuildOnePlan("schema", "{ a }", "-", planner.DefaultConfiguration(), conditions, overrideAll)
	}

	t.Run("given conditions", func(t *testing.T) {
		stub := &stubPlanner{labels: []string{"a", "b"}}
		result, err := build(t, stub, []string{"b"}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, result.QueryPlanConfig.OverrideConditions)
		assert.Equal(t, [][]string{{"b"}}, stub.planned)
	})

	t.Run("override all", func(t *testing.T) {
		stub := &stubPlanner{labels: []string{"a", "b"}}
		result, err := build(t, stub, nil, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, result.QueryPlanConfig.OverrideConditions)
	})

	t.Run("override all without labels", func(t *testing.T) {
		result, err := build(t, &stubPlanner{}, nil, true)
		require.NoError(t, err)
		assert.Equal(t, []string{}, result.QueryPlanConfig.OverrideConditions)
	})

	t.Run("validation happens before planning", func(t *testing.T) {
		testCases := []struct {
			name       string
			conditions []string
			all        bool
			message    string
		}{
			{name: "unknown", conditions: []string{"y"}, message: `Unknown override condition label: y. Available labels: ["x"]`},
			{name: "duplicate", conditions: []string{"x", "x"}, message: "Duplicate override condition label: x"},
			{name: "override all conflict", conditions: []string{"x"}, all: true, message: overrides.ErrOverrideAllConflict.Error()},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				stub := &stubPlanner{labels: []string{"x"}}
				_, err := build(t, stub, tc.conditions, tc.all)
				require.Error(t, err)
				assert.Equal(t, tc.message, err.Error())
				assert.Empty(t, stub.planned)
			})
		}
	})
}

func TestQueryPlanResult_JSON(t *testing.T) {
	stub := &stubPlanner{}
	result, err := New(WithPlannerFactory(stubFactory(stub))).BuildOnePlan("schema", "{ a }", "-", planner.DefaultConfiguration(), nil, false)
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Equal(t, "[]", gjson.GetBytes(data, "query_plan_config.override_conditions").Raw)
	assert.Equal(t, result.QueryPlanDisplay, gjson.GetBytes(data, "query_plan_display").String())
	assert.Equal(t, "Fetch", gjson.GetBytes(data, "experimental_query_plan_serialized.node.kind").String())
}

func TestAnalyzer_WithDefaultPlanner(t *testing.T) {
	schema := unsafeparser.ReadFile("../planner/testdata/supergraph.graphql")
	a := New()

	labels, err := a.OverrideLabels(schema)
	require.NoError(t, err)
	assert.Equal(t, []string{"percent(50)", "legacy-rating"}, labels)

	results, err := a.BuildAllPlans(schema, `{ products { name inStock } }`, "query.graphql", planner.DefaultConfiguration(), false)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, []string{"products"}, results[0].ExperimentalQueryPlanSerialized.Node.Services())
	assert.Equal(t, []string{"products", "inventory"}, results[1].ExperimentalQueryPlanSerialized.Node.Services())
	assert.Equal(t, []string{"products"}, results[2].ExperimentalQueryPlanSerialized.Node.Services())
	assert.Equal(t, []string{"products", "inventory"}, results[3].ExperimentalQueryPlanSerialized.Node.Services())
}

func TestAnalyzer_InaccessibleFieldIsADocumentError(t *testing.T) {
	schema := unsafeparser.ReadFile("../planner/testdata/supergraph.graphql")

	results, err := New().BuildAllPlans(schema, `{ products { internalCode } }`, "query.graphql", planner.DefaultConfiguration(), false)
	assert.Nil(t, results)

	var documentErr *planner.DocumentError
	require.ErrorAs(t, err, &documentErr)
	assert.Equal(t, "query.graphql", documentErr.Source)
	assert.Contains(t, documentErr.Message, "Product.internalCode is inaccessible")

	var buildErr *PlanBuildError
	assert.False(t, errors.As(err, &buildErr))
}
