package queryplan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func entityPlan() *QueryPlan {
	return &QueryPlan{
		Node: Sequence(
			FetchNode(&Fetch{
				ServiceName:   "a",
				Operation:     "{\n  t {\n    __typename\n    id\n  }\n}",
				OperationKind: "query",
			}),
			Flatten([]string{"t"}, FetchNode(&Fetch{
				ServiceName:   "b",
				Requires:      "{\n  ... on T {\n    __typename\n    id\n  }\n}",
				Operation:     "{\n  ... on T {\n    x\n  }\n}",
				OperationKind: "query",
			})),
		),
		Statistics: Statistics{EvaluatedPlanCount: 1},
	}
}

func TestQueryPlan_String(t *testing.T) {
	t.Run("empty plan", func(t *testing.T) {
		assert.Equal(t, "QueryPlan {\n}", (&QueryPlan{}).String())
	})

	t.Run("single fetch", func(t *testing.T) {
		plan := &QueryPlan{
			Node: FetchNode(&Fetch{ServiceName: "a", Operation: "{\n  t {\n    id\n  }\n}"}),
		}
		expected := `QueryPlan {
  Fetch(service: "a") {
    {
      t {
        id
      }
    }
  },
}`
		assert.Equal(t, expected, plan.String())
	})

	t.Run("sequence with flatten", func(t *testing.T) {
		expected := `QueryPlan {
  Sequence {
    Fetch(service: "a") {
      {
        t {
          __typename
          id
        }
      }
    },
    Flatten(path: "t") {
      Fetch(service: "b") {
        {
          ... on T {
            __typename
            id
          }
        } =>
        {
          ... on T {
            x
          }
        }
      },
    },
  },
}`
		assert.Equal(t, expected, entityPlan().String())
	})

	t.Run("parallel", func(t *testing.T) {
		plan := &QueryPlan{
			Node: Parallel(
				FetchNode(&Fetch{ServiceName: "a", Operation: "{\n  a\n}"}),
				FetchNode(&Fetch{ServiceName: "b", Operation: "{\n  b\n}"}),
			),
		}
		expected := `QueryPlan {
  Parallel {
    Fetch(service: "a") {
      {
        a
      }
    },
    Fetch(service: "b") {
      {
        b
      }
    },
  },
}`
		assert.Equal(t, expected, plan.String())
	})

	t.Run("defer", func(t *testing.T) {
		plan := &QueryPlan{
			Node: DeferNode(
				FetchNode(&Fetch{ServiceName: "a", Operation: "{\n  a\n}"}),
				&Deferred{Label: "slow", Node: FetchNode(&Fetch{ServiceName: "b", Operation: "{\n  b\n}"})},
			),
		}
		expected := `QueryPlan {
  Defer {
    Primary {
      Fetch(service: "a") {
        {
          a
        }
      },
    }, [
      Deferred(depends: [], path: "", label: "slow") {
        Fetch(service: "b") {
          {
            b
          }
        },
      },
    ]
  },
}`
		assert.Equal(t, expected, plan.String())
	})

	t.Run("blank lines between fragments are not indented", func(t *testing.T) {
		plan := &QueryPlan{
			Node: FetchNode(&Fetch{ServiceName: "a", Operation: "{\n  ...F\n}\n\nfragment F on Query {\n  a\n}"}),
		}
		expected := "QueryPlan {\n  Fetch(service: \"a\") {\n    {\n      ...F\n    }\n\n    fragment F on Query {\n      a\n    }\n  },\n}"
		assert.Equal(t, expected, plan.String())
	})
}

func TestNodeHelpers(t *testing.T) {
	t.Run("nested sequences are spliced", func(t *testing.T) {
		a := FetchNode(&Fetch{ServiceName: "a"})
		b := FetchNode(&Fetch{ServiceName: "b"})
		c := FetchNode(&Fetch{ServiceName: "c"})
		node := Sequence(a, Sequence(b, c))
		require.Equal(t, NodeKindSequence, node.Kind)
		assert.Len(t, node.Nodes, 3)
	})

	t.Run("single child groups collapse", func(t *testing.T) {
		a := FetchNode(&Fetch{ServiceName: "a"})
		assert.Same(t, a, Parallel(a))
		assert.Same(t, a, Sequence(nil, a))
		assert.Nil(t, Parallel())
	})

	t.Run("fetch count and services", func(t *testing.T) {
		plan := entityPlan()
		assert.Equal(t, 2, plan.Node.FetchCount())
		assert.Equal(t, []string{"a", "b"}, plan.Node.Services())
	})
}

func TestQueryPlan_JSON(t *testing.T) {
	data, err := json.Marshal(entityPlan())
	require.NoError(t, err)

	assert.Equal(t, "Sequence", gjson.GetBytes(data, "node.kind").String())
	assert.Equal(t, "a", gjson.GetBytes(data, "node.nodes.0.fetch.serviceName").String())
	assert.Equal(t, "Flatten", gjson.GetBytes(data, "node.nodes.1.kind").String())
	assert.Equal(t, `["t"]`, gjson.GetBytes(data, "node.nodes.1.path").Raw)
	assert.Equal(t, "b", gjson.GetBytes(data, "node.nodes.1.nodes.0.fetch.serviceName").String())
	assert.False(t, gjson.GetBytes(data, "node.nodes.0.fetch.requires").Exists())
	assert.Equal(t, int64(1), gjson.GetBytes(data, "statistics.evaluatedPlanCount").Int())
}
