// Package queryplan contains the query plan tree produced by the planner,
// its human-readable rendering and its JSON form.
package queryplan

import (
	"strings"
)

type NodeKind string

const (
	NodeKindFetch    NodeKind = "Fetch"
	NodeKindFlatten  NodeKind = "Flatten"
	NodeKindSequence NodeKind = "Sequence"
	NodeKindParallel NodeKind = "Parallel"
	NodeKindDefer    NodeKind = "Defer"
)

type QueryPlan struct {
	// Node is nil when the operation needs no subgraph fetch, e.g. { __typename }
	Node       *Node      `json:"node"`
	Statistics Statistics `json:"statistics"`
}

type Statistics struct {
	// EvaluatedPlanCount is the number of candidate plans the planner costed
	EvaluatedPlanCount int `json:"evaluatedPlanCount"`
}

type Node struct {
	Kind NodeKind `json:"kind"`

	// Fetch is set for NodeKindFetch
	Fetch *Fetch `json:"fetch,omitempty"`

	// Path is the response path a NodeKindFlatten node merges its entity fetch into
	Path []string `json:"path,omitempty"`

	// Nodes holds the children of Sequence and Parallel nodes and the single child of a Flatten node
	Nodes []*Node `json:"nodes,omitempty"`

	Primary  *Node       `json:"primary,omitempty"`
	Deferred []*Deferred `json:"deferred,omitempty"`
}

type Fetch struct {
	ServiceName string `json:"serviceName"`
	// Requires is the selection set of the entity representations, empty for root fetches
	Requires string `json:"requires,omitempty"`
	// Operation is the selection sent to the subgraph, including generated fragments
	Operation      string   `json:"operation"`
	OperationKind  string   `json:"operationKind"`
	VariableUsages []string `json:"variableUsages,omitempty"`
}

type Deferred struct {
	Label string   `json:"label,omitempty"`
	Path  []string `json:"path"`
	Node  *Node    `json:"node,omitempty"`
}

func FetchNode(fetch *Fetch) *Node {
	return &Node{
		Kind:  NodeKindFetch,
		Fetch: fetch,
	}
}

func Flatten(path []string, child *Node) *Node {
	return &Node{
		Kind:  NodeKindFlatten,
		Path:  path,
		Nodes: []*Node{child},
	}
}

// Sequence returns a Sequence node. Nested sequences are spliced into the new node
// and a single child is returned as is.
func Sequence(children ...*Node) *Node {
	var nodes []*Node
	for _, child := range children {
		if child == nil {
			continue
		}
		if child.Kind == NodeKindSequence {
			nodes = append(nodes, child.Nodes...)
			continue
		}
		nodes = append(nodes, child)
	}
	return group(NodeKindSequence, nodes)
}

// Parallel returns a Parallel node. A single child is returned as is.
func Parallel(children ...*Node) *Node {
	var nodes []*Node
	for _, child := range children {
		if child == nil {
			continue
		}
		if child.Kind == NodeKindParallel {
			nodes = append(nodes, child.Nodes...)
			continue
		}
		nodes = append(nodes, child)
	}
	return group(NodeKindParallel, nodes)
}

func group(kind NodeKind, nodes []*Node) *Node {
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}
	return &Node{
		Kind:  kind,
		Nodes: nodes,
	}
}

func DeferNode(primary *Node, deferred ...*Deferred) *Node {
	return &Node{
		Kind:     NodeKindDefer,
		Primary:  primary,
		Deferred: deferred,
	}
}

// FetchCount returns the number of Fetch nodes in the tree rooted at n.
func (n *Node) FetchCount() int {
	if n == nil {
		return 0
	}
	count := 0
	if n.Kind == NodeKindFetch {
		count++
	}
	for _, child := range n.Nodes {
		count += child.FetchCount()
	}
	count += n.Primary.FetchCount()
	for _, deferred := range n.Deferred {
		count += deferred.Node.FetchCount()
	}
	return count
}

// Services returns the subgraph names fetched by the tree rooted at n in plan order.
func (n *Node) Services() []string {
	var out []string
	n.walk(func(node *Node) {
		if node.Kind == NodeKindFetch {
			out = append(out, node.Fetch.ServiceName)
		}
	})
	return out
}

func (n *Node) walk(fn func(node *Node)) {
	if n == nil {
		return
	}
	fn(n)
	n.Primary.walk(fn)
	for _, child := range n.Nodes {
		child.walk(fn)
	}
	for _, deferred := range n.Deferred {
		deferred.Node.walk(fn)
	}
}

func PathString(path []string) string {
	return strings.Join(path, ".")
}
