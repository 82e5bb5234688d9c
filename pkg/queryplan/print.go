package queryplan

import (
	"fmt"
	"strings"
)

const indentation = "  "

// String renders the plan in the display format used by the gateway tooling:
//
//	QueryPlan {
//	  Fetch(service: "products") {
//	    {
//	      topProducts {
//	        upc
//	      }
//	    }
//	  },
//	}
func (p *QueryPlan) String() string {
	if p == nil || p.Node == nil {
		return "QueryPlan {\n}"
	}
	lines := []string{"QueryPlan {"}
	lines = append(lines, indent(withComma(p.Node.lines()))...)
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

func (n *Node) String() string {
	return strings.Join(n.lines(), "\n")
}

func (n *Node) lines() []string {
	switch n.Kind {
	case NodeKindFetch:
		return n.Fetch.lines()
	case NodeKindFlatten:
		out := []string{fmt.Sprintf("Flatten(path: %q) {", PathString(n.Path))}
		for _, child := range n.Nodes {
			out = append(out, indent(withComma(child.lines()))...)
		}
		return append(out, "}")
	case NodeKindSequence, NodeKindParallel:
		out := []string{string(n.Kind) + " {"}
		for _, child := range n.Nodes {
			out = append(out, indent(withComma(child.lines()))...)
		}
		return append(out, "}")
	case NodeKindDefer:
		out := []string{"Defer {", indentation + "Primary {"}
		if n.Primary != nil {
			out = append(out, indent(indent(withComma(n.Primary.lines())))...)
		}
		out = append(out, indentation+"}, [")
		for _, deferred := range n.Deferred {
			out = append(out, indent(indent(withComma(deferred.lines())))...)
		}
		return append(out, indentation+"]", "}")
	}
	return []string{string(n.Kind) + " {", "}"}
}

func (f *Fetch) lines() []string {
	out := []string{fmt.Sprintf("Fetch(service: %q) {", f.ServiceName)}
	if f.Requires != "" {
		requires := strings.Split(f.Requires, "\n")
		requires[len(requires)-1] += " =>"
		out = append(out, indent(requires)...)
	}
	out = append(out, indent(strings.Split(f.Operation, "\n"))...)
	return append(out, "}")
}

func (d *Deferred) lines() []string {
	head := fmt.Sprintf("Deferred(depends: [], path: %q", PathString(d.Path))
	if d.Label != "" {
		head += fmt.Sprintf(", label: %q", d.Label)
	}
	out := []string{head + ") {"}
	if d.Node != nil {
		out = append(out, indent(withComma(d.Node.lines()))...)
	}
	return append(out, "}")
}

func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if line == "" {
			continue
		}
		out[i] = indentation + line
	}
	return out
}

func withComma(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	lines[len(lines)-1] += ","
	return lines
}
