package analyzer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/wundergraph/qp-analyzer/pkg/overrides"
	"github.com/wundergraph/qp-analyzer/pkg/queryplan"
)

// Observer is notified about the progress of BuildAllPlans.
type Observer interface {
	CombinationStarted(index int, combination overrides.Combination)
	CombinationPlanned(index int, combination overrides.Combination, plan *queryplan.QueryPlan)
}

type noopObserver struct{}

func (noopObserver) CombinationStarted(int, overrides.Combination) {}

func (noopObserver) CombinationPlanned(int, overrides.Combination, *queryplan.QueryPlan) {}

type multiObserver []Observer

func (m multiObserver) CombinationStarted(index int, combination overrides.Combination) {
	for _, observer := range m {
		if observer != nil {
			observer.CombinationStarted(index, combination)
		}
	}
}

func (m multiObserver) CombinationPlanned(index int, combination overrides.Combination, plan *queryplan.QueryPlan) {
	for _, observer := range m {
		if observer != nil {
			observer.CombinationPlanned(index, combination, plan)
		}
	}
}

var rule = strings.Repeat("-", 71)

// ConsoleObserver prints a banner before every combination and the plan after it:
//
//	-----------------------------------------------------------------------
//	Override Combination #1: ["percent(50)"]
//	-----------------------------------------------------------------------
//	QueryPlan {
//	  ...
//	}
type ConsoleObserver struct {
	w      io.Writer
	banner *color.Color
}

// NewConsoleObserver writes to w. Banners are colored only when w is stdout and
// stdout is a terminal.
func NewConsoleObserver(w io.Writer) *ConsoleObserver {
	banner := color.New(color.FgCyan, color.Bold)
	if w != os.Stdout {
		banner.DisableColor()
	}
	return &ConsoleObserver{
		w:      w,
		banner: banner,
	}
}

func (c *ConsoleObserver) CombinationStarted(index int, combination overrides.Combination) {
	fmt.Fprintln(c.w, rule)
	c.banner.Fprintf(c.w, "Override Combination #%d: %s", index, combination)
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, rule)
}

func (c *ConsoleObserver) CombinationPlanned(_ int, _ overrides.Combination, plan *queryplan.QueryPlan) {
	fmt.Fprintf(c.w, "%s\n\n", plan)
}
