package main

import (
	"os"

	"github.com/wundergraph/qp-analyzer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
