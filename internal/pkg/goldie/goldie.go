// Package goldie wraps sebdah/goldie with the fixture layout used by the repository tests:
// golden files live in the testdata directory of the package under test.
package goldie

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

func New(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
		goldie.WithDiffEngine(goldie.ClassicDiff),
	)
}

// Assert compares actual with testdata/<name>.golden. Golden files are checked out
// with LF line endings, so CRLF in actual is normalized first.
func Assert(t *testing.T, name string, actual []byte) {
	t.Helper()

	New(t).Assert(t, name, bytes.ReplaceAll(actual, []byte("\r\n"), []byte("\n")))
}
