package postgres

import (
	"go/build"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Every driver source file must compile on the host platform; a stray
// GOOS or GOARCH suffix silently drops a file.
func TestSourcesNotPlatformConstrained(t *testing.T) {
	pkg, err := build.ImportDir(".", 0)
	require.NoError(t, err)
	for _, f := range pkg.IgnoredGoFiles {
		require.True(t, strings.HasSuffix(f, "_test.go"), "ignored source file %s", f)
	}
	require.Contains(t, pkg.GoFiles, "rate_window.go")
}
