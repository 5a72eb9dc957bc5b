package fundtool_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iov-one/fundtool"
)

func TestVersion(t *testing.T) {
	defer func(c string) { fundtool.GitCommit = c }(fundtool.GitCommit)

	fundtool.GitCommit = "12345678"
	assert.Equal(t, "v0.1.0-dev 12345678", fundtool.Version())

	// Test binaries carry no VCS revision.
	fundtool.GitCommit = ""
	assert.True(t, strings.HasPrefix(fundtool.Version(), "v0.1.0-dev"))
}
