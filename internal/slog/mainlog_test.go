package slog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMainLogFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := NewMainLog(afero.NewMemMapFs(), &buf, "stdout", WARN)
	require.NoError(t, err)
	defer closer.Close()

	Log(logger, DEBUG, "should not appear", nil)
	Log(logger, WARN, "should appear", nil)
	Log(logger, CRIT, "also appears", nil)

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
	assert.Contains(t, out, "also appears")
}

func TestNewMainLogWritesToFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger, closer, err := NewMainLog(fs, nil, "/var/log/sched.log", DEBUG)
	require.NoError(t, err)

	Log(logger, ERROR, "boom", nil)
	require.NoError(t, closer.Close())

	contents, err := afero.ReadFile(fs, "/var/log/sched.log")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(contents), "boom"))
}
