package slog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventLogStampsTimeField(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger, closer, err := NewEventLog(fs, "/var/log/events.jsonl", func() string { return "12.345" })
	require.NoError(t, err)

	Event(logger, EventSchedulerStart, logrus.Fields{"resources": 3})
	require.NoError(t, closer.Close())

	contents, err := afero.ReadFile(fs, "/var/log/events.jsonl")
	require.NoError(t, err)

	line := strings.TrimSpace(string(contents))
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "12.345", record["time"])
	assert.Equal(t, EventSchedulerStart, record["kind"])
	assert.Equal(t, float64(3), record["resources"])
}

func TestNewSimLogStampsWalltimeField(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger, closer, err := NewSimLog(fs, "/var/log/sim.jsonl", func() string { return "1.0" })
	require.NoError(t, err)

	Event(logger, EventResources, nil)
	require.NoError(t, closer.Close())

	contents, err := afero.ReadFile(fs, "/var/log/sim.jsonl")
	require.NoError(t, err)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(contents))), &record))
	assert.Equal(t, "1.0", record["walltime"])
	assert.NotContains(t, record, "time")
}
