package slog

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event kinds written to eventlog / simlog.
const (
	EventSchedulerStart = "SCHEDULER_START"
	EventSchedulerStop  = "SCHEDULER_STOP"
	EventResources      = "RESOURCES"
	EventAlgorithmParam = "ALGORITHM_PARAM"
	EventWrapApp        = "WRAPAPP"
)

// NewCorrelationID returns a fresh id to stamp onto the SCHEDULER_START /
// ALGORITHM_PARAM pair of one compute() call, so concurrent mapper
// invocations can be told apart in the log stream.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Event writes one record of the given kind to logger, merging in fields.
func Event(logger *logrus.Logger, kind string, fields logrus.Fields) {
	entry := logger.WithField("kind", kind)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Info(kind)
}
