// Package slog wires up the three logging streams the scheduler daemon
// writes to: a free-text mainlog, and two JSON-per-line streams (eventlog,
// simlog) recording scheduler and simulated-time events respectively.
//
// All three are built on logrus, following the teacher's log package: a
// hook is selected and configured from a short config-line string, and
// attached to a plain *logrus.Logger. logrus only ships six native levels,
// so the two extra severities the priority scale needs (NOTICE, CRIT) are
// bridged by tagging the log entry with a "priority" field and filtering on
// that field rather than on the entry's native level alone.
package slog

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Priority is the eight-level severity scale mainlog is filtered by,
// ordered least to most severe.
type Priority int

const (
	DEBUG Priority = iota
	NOTICE
	WARN
	ERROR
	CRIT
	ALERT
	FATAL
	EMERG
)

var priorityNames = [...]string{
	DEBUG:  "DEBUG",
	NOTICE: "NOTICE",
	WARN:   "WARN",
	ERROR:  "ERROR",
	CRIT:   "CRIT",
	ALERT:  "ALERT",
	FATAL:  "FATAL",
	EMERG:  "EMERG",
}

func (p Priority) String() string {
	if p < DEBUG || p > EMERG {
		return "UNKNOWN"
	}
	return priorityNames[p]
}

// ParsePriority parses one of the eight priority names, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == up {
			return Priority(p), nil
		}
	}
	return 0, fmt.Errorf("unknown log priority %q", s)
}

// logrusLevel returns the native logrus level an entry at priority p is
// logged at. Several priorities share a native level; the priority field
// tagged onto the entry (see Log) disambiguates them for filtering.
func (p Priority) logrusLevel() logrus.Level {
	switch p {
	case DEBUG:
		return logrus.DebugLevel
	case NOTICE:
		return logrus.InfoLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR, CRIT:
		return logrus.ErrorLevel
	case ALERT:
		return logrus.FatalLevel
	case FATAL, EMERG:
		return logrus.PanicLevel
	default:
		return logrus.ErrorLevel
	}
}

// Log writes msg to logger at priority p, tagging the entry with its
// priority name so a priorityHook can filter on the full eight-level scale.
func Log(logger *logrus.Logger, p Priority, msg string, fields logrus.Fields) {
	entry := logger.WithField("priority", p.String())
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Log(p.logrusLevel(), msg)
}

// priorityOf recovers the Priority an entry was logged at from its tagged
// field, falling back to a level-derived guess for entries logged directly
// through logrus (e.g. by library code that never calls Log).
func priorityOf(entry *logrus.Entry) Priority {
	if raw, ok := entry.Data["priority"]; ok {
		if s, ok := raw.(string); ok {
			if p, err := ParsePriority(s); err == nil {
				return p
			}
		}
	}
	switch entry.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return DEBUG
	case logrus.InfoLevel:
		return NOTICE
	case logrus.WarnLevel:
		return WARN
	case logrus.ErrorLevel:
		return ERROR
	case logrus.FatalLevel:
		return ALERT
	case logrus.PanicLevel:
		return EMERG
	default:
		return ERROR
	}
}
