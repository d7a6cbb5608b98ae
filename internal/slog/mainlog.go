package slog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/aw32/hetsched/errext"
	"github.com/aw32/hetsched/errext/exitcodes"
)

// priorityHook writes formatted entries to dest, but only those at or above
// threshold on the eight-level priority scale (as opposed to logrus's own
// six-level filtering, which can't tell CRIT from ERROR or EMERG from
// FATAL).
type priorityHook struct {
	threshold Priority
	dest      io.Writer
	formatter logrus.Formatter
}

func (h *priorityHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *priorityHook) Fire(entry *logrus.Entry) error {
	if priorityOf(entry) < h.threshold {
		return nil
	}
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.dest.Write(line)
	return err
}

// nopCloser wraps a writer that must not be closed, such as os.Stdout or a
// fixed in-memory buffer used by tests.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// NewMainLog builds the mainlog stream: free text at the given threshold
// priority, written to target ("stdout" or a filesystem path). The returned
// io.Closer must be closed by the caller on shutdown; it is a no-op for the
// stdout target.
func NewMainLog(fs afero.Fs, stdout io.Writer, target string, threshold Priority) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.TraceLevel)

	var dest io.WriteCloser
	if target == "" || target == "stdout" {
		dest = nopCloser{stdout}
	} else {
		f, err := fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errext.WithExitCodeIfNone(
				errext.WithHint(err, "opening mainlog target "+target),
				exitcodes.InvalidConfig)
		}
		dest = f
	}

	logger.AddHook(&priorityHook{
		threshold: threshold,
		dest:      dest,
		formatter: &logrus.TextFormatter{FullTimestamp: true},
	})

	return logger, dest, nil
}
