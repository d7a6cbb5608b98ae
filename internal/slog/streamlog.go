package slog

import (
	"encoding/json"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/aw32/hetsched/errext"
	"github.com/aw32/hetsched/errext/exitcodes"
)

// jsonStreamHook writes one JSON object per line to dest, stamping each
// record with a clock reading under timeField. Every field the caller
// attached via logrus.Fields is carried through unchanged.
type jsonStreamHook struct {
	dest      io.Writer
	timeField string
	clock     func() string
}

func (h *jsonStreamHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *jsonStreamHook) Fire(entry *logrus.Entry) error {
	record := make(map[string]interface{}, len(entry.Data)+2)
	for k, v := range entry.Data {
		record[k] = v
	}
	record[h.timeField] = h.clock()
	record["msg"] = entry.Message

	line, err := json.Marshal(record)
	if err != nil {
		// A field that cannot be serialized (e.g. a channel) is dropped
		// rather than losing the whole record.
		for k, v := range entry.Data {
			if _, marshalErr := json.Marshal(v); marshalErr != nil {
				delete(record, k)
			}
		}
		line, err = json.Marshal(record)
		if err != nil {
			return err
		}
	}
	line = append(line, '\n')
	_, err = h.dest.Write(line)
	return err
}

func openStream(fs afero.Fs, path string) (afero.File, error) {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, "opening log stream "+path),
			exitcodes.InvalidConfig)
	}
	return f, nil
}

func newStreamLog(fs afero.Fs, path, timeField string, clock func() string) (*logrus.Logger, io.Closer, error) {
	f, err := openStream(fs, path)
	if err != nil {
		return nil, nil, err
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.TraceLevel)
	logger.AddHook(&jsonStreamHook{dest: f, timeField: timeField, clock: clock})
	return logger, f, nil
}

// NewEventLog builds the scheduler eventlog stream: one JSON object per
// line, each stamped with "time":"<s.ns>" from clock.
func NewEventLog(fs afero.Fs, path string, clock func() string) (*logrus.Logger, io.Closer, error) {
	return newStreamLog(fs, path, "time", clock)
}

// NewSimLog builds the simulated-time simlog stream: one JSON object per
// line, each stamped with "walltime":"<s.ns>" from clock.
func NewSimLog(fs afero.Fs, path string, clock func() string) (*logrus.Logger, io.Closer, error) {
	return newStreamLog(fs, path, "walltime", clock)
}
