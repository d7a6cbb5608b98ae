package errext

import "github.com/sirupsen/logrus"

// Fprint logs the given error (and any hint it carries) as a single error
// entry on the supplied logger. It is a no-op for a nil error.
func Fprint(logger logrus.FieldLogger, err error) {
	if err == nil {
		return
	}
	errorText, fields := Format(err)
	logger.WithFields(fields).Error(errorText)
}
