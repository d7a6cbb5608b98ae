package errext

import "errors"

// Format extracts the error message to show the user and any extra fields
// the error carries (currently just "hint", if the error chain has a
// HasHint). If the error chain has an Exception, its stack trace is used as
// the message instead of the plain Error() text.
func Format(err error) (errorText string, fields map[string]interface{}) {
	if err == nil {
		return "", nil
	}

	errorText = err.Error()

	var xerr Exception
	if errors.As(err, &xerr) {
		errorText = xerr.StackTrace()
	}

	var herr HasHint
	if errors.As(err, &herr) {
		if fields == nil {
			fields = make(map[string]interface{}, 1)
		}
		fields["hint"] = herr.Hint()
	}

	return errorText, fields
}
