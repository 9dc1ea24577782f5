package registry

import "fmt"

// RemoteCallError is the only failure the registry client returns. Error()
// is the human-readable message exactly as the gateway or transport
// reported it, so callers can show it to the user unchanged.
type RemoteCallError struct {
	Method  string
	Code    int
	Message string
	cause   error
}

func (e *RemoteCallError) Error() string {
	return e.Message
}

func (e *RemoteCallError) Unwrap() error {
	return e.cause
}

func remoteError(method string, code int, message string, cause error) *RemoteCallError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	if message == "" {
		message = fmt.Sprintf("%s failed", method)
	}
	return &RemoteCallError{Method: method, Code: code, Message: message, cause: cause}
}
