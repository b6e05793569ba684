package dal

import "fmt"

// Error codes surfaced to HTTP callers.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeConfiguration    = "CONFIGURATION_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUpstreamTimeout  = "UPSTREAM_TIMEOUT"
)

// internalErrorMessage is the only message clients ever see for backend and
// configuration failures. Full detail goes to the server log, never over the
// wire.
const internalErrorMessage = "An internal server error occurred."

// Error is the dispatch-boundary error: an HTTP status, a machine-readable
// code, and a client-safe message. The wrapped cause is for logs only.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func badRequest(msg string) *Error {
	return &Error{Status: 400, Code: CodeBadRequest, Message: msg}
}

func configuration(err error) *Error {
	return &Error{Status: 500, Code: CodeConfiguration, Message: internalErrorMessage, Err: err}
}

func internal(err error) *Error {
	return &Error{Status: 500, Code: CodeInternal, Message: internalErrorMessage, Err: err}
}

func upstreamTimeout(err error) *Error {
	return &Error{Status: 504, Code: CodeUpstreamTimeout, Message: "The document database did not respond in time.", Err: err}
}
