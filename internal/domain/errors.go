package domain

import "fmt"

// RemoteError means the backend rejected a request or returned a body we
// could not make sense of. The message is surfaced to the user verbatim.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// TransportError wraps a media transport failure (connect or disconnect).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PreconditionError means a local guard refused the action before any
// network traffic: missing credentials, no active session, or a duplicate
// in-flight invocation.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }
