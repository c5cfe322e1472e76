package port

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrorCode identifies well-known error categories raised by the port graph.
type ErrorCode string

const (
	ErrCodeBusy          ErrorCode = "PORT_BUSY"
	ErrCodeScopeMismatch ErrorCode = "SCOPE_MISMATCH"
	ErrCodeNotConnected  ErrorCode = "NOT_CONNECTED"
	ErrCodeLocked        ErrorCode = "PORT_LOCKED"
	ErrCodeForeignPort   ErrorCode = "FOREIGN_PORT"
	ErrCodeDuplicate     ErrorCode = "DUPLICATE_NAME"
	ErrCodeInvalidName   ErrorCode = "INVALID_NAME"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeNoData        ErrorCode = "NO_DATA"
	ErrCodeWrongType     ErrorCode = "WRONG_TYPE"
	ErrCodeExtension     ErrorCode = "EXTENSION_FAILED"
)

// ErrPortLocked is matched by errors.Is for any operation rejected because a
// port is locked by a repair in progress.
var ErrPortLocked = errors.New("port is locked")

// ConnectionError reports a structural failure on a port operation other than
// a busy connection (see CannotConnectError).
type ConnectionError struct {
	Code    ErrorCode
	Port    string
	Message string
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Port != "" {
		msg = fmt.Sprintf("%s: port %s: %s", e.Code, e.Port, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the wrapped cause.
func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches other ConnectionErrors by code.
func (e *ConnectionError) Is(target error) bool {
	var other *ConnectionError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func newConnectionError(code ErrorCode, p Port, format string, args ...any) *ConnectionError {
	spec := ""
	if p != nil {
		spec = p.Spec()
	}
	return &ConnectionError{Code: code, Port: spec, Message: fmt.Sprintf(format, args...)}
}

func lockedError(p Port) *ConnectionError {
	err := newConnectionError(ErrCodeLocked, p, "port is locked by an operation in progress")
	err.Cause = ErrPortLocked
	return err
}

// BusyKind distinguishes which side of an attempted connection was occupied.
// Each kind implies a different repair action.
type BusyKind int

const (
	// SourceBusy means the output port already delivers to another input.
	SourceBusy BusyKind = iota + 1
	// DestinationBusy means the input port already receives from another output.
	DestinationBusy
	// BothBusy means both sides are already connected elsewhere.
	BothBusy
)

func (k BusyKind) String() string {
	switch k {
	case SourceBusy:
		return "source busy"
	case DestinationBusy:
		return "destination busy"
	case BothBusy:
		return "both busy"
	default:
		return "unknown"
	}
}

// CannotConnectError is returned when a connection is refused because one or
// both ports are already connected. It never reflects a state change: the
// check runs before any mutation. It carries enough context to drive a guided
// repair (see Repair).
type CannotConnectError struct {
	Kind                BusyKind
	Source              *OutputPort
	Destination         *InputPort
	PreviousDestination *InputPort
	PreviousSource      *OutputPort
}

func (e *CannotConnectError) Error() string {
	if e == nil {
		return "<nil>"
	}
	src, dst := e.Source.Spec(), e.Destination.Spec()
	switch e.Kind {
	case SourceBusy:
		return fmt.Sprintf("cannot connect %s to %s: %s is already connected to %s", src, dst, src, e.PreviousDestination.Spec())
	case DestinationBusy:
		return fmt.Sprintf("cannot connect %s to %s: %s is already connected to %s", src, dst, dst, e.PreviousSource.Spec())
	default:
		return fmt.Sprintf("cannot connect %s to %s: %s is already connected to %s and %s is already connected to %s",
			src, dst, src, e.PreviousDestination.Spec(), dst, e.PreviousSource.Spec())
	}
}

// Code maps the error onto the shared taxonomy.
func (e *CannotConnectError) Code() ErrorCode {
	return ErrCodeBusy
}

// HasRepairOptions reports whether a guided repair can resolve the conflict.
func (e *CannotConnectError) HasRepairOptions() bool {
	return e != nil && e.Source != nil && e.Destination != nil
}

// SourceWasBusy reports whether the repair would disconnect the output side,
// which makes a fan-out insertion meaningful.
func (e *CannotConnectError) SourceWasBusy() bool {
	return e != nil && e.PreviousDestination != nil
}

// PortUserError is raised by typed data access when no payload is present or
// when the payload cannot be bridged to the requested type.
type PortUserError struct {
	Code     ErrorCode
	Port     string
	Expected string
	Actual   string
	Cause    error
}

func (e *PortUserError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Code {
	case ErrCodeNoData:
		return fmt.Sprintf("no data delivered at port %s (expected %s)", e.Port, e.Expected)
	default:
		msg := fmt.Sprintf("port %s delivered %s but %s was expected", e.Port, e.Actual, e.Expected)
		if e.Cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, e.Cause)
		}
		return msg
	}
}

// Unwrap exposes the conversion failure, if any.
func (e *PortUserError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
