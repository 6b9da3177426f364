package netcmd

import (
	"errors"
	"fmt"
)

// Protocol error sentinels. Use errors.Is against these; the concrete error
// returned by the codec is a *ProtocolError carrying the offset.
var (
	ErrMalformedPacket       = errors.New("netcmd: malformed packet")
	ErrUnknownCommandType    = errors.New("netcmd: unknown command type")
	ErrPreconditionViolation = errors.New("netcmd: precondition violation")
)

// ErrorCode classifies a protocol error.
type ErrorCode uint8

const (
	CodeMalformedPacket ErrorCode = iota + 1
	CodeUnknownCommandType
	CodePreconditionViolation
)

func (ec ErrorCode) String() string {
	switch ec {
	case CodeMalformedPacket:
		return "MalformedPacket"
	case CodeUnknownCommandType:
		return "UnknownCommandType"
	case CodePreconditionViolation:
		return "PreconditionViolation"
	default:
		return "Unknown"
	}
}

func (ec ErrorCode) sentinel() error {
	switch ec {
	case CodeMalformedPacket:
		return ErrMalformedPacket
	case CodeUnknownCommandType:
		return ErrUnknownCommandType
	case CodePreconditionViolation:
		return ErrPreconditionViolation
	default:
		return nil
	}
}

// ProtocolError reports where and why decoding (or chunking) failed.
type ProtocolError struct {
	Code   ErrorCode
	Offset int    // byte offset into the packet, -1 when not applicable
	Detail string // human-readable context
	Err    error  // underlying cause, may be nil
}

func (e *ProtocolError) Error() string {
	msg := e.Code.String()
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s at offset %d", msg, e.Offset)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "netcmd: " + msg
}

// Is matches the sentinel for e.Code.
func (e *ProtocolError) Is(target error) bool {
	return target != nil && target == e.Code.sentinel()
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Malformed builds a CodeMalformedPacket error.
func Malformed(offset int, cause error, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		Code:   CodeMalformedPacket,
		Offset: offset,
		Detail: fmt.Sprintf(format, args...),
		Err:    cause,
	}
}

// UnknownType builds a CodeUnknownCommandType error for the raw type byte.
func UnknownType(offset int, raw uint8) *ProtocolError {
	return &ProtocolError{
		Code:   CodeUnknownCommandType,
		Offset: offset,
		Detail: fmt.Sprintf("type byte %d", raw),
	}
}

// Precondition builds a CodePreconditionViolation error.
func Precondition(format string, args ...any) *ProtocolError {
	return &ProtocolError{
		Code:   CodePreconditionViolation,
		Offset: -1,
		Detail: fmt.Sprintf(format, args...),
	}
}
