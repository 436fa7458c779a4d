// Package errcode defines the coded error shared by the board subsystems.
//
// Every failure that crosses a package boundary carries a Code so callers can
// map it to an HTTP status or a process exit status without string matching.
// The negative errno returned by Errno mirrors what a character device would
// hand back to a caller for the same condition.
package errcode

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Code identifies a class of board failure.
type Code string

// Error codes.
const (
	LineUnavailable    Code = "LINE_UNAVAILABLE"
	IRQMapping         Code = "IRQ_MAPPING_FAILED"
	DeviceRegistration Code = "DEVICE_REGISTRATION_FAILED"
	Fault              Code = "FAULT"
	InvalidMode        Code = "INVALID_MODE"
	NotSupported       Code = "NOT_SUPPORTED"
	QueueFull          Code = "QUEUE_FULL"
	Closed             Code = "CLOSED"
	Hardware           Code = "HARDWARE"
)

// Error is a board error with a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a coded error.
func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Of returns the code of the outermost coded error in err's chain,
// or the empty code if there is none.
func Of(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Errno maps err to a negative errno value. Nil maps to 0 and errors
// without a code map to -EIO.
func Errno(err error) int {
	if err == nil {
		return 0
	}
	switch Of(err) {
	case LineUnavailable:
		return -int(unix.EBUSY)
	case IRQMapping:
		return -int(unix.ENXIO)
	case DeviceRegistration:
		return -int(unix.ENODEV)
	case Fault:
		return -int(unix.EFAULT)
	case InvalidMode:
		return -int(unix.EINVAL)
	case NotSupported:
		return -int(unix.EOPNOTSUPP)
	case QueueFull:
		return -int(unix.EAGAIN)
	case Closed:
		return -int(unix.ESHUTDOWN)
	default:
		return -int(unix.EIO)
	}
}
