package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInput is returned when a user provided value cannot be used, for
	// example a malformed funding line or a missing flag.
	ErrInput = Register(2, "invalid input")

	// ErrEmpty is returned when a value fails a not empty assertion.
	ErrEmpty = Register(3, "value is empty")

	// ErrNotFound is used when a requested resource does not exist.
	ErrNotFound = Register(4, "not found")

	// ErrInvalidAmount stands for an amount that cannot be represented or
	// parsed.
	ErrInvalidAmount = Register(5, "invalid amount")

	// ErrOverflow is returned when a computation cannot be completed
	// because the result value exceeds the type.
	ErrOverflow = Register(6, "an operation cannot be completed due to value overflow")

	// ErrInsufficientAmount is returned when the funding account balance
	// cannot cover a transfer.
	ErrInsufficientAmount = Register(7, "insufficient amount")

	// ErrNetwork is returned when a remote node cannot be reached or
	// returned a transport level failure.
	ErrNetwork = Register(8, "network")

	// ErrRejected is returned when the network refused a transaction or
	// the transaction failed on chain.
	ErrRejected = Register(9, "rejected")

	// ErrSigning is returned when a transaction cannot be signed. This is
	// always a configuration problem.
	ErrSigning = Register(10, "signing")

	// ErrState is returned when an object is in an invalid state.
	ErrState = Register(11, "invalid state")

	// ErrTimeout is returned when an operation did not complete within the
	// allowed time.
	ErrTimeout = Register(12, "timeout")

	// ErrPanic is only set when we recover from a panic.
	ErrPanic = Register(111222, "panic")
)

// Register returns an error instance that should be used as the base for
// creating error instances during runtime.
//
// Popular root errors are declared in this package, but other packages may
// want to declare custom codes. This function ensures that no error code is
// used twice. Attempt to reuse an error code results in panic.
//
// Use this function only during a program startup phase.
func Register(code uint32, description string) *Error {
	if e, ok := usedCodes[code]; ok {
		panic(fmt.Sprintf("error with code %d is already registered: %q", code, e.desc))
	}
	err := &Error{
		code: code,
		desc: description,
	}
	usedCodes[err.code] = err
	return err
}

// usedCodes is keeping track of used codes to ensure their uniqueness. No two
// error instances should share the same error code.
var usedCodes = map[uint32]*Error{
	1: nil, // Error code 1 is restricted for non-fundtool errors and must not be used.
}

// Error represents a root error.
//
// Root errors categorize issues. Each instance created during the runtime
// should wrap one of the declared root errors.
type Error struct {
	code uint32
	desc string
}

func (e Error) Error() string {
	return e.desc
}

// Code returns the unique code of this root error.
func (e Error) Code() uint32 {
	return e.code
}

// New returns a new error. Returned instance is having the root cause set to
// this error. Below two lines are equal
//   e.New("my description")
//   Wrap(e, "my description")
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

// Newf is basically New with formatting capabilities.
func (e *Error) Newf(description string, args ...interface{}) error {
	return e.New(fmt.Sprintf(description, args...))
}

// Is check if given error instance is of a given kind/type. This involves
// unwrapping given error using the Cause method if available.
func (kind *Error) Is(err error) bool {
	// A nil kind matches nil and any nil implementation of an error.
	if kind == nil {
		return isNilErr(err)
	}

	for {
		if err == kind {
			return true
		}

		// A multi error is matching if any of its children is.
		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				if kind.Is(e) {
					return true
				}
			}
		}

		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return false
		}
	}
}

// Wrap extends given error with an additional information.
//
// If err is nil, this returns nil, avoiding the need for an if statement when
// wrapping a error returned at the end of a function
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}

	// If this error does not carry the stacktrace information yet, attach
	// one. This should be done only once per error at the lowest frame
	// possible (most inner wrap).
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}

	return &wrappedError{
		parent: err,
		msg:    description,
	}
}

// Wrapf extends given error with an additional information.
//
// This function works like Wrap function with additional funtionality of
// formatting the input as specified.
func Wrapf(err error, format string, args ...interface{}) error {
	desc := fmt.Sprintf(format, args...)
	return Wrap(err, desc)
}

type wrappedError struct {
	// This error layer description.
	msg string
	// The underlying error that triggered this one.
	parent error
}

func (e *wrappedError) Error() string {
	return fmt.Sprintf("%s: %s", e.msg, e.parent.Error())
}

func (e *wrappedError) Cause() error {
	return e.parent
}

// Unwrap allows the standard library errors.Is and errors.As to see through
// this error.
func (e *wrappedError) Unwrap() error {
	return e.parent
}

// Recover captures a panic and stop its propagation. If panic happens it is
// transformed into a ErrPanic instance and assigned to given error. Call this
// function using defer in order to work as expected.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

// Cause returns the innermost error of the wrapping chain.
func Cause(err error) error {
	return errors.Cause(err)
}

// causer is an interface implemented by an error that supports wrapping. Use
// it to test if an error wraps another error instance.
type causer interface {
	Cause() error
}

// unpacker is implemented by errors that club together several errors.
type unpacker interface {
	Unpack() []error
}
