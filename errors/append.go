package errors

import (
	"reflect"
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If no non-nil error is given, nil is returned. A single non-nil error is
// returned as it is.
func Append(errs ...error) error {
	var flat []error
	for _, err := range errs {
		if isNilErr(err) {
			continue
		}
		if m, ok := err.(*multiErr); ok {
			flat = append(flat, m.errs...)
			continue
		}
		flat = append(flat, err)
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &multiErr{errs: flat}
}

// multiErr is an error that consists of several errors. It does not provide
// a stack trace of its own, each child carries one.
type multiErr struct {
	errs []error
}

func (m *multiErr) Error() string {
	msgs := make([]string, len(m.errs))
	for i, e := range m.errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unpack returns all the errors this error is made of.
func (m *multiErr) Unpack() []error {
	return m.errs
}

var _ unpacker = (*multiErr)(nil)

func isNilErr(err error) bool {
	// Reflect usage is necessary to correctly compare with a wrapped nil
	// error instance.
	if err == nil {
		return true
	}
	val := reflect.ValueOf(err)
	return (val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface) && val.IsNil()
}
