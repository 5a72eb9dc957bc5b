// Package assert provides the small set of test assertions used across the
// module. Every assertion stops the test on failure.
package assert

import (
	stderrors "errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// Tester is the subset of testing.TB the assertions need.
type Tester interface {
	Helper()
	Fatal(...interface{})
	Fatalf(string, ...interface{})
}

// Nil fails the test if given value is not nil. Errors are printed with %+v
// so that a stack trace is shown when available.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if !isNil(value) {
		t.Fatalf("want a nil value, got %+v", value)
	}
}

func isNil(value interface{}) (isnil bool) {
	if value == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			isnil = false
		}
	}()
	// Only chan, func, interface, map, pointer and slice values can be
	// nil, IsNil panics for anything else.
	return reflect.ValueOf(value).IsNil()
}

// Equal fails the test if two values are not equal. A value providing an
// Equals method taking the other value, like an amount does, is compared
// using that method. Anything else is compared using reflect.DeepEqual.
func Equal(t Tester, want, got interface{}) {
	t.Helper()
	if !equal(want, got) {
		t.Fatalf("values not equal\nwant %T %v\n got %T %v", want, want, got, got)
	}
}

func equal(want, got interface{}) bool {
	if want == nil || got == nil {
		return reflect.DeepEqual(want, got)
	}
	wv, gv := reflect.ValueOf(want), reflect.ValueOf(got)
	if wv.Type() == gv.Type() {
		m := wv.MethodByName("Equals")
		if m.IsValid() && m.Type().NumIn() == 1 && m.Type().In(0) == gv.Type() &&
			m.Type().NumOut() == 1 && m.Type().Out(0).Kind() == reflect.Bool {
			return m.Call([]reflect.Value{gv})[0].Bool()
		}
	}
	return reflect.DeepEqual(want, got)
}

// Contains fails the test if s does not contain substr.
func Contains(t Tester, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("%q not found in\n%s", substr, s)
	}
}

// Panics runs given function and fails the test if it did not panic.
func Panics(t Tester, fn func()) {
	t.Helper()
	if !panics(fn) {
		t.Fatal("panic expected")
	}
}

func panics(fn func()) (panicked bool) {
	defer func() {
		panicked = recover() != nil
	}()
	fn()
	return false
}

// IsErr fails the test unless got is of the kind of want. A kind providing
// an Is method, as registered errors do, decides about the match itself.
// Other errors are matched by unwrapping got.
func IsErr(t Tester, want, got error) {
	t.Helper()
	if want == got {
		return
	}
	type kind interface {
		Is(error) bool
	}
	if k, ok := want.(kind); ok {
		if k.Is(got) {
			return
		}
	} else if want != nil && stderrors.Is(got, want) {
		return
	}
	t.Fatalf("want %q, got %+v", want, got)
}

// Eventually polls cond until it returns true and fails the test if that
// does not happen within timeout.
func Eventually(t Tester, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var _ Tester = (testing.TB)(nil)
