package assert

import (
	"fmt"
	"testing"
	"time"

	"github.com/iov-one/fundtool/errors"
)

func TestIsErr(t *testing.T) {
	plain := fmt.Errorf("plain")

	cases := map[string]struct {
		want     error
		got      error
		wantFail bool
	}{
		"same error": {
			want: errors.ErrEmpty,
			got:  errors.ErrEmpty,
		},
		"compared to nil": {
			want:     nil,
			got:      errors.ErrEmpty,
			wantFail: true,
		},
		"both nil": {
			want: nil,
			got:  nil,
		},
		"wrapped": {
			want: errors.ErrEmpty,
			got:  errors.Wrap(errors.ErrEmpty, "test"),
		},
		"different root": {
			want:     errors.ErrNetwork,
			got:      errors.Wrap(errors.ErrEmpty, "test"),
			wantFail: true,
		},
		"standard error wrapped with fmt": {
			want: plain,
			got:  fmt.Errorf("context: %w", plain),
		},
		"standard error not matching": {
			want:     plain,
			got:      fmt.Errorf("plain"),
			wantFail: true,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			mock := &tmock{TB: t}
			IsErr(mock, tc.want, tc.got)
			if failed := mock.failcalls > 0; tc.wantFail != failed {
				t.Fatalf("unexpected failed call state: %d failures", mock.failcalls)
			}
		})
	}
}

func TestNil(t *testing.T) {
	var nilSlice []int
	mock := &tmock{TB: t}
	Nil(mock, nil)
	Nil(mock, nilSlice)
	if mock.failcalls != 0 {
		t.Fatalf("want no failures, got %d", mock.failcalls)
	}
	Nil(mock, 4)
	Nil(mock, errors.ErrState)
	if mock.failcalls != 2 {
		t.Fatalf("want 2 failures, got %d", mock.failcalls)
	}
}

// wei mimics a value type compared with an Equals method.
type wei struct {
	n    uint64
	unit string
}

func (w wei) Equals(o wei) bool { return w.n == o.n }

func TestEqual(t *testing.T) {
	mock := &tmock{TB: t}
	Equal(mock, []uint64{1, 2}, []uint64{1, 2})
	Equal(mock, wei{n: 1, unit: "wei"}, wei{n: 1})
	if mock.failcalls != 0 {
		t.Fatalf("want no failures, got %d", mock.failcalls)
	}
	Equal(mock, wei{n: 1}, wei{n: 2})
	Equal(mock, uint64(1), 1)
	if mock.failcalls != 2 {
		t.Fatalf("want 2 failures, got %d", mock.failcalls)
	}
}

func TestPanicsAndContains(t *testing.T) {
	mock := &tmock{TB: t}
	Panics(mock, func() { panic("boom") })
	Contains(mock, "transactions: 3", "transactions")
	if mock.failcalls != 0 {
		t.Fatalf("want no failures, got %d", mock.failcalls)
	}
	Panics(mock, func() {})
	Contains(mock, "transactions: 3", "transfers")
	if mock.failcalls != 2 {
		t.Fatalf("want 2 failures, got %d", mock.failcalls)
	}
}

func TestEventually(t *testing.T) {
	mock := &tmock{TB: t}
	n := 0
	Eventually(mock, time.Second, func() bool { n++; return n > 3 })
	if mock.failcalls != 0 {
		t.Fatalf("want no failures, got %d", mock.failcalls)
	}
	Eventually(mock, 20*time.Millisecond, func() bool { return false })
	if mock.failcalls != 1 {
		t.Fatalf("want 1 failure, got %d", mock.failcalls)
	}
}

// tmock mocks testing.TB and only counts failure calls.
type tmock struct {
	testing.TB
	failcalls int
}

func (t *tmock) Fatal(args ...interface{}) {
	t.TB.Log(args...)
	t.failcalls++
}

func (t *tmock) Fatalf(s string, args ...interface{}) {
	t.TB.Logf(s, args...)
	t.failcalls++
}
