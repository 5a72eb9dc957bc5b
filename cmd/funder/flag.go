package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/iov-one/fundtool/amount"
)

// flAmount returns a value that is being initialized with given default value
// and optionally overwritten by a command line argument if provided. A value
// without a unit label is counted in given unit. This function follows Go's
// flag package convention.
// If given value cannot be deserialized to required type, process is
// terminated.
func flAmount(fl *flag.FlagSet, name, defaultVal string, unit amount.Unit, usage string) *amount.Amount {
	fa := flagamount{unit: unit}
	if defaultVal != "" {
		if err := fa.Set(defaultVal); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q amount flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(&fa, name, usage)
	return &fa.a
}

type flagamount struct {
	a    amount.Amount
	unit amount.Unit
}

func (f *flagamount) String() string {
	return f.a.InUnit(f.unit)
}

func (f *flagamount) Set(raw string) error {
	a, err := amount.ParseIn(raw, f.unit)
	if err != nil {
		return err
	}
	f.a = a
	return nil
}

// flOptUint64 returns a value that is not set unless a default value or a
// command line argument is provided. This function follows Go's flag package
// convention.
// If given value cannot be deserialized to required type, process is
// terminated.
func flOptUint64(fl *flag.FlagSet, name, defaultVal, usage string) *flagoptuint {
	var f flagoptuint
	if defaultVal != "" {
		if err := f.Set(defaultVal); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot parse %q flag value. %s", name, err)
			os.Exit(2)
		}
	}
	fl.Var(&f, name, usage)
	return &f
}

type flagoptuint struct {
	set bool
	n   uint64
}

func (f *flagoptuint) String() string {
	if f == nil || !f.set {
		return ""
	}
	return strconv.FormatUint(f.n, 10)
}

func (f *flagoptuint) Set(raw string) error {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return err
	}
	f.n = n
	f.set = true
	return nil
}

// Value returns the value and true if it was set.
func (f *flagoptuint) Value() (uint64, bool) {
	return f.n, f.set
}
