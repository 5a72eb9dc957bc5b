package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// env returns the value of an environment variable if provided (even if empty)
// or a fallback value.
func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

// envInt works like env but for integer values. An invalid value terminates
// the process.
func envInt(name string, fallback int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot parse %s environment variable. %s\n", name, err)
		os.Exit(2)
	}
	return n
}

// envUint64 works like env but for unsigned integer values. An invalid value
// terminates the process.
func envUint64(name string, fallback uint64) uint64 {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot parse %s environment variable. %s\n", name, err)
		os.Exit(2)
	}
	return n
}

// envBool works like env but for boolean values. An invalid value terminates
// the process.
func envBool(name string, fallback bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot parse %s environment variable. %s\n", name, err)
		os.Exit(2)
	}
	return b
}

// envDuration works like env but for duration values. An invalid value
// terminates the process.
func envDuration(name string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot parse %s environment variable. %s\n", name, err)
		os.Exit(2)
	}
	return d
}
