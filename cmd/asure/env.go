package main

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOr returns the named environment variable, or fallback if it is unset.
func EnvOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

// EnvToInt parses the named environment variable as an int, reporting
// whether it was set and well-formed.
func EnvToInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CountCPUs returns the default worker count for a hashing pass.
func CountCPUs() int {
	return runtime.NumCPU()
}
