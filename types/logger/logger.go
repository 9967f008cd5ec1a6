// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package logger defines a type for writing to logs. It's just a
// convenience type so that we don't have to pass verbose func(...)
// types around.
package logger

// Logf is a printf-like logging func. Like log.Printf, the format
// need not end in a newline. Logf functions must be safe for
// concurrent use.
type Logf func(format string, args ...any)

// Discard is a Logf that throws away the logs given to it.
func Discard(string, ...any) {}

// WithPrefix wraps f, prefixing each format with the provided prefix.
func WithPrefix(f Logf, prefix string) Logf {
	return func(format string, args ...any) {
		f(prefix+format, args...)
	}
}
