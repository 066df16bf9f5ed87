// File: api/result.go
// Author: momentics@gmail.com
//
// Result[T] is the Go analogue of the original atu_reactor::Result<T>
// (_examples/original_source/include/atu_reactor/Result.h), which wraps
// either a value or a std::error_code to avoid exceptions on the hot path.
// Go already has a native two-value idiom for this (T, error), which is
// what every exported reactor/live/replay function uses; Result[T] exists
// for call sites that need to pass a pending outcome around as a single
// value (e.g. a channel of results), mirroring control.MetricsRegistry's
// use of typed snapshots elsewhere in this module's ambient stack.
package api

// Result wraps either a value or an error, never both meaningfully.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the result carries a usable value.
func (r Result[T]) Ok() bool { return r.Err == nil }
