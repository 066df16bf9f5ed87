// Package reactor
// Author: momentics <momentics@gmail.com>
//
// A single-threaded epoll reactor: one readiness multiplexer, one
// monotonic timerfd, a min-heap ordered timer set, and a deferred-task
// queue drained at the tail of every poll cycle. Generalizes the
// teacher's epoll wrapper (_examples/momentics-hioload-ws/reactor/epoll_reactor.go)
// from a generic FDCallback registry into the tagged dispatch-record model
// of _examples/original_source/include/atu_reactor/EventLoop.h, and fixes
// that source's repeat-timer drift by rearming on the previous expiration
// rather than on the callback's completion time.
package reactor
