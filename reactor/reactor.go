// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Reactor multiplexes descriptor readiness and monotonic timers on a
// single goroutine, per _examples/original_source/include/atu_reactor/EventLoop.h,
// built on the teacher's epoll wrapper
// (_examples/momentics-hioload-ws/reactor/epoll_reactor.go).

package reactor

import (
	"log"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/atupone/AtuReactor/api"
	"github.com/atupone/AtuReactor/control"
	"github.com/atupone/AtuReactor/internal/fdutil"
)

// maxEvents bounds a single epoll_wait call, per spec.
const maxEvents = 128

// Reactor owns the epoll fd, the monotonic timerfd, the source table, the
// timer set, and the deferred-task queue. It is thread-hostile: every
// method must be called from the goroutine that constructed it.
type Reactor struct {
	guard fdutil.ThreadGuard

	epfd    fdutil.FD
	timerFD fdutil.FD

	sources map[int32]*dispatchRecord
	timers  *timerSet
	nextID  TimerID

	deferred *queue.Queue
	firing   *timerItem // the timer whose callback is currently executing, if any

	debug   *control.DebugProbes
	metrics *control.MetricsRegistry

	closed bool
}

// New creates a Reactor: an epoll instance plus a CLOCK_MONOTONIC timerfd
// registered with it for level-triggered read readiness.
func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeSystem, "reactor: epoll_create1", err)
	}
	tfd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, api.Wrap(api.ErrCodeSystem, "reactor: timerfd_create", err)
	}

	r := &Reactor{
		guard:    fdutil.NewThreadGuard(),
		epfd:     fdutil.New(epfd),
		timerFD:  fdutil.New(tfd),
		sources:  make(map[int32]*dispatchRecord),
		timers:   newTimerSet(),
		deferred: queue.New(),
		debug:    control.NewDebugProbes(),
		metrics:  control.NewMetricsRegistry(),
	}

	rec := &dispatchRecord{kind: kindTimer, fd: int32(tfd)}
	if err := r.epollAdd(int32(tfd), unix.EPOLLIN); err != nil {
		unix.Close(tfd)
		unix.Close(epfd)
		return nil, err
	}
	r.sources[int32(tfd)] = rec

	r.debug.RegisterProbe("reactor.pending_timers", func() any { return r.timers.heap.Len() })
	r.debug.RegisterProbe("reactor.deferred_tasks", func() any { return r.deferred.Length() })
	r.debug.RegisterProbe("reactor.sources", func() any { return len(r.sources) })
	control.RegisterPlatformProbes(r.debug)

	return r, nil
}

// Debug exposes the reactor's probe registry for callers wiring their own
// introspection endpoints.
func (r *Reactor) Debug() *control.DebugProbes { return r.debug }

// Metrics exposes the reactor's counters.
func (r *Reactor) Metrics() *control.MetricsRegistry { return r.metrics }

func (r *Reactor) epollAdd(fd int32, events uint32) error {
	ev := unix.EpollEvent{Events: events, Fd: fd}
	if err := unix.EpollCtl(int(r.epfd.Int()), unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return api.Wrap(api.ErrCodeSystem, "reactor: epoll_ctl add", err)
	}
	return nil
}

// AddSource registers fd for the given epoll event mask with the dispatch
// record owner. fd must be non-negative and not already registered.
func (r *Reactor) AddSource(fd int32, events uint32, owner UDPSource) error {
	r.guard.Check("Reactor.AddSource")
	if fd < 0 {
		return api.NewError(api.ErrCodeInvalidArg, "reactor: invalid fd")
	}
	if _, exists := r.sources[fd]; exists {
		return api.NewError(api.ErrCodeAddrInUse, "reactor: fd already registered")
	}
	rec := &dispatchRecord{kind: kindUDP, fd: fd, udp: owner}
	if err := r.epollAdd(fd, events); err != nil {
		return err
	}
	r.sources[fd] = rec
	return nil
}

// RemoveSource unregisters fd. Returns NOT_FOUND if fd was never
// registered with AddSource.
func (r *Reactor) RemoveSource(fd int32) error {
	r.guard.Check("Reactor.RemoveSource")
	if _, ok := r.sources[fd]; !ok {
		return api.NewError(api.ErrCodeNotFound, "reactor: fd not registered")
	}
	if err := unix.EpollCtl(int(r.epfd.Int()), unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return api.Wrap(api.ErrCodeSystem, "reactor: epoll_ctl del", err)
	}
	delete(r.sources, fd)
	return nil
}

// RunInLoop appends a task to run at the tail of the current or next
// run_once cycle.
func (r *Reactor) RunInLoop(task func()) {
	r.guard.Check("Reactor.RunInLoop")
	r.deferred.Add(task)
}

// RunAfter schedules cb to fire once, delay from now. delay must be >= 0.
func (r *Reactor) RunAfter(delay time.Duration, cb func()) (TimerID, error) {
	r.guard.Check("Reactor.RunAfter")
	if delay < 0 {
		return 0, api.NewError(api.ErrCodeInvalidArg, "reactor: negative delay")
	}
	return r.scheduleTimer(delay, 0, false, cb)
}

// RunEvery schedules cb to fire every interval, starting one interval from
// now. interval must be > 0.
func (r *Reactor) RunEvery(interval time.Duration, cb func()) (TimerID, error) {
	r.guard.Check("Reactor.RunEvery")
	if interval <= 0 {
		return 0, api.NewError(api.ErrCodeInvalidArg, "reactor: non-positive interval")
	}
	return r.scheduleTimer(interval, interval, true, cb)
}

func (r *Reactor) scheduleTimer(delay, interval time.Duration, repeat bool, cb func()) (TimerID, error) {
	now := monotonicNow()
	r.nextID++
	id := r.nextID
	item := &timerItem{
		id:         id,
		expiration: now + delay.Nanoseconds(),
		interval:   interval.Nanoseconds(),
		repeat:     repeat,
		cb:         cb,
	}
	wasEmpty := r.timers.empty()
	earliestBefore := r.timers.peek()
	r.timers.insert(item)
	if wasEmpty || item.expiration < earliestBefore.expiration {
		if err := r.armTimer(item.expiration); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// CancelTimer removes a pending timer. Idempotent: cancelling a timer
// whose callback is currently executing has no effect on that in-flight
// call but prevents any repeat reinsertion.
func (r *Reactor) CancelTimer(id TimerID) error {
	r.guard.Check("Reactor.CancelTimer")
	if r.firing != nil && r.firing.id == id {
		r.firing.cancelled = true
		return nil
	}
	wasEarliest := false
	if head := r.timers.peek(); head != nil && head.id == id {
		wasEarliest = true
	}
	if _, ok := r.timers.removeByID(id); !ok {
		return api.NewError(api.ErrCodeNotFound, "reactor: unknown timer id")
	}
	if wasEarliest {
		r.rearmFromHeap()
	}
	return nil
}

func (r *Reactor) rearmFromHeap() error {
	head := r.timers.peek()
	if head == nil {
		return r.disarmTimer()
	}
	return r.armTimer(head.expiration)
}

func (r *Reactor) armTimer(expirationNs int64) error {
	spec := &unix.ItimerSpec{Value: nsecToTimespec(expirationNs)}
	if err := unix.TimerfdSettime(int(r.timerFD.Int()), unix.TFD_TIMER_ABSTIME, spec, nil); err != nil {
		return api.Wrap(api.ErrCodeSystem, "reactor: timerfd_settime", err)
	}
	return nil
}

func (r *Reactor) disarmTimer() error {
	spec := &unix.ItimerSpec{}
	if err := unix.TimerfdSettime(int(r.timerFD.Int()), 0, spec, nil); err != nil {
		return api.Wrap(api.ErrCodeSystem, "reactor: timerfd_settime disarm", err)
	}
	return nil
}

// RunOnce polls once and dispatches ready sources and due timers.
func (r *Reactor) RunOnce(timeoutMs int) error {
	r.guard.Check("Reactor.RunOnce")

	if r.deferred.Length() > 0 {
		timeoutMs = 0
	}

	var events [maxEvents]unix.EpollEvent
	n, err := unix.EpollWait(int(r.epfd.Int()), events[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return api.Wrap(api.ErrCodeSystem, "reactor: epoll_wait", err)
	}

	for i := 0; i < n; i++ {
		fd := events[i].Fd
		rec, ok := r.sources[fd]
		if !ok {
			continue
		}
		r.dispatch(rec)
	}

	r.drainDeferred()
	return nil
}

func (r *Reactor) dispatch(rec *dispatchRecord) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("reactor: recovered panic in dispatch for fd %d: %v", rec.fd, p)
		}
	}()
	switch rec.kind {
	case kindTimer:
		r.handleTimerReadiness()
	case kindUDP:
		rec.udp.HandleBatchRead(rec.fd)
	}
}

// drainDeferred swaps the deferred queue and runs every task queued before
// this cycle; re-entrant appends during execution land in the now-current
// (emptied) queue and run on the next run_once call.
func (r *Reactor) drainDeferred() {
	pending := r.deferred
	r.deferred = queue.New()
	for pending.Length() > 0 {
		task := pending.Remove().(func())
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("reactor: recovered panic in deferred task: %v", p)
				}
			}()
			task()
		}()
	}
}

// handleTimerReadiness fires every timer whose expiration has passed,
// in (expiration, id) order, then rearms for the new earliest expiration.
// Repeat timers are rescheduled on previous_expiration + interval, a
// monotonic cadence that does not drift with callback duration — a
// deliberate correction of the original EventLoop::handleTimer, which
// rearms repeat timers on now + interval instead
// (_examples/original_source/src/EventLoop.cc).
func (r *Reactor) handleTimerReadiness() {
	var buf [8]byte
	unix.Read(int(r.timerFD.Int()), buf[:])

	now := monotonicNow()
	due := r.timers.popDue(now)

	for _, item := range due {
		r.firing = item
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("reactor: recovered panic in timer callback %d: %v", item.id, p)
				}
			}()
			item.cb()
		}()
		r.firing = nil
		if item.repeat && !item.cancelled {
			item.expiration += item.interval
			r.timers.insert(item)
		}
	}

	r.rearmFromHeap()
}

// Close releases the epoll and timerfd descriptors. Not safe to call
// while RunOnce is executing.
func (r *Reactor) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.timerFD.Close()
	if cerr := r.epfd.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Shutdown implements api.GracefulShutdown; it is Close under the name
// that interface requires.
func (r *Reactor) Shutdown() error { return r.Close() }

var _ api.GracefulShutdown = (*Reactor)(nil)

func monotonicNow() int64 {
	var ts unix.Timespec
	unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	return ts.Nano()
}

func nsecToTimespec(ns int64) unix.Timespec {
	return unix.NsecToTimespec(ns)
}
