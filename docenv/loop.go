package docenv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goeventloop "github.com/joeycumines/go-eventloop"
)

const loopShutdownTimeout = time.Second * 5

var errLoopClosed = errors.New("document environment has been closed")

// eventLoop serializes all work on a document environment onto one goroutine. The JS
// runtime and the DOM are only ever touched from tasks running on it.
//
// Timers are real time.Timers whose callbacks submit a task to the loop. One-shot timers
// count as pending work until their task has run, which is what awaitIdle waits for.
type eventLoop struct {
	loop        *goeventloop.Loop
	cancel      context.CancelFunc
	done        chan struct{}
	timers      map[int]*loopTimer
	lastTimerID int
	pending     int
	idleCh      chan struct{}
	closed      bool
	onError     func(error)
	lock        sync.Mutex
}

type loopTimer struct {
	timer    *time.Timer
	interval time.Duration
	repeat   bool
}

func newEventLoop(onError func(error)) (*eventLoop, error) {
	loop, err := goeventloop.New()
	if err != nil {
		return nil, fmt.Errorf("could not create event loop: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &eventLoop{
		loop:    loop,
		cancel:  cancel,
		done:    make(chan struct{}),
		timers:  make(map[int]*loopTimer),
		idleCh:  make(chan struct{}),
		onError: onError,
	}
	close(l.idleCh)
	go func() {
		defer close(l.done)
		loop.Run(ctx)
	}()
	return l, nil
}

// post queues a task without waiting for it.
func (l *eventLoop) post(task func()) error {
	l.lock.Lock()
	closed := l.closed
	l.lock.Unlock()
	if closed {
		return errLoopClosed
	}
	if err := l.loop.Submit(task); err != nil {
		return fmt.Errorf("could not submit task to event loop: %w", err)
	}
	return nil
}

// do runs a task on the loop and waits for its result. It must not be called from the
// loop goroutine.
func (l *eventLoop) do(task func() error) error {
	result := make(chan error, 1)
	err := l.post(func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("unexpected panic in document environment: %v", r)
			}
		}()
		result <- task()
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-l.done:
		return errLoopClosed
	}
}

// AfterFunc implements bridge.Scheduler, so that bridge deliveries run on the loop and
// count as pending work.
func (l *eventLoop) AfterFunc(delay time.Duration, fn func()) {
	l.schedule(delay, false, fn)
}

func (l *eventLoop) schedule(delay time.Duration, repeat bool, fn func()) int {
	if delay < 0 {
		delay = 0
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return 0
	}
	l.lastTimerID++
	id := l.lastTimerID
	t := &loopTimer{interval: delay, repeat: repeat}
	if !repeat {
		if l.pending == 0 {
			l.idleCh = make(chan struct{})
		}
		l.pending++
	}
	t.timer = time.AfterFunc(delay, func() {
		if err := l.post(func() { l.fire(id, fn) }); err != nil && !errors.Is(err, errLoopClosed) {
			l.reportError(err)
		}
	})
	l.timers[id] = t
	return id
}

func (l *eventLoop) fire(id int, fn func()) {
	l.lock.Lock()
	t, ok := l.timers[id]
	if ok && !t.repeat {
		delete(l.timers, id)
	}
	l.lock.Unlock()
	if !ok {
		return // cleared after the timer went off but before its task ran
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				l.reportError(fmt.Errorf("unexpected panic in timer callback: %v", r))
			}
		}()
		fn()
	}()

	if t.repeat {
		l.lock.Lock()
		if _, stillActive := l.timers[id]; stillActive && !l.closed {
			t.timer.Reset(t.interval)
		}
		l.lock.Unlock()
		return
	}
	l.lock.Lock()
	l.timerDone()
	l.lock.Unlock()
}

func (l *eventLoop) clear(id int) {
	l.lock.Lock()
	defer l.lock.Unlock()
	t, ok := l.timers[id]
	if !ok {
		return
	}
	t.timer.Stop()
	delete(l.timers, id)
	if !t.repeat {
		l.timerDone()
	}
}

// timerDone must be called with the lock held.
func (l *eventLoop) timerDone() {
	l.pending--
	if l.pending == 0 {
		close(l.idleCh)
	}
}

func (l *eventLoop) pendingCount() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.pending
}

// awaitIdle waits until no one-shot timer is pending. Repeating timers never count.
func (l *eventLoop) awaitIdle(timeout time.Duration) error {
	l.lock.Lock()
	idle := l.idleCh
	l.lock.Unlock()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case <-idle:
		return nil
	case <-l.done:
		return errLoopClosed
	case <-deadline.C:
		return fmt.Errorf("timed out after %s with %d pending timer(s)", timeout, l.pendingCount())
	}
}

func (l *eventLoop) reportError(err error) {
	if l.onError != nil {
		l.onError(err)
	}
}

func (l *eventLoop) close() {
	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		return
	}
	l.closed = true
	for id, t := range l.timers {
		t.timer.Stop()
		delete(l.timers, id)
	}
	l.lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), loopShutdownTimeout)
	defer cancel()
	l.loop.Shutdown(ctx)
	l.cancel()
	select {
	case <-l.done:
	case <-ctx.Done():
	}
}
