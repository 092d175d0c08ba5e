package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrIdle is returned by Subscription.Next when no event arrived within the idle timeout.
	ErrIdle = errors.New("events: idle timeout")
	// ErrClosed is returned once a subscription has ended.
	ErrClosed = errors.New("events: subscription closed")
)

// DefaultFinishedRetention is how long a finished job is remembered for late attaches.
const DefaultFinishedRetention = 24 * time.Hour

// Recorder receives broadcaster activity, typically for metrics.
type Recorder interface {
	EventEmitted(eventType string, delivered bool)
	SubscribersChanged(active int)
}

type nopRecorder struct{}

func (nopRecorder) EventEmitted(string, bool) {}
func (nopRecorder) SubscribersChanged(int)    {}

// mailbox is an unbounded FIFO of events for one observer.
type mailbox struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

// push enqueues e without blocking. It reports false if the mailbox is closed.
func (m *mailbox) push(e Event) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, e)
	m.mu.Unlock()
	m.signal()
	return true
}

func (m *mailbox) pop() (ev Event, ok bool, closed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Event{}, false, true
	}
	if len(m.queue) == 0 {
		return Event{}, false, false
	}
	ev = m.queue[0]
	m.queue[0] = Event{}
	m.queue = m.queue[1:]
	return ev, true, false
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Broadcaster is the registry of per-job mailboxes.
// Each job has at most one attached mailbox at a time.
type Broadcaster struct {
	mu        sync.Mutex
	mailboxes map[uuid.UUID]*mailbox
	finished  map[uuid.UUID]time.Time
	retention time.Duration
	now       func() time.Time
	recorder  Recorder
}

// Option customizes a Broadcaster.
type Option func(*Broadcaster)

// WithRecorder reports emits and subscriber counts to r.
func WithRecorder(r Recorder) Option {
	return func(b *Broadcaster) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithFinishedRetention sets how long finished jobs short-circuit new attaches.
func WithFinishedRetention(d time.Duration) Option {
	return func(b *Broadcaster) {
		b.retention = d
	}
}

// WithClock replaces the broadcaster's time source.
func WithClock(now func() time.Time) Option {
	return func(b *Broadcaster) {
		b.now = now
	}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		mailboxes: make(map[uuid.UUID]*mailbox),
		finished:  make(map[uuid.UUID]time.Time),
		retention: DefaultFinishedRetention,
		now:       time.Now,
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach creates a fresh mailbox for jobID, closing any mailbox already attached.
// Attaching to a job whose run has already finished returns an ended subscription.
func (b *Broadcaster) Attach(jobID uuid.UUID) *Subscription {
	mb := newMailbox()
	sub := &Subscription{b: b, jobID: jobID, mb: mb}

	b.mu.Lock()
	if _, done := b.finished[jobID]; done {
		b.mu.Unlock()
		mb.close()
		sub.closed = true
		return sub
	}
	prev := b.mailboxes[jobID]
	b.mailboxes[jobID] = mb
	active := len(b.mailboxes)
	b.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	b.recorder.SubscribersChanged(active)
	return sub
}

// Begin marks jobID as having a run scheduled, so observers may attach and wait for it.
func (b *Broadcaster) Begin(jobID uuid.UUID) {
	b.mu.Lock()
	delete(b.finished, jobID)
	b.mu.Unlock()
}

// Emit delivers e to the mailbox attached to jobID, if any. It never blocks.
// A terminal event detaches the mailbox from the registry once enqueued.
func (b *Broadcaster) Emit(jobID uuid.UUID, e Event) {
	e.JobID = jobID
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now()
	}

	b.mu.Lock()
	mb := b.mailboxes[jobID]
	switch {
	case e.Type.IsTerminal():
		delete(b.mailboxes, jobID)
		b.finished[jobID] = b.now()
		b.pruneFinishedLocked()
	case e.Type == TypePipelineStart:
		delete(b.finished, jobID)
	}
	active := len(b.mailboxes)
	b.mu.Unlock()

	delivered := mb != nil && mb.push(e)
	b.recorder.EventEmitted(string(e.Type), delivered)
	if e.Type.IsTerminal() && mb != nil {
		b.recorder.SubscribersChanged(active)
	}
}

// detach removes mb from the registry if it is still the mailbox for jobID.
func (b *Broadcaster) detach(jobID uuid.UUID, mb *mailbox) {
	b.mu.Lock()
	removed := false
	if b.mailboxes[jobID] == mb {
		delete(b.mailboxes, jobID)
		removed = true
	}
	active := len(b.mailboxes)
	b.mu.Unlock()

	mb.close()
	if removed {
		b.recorder.SubscribersChanged(active)
	}
}

func (b *Broadcaster) pruneFinishedLocked() {
	if b.retention <= 0 {
		return
	}
	cutoff := b.now().Add(-b.retention)
	for id, at := range b.finished {
		if at.Before(cutoff) {
			delete(b.finished, id)
		}
	}
}

// Subscription is an observer's handle on a job mailbox.
type Subscription struct {
	b      *Broadcaster
	jobID  uuid.UUID
	mb     *mailbox
	once   sync.Once
	closed bool
}

// Next blocks until the next event, the idle timeout (ErrIdle), the end of the
// subscription (ErrClosed) or ctx cancellation. A non-positive idle waits indefinitely.
// Returning a terminal event ends the subscription.
func (s *Subscription) Next(ctx context.Context, idle time.Duration) (Event, error) {
	var timeout <-chan time.Time
	if idle > 0 {
		timer := time.NewTimer(idle)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		ev, ok, closed := s.mb.pop()
		if ok {
			if ev.Type.IsTerminal() {
				s.Close()
			}
			return ev, nil
		}
		if closed {
			return Event{}, ErrClosed
		}

		select {
		case <-s.mb.notify:
		case <-timeout:
			return Event{}, ErrIdle
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Close detaches the subscription. The job's run, if any, is unaffected.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.closed {
			return
		}
		s.b.detach(s.jobID, s.mb)
	})
}
