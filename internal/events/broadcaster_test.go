package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attached reports whether a mailbox is registered for jobID
func (b *Broadcaster) attached(jobID uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.mailboxes[jobID]
	return ok
}

type countingRecorder struct {
	mu        sync.Mutex
	delivered int
	dropped   int
	active    int
}

func (r *countingRecorder) EventEmitted(_ string, delivered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if delivered {
		r.delivered++
	} else {
		r.dropped++
	}
}

func (r *countingRecorder) SubscribersChanged(active int) {
	r.mu.Lock()
	r.active = active
	r.mu.Unlock()
}

func next(t *testing.T, sub *Subscription) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := sub.Next(ctx, 0)
	require.NoError(t, err)
	return ev
}

func TestBroadcaster_DeliversInOrder(t *testing.T) {
	b := NewBroadcaster()
	jobID := uuid.New()
	sub := b.Attach(jobID)
	defer sub.Close()

	b.Emit(jobID, Event{Type: TypePipelineStart, Total: 10})
	b.Emit(jobID, Event{Type: TypeAgentStart, Agent: AgentSourcing})
	b.Emit(jobID, Event{Type: TypeAgentProgress, Agent: AgentSourcing, Count: 5})

	first := next(t, sub)
	assert.Equal(t, TypePipelineStart, first.Type)
	assert.Equal(t, jobID, first.JobID)
	assert.False(t, first.Timestamp.IsZero())

	assert.Equal(t, TypeAgentStart, next(t, sub).Type)
	assert.Equal(t, 5, next(t, sub).Count)
}

func TestBroadcaster_EmitWithoutObserverIsDropped(t *testing.T) {
	rec := &countingRecorder{}
	b := NewBroadcaster(WithRecorder(rec))
	jobID := uuid.New()

	b.Emit(jobID, Event{Type: TypePipelineStart})
	assert.Equal(t, 1, rec.dropped)

	// Progress is not buffered for a later observer.
	sub := b.Attach(jobID)
	defer sub.Close()
	ev, err := sub.Next(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrIdle)
	assert.Equal(t, Event{}, ev)
}

func TestBroadcaster_TerminalEndsStream(t *testing.T) {
	b := NewBroadcaster()
	jobID := uuid.New()
	sub := b.Attach(jobID)

	b.Emit(jobID, Event{Type: TypePipelineComplete, Total: 5})
	assert.False(t, b.attached(jobID), "registry entry is removed when the terminal event is produced")

	b.Emit(jobID, Event{Type: TypeAgentStart})

	ev := next(t, sub)
	assert.Equal(t, TypePipelineComplete, ev.Type)

	_, err := sub.Next(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBroadcaster_PipelineErrorIsTerminal(t *testing.T) {
	b := NewBroadcaster()
	jobID := uuid.New()
	sub := b.Attach(jobID)

	b.Emit(jobID, Event{Type: TypePipelineError, Error: "boom"})
	ev := next(t, sub)
	assert.Equal(t, "boom", ev.Error)

	_, err := sub.Next(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBroadcaster_AttachAfterCompletionIsEmpty(t *testing.T) {
	b := NewBroadcaster()
	jobID := uuid.New()

	b.Emit(jobID, Event{Type: TypePipelineStart})
	b.Emit(jobID, Event{Type: TypePipelineComplete})

	sub := b.Attach(jobID)
	defer sub.Close()
	_, err := sub.Next(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, b.attached(jobID))
}

func TestBroadcaster_BeginClearsFinished(t *testing.T) {
	b := NewBroadcaster()
	jobID := uuid.New()
	b.Emit(jobID, Event{Type: TypePipelineComplete})

	b.Begin(jobID)
	sub := b.Attach(jobID)
	defer sub.Close()
	require.True(t, b.attached(jobID))

	b.Emit(jobID, Event{Type: TypePipelineStart, Total: 15})
	assert.Equal(t, 15, next(t, sub).Total)
}

func TestBroadcaster_FinishedRetentionPrunes(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	b := NewBroadcaster(WithClock(clock), WithFinishedRetention(time.Hour))

	old := uuid.New()
	b.Emit(old, Event{Type: TypePipelineComplete})

	now = now.Add(2 * time.Hour)
	b.Emit(uuid.New(), Event{Type: TypePipelineComplete})

	sub := b.Attach(old)
	defer sub.Close()
	assert.True(t, b.attached(old), "pruned job accepts a live attach again")
}

func TestBroadcaster_AttachReplacesPrevious(t *testing.T) {
	b := NewBroadcaster()
	jobID := uuid.New()

	first := b.Attach(jobID)
	second := b.Attach(jobID)
	defer second.Close()

	_, err := first.Next(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrClosed)

	// Closing the stale subscription must not detach the new one.
	first.Close()
	assert.True(t, b.attached(jobID))

	b.Emit(jobID, Event{Type: TypeAgentStart, Agent: AgentMatching})
	assert.Equal(t, AgentMatching, next(t, second).Agent)
}

func TestBroadcaster_DetachDropsFurtherEvents(t *testing.T) {
	rec := &countingRecorder{}
	b := NewBroadcaster(WithRecorder(rec))
	jobID := uuid.New()

	sub := b.Attach(jobID)
	assert.Equal(t, 1, rec.active)
	sub.Close()
	assert.Equal(t, 0, rec.active)
	assert.False(t, b.attached(jobID))

	b.Emit(jobID, Event{Type: TypeAgentStart})
	assert.Equal(t, 1, rec.dropped)
}

func TestSubscription_NextHonorsContext(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Attach(uuid.New())
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sub.Next(ctx, time.Minute)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSubscription_WakesOnEmit(t *testing.T) {
	b := NewBroadcaster()
	jobID := uuid.New()
	sub := b.Attach(jobID)
	defer sub.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Emit(jobID, Event{Type: TypeAgentComplete, Agent: AgentPitchWriter})
	}()

	ev, err := sub.Next(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, AgentPitchWriter, ev.Agent)
}

func TestBroadcaster_EmitNeverBlocks(t *testing.T) {
	b := NewBroadcaster()
	jobID := uuid.New()
	sub := b.Attach(jobID)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			b.Emit(jobID, Event{Type: TypeAgentProgress, Count: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("emit blocked on an undrained mailbox")
	}
	assert.Equal(t, 0, next(t, sub).Count)
}

func TestType_IsTerminal(t *testing.T) {
	tests := []struct {
		typ      Type
		terminal bool
	}{
		{TypePipelineStart, false},
		{TypeAgentStart, false},
		{TypeAgentProgress, false},
		{TypeAgentComplete, false},
		{TypePipelineComplete, true},
		{TypePipelineError, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.typ.IsTerminal())
		})
	}
}
