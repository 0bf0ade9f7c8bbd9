package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	mu      sync.Mutex
	batches [][]Event
	err     error
}

func (s *scriptedSource) Next(ctx context.Context) ([]Event, error) {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.err = nil
		s.mu.Unlock()
		return nil, err
	}
	if len(s.batches) > 0 {
		batch := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return batch, nil
	}
	s.mu.Unlock()
	// Drained. Block like a long poll until the caller gives up.
	<-ctx.Done()
	return nil, ctx.Err()
}

type countingHandler struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (h *countingHandler) Handle(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return h.err
}

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestLoopRequiresDependencies(t *testing.T) {
	_, err := NewLoop(LoopOptions{})
	require.Error(t, err)

	_, err = NewLoop(LoopOptions{Source: &scriptedSource{}})
	require.Error(t, err)
}

func TestLoopDispatchesAllEvents(t *testing.T) {
	source := &scriptedSource{
		batches: [][]Event{
			{
				{UserID: 1, ChatID: 1, Kind: EventCommand, Command: "start"},
				{UserID: 2, ChatID: 2, Kind: EventPhoto, Photo: "p1"},
			},
			{
				{UserID: 3, ChatID: 3, Kind: EventText, Text: "a prompt"},
			},
		},
	}
	handler := &countingHandler{}

	loop, err := NewLoop(LoopOptions{Source: source, Handler: handler, Concurrency: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return handler.count() == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestLoopSurvivesSourceErrors(t *testing.T) {
	source := &scriptedSource{
		err: errors.New("poll failed"),
		batches: [][]Event{
			{{UserID: 1, ChatID: 1, Kind: EventCommand, Command: "help"}},
		},
	}
	handler := &countingHandler{}

	loop, err := NewLoop(LoopOptions{Source: source, Handler: handler})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return handler.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestLoopSurvivesHandlerErrors(t *testing.T) {
	source := &scriptedSource{
		batches: [][]Event{
			{{UserID: 1, ChatID: 1, Kind: EventCommand, Command: "status"}},
			{{UserID: 2, ChatID: 2, Kind: EventCommand, Command: "status"}},
		},
	}
	handler := &countingHandler{err: errors.New("send failed")}

	loop, err := NewLoop(LoopOptions{Source: source, Handler: handler})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return handler.count() == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
