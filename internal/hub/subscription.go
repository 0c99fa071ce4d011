package hub

import (
	"context"
	"sync"

	"github.com/park285/reversi-arena/pkg/reversidto"
)

// Subscription is the per-connection handle returned by Hub.Subscribe.
type Subscription struct {
	id        uint64
	sessionID string
	hub       *Hub

	mu     sync.Mutex
	queue  []reversidto.Event
	err    error
	closed bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscription) ID() uint64 { return s.id }

func (s *Subscription) SessionID() string { return s.sessionID }

// Done is closed when the subscription ends for any reason.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Next returns the next event in publication order, waiting until one arrives, ctx is done or
// the subscription ends. Events queued before a normal close are still delivered.
func (s *Subscription) Next(ctx context.Context) (reversidto.Event, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = reversidto.Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, nil
		}
		if s.closed {
			err := s.err
			s.mu.Unlock()
			return reversidto.Event{}, err
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return reversidto.Event{}, ctx.Err()
		case <-s.wake:
		case <-s.done:
		}
	}
}

// Close unsubscribes. Safe to call repeatedly.
func (s *Subscription) Close() { s.hub.Unsubscribe(s) }

// push appends ev; it returns false when the backlog cap was exceeded and the subscription was
// terminated instead.
func (s *Subscription) push(ev reversidto.Event, maxBacklog int) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if maxBacklog > 0 && len(s.queue) >= maxBacklog {
		s.queue = nil
		s.mu.Unlock()
		s.terminate(ErrBacklogOverflow)
		return false
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Subscription) terminate(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}
