package hub

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/park285/reversi-arena/pkg/reversidto"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by Next once the subscription was closed and its queue drained.
	ErrClosed = errors.New("subscription closed")
	// ErrBacklogOverflow ends a subscription that fell further behind than the backlog cap.
	ErrBacklogOverflow = errors.New("subscriber backlog overflow")
)

// DefaultMaxBacklog is the per-subscriber queue cap used by New unless overridden.
const DefaultMaxBacklog = 256

// Hub fans session events out to subscribers. Each subscriber owns its own queue, so a slow
// reader never delays publication or other readers.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[uint64]*Subscription

	seq        atomic.Uint64
	maxBacklog int
	logger     *zap.Logger
}

type Option func(*Hub)

// WithMaxBacklog caps each subscriber queue; n <= 0 leaves queues unbounded.
func WithMaxBacklog(n int) Option {
	return func(h *Hub) { h.maxBacklog = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func New(opts ...Option) *Hub {
	h := &Hub{
		topics:     make(map[string]map[uint64]*Subscription),
		maxBacklog: DefaultMaxBacklog,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a subscriber that receives every event published for sessionID from now on.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		id:        h.seq.Add(1),
		sessionID: sessionID,
		hub:       h,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	set := h.topics[sessionID]
	if set == nil {
		set = make(map[uint64]*Subscription)
		h.topics[sessionID] = set
	}
	set[sub.id] = sub
	h.mu.Unlock()
	h.logger.Debug("hub_subscribe", zap.String("game_id", sessionID), zap.Uint64("sub_id", sub.id))
	return sub
}

// Publish enqueues ev on every current subscriber of sessionID. It never blocks on readers.
func (h *Hub) Publish(sessionID string, ev reversidto.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.topics[sessionID] {
		if !sub.push(ev, h.maxBacklog) {
			delete(h.topics[sessionID], id)
			h.logger.Warn("hub_overflow",
				zap.String("game_id", sessionID),
				zap.Uint64("sub_id", id),
				zap.Int("max_backlog", h.maxBacklog),
			)
		}
	}
	if len(h.topics[sessionID]) == 0 {
		delete(h.topics, sessionID)
	}
}

// Unsubscribe removes sub. Safe to call repeatedly.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if set, ok := h.topics[sub.sessionID]; ok {
		delete(set, sub.id)
		if len(set) == 0 {
			delete(h.topics, sub.sessionID)
		}
	}
	h.mu.Unlock()
	sub.terminate(ErrClosed)
}

// CloseSession ends every stream of sessionID, e.g. after the session was evicted.
func (h *Hub) CloseSession(sessionID string) int {
	h.mu.Lock()
	set := h.topics[sessionID]
	delete(h.topics, sessionID)
	h.mu.Unlock()
	for _, sub := range set {
		sub.terminate(ErrClosed)
	}
	return len(set)
}

// Subscribers returns the number of live subscribers of sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[sessionID])
}
