package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/reversi-arena/internal/session"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("game not found")

// Registry owns the id -> session mapping. It never looks inside sessions; eviction decisions are
// delegated to the configured policy.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session

	newID       func() string
	sessionOpts []session.Option
	policy      EvictionPolicy
	onEvict     func(id string)
	now         func() time.Time
	logger      *zap.Logger
}

type Option func(*Registry)

func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithSessionOptions applies opts to every session created by the registry, before per-call options.
func WithSessionOptions(opts ...session.Option) Option {
	return func(r *Registry) { r.sessionOpts = append(r.sessionOpts, opts...) }
}

func WithEvictionPolicy(p EvictionPolicy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithEvictHook is called (outside the registry lock) for each evicted session id.
func WithEvictHook(fn func(id string)) Option {
	return func(r *Registry) { r.onEvict = fn }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*session.Session),
		newID:    uuid.NewString,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a session with a fresh id and the opening position.
func (r *Registry) Create(opts ...session.Option) *session.Session {
	all := make([]session.Option, 0, len(r.sessionOpts)+len(opts))
	all = append(all, r.sessionOpts...)
	all = append(all, opts...)

	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.newID()
	for r.sessions[id] != nil {
		id = r.newID()
	}
	s := session.New(id, all...)
	r.sessions[id] = s
	return s
}

func (r *Registry) Get(id string) (*session.Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Remove drops id and runs the evict hook. It reports whether the session was registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.logger.Info("registry_remove", zap.String("game_id", id))
	if r.onEvict != nil {
		r.onEvict(id)
	}
	return true
}

// Sweep removes every session the eviction policy selects and returns their ids.
func (r *Registry) Sweep(now time.Time) []string {
	if r.policy == nil {
		return nil
	}
	r.mu.RLock()
	candidates := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	var evicted []string
	for _, s := range candidates {
		if !r.policy.Evict(s, now) {
			continue
		}
		r.mu.Lock()
		if cur, ok := r.sessions[s.ID()]; ok && cur == s {
			delete(r.sessions, s.ID())
			evicted = append(evicted, s.ID())
		}
		r.mu.Unlock()
	}
	for _, id := range evicted {
		r.logger.Info("registry_evict", zap.String("game_id", id))
		if r.onEvict != nil {
			r.onEvict(id)
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.policy == nil {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ids := r.Sweep(r.now()); len(ids) > 0 {
				r.logger.Debug("registry_sweep", zap.Int("evicted", len(ids)), zap.Int("remaining", r.Len()))
			}
		}
	}
}
