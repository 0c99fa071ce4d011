package registry

import (
	"time"

	"github.com/park285/reversi-arena/internal/session"
)

// EvictionPolicy decides whether a session may be dropped at now.
type EvictionPolicy interface {
	Evict(s *session.Session, now time.Time) bool
}

// EvictionFunc adapts a function to EvictionPolicy.
type EvictionFunc func(s *session.Session, now time.Time) bool

func (f EvictionFunc) Evict(s *session.Session, now time.Time) bool { return f(s, now) }

// IdleTimeout evicts sessions with no committed mutation for the given duration.
type IdleTimeout time.Duration

func (d IdleTimeout) Evict(s *session.Session, now time.Time) bool {
	return d > 0 && now.Sub(s.LastActivity()) >= time.Duration(d)
}

// All evicts only when every policy agrees.
func All(policies ...EvictionPolicy) EvictionPolicy {
	return EvictionFunc(func(s *session.Session, now time.Time) bool {
		for _, p := range policies {
			if !p.Evict(s, now) {
				return false
			}
		}
		return len(policies) > 0
	})
}
