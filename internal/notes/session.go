package notes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/history"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/logger"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/recognition"
)

// DefaultSessionTTL is how long an idle session keeps its history
const DefaultSessionTTL = 12 * time.Hour

// IDGenerator generates unique session IDs
type IDGenerator interface {
	Generate() string
}

// uuidGenerator generates random (version 4) UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Session is one user's workspace: a history ledger and the lock that keeps
// its batches sequential.
type Session struct {
	ID string

	mu       sync.Mutex
	ledger   *history.Ledger
	lastSeen time.Time
}

// Ledger returns the session's history
func (s *Session) Ledger() *history.Ledger {
	return s.ledger
}

// Sessions tracks live sessions and evicts idle ones
type Sessions struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	ttl         time.Duration
	idGenerator IDGenerator
	timeSource  recognition.TimeSource
}

// NewSessions creates a session store with UUID ids and the wall clock
func NewSessions(ttl time.Duration) *Sessions {
	return NewSessionsWithDeps(ttl, &uuidGenerator{}, timeNow{})
}

// NewSessionsWithDeps creates a session store with custom dependencies for testing
func NewSessionsWithDeps(ttl time.Duration, idGen IDGenerator, timeSrc recognition.TimeSource) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		sessions:    make(map[string]*Session),
		ttl:         ttl,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Lookup returns the live session with the given id and extends it, or nil
// when the id is empty, unknown or expired. It never creates a session.
func (s *Sessions) Lookup(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(id, s.timeSource.Now())
}

// Get returns the session with the given id, or a new session when the id is
// empty, unknown or expired.
func (s *Sessions) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timeSource.Now()
	if sess := s.lookup(id, now); sess != nil {
		return sess
	}

	sess := &Session{
		ID:       s.idGenerator.Generate(),
		ledger:   history.NewLedger(),
		lastSeen: now,
	}
	s.sessions[sess.ID] = sess
	return sess
}

func (s *Sessions) lookup(id string, now time.Time) *Session {
	sess, ok := s.sessions[id]
	if !ok || now.Sub(sess.lastSeen) >= s.ttl {
		return nil
	}
	sess.lastSeen = now
	return sess
}

// Len returns the number of tracked sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many went
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timeSource.Now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) >= s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	log := logger.WithComponent("sessions")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Info().Int("evicted", n).Int("live", s.Len()).Msg("Evicted idle sessions")
			}
		}
	}
}

type timeNow struct{}

func (timeNow) Now() time.Time { return time.Now() }
