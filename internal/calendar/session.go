package calendar

import (
	"slices"
	"sync"
	"time"
)

// State is the caller-owned interaction state carried between requests.
type State struct {
	Selected  []string `json:"selected"`
	EditingID int      `json:"editing_id,omitempty"`
}

// Equal reports whether s and o select the same values in the same order
// and edit the same event.
func (s State) Equal(o State) bool {
	return s.EditingID == o.EditingID && slices.Equal(s.Selected, o.Selected)
}

type session struct {
	state State
	seen  time.Time
}

// SessionStore keeps State per session id in memory. Sessions idle for
// longer than the TTL are dropped; a zero TTL keeps them forever.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]session
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{sessions: make(map[string]session), ttl: ttl, now: time.Now}
}

// Get returns the state of session id and whether it exists. A hit counts
// as activity.
func (s *SessionStore) Get(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess, ok := s.sessions[id]
	if ok && s.expired(sess, now) {
		delete(s.sessions, id)
		ok = false
	}
	if !ok {
		return State{}, false
	}
	sess.seen = now
	s.sessions[id] = sess
	st := sess.state
	st.Selected = slices.Clone(st.Selected)
	return st, true
}

// Set stores st for session id.
func (s *SessionStore) Set(id string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	st.Selected = slices.Clone(st.Selected)
	if st.Selected == nil {
		st.Selected = []string{}
	}
	s.sessions[id] = session{state: st, seen: now}
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(sess session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.seen) > s.ttl
}

// sweep drops idle sessions, at most once per TTL.
func (s *SessionStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
		}
	}
	s.lastSweep = now
}
