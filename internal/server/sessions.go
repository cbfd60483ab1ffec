package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"business-consultant/internal/router"
)

const sessionCookie = "consultant_session"

type storedSession struct {
	*router.Session
	lastUsed time.Time
}

// sessionStore maps the session cookie to router sessions. Sessions idle for
// longer than ttl are closed on the next lookup.
type sessionStore struct {
	baseDir string
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*storedSession
}

func newSessionStore(baseDir string, ttl time.Duration) *sessionStore {
	return &sessionStore{
		baseDir:  baseDir,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*storedSession),
	}
}

// get returns the caller's session, starting one and setting the cookie if
// the request carries none or an unknown one.
func (st *sessionStore) get(w http.ResponseWriter, r *http.Request) (*router.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.findLocked(r); ok {
		return s, nil
	}

	s, err := router.NewSession(st.baseDir)
	if err != nil {
		return nil, err
	}
	st.sessions[s.ID] = &storedSession{Session: s, lastUsed: st.now()}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.Debug().Str("session", s.ID).Msg("Started session")
	return s, nil
}

// lookup returns the caller's existing session without starting one.
func (st *sessionStore) lookup(r *http.Request) (*router.Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.findLocked(r)
}

func (st *sessionStore) findLocked(r *http.Request) (*router.Session, bool) {
	now := st.now()
	st.evictLocked(now)

	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	s, ok := st.sessions[c.Value]
	if !ok {
		return nil, false
	}
	s.lastUsed = now
	return s.Session, true
}

func (st *sessionStore) evictLocked(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for id, s := range st.sessions {
		if now.Sub(s.lastUsed) <= st.ttl {
			continue
		}
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("Failed to close expired session")
		}
		delete(st.sessions, id)
		log.Debug().Str("session", id).Msg("Expired session")
	}
}

func (st *sessionStore) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *sessionStore) closeAll() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("Failed to close session")
		}
		delete(st.sessions, id)
	}
}
