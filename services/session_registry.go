package services

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionAuth is the AuthProvider of a store bound to one authenticated session.
type SessionAuth struct {
	UserID string
}

func (a SessionAuth) CurrentUserID() (string, bool) {
	return a.UserID, a.UserID != ""
}

type PublishFunc func(userID string, state ProfileState)

type session struct {
	store       *ProfileStateStore
	unsubscribe func()
	lastSeen    time.Time
}

// SessionRegistry keeps one ProfileStateStore per logged-in user.
type SessionRegistry struct {
	profiles ProfileStore
	images   ImageHost
	logger   *zap.Logger
	publish  PublishFunc
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionRegistry(profiles ProfileStore, images ImageHost, logger *zap.Logger, publish PublishFunc) *SessionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRegistry{
		profiles: profiles,
		images:   images,
		logger:   logger,
		publish:  publish,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Get returns the user's store, creating it on first use.
func (r *SessionRegistry) Get(userID string) *ProfileStateStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[userID]; ok {
		sess.lastSeen = r.now()
		return sess.store
	}

	store := NewProfileStateStore(SessionAuth{UserID: userID}, r.profiles, r.images, r.logger.With(zap.String("user_id", userID)))
	sess := &session{store: store, unsubscribe: func() {}, lastSeen: r.now()}
	if r.publish != nil {
		updates, unsubscribe := store.Subscribe()
		sess.unsubscribe = unsubscribe
		go func() {
			for st := range updates {
				r.publish(userID, st)
			}
		}()
	}
	r.sessions[userID] = sess
	r.logger.Debug("profile session started", zap.String("user_id", userID))
	return store
}

// End discards the user's in-memory profile and forgets the session.
func (r *SessionRegistry) End(userID string) {
	r.mu.Lock()
	sess, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if !ok {
		return
	}
	r.close(userID, sess)
}

// EvictIdle ends every session not used through Get for longer than maxIdle
// and returns how many were ended.
func (r *SessionRegistry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	idle := make(map[string]*session)
	for userID, sess := range r.sessions {
		if sess.lastSeen.Before(cutoff) {
			idle[userID] = sess
			delete(r.sessions, userID)
		}
	}
	r.mu.Unlock()

	for userID, sess := range idle {
		r.close(userID, sess)
	}
	return len(idle)
}

func (r *SessionRegistry) close(userID string, sess *session) {
	sess.store.Discard()
	sess.unsubscribe()
	sess.store.Close()
	r.logger.Debug("profile session ended", zap.String("user_id", userID))
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
