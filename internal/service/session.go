package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/metrics"
	"github.com/dtroode/authsession/internal/model"
)

const terminateAllConcurrency = 8

// SessionManager owns session records and the per-user index of session ids.
// Records and index live under different keys; concurrent extend and terminate on the
// same session resolve as last writer wins. The index lives as long as the longest
// session added to it, so ids of sessions that expire in the store do not outlive it.
type SessionManager struct {
	store  *StoreClient
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

func NewSessionManager(store *StoreClient, ttl time.Duration, logger *logger.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = model.DefaultSessionTTL
	}
	return &SessionManager{
		store:  store,
		ttl:    ttl,
		logger: logger.Component("sessions"),
		now:    time.Now,
	}
}

type sessionOptions struct {
	ttl         time.Duration
	mfaVerified bool
}

// SessionOption customizes a new session.
type SessionOption func(*sessionOptions)

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(o *sessionOptions) {
		o.ttl = ttl
	}
}

// WithSessionMFA marks the session as opened with a verified second factor.
func WithSessionMFA(verified bool) SessionOption {
	return func(o *sessionOptions) {
		o.mfaVerified = verified
	}
}

// Create stores a new session for user and adds it to the user's session index.
func (m *SessionManager) Create(ctx context.Context, user model.User, meta model.ClientMetadata, opts ...SessionOption) (model.Session, error) {
	o := sessionOptions{ttl: m.ttl}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl <= 0 {
		return model.Session{}, fmt.Errorf("%w: session ttl must be positive", model.ErrValidation)
	}

	id, err := newSecureToken(secureTokenBytes)
	if err != nil {
		return model.Session{}, err
	}
	secret, err := newSecureToken(secureTokenBytes)
	if err != nil {
		return model.Session{}, err
	}

	now := m.now()
	session := model.Session{
		ID:          id,
		UserID:      user.ID,
		Token:       secret,
		ExpiresAt:   now.Add(o.ttl),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Device:      meta.Device,
		CreatedAt:   now,
		MFAVerified: o.mfaVerified,
	}

	if err := m.store.SetJSON(ctx, sessionKey(id), session, o.ttl); err != nil {
		m.logger.Error("Session manager: failed to store session",
			"user_id", user.ID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to store session: %w", err)
	}

	if err := m.store.SAdd(ctx, userSessionsKey(user.ID), o.ttl, id); err != nil {
		m.logger.Error("Session manager: failed to index session",
			"user_id", user.ID,
			"session_id", id,
			"error", err.Error())
		if _, delErr := m.store.Delete(ctx, sessionKey(id)); delErr != nil {
			m.logger.Warn("Session manager: failed to roll back session",
				"session_id", id,
				"error", delErr.Error())
		}
		return model.Session{}, fmt.Errorf("failed to index session: %w", err)
	}

	metrics.Sessions.WithLabelValues(metrics.EventCreated).Inc()
	m.logger.Info("Session manager: session created",
		"user_id", user.ID,
		"session_id", id,
		"expires_at", session.ExpiresAt)

	return session, nil
}

// Get returns a live session. An expired or terminated record is removed and reported
// as ErrSessionExpired; a missing one as ErrSessionNotFound.
func (m *SessionManager) Get(ctx context.Context, id string) (model.Session, error) {
	if id == "" {
		return model.Session{}, model.ErrSessionNotFound
	}

	var session model.Session
	_, err := m.store.GetJSON(ctx, sessionKey(id), &session)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		return model.Session{}, model.ErrSessionNotFound
	case errors.Is(err, model.ErrStorage):
		return model.Session{}, fmt.Errorf("failed to get session: %w", err)
	default:
		m.logger.Warn("Session manager: dropping unreadable session",
			"session_id", id,
			"error", err.Error())
		if _, delErr := m.store.Delete(ctx, sessionKey(id)); delErr != nil {
			return model.Session{}, fmt.Errorf("failed to drop session: %w", delErr)
		}
		return model.Session{}, model.ErrSessionNotFound
	}

	if !session.IsLive(m.now()) {
		m.remove(ctx, session)
		metrics.Sessions.WithLabelValues(metrics.EventExpired).Inc()
		return model.Session{}, model.ErrSessionExpired
	}

	return session, nil
}

// Extend rewrites the session with an expiry d from now.
func (m *SessionManager) Extend(ctx context.Context, id string, d time.Duration) (model.Session, error) {
	if d <= 0 {
		return model.Session{}, fmt.Errorf("%w: extension must be positive", model.ErrValidation)
	}

	session, err := m.Get(ctx, id)
	if err != nil {
		return model.Session{}, err
	}

	session.ExpiresAt = m.now().Add(d)
	if err := m.store.SetJSON(ctx, sessionKey(id), session, d); err != nil {
		m.logger.Error("Session manager: failed to extend session",
			"session_id", id,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("failed to extend session: %w", err)
	}
	if err := m.store.SAdd(ctx, userSessionsKey(session.UserID), d, id); err != nil {
		m.logger.Warn("Session manager: failed to extend session index",
			"session_id", id,
			"user_id", session.UserID,
			"error", err.Error())
	}

	metrics.Sessions.WithLabelValues(metrics.EventExtended).Inc()
	m.logger.Debug("Session manager: session extended",
		"session_id", id,
		"expires_at", session.ExpiresAt)

	return session, nil
}

// Terminate deletes the session and unindexes it. It reports false when there was
// nothing left to terminate.
func (m *SessionManager) Terminate(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	var session model.Session
	_, err := m.store.GetJSON(ctx, sessionKey(id), &session)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if errors.Is(err, model.ErrStorage) {
		return false, fmt.Errorf("failed to get session: %w", err)
	}

	deleted, err := m.store.Delete(ctx, sessionKey(id))
	if err != nil {
		m.logger.Error("Session manager: failed to terminate session",
			"session_id", id,
			"error", err.Error())
		return false, fmt.Errorf("failed to delete session: %w", err)
	}

	if session.UserID != uuid.Nil {
		if err := m.store.SRem(ctx, userSessionsKey(session.UserID), id); err != nil {
			m.logger.Warn("Session manager: failed to unindex session",
				"session_id", id,
				"user_id", session.UserID,
				"error", err.Error())
		}
	}

	if deleted {
		metrics.Sessions.WithLabelValues(metrics.EventTerminated).Inc()
		m.logger.Info("Session manager: session terminated",
			"session_id", id,
			"user_id", session.UserID)
	}

	return deleted, nil
}

// TerminateAll terminates every indexed session of the user and returns how many were
// actually terminated. Index entries without a record are pruned.
func (m *SessionManager) TerminateAll(ctx context.Context, userID uuid.UUID) (int, error) {
	ids, err := m.store.SMembers(ctx, userSessionsKey(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to list user sessions: %w", err)
	}

	var terminated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(terminateAllConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			ok, err := m.Terminate(gctx, id)
			if err != nil {
				return err
			}
			if ok {
				terminated.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(terminated.Load()), fmt.Errorf("failed to terminate user sessions: %w", err)
	}

	if len(ids) > 0 {
		if err := m.store.SRem(ctx, userSessionsKey(userID), ids...); err != nil {
			m.logger.Warn("Session manager: failed to prune session index",
				"user_id", userID,
				"error", err.Error())
		}
	}

	count := int(terminated.Load())
	m.logger.Info("Session manager: user sessions terminated",
		"user_id", userID,
		"count", count)

	return count, nil
}

// List returns the live sessions of the user and prunes index entries that no longer
// point at one.
func (m *SessionManager) List(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	ids, err := m.store.SMembers(ctx, userSessionsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}

	sessions := make([]model.Session, 0, len(ids))
	var stale []string
	for _, id := range ids {
		session, err := m.Get(ctx, id)
		if errors.Is(err, model.ErrSession) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.UserID != userID {
			stale = append(stale, id)
			continue
		}
		sessions = append(sessions, session)
	}

	if len(stale) > 0 {
		if err := m.store.SRem(ctx, userSessionsKey(userID), stale...); err != nil {
			m.logger.Warn("Session manager: failed to prune session index",
				"user_id", userID,
				"error", err.Error())
		}
	}

	return sessions, nil
}

// remove drops an expired or terminated record. Failures are logged, the record is
// already unusable.
func (m *SessionManager) remove(ctx context.Context, session model.Session) {
	if _, err := m.store.Delete(ctx, sessionKey(session.ID)); err != nil {
		m.logger.Warn("Session manager: failed to remove stale session",
			"session_id", session.ID,
			"error", err.Error())
	}
	if err := m.store.SRem(ctx, userSessionsKey(session.UserID), session.ID); err != nil {
		m.logger.Warn("Session manager: failed to unindex stale session",
			"session_id", session.ID,
			"error", err.Error())
	}
}
