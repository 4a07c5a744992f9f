package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session.
// It intentionally stores only identity pointers, not auth state.
type Session struct {
	SessionID string    // unique session identifier
	UserID    int64     // references users.uid
	CreatedAt time.Time
	ExpiresAt time.Time // absolute expiry time
}

// PendingLogin is the one in-flight OAuth authorization a session may
// hold: the anti-forgery state issued before the provider redirect.
// It is single use; reading it always removes it.
type PendingLogin struct {
	AttemptID string    `json:"attempt_id"` // correlation id for logs
	Provider  string    `json:"provider"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines how sessions and pending logins are stored and
// retrieved. Implementations (e.g., Redis) must remain stateless
// and opaque.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error

	// PutPending stores the pending login for a session, replacing any
	// previous one. TakePending returns it and deletes it in one step;
	// a missing entry yields (nil, nil).
	PutPending(ctx context.Context, sessionID string, p PendingLogin, ttl time.Duration) error
	TakePending(ctx context.Context, sessionID string) (*PendingLogin, error)
}
