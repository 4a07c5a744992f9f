// Package state implements the anti-forgery handshake that binds an
// OAuth callback to the session that initiated the redirect.
package state

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/maikschneider/oauth2/internal/logger"
	"github.com/maikschneider/oauth2/internal/session"

	"github.com/google/uuid"
)

const (
	stateSize  = 32 // 256 bits
	defaultTTL = 5 * time.Minute
)

// Guard issues and validates single-use anti-forgery state values,
// one per session.
type Guard struct {
	sessions session.Store
	ttl      time.Duration
}

func NewGuard(sessions session.Store) *Guard {
	return &Guard{
		sessions: sessions,
		ttl:      defaultTTL,
	}
}

// Issue generates an unguessable state value and stores it as the
// session's pending login, replacing any previous one.
func (g *Guard) Issue(
	ctx context.Context,
	sessionID string,
	providerName string,
) (string, error) {

	b := make([]byte, stateSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("state: failed to generate: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(b)

	pending := session.PendingLogin{
		AttemptID: uuid.NewString(),
		Provider:  providerName,
		State:     value,
		CreatedAt: time.Now(),
	}

	if err := g.sessions.PutPending(ctx, sessionID, pending, g.ttl); err != nil {
		return "", fmt.Errorf("state: failed to store pending login: %w", err)
	}

	logger.Info("oauth state issued", map[string]any{
		"attempt_id": pending.AttemptID,
		"provider":   providerName,
	})

	return value, nil
}

// Validate consumes the session's pending login and reports whether
// the returned state matches it. The stored value is removed on every
// outcome; a state is valid exactly once. No pending login means no
// active attempt, which is a plain false, not an error.
func (g *Guard) Validate(
	ctx context.Context,
	sessionID string,
	returned string,
) bool {

	pending, err := g.sessions.TakePending(ctx, sessionID)
	if err != nil {
		logger.Error("failed to read pending login", map[string]any{
			"error": err.Error(),
		})
		return false
	}
	if pending == nil {
		return false
	}

	if returned == "" {
		return false
	}

	ok := subtle.ConstantTimeCompare([]byte(returned), []byte(pending.State)) == 1
	if !ok {
		logger.Warn("oauth state mismatch", map[string]any{
			"attempt_id": pending.AttemptID,
			"provider":   pending.Provider,
		})
	}
	return ok
}
