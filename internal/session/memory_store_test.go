package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SessionRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := Session{
		SessionID: "sid-1",
		UserID:    42,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.UserID)

	require.NoError(t, store.Delete(ctx, "sid-1"))

	got, err = store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_GetExpiredSessionReturnsNil(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := Session{
		SessionID: "sid-1",
		UserID:    42,
		ExpiresAt: time.Now().Add(10 * time.Millisecond),
	}
	require.NoError(t, store.Create(ctx, sess))

	time.Sleep(20 * time.Millisecond)

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_CreateRejectsMissingFields(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Create(ctx, Session{UserID: 1, ExpiresAt: time.Now().Add(time.Hour)})
	assert.Error(t, err)

	err = store.Create(ctx, Session{SessionID: "sid", ExpiresAt: time.Now().Add(time.Hour)})
	assert.Error(t, err)
}

func TestMemoryStore_TakePendingIsSingleUse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	p := PendingLogin{
		AttemptID: "attempt-1",
		Provider:  "gitlab",
		State:     "xyz",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.PutPending(ctx, "sid-1", p, time.Minute))

	got, err := store.TakePending(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "xyz", got.State)
	assert.Equal(t, "gitlab", got.Provider)

	got, err = store.TakePending(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_TakePendingHonorsTTL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	p := PendingLogin{State: "xyz"}
	require.NoError(t, store.PutPending(ctx, "sid-1", p, 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	got, err := store.TakePending(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_PutPendingReplacesPrevious(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.PutPending(ctx, "sid-1", PendingLogin{State: "old"}, time.Minute))
	require.NoError(t, store.PutPending(ctx, "sid-1", PendingLogin{State: "new"}, time.Minute))

	got, err := store.TakePending(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.State)
}
