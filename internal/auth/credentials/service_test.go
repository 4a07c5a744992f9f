package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/maikschneider/oauth2/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves a single record for any matching lookup.
type fakeStore struct {
	record *user.Record
}

func (s *fakeStore) FindByIdentifier(context.Context, string) (*user.Record, error) {
	return nil, nil
}

func (s *fakeStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*user.Record, error) {
	if s.record == nil {
		return nil, nil
	}
	if s.record.Username == username || s.record.Email == email {
		copied := *s.record
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) Insert(context.Context, *user.Record) error             { return nil }
func (s *fakeStore) UpdateByUID(context.Context, int64, *user.Record) error { return nil }

func (s *fakeStore) FetchCanonical(context.Context, string) (*user.Record, error) {
	return nil, nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return hash
}

func TestAuthenticate_ValidCredentials(t *testing.T) {
	store := &fakeStore{record: &user.Record{
		UID:      3,
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: hashed(t, "correct horse battery"),
	}}
	svc := NewService(store)

	record, err := svc.Authenticate(context.Background(), "jdoe", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, int64(3), record.UID)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	store := &fakeStore{record: &user.Record{
		Username: "jdoe",
		Password: hashed(t, "correct horse battery"),
	}}
	svc := NewService(store)

	_, err := svc.Authenticate(context.Background(), "jdoe", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	svc := NewService(&fakeStore{})

	_, err := svc.Authenticate(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_SentinelPasswordNeverVerifies(t *testing.T) {
	// OAuth-provisioned accounts carry the sentinel instead of a hash;
	// no password, including the sentinel itself, may pass.
	store := &fakeStore{record: &user.Record{
		Username: "jdoe",
		Password: user.PasswordSentinel,
	}}
	svc := NewService(store)

	for _, password := range []string{user.PasswordSentinel, "", "guess"} {
		_, err := svc.Authenticate(context.Background(), "jdoe", password)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func TestAuthenticate_DisabledAccountRejected(t *testing.T) {
	store := &fakeStore{record: &user.Record{
		Username: "jdoe",
		Password: hashed(t, "correct horse battery"),
		Disable:  true,
	}}
	svc := NewService(store)

	_, err := svc.Authenticate(context.Background(), "jdoe", "correct horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_ValidityWindowEnforced(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	cases := []struct {
		name       string
		start, end time.Time
		ok         bool
	}{
		{"unrestricted", time.Time{}, time.Time{}, true},
		{"inside window", past, future, true},
		{"not yet valid", future, time.Time{}, false},
		{"expired", time.Time{}, past, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{record: &user.Record{
				Username:  "jdoe",
				Password:  hashed(t, "correct horse battery"),
				StartTime: tc.start,
				EndTime:   tc.end,
			}}
			svc := NewService(store)

			_, err := svc.Authenticate(context.Background(), "jdoe", "correct horse battery")
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
			}
		})
	}
}

func TestHashPassword_RejectsShortPasswords(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}
