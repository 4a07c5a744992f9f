package resolver

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/maikschneider/oauth2/internal/auth"
	"github.com/maikschneider/oauth2/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/oauth2"
)

// fakeProvider implements provider.Provider with canned policy
// answers.
type fakeProvider struct {
	admin   bool
	expires *time.Time
	active  bool
}

func (f *fakeProvider) Name() string              { return "fake" }
func (f *fakeProvider) AuthCodeURL(string) string { return "https://fake.example/authorize" }

func (f *fakeProvider) ExchangeCode(context.Context, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "token"}, nil
}

func (f *fakeProvider) FetchProfile(context.Context, *oauth2.Token) (*auth.Profile, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) Identifier(p *auth.Profile) string { return "fake:" + p.ID }
func (f *fakeProvider) Username(p *auth.Profile) string   { return p.Username }
func (f *fakeProvider) Email(p *auth.Profile) string      { return p.Email }

func (f *fakeProvider) AdminEligible(*auth.Profile) bool   { return f.admin }
func (f *fakeProvider) ExpiresAt(*auth.Profile) *time.Time { return f.expires }
func (f *fakeProvider) Active(*auth.Profile) bool          { return f.active }

func (f *fakeProvider) MergeIntoRecord(p *auth.Profile, r *user.Record) {
	r.Username = p.Username
	r.Email = p.Email
	r.RealName = p.RealName
}

// fakeStore is an in-memory user.Store ordered by uid.
type fakeStore struct {
	records   map[int64]*user.Record
	nextUID   int64
	insertErr error
	updateErr error
	lookupErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[int64]*user.Record),
		nextUID: 1,
	}
}

func (s *fakeStore) add(r user.Record) *user.Record {
	if r.UID == 0 {
		r.UID = s.nextUID
	}
	if r.UID >= s.nextUID {
		s.nextUID = r.UID + 1
	}
	copied := r
	s.records[copied.UID] = &copied
	return &copied
}

func (s *fakeStore) ordered() []*user.Record {
	uids := make([]int64, 0, len(s.records))
	for uid := range s.records {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	out := make([]*user.Record, 0, len(uids))
	for _, uid := range uids {
		out = append(out, s.records[uid])
	}
	return out
}

func (s *fakeStore) FindByIdentifier(_ context.Context, identifier string) (*user.Record, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, r := range s.ordered() {
		if r.OAuthIdentifier == identifier {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*user.Record, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, r := range s.ordered() {
		if r.Username == username || r.Email == email {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Insert(_ context.Context, r *user.Record) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	r.UID = s.nextUID
	s.nextUID++
	copied := *r
	s.records[copied.UID] = &copied
	return nil
}

func (s *fakeStore) UpdateByUID(_ context.Context, uid int64, r *user.Record) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	copied := *r
	copied.UID = uid
	s.records[uid] = &copied
	return nil
}

func (s *fakeStore) FetchCanonical(_ context.Context, username string) (*user.Record, error) {
	for _, r := range s.ordered() {
		if r.Username == username {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func testProfile() *auth.Profile {
	return &auth.Profile{
		Provider: "fake",
		ID:       "1001",
		Username: "jdoe",
		Email:    "jdoe@example.com",
		RealName: "Jane Doe",
	}
}

func TestResolve_CreatesAccountForUnseenIdentifier(t *testing.T) {
	store := newFakeStore()
	p := &fakeProvider{admin: true, active: true}
	r := NewStoreResolver(store)

	record, err := r.Resolve(context.Background(), p, testProfile())
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Len(t, store.records, 1)
	assert.Equal(t, "fake:1001", record.OAuthIdentifier)
	assert.Equal(t, "jdoe", record.Username)
	assert.Equal(t, "jdoe@example.com", record.Email)
	assert.True(t, record.Admin)
	assert.False(t, record.Disable)
	assert.Equal(t, user.PasswordSentinel, record.Password)
	assert.True(t, record.StartTime.IsZero())
	assert.True(t, record.EndTime.IsZero())
	assert.False(t, record.CrDate.IsZero())
}

func TestResolve_NewAccountTakesExpiryFromProvider(t *testing.T) {
	store := newFakeStore()
	expires := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{expires: &expires, active: true}
	r := NewStoreResolver(store)

	record, err := r.Resolve(context.Background(), p, testProfile())
	require.NoError(t, err)

	assert.Equal(t, expires, record.EndTime)
	assert.True(t, record.StartTime.IsZero())
}

func TestResolve_IdentifierMatchUpdatesSameAccount(t *testing.T) {
	store := newFakeStore()
	existing := store.add(user.Record{
		UID:             7,
		Username:        "old-name",
		Email:           "old@example.com",
		Password:        user.PasswordSentinel,
		OAuthIdentifier: "fake:1001",
		Admin:           true,
		Disable:         true,
		EndTime:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	p := &fakeProvider{admin: false, active: true}
	r := NewStoreResolver(store)

	record, err := r.Resolve(context.Background(), p, testProfile())
	require.NoError(t, err)

	assert.Equal(t, existing.UID, record.UID)
	assert.Len(t, store.records, 1)

	// provider-derived fields are refreshed on every login
	assert.False(t, record.Admin)
	assert.False(t, record.Disable)
	assert.True(t, record.EndTime.IsZero())
	assert.Equal(t, "jdoe", record.Username)
	assert.Equal(t, "fake:1001", record.OAuthIdentifier)
}

func TestResolve_FallsBackToUsernameOrEmailMatch(t *testing.T) {
	store := newFakeStore()
	existing := store.add(user.Record{
		UID:      3,
		Username: "jdoe",
		Email:    "somewhere-else@example.com",
		Password: "$2a$10$something",
	})

	p := &fakeProvider{active: true}
	r := NewStoreResolver(store)

	record, err := r.Resolve(context.Background(), p, testProfile())
	require.NoError(t, err)

	assert.Equal(t, existing.UID, record.UID)
	assert.Equal(t, "fake:1001", record.OAuthIdentifier)
	assert.Len(t, store.records, 1)
}

func TestResolve_AmbiguousMatchTakesFirstInStoreOrder(t *testing.T) {
	store := newFakeStore()
	store.add(user.Record{UID: 2, Username: "jdoe", Email: "a@example.com"})
	store.add(user.Record{UID: 5, Username: "other", Email: "jdoe@example.com"})

	p := &fakeProvider{active: true}
	r := NewStoreResolver(store)

	record, err := r.Resolve(context.Background(), p, testProfile())
	require.NoError(t, err)

	assert.Equal(t, int64(2), record.UID)
}

func TestResolve_IsIdempotent(t *testing.T) {
	store := newFakeStore()
	p := &fakeProvider{active: true}
	r := NewStoreResolver(store)

	first, err := r.Resolve(context.Background(), p, testProfile())
	require.NoError(t, err)

	second, err := r.Resolve(context.Background(), p, testProfile())
	require.NoError(t, err)

	assert.Equal(t, first.UID, second.UID)
	assert.Len(t, store.records, 1)
}

func TestResolve_IdentifierLookupWinsOverUsernameMatch(t *testing.T) {
	store := newFakeStore()
	linked := store.add(user.Record{
		UID:             1,
		Username:        "unrelated",
		Email:           "unrelated@example.com",
		OAuthIdentifier: "fake:1001",
	})
	store.add(user.Record{
		UID:      2,
		Username: "jdoe",
		Email:    "jdoe@example.com",
	})

	p := &fakeProvider{active: true}
	r := NewStoreResolver(store)

	record, err := r.Resolve(context.Background(), p, testProfile())
	require.NoError(t, err)

	assert.Equal(t, linked.UID, record.UID)
}

func TestResolve_InsertFailureReturnsErrorAndNoAccount(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")

	p := &fakeProvider{active: true}
	r := NewStoreResolver(store)

	record, err := r.Resolve(context.Background(), p, testProfile())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolution)
	assert.Nil(t, record)
	assert.Empty(t, store.records)
}

func TestResolve_UpdateFailureReturnsError(t *testing.T) {
	store := newFakeStore()
	store.add(user.Record{UID: 4, OAuthIdentifier: "fake:1001"})
	store.updateErr = errors.New("connection reset")

	p := &fakeProvider{active: true}
	r := NewStoreResolver(store)

	record, err := r.Resolve(context.Background(), p, testProfile())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolution)
	assert.Nil(t, record)
}

func TestResolve_LookupFailureReturnsError(t *testing.T) {
	store := newFakeStore()
	store.lookupErr = errors.New("timeout")

	p := &fakeProvider{active: true}
	r := NewStoreResolver(store)

	record, err := r.Resolve(context.Background(), p, testProfile())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolution)
	assert.Nil(t, record)
}
