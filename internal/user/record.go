package user

import (
	"context"
	"time"
)

// PasswordSentinel is stored on accounts provisioned through OAuth. It
// is not a valid bcrypt hash, so a credential comparison against it can
// never succeed.
const PasswordSentinel = "invalid"

// Record is the persisted local account.
type Record struct {
	UID      int64
	Username string
	Email    string
	RealName string

	// Password holds a bcrypt hash, or PasswordSentinel for accounts
	// that can only sign in through their linked provider.
	Password string

	// OAuthIdentifier binds the record to exactly one external
	// identity. Empty means the account is not OAuth-linked.
	OAuthIdentifier string

	Admin   bool
	Disable bool

	// Validity window. Zero values mean unrestricted.
	StartTime time.Time
	EndTime   time.Time

	CrDate time.Time
	TStamp time.Time
}

// Store is the narrow surface the login flow needs from the user store.
// Lookups return (nil, nil) when no record matches. Each operation is
// individually atomic; no transaction spans a lookup and an insert.
type Store interface {
	// FindByIdentifier matches the provider-scoped oauth identifier.
	FindByIdentifier(ctx context.Context, identifier string) (*Record, error)

	// FindByUsernameOrEmail returns the first record, in the store's
	// natural order, whose username or email matches. Multiple records
	// may match; no further tie-break is applied.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*Record, error)

	// Insert persists a new record, including its oauth identifier, in
	// a single statement and fills in the assigned UID.
	Insert(ctx context.Context, r *Record) error

	// UpdateByUID overwrites every column of the row with the given
	// key from r (full-row write, not a sparse patch).
	UpdateByUID(ctx context.Context, uid int64, r *Record) error

	// FetchCanonical re-reads a record through the store's own
	// username lookup, picking up any store-side defaulting.
	FetchCanonical(ctx context.Context, username string) (*Record, error)
}
