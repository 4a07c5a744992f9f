package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maikschneider/oauth2/internal/auth"
	"github.com/maikschneider/oauth2/internal/auth/provider"
	"github.com/maikschneider/oauth2/internal/logger"
	"github.com/maikschneider/oauth2/internal/user"
)

// ErrResolution marks a store failure while finding or writing the
// account.
var ErrResolution = errors.New("account resolution failed")

// StoreResolver resolves profiles against the persistent user store.
type StoreResolver struct {
	store user.Store
	now   func() time.Time
}

func NewStoreResolver(store user.Store) *StoreResolver {
	return &StoreResolver{
		store: store,
		now:   time.Now,
	}
}

// Resolve finds or creates the local account for the profile.
//
// The identifier lookup wins because it is provider-scoped and
// unambiguous. The username-or-email fallback can match several
// records; the store's natural order decides, which is a documented
// ambiguity rather than a tie-break rule. Provider-derived fields
// (admin, disable, validity window, identifier) are refreshed on
// every login, not just on first link.
func (r *StoreResolver) Resolve(
	ctx context.Context,
	p provider.Provider,
	profile *auth.Profile,
) (*user.Record, error) {

	identifier := p.Identifier(profile)

	record, err := r.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolution, err)
	}

	if record == nil {
		record, err = r.store.FindByUsernameOrEmail(
			ctx,
			p.Username(profile),
			p.Email(profile),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResolution, err)
		}
	}

	if record == nil {
		return r.create(ctx, p, profile, identifier)
	}

	return r.refresh(ctx, p, profile, identifier, record)
}

func (r *StoreResolver) create(
	ctx context.Context,
	p provider.Provider,
	profile *auth.Profile,
	identifier string,
) (*user.Record, error) {

	now := r.now()

	record := &user.Record{
		Password:        user.PasswordSentinel,
		OAuthIdentifier: identifier,
		Admin:           p.AdminEligible(profile),
		Disable:         false,
		CrDate:          now,
		TStamp:          now,
	}

	if expires := p.ExpiresAt(profile); expires != nil {
		record.EndTime = *expires
	}

	p.MergeIntoRecord(profile, record)

	// The identifier is written with the insert itself, so the record
	// is never matchable by username or email without also being
	// matchable by identifier.
	if err := r.store.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolution, err)
	}

	// Round-trip through the store's own lookup so downstream
	// consumers see the exact shape the store produces, including any
	// store-side defaulting.
	canonical, err := r.store.FetchCanonical(ctx, p.Username(profile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	if canonical == nil {
		return nil, fmt.Errorf("%w: inserted account not found by canonical lookup", ErrResolution)
	}

	logger.Info("oauth account provisioned", map[string]any{
		"uid":      canonical.UID,
		"provider": profile.Provider,
		"admin":    canonical.Admin,
	})

	return canonical, nil
}

func (r *StoreResolver) refresh(
	ctx context.Context,
	p provider.Provider,
	profile *auth.Profile,
	identifier string,
	record *user.Record,
) (*user.Record, error) {

	// A returning OAuth user is never left disabled by this path; the
	// provider is authoritative for these fields on every login.
	record.Admin = p.AdminEligible(profile)
	record.Disable = false
	record.StartTime = time.Time{}
	record.EndTime = time.Time{}
	record.OAuthIdentifier = identifier
	record.TStamp = r.now()

	if expires := p.ExpiresAt(profile); expires != nil {
		record.EndTime = *expires
	}

	p.MergeIntoRecord(profile, record)

	if err := r.store.UpdateByUID(ctx, record.UID, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolution, err)
	}

	return record, nil
}
