package provider

import (
	"context"
	"errors"
	"time"

	"github.com/maikschneider/oauth2/internal/auth"
	"github.com/maikschneider/oauth2/internal/user"

	"golang.org/x/oauth2"
)

// Error kinds reported at the provider boundary. Any transport,
// protocol, or provider-side failure collapses to one of these; raw
// network errors never cross this interface unwrapped.
var (
	ErrTokenExchange = errors.New("token exchange failed")
	ErrProfileFetch  = errors.New("profile fetch failed")
)

// Provider defines the contract every external identity provider must
// implement. Implementations return identity facts and provider policy
// only and must not perform user creation, linking, or session
// management.
//
// The extraction and policy methods (Identifier through Active) are
// pure functions of the profile: deterministic, no side effects. Any
// network work they depend on happens inside FetchProfile.
type Provider interface {
	// Name returns the provider identifier (e.g. "gitlab").
	Name() string

	// AuthCodeURL returns the provider's consent-redirect URL with the
	// given anti-forgery state embedded.
	AuthCodeURL(state string) string

	// ExchangeCode exchanges the authorization code for an access
	// token. Failures wrap ErrTokenExchange.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchProfile loads the resource owner for the token, including
	// everything the policy hooks below need. Failures wrap
	// ErrProfileFetch.
	FetchProfile(ctx context.Context, token *oauth2.Token) (*auth.Profile, error)

	// Identifier returns the provider-scoped value stored as the
	// record's oauth identifier.
	Identifier(p *auth.Profile) string
	Username(p *auth.Profile) string
	Email(p *auth.Profile) string

	// AdminEligible reports whether the profile grants admin rights
	// under this provider's policy (e.g. membership in a designated
	// project).
	AdminEligible(p *auth.Profile) bool

	// ExpiresAt returns when the account's validity should end, or nil
	// for unrestricted.
	ExpiresAt(p *auth.Profile) *time.Time

	// Active reports whether the external account is currently enabled.
	Active(p *auth.Profile) bool

	// MergeIntoRecord applies provider-supplied attributes onto the
	// record without clearing unrelated fields.
	MergeIntoRecord(p *auth.Profile, r *user.Record)
}
