// Package login drives the OAuth login flow: redirect, callback,
// account resolution, and the final authentication verdict. Every
// failure collapses to an outcome with no account; no provider or
// store error escapes this package.
package login

import (
	"context"

	"github.com/maikschneider/oauth2/internal/auth/provider"
	"github.com/maikschneider/oauth2/internal/auth/resolver"
	"github.com/maikschneider/oauth2/internal/auth/state"
	"github.com/maikschneider/oauth2/internal/logger"
	"github.com/maikschneider/oauth2/internal/user"

	"golang.org/x/oauth2"
)

// KindLogin is the attempt kind this service processes; everything
// else is abstained from.
const KindLogin = "login"

// Attempt is one inbound login request as seen by the surrounding
// authentication pipeline.
type Attempt struct {
	Kind     string // "login" for credential processing
	Provider string // the oauth-provider request parameter
	State    string // anti-forgery state echoed by the provider
	Code     string // authorization code from the callback
}

// Status enumerates the terminal states of one login request.
type Status int

const (
	// StatusAbstained means this was not an OAuth login attempt, or
	// the callback could not be tied to an active attempt. The
	// surrounding pipeline tries its other methods.
	StatusAbstained Status = iota

	// StatusRedirect means the client must be sent to the provider's
	// authorization URL; nothing else happens this request.
	StatusRedirect

	// StatusRejected means the attempt failed; no account was
	// produced. Externally indistinguishable from not attempting.
	StatusRejected

	// StatusResolved means a local account was found or provisioned.
	StatusResolved
)

// Resolved carries the produced account together with the provider and
// access token of the current transaction, which VerifyAccount needs.
// The token lives only for this request.
type Resolved struct {
	Record   *user.Record
	Provider provider.Provider
	Token    *oauth2.Token
}

type Outcome struct {
	Status      Status
	RedirectURL string
	Resolved    *Resolved
}

func abstained() Outcome { return Outcome{Status: StatusAbstained} }
func rejected() Outcome  { return Outcome{Status: StatusRejected} }

// Verdict is the answer VerifyAccount gives the surrounding
// authentication chain.
type Verdict int

const (
	// VerdictInconclusive defers to the chain's other checks. It is
	// never a hard reject by itself.
	VerdictInconclusive Verdict = iota

	// VerdictPass confirms the account may authenticate.
	VerdictPass
)

// Service is the login orchestrator.
type Service struct {
	providers *provider.Registry
	guard     *state.Guard
	resolver  resolver.Resolver
}

func NewService(
	providers *provider.Registry,
	guard *state.Guard,
	resolver resolver.Resolver,
) *Service {
	return &Service{
		providers: providers,
		guard:     guard,
		resolver:  resolver,
	}
}

// Login runs the state machine for one request.
//
//	no state param  -> issue state, redirect to provider
//	state mismatch  -> abstain (pending state already consumed)
//	state ok        -> exchange code, fetch profile, resolve account
func (s *Service) Login(
	ctx context.Context,
	a Attempt,
	sessionID string,
) Outcome {

	if a.Kind != KindLogin || a.Provider == "" {
		return abstained()
	}

	p, err := s.providers.Get(a.Provider)
	if err != nil {
		logger.Warn("login attempt for unknown provider", map[string]any{
			"provider": a.Provider,
		})
		return abstained()
	}

	if a.State == "" {
		value, err := s.guard.Issue(ctx, sessionID, p.Name())
		if err != nil {
			logger.Error("failed to issue oauth state", map[string]any{
				"provider": p.Name(),
				"error":    err.Error(),
			})
			return rejected()
		}
		return Outcome{
			Status:      StatusRedirect,
			RedirectURL: p.AuthCodeURL(value),
		}
	}

	// Validation consumes the pending state whatever the outcome, so a
	// replayed callback finds nothing to match against.
	if !s.guard.Validate(ctx, sessionID, a.State) {
		return abstained()
	}

	token, err := p.ExchangeCode(ctx, a.Code)
	if err != nil {
		logger.Warn("oauth code exchange failed", map[string]any{
			"provider": p.Name(),
			"error":    err.Error(),
		})
		return rejected()
	}

	profile, err := p.FetchProfile(ctx, token)
	if err != nil {
		logger.Warn("oauth profile fetch failed", map[string]any{
			"provider": p.Name(),
			"error":    err.Error(),
		})
		return rejected()
	}

	record, err := s.resolver.Resolve(ctx, p, profile)
	if err != nil || record == nil {
		logger.Error("account resolution failed", map[string]any{
			"provider": p.Name(),
			"error":    errString(err),
		})
		return rejected()
	}

	return Outcome{
		Status: StatusResolved,
		Resolved: &Resolved{
			Record:   record,
			Provider: p,
			Token:    token,
		},
	}
}

// VerifyAccount renders the authentication verdict for a resolved
// account: pass only when the record is OAuth-linked and the provider
// still reports the external account active for the current token.
// Anything else defers to the rest of the chain.
func (s *Service) VerifyAccount(ctx context.Context, r *Resolved) Verdict {
	if r == nil || r.Record == nil || r.Record.OAuthIdentifier == "" {
		return VerdictInconclusive
	}

	profile, err := r.Provider.FetchProfile(ctx, r.Token)
	if err != nil {
		logger.Warn("verification profile fetch failed", map[string]any{
			"provider": r.Provider.Name(),
			"error":    err.Error(),
		})
		return VerdictInconclusive
	}

	if !r.Provider.Active(profile) {
		return VerdictInconclusive
	}

	return VerdictPass
}

func errString(err error) string {
	if err == nil {
		return "resolver returned no account"
	}
	return err.Error()
}
