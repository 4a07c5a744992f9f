package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maikschneider/oauth2/internal/auth"
	"github.com/maikschneider/oauth2/internal/auth/provider"
	"github.com/maikschneider/oauth2/internal/user"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = "google"

const issuer = "https://accounts.google.com"

// Provider implements OpenID Connect authentication against Google.
// Admin eligibility derives from the account's hosted domain matching
// one configured workspace domain.
type Provider struct {
	oauthConfig  *oauth2.Config
	oidcProvider *oidc.Provider
	adminDomain  string
}

func New(
	ctx context.Context,
	clientID string,
	clientSecret string,
	redirectURL string,
	adminDomain string,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return &Provider{
		oauthConfig:  oauthCfg,
		oidcProvider: oidcProvider,
		adminDomain:  adminDomain,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
) (*oauth2.Token, error) {

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", provider.ErrTokenExchange, err)
	}

	return token, nil
}

// FetchProfile resolves the resource owner through the UserInfo
// endpoint, which carries issuer-verified claims for the token.
func (p *Provider) FetchProfile(
	ctx context.Context,
	token *oauth2.Token,
) (*auth.Profile, error) {

	info, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", provider.ErrProfileFetch, err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		HostedDomain  string `json:"hd"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: google: claims parse failed: %v", provider.ErrProfileFetch, err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: google: userinfo missing required claims", provider.ErrProfileFetch)
	}

	return &auth.Profile{
		Provider: providerName,
		ID:       claims.Subject,
		Username: usernameFromEmail(claims.Email),
		Email:    claims.Email,
		RealName: claims.Name,
		Attributes: map[string]any{
			"email_verified": claims.EmailVerified,
			"hd":             claims.HostedDomain,
		},
	}, nil
}

// usernameFromEmail derives a stable username; Google has no separate
// login name.
func usernameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

// Identifier returns the provider-scoped oauth identifier.
func (p *Provider) Identifier(profile *auth.Profile) string {
	return providerName + ":" + profile.ID
}

func (p *Provider) Username(profile *auth.Profile) string {
	return profile.Username
}

func (p *Provider) Email(profile *auth.Profile) string {
	return profile.Email
}

// AdminEligible grants admin to verified accounts of the configured
// workspace domain.
func (p *Provider) AdminEligible(profile *auth.Profile) bool {
	if p.adminDomain == "" {
		return false
	}
	verified, _ := profile.Attributes["email_verified"].(bool)
	return verified && profile.Attr("hd") == p.adminDomain
}

// ExpiresAt is always nil; Google accounts carry no expiry.
func (p *Provider) ExpiresAt(profile *auth.Profile) *time.Time {
	return nil
}

// Active reports whether Google asserts ownership of the email.
func (p *Provider) Active(profile *auth.Profile) bool {
	verified, _ := profile.Attributes["email_verified"].(bool)
	return verified
}

// MergeIntoRecord applies Google profile fields onto the record.
func (p *Provider) MergeIntoRecord(profile *auth.Profile, r *user.Record) {
	r.Username = profile.Username
	r.Email = profile.Email
	r.RealName = profile.RealName
}
