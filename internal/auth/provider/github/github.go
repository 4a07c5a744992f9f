// Package github implements OAuth 2.0 authentication with GitHub.
// GitHub issues no ID token, so the profile comes from separate API
// calls after the code exchange.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/maikschneider/oauth2/internal/auth"
	"github.com/maikschneider/oauth2/internal/auth/provider"
	"github.com/maikschneider/oauth2/internal/user"

	"golang.org/x/oauth2"
	oauth2github "golang.org/x/oauth2/github"
)

const providerName = "github"

const apiBase = "https://api.github.com"

// Provider implements OAuth authentication against GitHub. Admin
// eligibility derives from active membership in one configured
// organization.
type Provider struct {
	oauthConfig *oauth2.Config
	adminOrg    string
	http        *http.Client
	api         string
}

func New(
	clientID string,
	clientSecret string,
	redirectURL string,
	adminOrg string,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oauth2github.Endpoint,
		Scopes:       []string{"read:user", "user:email", "read:org"},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		adminOrg:    adminOrg,
		http:        &http.Client{Timeout: 10 * time.Second},
		api:         apiBase,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
) (*oauth2.Token, error) {

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.http)

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: github: %v", provider.ErrTokenExchange, err)
	}

	return token, nil
}

type githubUser struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	SuspendedAt string `json:"suspended_at"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type githubMembership struct {
	State string `json:"state"`
	Role  string `json:"role"`
}

func (p *Provider) FetchProfile(
	ctx context.Context,
	token *oauth2.Token,
) (*auth.Profile, error) {

	var u githubUser
	if err := p.apiGet(ctx, token, "/user", &u); err != nil {
		return nil, fmt.Errorf("%w: github: %v", provider.ErrProfileFetch, err)
	}

	if u.ID == 0 || u.Login == "" {
		return nil, fmt.Errorf("%w: github: response missing id or login", provider.ErrProfileFetch)
	}

	// The public profile may hide the email; the emails endpoint
	// always carries the primary verified one.
	email := u.Email
	if email == "" {
		var emails []githubEmail
		if err := p.apiGet(ctx, token, "/user/emails", &emails); err != nil {
			return nil, fmt.Errorf("%w: github: %v", provider.ErrProfileFetch, err)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	profile := &auth.Profile{
		Provider: providerName,
		ID:       strconv.FormatInt(u.ID, 10),
		Username: u.Login,
		Email:    email,
		RealName: u.Name,
		Attributes: map[string]any{
			"suspended_at": u.SuspendedAt,
		},
	}

	if p.adminOrg != "" {
		var m githubMembership
		err := p.apiGet(ctx, token, "/user/memberships/orgs/"+p.adminOrg, &m)
		switch {
		case err == nil:
			profile.Attributes["org_state"] = m.State
			profile.Attributes["org_role"] = m.Role
		case isNotFound(err):
			// not a member
		default:
			return nil, fmt.Errorf("%w: github: %v", provider.ErrProfileFetch, err)
		}
	}

	return profile, nil
}

type apiError struct {
	code int
	path string
}

func (e apiError) Error() string {
	return fmt.Sprintf("github api %s returned status %d", e.path, e.code)
}

func isNotFound(err error) bool {
	var status apiError
	return errors.As(err, &status) && status.code == http.StatusNotFound
}

func (p *Provider) apiGet(
	ctx context.Context,
	token *oauth2.Token,
	path string,
	out any,
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.api+path, nil)
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError{code: resp.StatusCode, path: path}
	}

	return json.NewDecoder(resp.Body).Decode(out)
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

// AdminEligible grants admin to active members of the configured
// organization.
func (p *Provider) AdminEligible(profile *auth.Profile) bool {
	return profile.Attr("org_state") == "active"
}

// ExpiresAt is always nil; GitHub memberships carry no expiry.
func (p *Provider) ExpiresAt(profile *auth.Profile) *time.Time {
	return nil
}

// Active reports whether the GitHub account is not suspended.
func (p *Provider) Active(profile *auth.Profile) bool {
	return profile.Attr("suspended_at") == ""
}

// MergeIntoRecord applies GitHub profile fields onto the record.
func (p *Provider) MergeIntoRecord(profile *auth.Profile, r *user.Record) {
	r.Username = profile.Username
	r.Email = profile.Email
	r.RealName = profile.RealName
}
