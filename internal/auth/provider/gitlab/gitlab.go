package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/maikschneider/oauth2/internal/auth"
	"github.com/maikschneider/oauth2/internal/auth/provider"
	"github.com/maikschneider/oauth2/internal/user"

	"golang.org/x/oauth2"
)

const providerName = "gitlab"

// Members at or above this access level on the configured project get
// the admin flag (40 = Maintainer).
const adminAccessLevel = 40

const memberExpiryFormat = "2006-01-02"

// Provider implements OAuth authentication against a GitLab instance.
// Admin eligibility and account expiry derive from the user's
// membership in one configured project.
type Provider struct {
	oauthConfig *oauth2.Config
	server      string
	project     string
	http        *http.Client
}

func New(
	appID string,
	appSecret string,
	server string,
	redirectURL string,
	project string,
) (*Provider, error) {

	if appID == "" || appSecret == "" || server == "" || redirectURL == "" {
		return nil, errors.New("gitlab oauth config missing required fields")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     appID,
		ClientSecret: appSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  server + "/oauth/authorize",
			TokenURL: server + "/oauth/token",
		},
		Scopes: []string{"read_user"},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		server:      server,
		project:     project,
		http:        &http.Client{Timeout: 10 * time.Second},
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
		return nil, fmt.Errorf("%w: gitlab: %v", provider.ErrTokenExchange, err)
	}

	return token, nil
}

type gitlabUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	State    string `json:"state"`
}

type gitlabMember struct {
	AccessLevel int    `json:"access_level"`
	ExpiresAt   string `json:"expires_at"`
}

// FetchProfile loads the resource owner plus their membership on the
// configured project, so the policy hooks stay pure afterwards.
func (p *Provider) FetchProfile(
	ctx context.Context,
	token *oauth2.Token,
) (*auth.Profile, error) {

	var u gitlabUser
	if err := p.apiGet(ctx, token, "/api/v4/user", &u); err != nil {
		return nil, fmt.Errorf("%w: gitlab: %v", provider.ErrProfileFetch, err)
	}

	if u.ID == 0 || u.Username == "" {
		return nil, fmt.Errorf("%w: gitlab: response missing id or username", provider.ErrProfileFetch)
	}

	profile := &auth.Profile{
		Provider: providerName,
		ID:       strconv.FormatInt(u.ID, 10),
		Username: u.Username,
		Email:    u.Email,
		RealName: u.Name,
		Attributes: map[string]any{
			"state": u.State,
		},
	}

	if p.project != "" {
		member, err := p.fetchMembership(ctx, token, u.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: gitlab: %v", provider.ErrProfileFetch, err)
		}
		if member != nil {
			profile.Attributes["access_level"] = member.AccessLevel
			profile.Attributes["member_expires_at"] = member.ExpiresAt
		}
	}

	return profile, nil
}

// fetchMembership returns nil when the user is not a member of the
// configured project.
func (p *Provider) fetchMembership(
	ctx context.Context,
	token *oauth2.Token,
	userID int64,
) (*gitlabMember, error) {

	path := fmt.Sprintf(
		"/api/v4/projects/%s/members/all/%d",
		url.PathEscape(p.project),
		userID,
	)

	var member gitlabMember
	err := p.apiGet(ctx, token, path, &member)
	if err != nil {
		var status apiError
		if errors.As(err, &status) && status.code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &member, nil
}

type apiError struct {
	code int
	path string
}

func (e apiError) Error() string {
	return fmt.Sprintf("gitlab api %s returned status %d", e.path, e.code)
}

func (p *Provider) apiGet(
	ctx context.Context,
	token *oauth2.Token,
	path string,
	out any,
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.server+path, nil)
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)

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

// AdminEligible grants admin to maintainers and owners of the
// configured project.
func (p *Provider) AdminEligible(profile *auth.Profile) bool {
	level, ok := profile.Attributes["access_level"].(int)
	return ok && level >= adminAccessLevel
}

// ExpiresAt maps a project membership expiry onto the account's
// validity window; nil means unrestricted.
func (p *Provider) ExpiresAt(profile *auth.Profile) *time.Time {
	raw := profile.Attr("member_expires_at")
	if raw == "" {
		return nil
	}

	t, err := time.Parse(memberExpiryFormat, raw)
	if err != nil {
		return nil
	}
	return &t
}

// Active reports whether the GitLab account is neither blocked nor
// deactivated.
func (p *Provider) Active(profile *auth.Profile) bool {
	return profile.Attr("state") == "active"
}

// MergeIntoRecord applies GitLab profile fields onto the record.
// Unrelated fields are left untouched.
func (p *Provider) MergeIntoRecord(profile *auth.Profile, r *user.Record) {
	r.Username = profile.Username
	r.Email = profile.Email
	r.RealName = profile.RealName
}
