package auth

// Profile represents a normalized external identity fetched from an
// OAuth provider during one login transaction. It contains facts only,
// no decisions, and is never persisted.
type Profile struct {
	Provider string // e.g. "gitlab", "github"
	ID       string // provider-scoped unique user identifier
	Username string
	Email    string
	RealName string

	// Attributes carries the raw provider payload the policy hooks are
	// derived from (activity state, project membership, claims).
	Attributes map[string]any
}

// Attr returns a raw string attribute or "" when absent.
func (p *Profile) Attr(key string) string {
	if p.Attributes == nil {
		return ""
	}
	v, ok := p.Attributes[key].(string)
	if !ok {
		return ""
	}
	return v
}
