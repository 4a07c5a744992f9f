package resolver

import (
	"context"

	"github.com/maikschneider/oauth2/internal/auth"
	"github.com/maikschneider/oauth2/internal/auth/provider"
	"github.com/maikschneider/oauth2/internal/user"
)

// Resolver determines which local account an external profile belongs
// to, provisioning one when none exists. It is the ONLY place where
// identity-to-account mapping logic lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		p provider.Provider,
		profile *auth.Profile,
	) (*user.Record, error)
}
