package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/maikschneider/oauth2/internal/user"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Service is the password check the authentication chain falls back to
// when the OAuth path abstains.
type Service struct {
	store user.Store
	now   func() time.Time
}

func NewService(store user.Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// Authenticate verifies a username-or-email plus password pair and
// returns the matching usable account.
func (s *Service) Authenticate(
	ctx context.Context,
	login string,
	password string,
) (*user.Record, error) {

	record, err := s.store.FindByUsernameOrEmail(ctx, login, login)
	if err != nil || record == nil {
		// hide whether the account exists
		return nil, ErrInvalidCredentials
	}

	if !usable(record, s.now()) {
		return nil, ErrInvalidCredentials
	}

	if err := VerifyPassword(record.Password, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return record, nil
}

// usable checks the disable flag and the validity window. Zero window
// bounds mean unrestricted.
func usable(r *user.Record, now time.Time) bool {
	if r.Disable {
		return false
	}
	if !r.StartTime.IsZero() && now.Before(r.StartTime) {
		return false
	}
	if !r.EndTime.IsZero() && now.After(r.EndTime) {
		return false
	}
	return true
}
