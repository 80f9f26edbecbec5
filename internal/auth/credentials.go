package auth

import (
	"context"
	"errors"
	"fmt"

	"weatherfav/internal/domain"
	"weatherfav/internal/repository"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// hashed once per verifier so unknown accounts still pay a bcrypt compare
const timingPadPassword = "weatherfav-timing-pad"

// UserFinder looks up accounts by their login email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CredentialVerifier checks an email/password pair at login time.
type CredentialVerifier struct {
	users     UserFinder
	hasher    PasswordHasher
	dummyHash string
}

func NewCredentialVerifier(users UserFinder, hasher PasswordHasher) (*CredentialVerifier, error) {
	dummy, err := hasher.Hash(timingPadPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare timing pad hash: %w", err)
	}
	return &CredentialVerifier{
		users:     users,
		hasher:    hasher,
		dummyHash: dummy,
	}, nil
}

// Verify returns the account for a matching email/password pair. A missing
// account costs the same bcrypt compare as a wrong password and yields the
// same ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			v.hasher.Verify(password, v.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if !v.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
