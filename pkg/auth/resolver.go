package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskward/taskward/pkg/storage"
)

// Externally visible resolution failures. The three verification
// subtypes collapse into ErrInvalidToken so callers cannot distinguish
// an expired credential from a forged one.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUserNotFound = errors.New("user not found")
)

// Principal is the authenticated identity attached to a request. It is
// a projection of the stored user: the password hash and timestamps are
// deliberately absent, and it lives for one request (or one real-time
// connection session).
type Principal struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Resolver turns a raw token into a Principal. Every resolution
// re-reads the user from the store: a credential that verified a minute
// ago is worthless once the account is gone.
type Resolver struct {
	codec  *Codec
	users  storage.UserStore
	logger *slog.Logger
}

// NewResolver creates a resolver. logger may be nil, in which case the
// default logger is used.
func NewResolver(codec *Codec, users storage.UserStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{codec: codec, users: users, logger: logger}
}

// Resolve verifies the credential and re-resolves the claimed identity
// against the user store. The lookup matches id AND email so a token
// minted for a deleted account whose id was reused cannot impersonate
// the new owner.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Principal, error) {
	claims, err := r.codec.Verify(token)
	if err != nil {
		// The subtype stays in the logs only.
		r.logger.Debug("credential verification failed", "reason", err)
		return nil, ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		r.logger.Debug("credential carries non-numeric subject", "reason", err)
		return nil, ErrInvalidToken
	}

	user, err := r.users.UserByIDAndEmail(ctx, userID, claims.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up user %d: %w", userID, err)
	}

	return &Principal{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}
