// Package identity carries the end user a request acts for.
//
// An Identity is passed explicitly to every layer that needs it (audit,
// assistant tools, storage queries) instead of living in ambient state, so
// concurrent sessions can never observe each other's user.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"disputedesk-hq/guardrail/pkg/pii"
)

// Anonymous is the user hash recorded when no user id is known.
const Anonymous = "anonymous"

// MaxUserIDLength bounds accepted user ids.
const MaxUserIDLength = 128

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrInvalidUserID is matched by every validation failure.
var ErrInvalidUserID = errors.New("invalid user id")

// Identity is an opaque user identifier. The zero value is anonymous.
type Identity struct {
	UserID string
}

// New returns an identity for userID.
func New(userID string) Identity {
	return Identity{UserID: userID}
}

// IsAnonymous reports whether no user id is set.
func (id Identity) IsAnonymous() bool {
	return id.UserID == ""
}

// Hash returns the pseudonymous user hash written to audit entries.
func (id Identity) Hash() string {
	if id.IsAnonymous() {
		return Anonymous
	}
	return pii.HashUserID(id.UserID)
}

// Validate checks that the user id is non-empty, bounded and made of
// letters, digits, underscores and hyphens.
func (id Identity) Validate() error {
	switch {
	case id.UserID == "":
		return fmt.Errorf("%w: empty", ErrInvalidUserID)
	case len(id.UserID) > MaxUserIDLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidUserID, MaxUserIDLength)
	case !userIDPattern.MatchString(id.UserID):
		return fmt.Errorf("%w: only letters, digits, '_' and '-' are allowed", ErrInvalidUserID)
	}
	return nil
}

// String returns the hashed form so identities are safe to log.
func (id Identity) String() string {
	return id.Hash()
}

type contextKey struct{}

// WithContext returns a copy of ctx carrying id. It is used only at
// transport boundaries; library code takes Identity as a parameter.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithContext, or the anonymous
// identity.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(contextKey{}).(Identity); ok {
		return id
	}
	return Identity{}
}
