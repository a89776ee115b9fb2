package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"disputedesk-hq/guardrail/pkg/pii"
)

func TestIdentity_Hash(t *testing.T) {
	if got := (Identity{}).Hash(); got != Anonymous {
		t.Errorf("expected anonymous hash, got %q", got)
	}

	id := New("user_123")
	if id.IsAnonymous() {
		t.Error("identity with a user id is not anonymous")
	}
	if got := id.Hash(); got != pii.HashUserID("user_123") {
		t.Errorf("unexpected hash %q", got)
	}
	if id.String() != id.Hash() {
		t.Error("String should never expose the raw user id")
	}
}

func TestIdentity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{"simple", "user_123", false},
		{"hyphen", "cust-42", false},
		{"empty", "", true},
		{"space", "user 123", true},
		{"injection", "u1; DROP TABLE", true},
		{"too long", strings.Repeat("a", MaxUserIDLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.userID).Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidUserID) {
				t.Errorf("expected ErrInvalidUserID, got %v", err)
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	if !FromContext(context.Background()).IsAnonymous() {
		t.Error("empty context should yield anonymous identity")
	}
	ctx := WithContext(context.Background(), New("user_9"))
	if got := FromContext(ctx).UserID; got != "user_9" {
		t.Errorf("expected user_9, got %q", got)
	}
}
