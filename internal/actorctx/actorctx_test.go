package actorctx

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatalf("expected no user on a bare context")
	}

	if _, ok := UserIDFrom(WithUserID(context.Background(), "")); ok {
		t.Fatalf("expected empty id to count as absent")
	}

	id, ok := UserIDFrom(WithUserID(context.Background(), "u1"))
	if !ok || id != "u1" {
		t.Fatalf("expected u1, got %q (%v)", id, ok)
	}
}
