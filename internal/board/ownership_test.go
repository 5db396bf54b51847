package board

import (
	"errors"
	"testing"
)

func TestResolveOwner(t *testing.T) {
	b := &Board{ID: "b-1", OwnerUserID: "alice"}

	own := ResolveOwner(b, "alice")
	if own.Status != OwnershipFound || own.Denied() || own.Err() != nil {
		t.Fatalf("owner should be granted: %+v", own)
	}
	if own.Board != b {
		t.Fatal("resolved board not returned")
	}

	own = ResolveOwner(b, "mallory")
	if own.Status != OwnershipNotOwned || !own.Denied() {
		t.Fatalf("foreign user should be denied: %+v", own)
	}
	if !errors.Is(own.Err(), ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", own.Err())
	}

	own = ResolveOwner(nil, "alice")
	if own.Status != OwnershipParentMissing {
		t.Fatalf("nil board should be parent-missing: %+v", own)
	}
	if !errors.Is(own.Err(), ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", own.Err())
	}
}
