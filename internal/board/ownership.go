package board

// OwnershipStatus classifies the outcome of resolving an entity to its
// owning board.
type OwnershipStatus int

const (
	// OwnershipFound means the board exists and the acting user owns it.
	OwnershipFound OwnershipStatus = iota
	// OwnershipParentMissing means the parent chain up to the board is broken.
	OwnershipParentMissing
	// OwnershipNotOwned means the board exists but belongs to someone else.
	OwnershipNotOwned
)

// Ownership is the resolved authorization decision for one target entity.
type Ownership struct {
	Board  *Board
	Status OwnershipStatus
}

// ResolveOwner applies the ownership rule to a looked-up board. A nil board
// means the lookup (or any step of the parent chain) found nothing.
func ResolveOwner(b *Board, userID string) Ownership {
	if b == nil {
		return Ownership{Status: OwnershipParentMissing}
	}
	if b.OwnerUserID != userID {
		return Ownership{Status: OwnershipNotOwned}
	}
	return Ownership{Board: b, Status: OwnershipFound}
}

// Err maps the decision onto the service error taxonomy. Callers that must
// hide a foreign board's existence collapse ErrAccessDenied to ErrNotFound
// themselves; nested mutation paths report the two distinctly.
func (o Ownership) Err() error {
	switch o.Status {
	case OwnershipParentMissing:
		return ErrNotFound
	case OwnershipNotOwned:
		return ErrAccessDenied
	default:
		return nil
	}
}

// Denied reports whether the decision forbids the operation.
func (o Ownership) Denied() bool {
	return o.Status != OwnershipFound
}
