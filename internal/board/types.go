package board

import (
	"errors"
	"time"

	"taskdeck.org/internal/ids"
)

// Board is the root of the ownership hierarchy. Every authorization decision
// for lists, cards, and audit entries resolves transitively to OwnerUserID.
type Board struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID string    `json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// List is a named column within a board. Position orders siblings and is
// assigned once at creation; gaps left by deletions are never compacted.
type List struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	BoardID   string    `json:"board_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Card is a leaf work item within a list.
type Card struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	ListID      string    `json:"list_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListTree is a list with its cards in position order.
type ListTree struct {
	List
	Cards []Card `json:"cards"`
}

// BoardTree is a board with its lists and their cards in position order.
type BoardTree struct {
	Board
	Lists []ListTree `json:"lists"`
}

// AuditAction is the kind of mutation recorded in the audit log.
type AuditAction string

const (
	ActionCreate AuditAction = "CREATE"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

// AuditEntity is the kind of entity a mutation touched.
type AuditEntity string

const (
	EntityBoard AuditEntity = "BOARD"
	EntityList  AuditEntity = "LIST"
	EntityCard  AuditEntity = "CARD"
)

// AuditEntry is one append-only record of a mutation. EntityTitle snapshots
// the name or title at the moment of the action and is never re-read.
type AuditEntry struct {
	ID          string      `json:"id"`
	BoardID     string      `json:"board_id"`
	UserID      string      `json:"user_id"`
	Action      AuditAction `json:"action"`
	EntityType  AuditEntity `json:"entity_type"`
	EntityID    string      `json:"entity_id"`
	EntityTitle string      `json:"entity_title"`
	CreatedAt   time.Time   `json:"created_at"`
}

// CardPatch carries optional card field updates. Nil fields are untouched.
type CardPatch struct {
	Title       *string
	Description *string
}

var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrNameRequired = errors.New("name is required")
)

func newID() string {
	return ids.New()
}
