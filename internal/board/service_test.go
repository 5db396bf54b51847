package board

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCreateBoardValidatesName(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := s.CreateBoard(ctx, "alice", name); !errors.Is(err, ErrNameRequired) {
			t.Fatalf("name %q: expected ErrNameRequired, got %v", name, err)
		}
	}

	// A rejected create leaves no trace in boards or the audit trail.
	boards, _ := s.Boards(ctx, "alice")
	if len(boards) != 0 {
		t.Fatalf("expected zero boards, got %d", len(boards))
	}
	if len(s.logs) != 0 {
		t.Fatalf("expected zero audit entries, got %d", len(s.logs))
	}
}

func TestBoardVisibilityRequiresOwnership(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	id, err := s.CreateBoard(ctx, "alice", "Roadmap")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.BoardByID(ctx, "alice", id); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	// Someone else's board is reported exactly like a missing one.
	if _, err := s.BoardByID(ctx, "bob", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign board, got %v", err)
	}
	if _, err := s.BoardByID(ctx, "alice", "no-such-board"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing board, got %v", err)
	}
}

func TestCreateRoundTrip(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	boardID, err := s.CreateBoard(ctx, "alice", "Roadmap")
	if err != nil {
		t.Fatal(err)
	}
	listID, err := s.CreateList(ctx, "alice", boardID, "Backlog")
	if err != nil {
		t.Fatal(err)
	}
	cardID, err := s.CreateCard(ctx, "alice", listID, "Ship v1")
	if err != nil {
		t.Fatal(err)
	}

	tree, err := s.BoardByID(ctx, "alice", boardID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Lists) != 1 || tree.Lists[0].ID != listID {
		t.Fatalf("expected exactly one list, got %+v", tree.Lists)
	}
	if tree.Lists[0].Position != 0 {
		t.Fatalf("first list position = %d, want 0", tree.Lists[0].Position)
	}
	cards := tree.Lists[0].Cards
	if len(cards) != 1 || cards[0].ID != cardID {
		t.Fatalf("expected exactly one card, got %+v", cards)
	}
	if cards[0].Title != "Ship v1" || cards[0].Position != 0 {
		t.Fatalf("unexpected card: %+v", cards[0])
	}
}

func TestPositionsAppendMonotonically(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	boardID, _ := s.CreateBoard(ctx, "alice", "Roadmap")
	listID, _ := s.CreateList(ctx, "alice", boardID, "Backlog")

	for want := 0; want < 3; want++ {
		id, err := s.CreateCard(ctx, "alice", listID, "card")
		if err != nil {
			t.Fatal(err)
		}
		if got := s.cards[id].Position; got != want {
			t.Fatalf("card %d assigned position %d", want, got)
		}
	}

	// Deleting a middle card leaves a gap; the next insert goes past it.
	var middle string
	for id, c := range s.cards {
		if c.Position == 1 {
			middle = id
		}
	}
	if err := s.DeleteCard(ctx, "alice", middle); err != nil {
		t.Fatal(err)
	}
	id, err := s.CreateCard(ctx, "alice", listID, "after gap")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.cards[id].Position; got != 3 {
		t.Fatalf("position after gap = %d, want 3 (gap must not be repaired)", got)
	}
}

func TestNestedCreateAuthorization(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	boardID, _ := s.CreateBoard(ctx, "alice", "Roadmap")
	listID, _ := s.CreateList(ctx, "alice", boardID, "Backlog")

	if _, err := s.CreateList(ctx, "bob", boardID, "Theirs"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for foreign board, got %v", err)
	}
	if _, err := s.CreateList(ctx, "alice", "no-such-board", "Orphan"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing board, got %v", err)
	}
	if _, err := s.CreateCard(ctx, "bob", listID, "Theirs"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for foreign list, got %v", err)
	}
	if _, err := s.CreateCard(ctx, "alice", "no-such-list", "Orphan"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing list, got %v", err)
	}
}

func TestEveryMutationLeavesOneAuditEntry(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	boardID, _ := s.CreateBoard(ctx, "alice", "Roadmap")
	listID, _ := s.CreateList(ctx, "alice", boardID, "Backlog")
	cardID, _ := s.CreateCard(ctx, "alice", listID, "Ship v1")

	entries, err := s.Activity(ctx, "alice", boardID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}

	// Most recent first.
	wantTitles := []string{"Ship v1", "Backlog", "Roadmap"}
	wantEntities := []AuditEntity{EntityCard, EntityList, EntityBoard}
	for i, e := range entries {
		if e.Action != ActionCreate {
			t.Fatalf("entry %d action = %s", i, e.Action)
		}
		if e.EntityType != wantEntities[i] || e.EntityTitle != wantTitles[i] {
			t.Fatalf("entry %d = %+v", i, e)
		}
		if e.UserID != "alice" || e.BoardID != boardID {
			t.Fatalf("entry %d attribution wrong: %+v", i, e)
		}
	}

	// The title snapshot survives a later rename.
	if err := s.UpdateCard(ctx, "alice", cardID, CardPatch{Title: strPtr("Ship v2")}); err != nil {
		t.Fatal(err)
	}
	entries, _ = s.Activity(ctx, "alice", boardID, 0)
	if entries[0].EntityTitle != "Ship v2" || entries[0].Action != ActionUpdate {
		t.Fatalf("unexpected head entry: %+v", entries[0])
	}
	if entries[1].EntityTitle != "Ship v1" {
		t.Fatalf("create snapshot mutated: %+v", entries[1])
	}
}

func TestUpdateAndDeleteFollowOwnership(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	boardID, _ := s.CreateBoard(ctx, "alice", "Roadmap")
	listID, _ := s.CreateList(ctx, "alice", boardID, "Backlog")
	cardID, _ := s.CreateCard(ctx, "alice", listID, "Ship v1")

	if err := s.RenameBoard(ctx, "bob", boardID, "Mine now"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.RenameList(ctx, "bob", listID, "Mine now"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if err := s.DeleteCard(ctx, "bob", cardID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	if err := s.RenameList(ctx, "alice", listID, "Doing"); err != nil {
		t.Fatal(err)
	}
	if s.lists[listID].Name != "Doing" {
		t.Fatalf("rename not applied: %+v", s.lists[listID])
	}
}

func TestDeleteBoardCascades(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	boardID, _ := s.CreateBoard(ctx, "alice", "Roadmap")
	listID, _ := s.CreateList(ctx, "alice", boardID, "Backlog")
	_, _ = s.CreateCard(ctx, "alice", listID, "Ship v1")

	keepID, _ := s.CreateBoard(ctx, "alice", "Other")

	if err := s.DeleteBoard(ctx, "alice", boardID); err != nil {
		t.Fatal(err)
	}

	if len(s.lists) != 0 || len(s.cards) != 0 {
		t.Fatalf("cascade incomplete: %d lists, %d cards", len(s.lists), len(s.cards))
	}
	for _, e := range s.logs {
		if e.BoardID == boardID {
			t.Fatalf("audit entry outlived its board: %+v", e)
		}
	}
	if _, err := s.BoardByID(ctx, "alice", keepID); err != nil {
		t.Fatalf("unrelated board affected: %v", err)
	}
}

func TestBoardsOrderedByMostRecentlyUpdated(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	first, _ := s.CreateBoard(ctx, "alice", "First")
	second, _ := s.CreateBoard(ctx, "alice", "Second")
	_, _ = s.CreateBoard(ctx, "bob", "Foreign")

	// Renaming bumps updated_at, promoting the board to the front.
	if err := s.RenameBoard(ctx, "alice", first, "First, renamed"); err != nil {
		t.Fatal(err)
	}

	boards, err := s.Boards(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(boards) != 2 {
		t.Fatalf("expected 2 boards, got %d", len(boards))
	}
	if boards[0].ID != first || boards[1].ID != second {
		t.Fatalf("unexpected order: %s, %s", boards[0].Name, boards[1].Name)
	}
}

func TestActivityHiddenFromNonOwners(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	boardID, _ := s.CreateBoard(ctx, "alice", "Roadmap")
	if _, err := s.Activity(ctx, "bob", boardID, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentCardCreatesAllSucceed(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	boardID, _ := s.CreateBoard(ctx, "alice", "Roadmap")
	listID, _ := s.CreateList(ctx, "alice", boardID, "Backlog")

	const n = 30
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateCard(ctx, "alice", listID, "racer")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create failed: %v", err)
		}
	}

	tree, err := s.BoardByID(ctx, "alice", boardID)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(tree.Lists[0].Cards); got != n {
		t.Fatalf("expected %d cards, got %d", n, got)
	}
}

func strPtr(s string) *string { return &s }
