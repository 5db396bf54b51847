package board

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Service defines the board operations. Every mutation authorizes against the
// owning board, assigns positions on insert, and records an audit entry in the
// same atomic unit as the entity write.
type Service interface {
	CreateBoard(ctx context.Context, userID, name string) (string, error)
	Boards(ctx context.Context, userID string) ([]Board, error)
	BoardByID(ctx context.Context, userID, boardID string) (BoardTree, error)
	RenameBoard(ctx context.Context, userID, boardID, name string) error
	DeleteBoard(ctx context.Context, userID, boardID string) error

	CreateList(ctx context.Context, userID, boardID, name string) (string, error)
	RenameList(ctx context.Context, userID, listID, name string) error
	DeleteList(ctx context.Context, userID, listID string) error

	CreateCard(ctx context.Context, userID, listID, title string) (string, error)
	UpdateCard(ctx context.Context, userID, cardID string, patch CardPatch) error
	DeleteCard(ctx context.Context, userID, cardID string) error

	Activity(ctx context.Context, userID, boardID string, limit int) ([]AuditEntry, error)
}

// InMemory implements Service with in-process concurrency safety. The durable
// implementation lives in internal/store/pg; this one backs tests and local
// development without a database.
type InMemory struct {
	mu     sync.RWMutex
	boards map[string]*Board
	lists  map[string]*List
	cards  map[string]*Card
	logs   []AuditEntry
}

// NewInMemory creates an empty board service.
func NewInMemory() *InMemory {
	return &InMemory{
		boards: make(map[string]*Board),
		lists:  make(map[string]*List),
		cards:  make(map[string]*Card),
	}
}

func (s *InMemory) CreateBoard(ctx context.Context, userID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	b := &Board{
		ID:          newID(),
		Name:        name,
		OwnerUserID: userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.boards[b.ID] = b
	s.appendLog(b.ID, userID, ActionCreate, EntityBoard, b.ID, name, now)
	return b.ID, nil
}

func (s *InMemory) Boards(ctx context.Context, userID string) ([]Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Board{}
	for _, b := range s.boards {
		if b.OwnerUserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemory) BoardByID(ctx context.Context, userID, boardID string) (BoardTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	own := ResolveOwner(s.boards[boardID], userID)
	if own.Denied() {
		// A board owned by someone else is indistinguishable from a board
		// that does not exist.
		return BoardTree{}, ErrNotFound
	}

	tree := BoardTree{Board: *own.Board}
	for _, l := range s.lists {
		if l.BoardID != boardID {
			continue
		}
		lt := ListTree{List: *l, Cards: []Card{}}
		for _, c := range s.cards {
			if c.ListID == l.ID {
				lt.Cards = append(lt.Cards, *c)
			}
		}
		sort.Slice(lt.Cards, func(i, j int) bool {
			if lt.Cards[i].Position != lt.Cards[j].Position {
				return lt.Cards[i].Position < lt.Cards[j].Position
			}
			return lt.Cards[i].ID < lt.Cards[j].ID
		})
		tree.Lists = append(tree.Lists, lt)
	}
	if tree.Lists == nil {
		tree.Lists = []ListTree{}
	}
	sort.Slice(tree.Lists, func(i, j int) bool {
		if tree.Lists[i].Position != tree.Lists[j].Position {
			return tree.Lists[i].Position < tree.Lists[j].Position
		}
		return tree.Lists[i].ID < tree.Lists[j].ID
	})
	return tree, nil
}

func (s *InMemory) RenameBoard(ctx context.Context, userID, boardID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	own := ResolveOwner(s.boards[boardID], userID)
	if own.Denied() {
		return ErrNotFound
	}
	now := time.Now().UTC()
	own.Board.Name = name
	own.Board.UpdatedAt = now
	s.appendLog(boardID, userID, ActionUpdate, EntityBoard, boardID, name, now)
	return nil
}

func (s *InMemory) DeleteBoard(ctx context.Context, userID, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	own := ResolveOwner(s.boards[boardID], userID)
	if own.Denied() {
		return ErrNotFound
	}

	// Cascade: lists, cards, and the board's audit trail all go with it.
	for id, l := range s.lists {
		if l.BoardID != boardID {
			continue
		}
		for cid, c := range s.cards {
			if c.ListID == id {
				delete(s.cards, cid)
			}
		}
		delete(s.lists, id)
	}
	kept := s.logs[:0]
	for _, e := range s.logs {
		if e.BoardID != boardID {
			kept = append(kept, e)
		}
	}
	s.logs = kept
	delete(s.boards, boardID)
	return nil
}

func (s *InMemory) CreateList(ctx context.Context, userID, boardID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	own := ResolveOwner(s.boards[boardID], userID)
	if err := own.Err(); err != nil {
		return "", err
	}

	var siblings []int
	for _, l := range s.lists {
		if l.BoardID == boardID {
			siblings = append(siblings, l.Position)
		}
	}

	now := time.Now().UTC()
	l := &List{
		ID:        newID(),
		Name:      name,
		Position:  NextPosition(siblings),
		BoardID:   boardID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.lists[l.ID] = l
	s.appendLog(boardID, userID, ActionCreate, EntityList, l.ID, name, now)
	return l.ID, nil
}

func (s *InMemory) RenameList(ctx context.Context, userID, listID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok {
		return ErrNotFound
	}
	own := ResolveOwner(s.boards[l.BoardID], userID)
	if err := own.Err(); err != nil {
		return err
	}
	now := time.Now().UTC()
	l.Name = name
	l.UpdatedAt = now
	s.appendLog(l.BoardID, userID, ActionUpdate, EntityList, listID, name, now)
	return nil
}

func (s *InMemory) DeleteList(ctx context.Context, userID, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok {
		return ErrNotFound
	}
	own := ResolveOwner(s.boards[l.BoardID], userID)
	if err := own.Err(); err != nil {
		return err
	}

	for cid, c := range s.cards {
		if c.ListID == listID {
			delete(s.cards, cid)
		}
	}
	delete(s.lists, listID)
	s.appendLog(l.BoardID, userID, ActionDelete, EntityList, listID, l.Name, time.Now().UTC())
	return nil
}

func (s *InMemory) CreateCard(ctx context.Context, userID, listID, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[listID]
	if !ok {
		return "", ErrNotFound
	}
	own := ResolveOwner(s.boards[l.BoardID], userID)
	if err := own.Err(); err != nil {
		return "", err
	}

	var siblings []int
	for _, c := range s.cards {
		if c.ListID == listID {
			siblings = append(siblings, c.Position)
		}
	}

	now := time.Now().UTC()
	c := &Card{
		ID:        newID(),
		Title:     title,
		Position:  NextPosition(siblings),
		ListID:    listID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cards[c.ID] = c
	s.appendLog(l.BoardID, userID, ActionCreate, EntityCard, c.ID, title, now)
	return c.ID, nil
}

func (s *InMemory) UpdateCard(ctx context.Context, userID, cardID string, patch CardPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[cardID]
	if !ok {
		return ErrNotFound
	}
	l, ok := s.lists[c.ListID]
	if !ok {
		return ErrNotFound
	}
	own := ResolveOwner(s.boards[l.BoardID], userID)
	if err := own.Err(); err != nil {
		return err
	}

	if patch.Title == nil && patch.Description == nil {
		return nil
	}
	now := time.Now().UTC()
	if patch.Title != nil {
		c.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	c.UpdatedAt = now
	s.appendLog(l.BoardID, userID, ActionUpdate, EntityCard, cardID, c.Title, now)
	return nil
}

func (s *InMemory) DeleteCard(ctx context.Context, userID, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[cardID]
	if !ok {
		return ErrNotFound
	}
	l, ok := s.lists[c.ListID]
	if !ok {
		return ErrNotFound
	}
	own := ResolveOwner(s.boards[l.BoardID], userID)
	if err := own.Err(); err != nil {
		return err
	}

	delete(s.cards, cardID)
	s.appendLog(l.BoardID, userID, ActionDelete, EntityCard, cardID, c.Title, time.Now().UTC())
	return nil
}

func (s *InMemory) Activity(ctx context.Context, userID, boardID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	own := ResolveOwner(s.boards[boardID], userID)
	if own.Denied() {
		return nil, ErrNotFound
	}

	out := []AuditEntry{}
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.logs[i].BoardID == boardID {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}

// appendLog records one audit entry. Callers hold the write lock.
func (s *InMemory) appendLog(boardID, userID string, action AuditAction, entity AuditEntity, entityID, title string, at time.Time) {
	s.logs = append(s.logs, AuditEntry{
		ID:          newID(),
		BoardID:     boardID,
		UserID:      userID,
		Action:      action,
		EntityType:  entity,
		EntityID:    entityID,
		EntityTitle: title,
		CreatedAt:   at,
	})
}
