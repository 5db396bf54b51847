// Package pg persists boards in PostgreSQL.
//
// Every mutation runs as one transaction: ownership check, position
// computation, entity write, and audit write commit or roll back together, so
// no entity row is ever visible without its audit row and the ownership check
// cannot race a concurrent delete of the parent.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"taskdeck.org/internal/board"
	"taskdeck.org/internal/ids"
)

type Store struct {
	db *sql.DB
}

var _ board.Service = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection, mainly for tests.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) CreateBoard(ctx context.Context, userID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", board.ErrNameRequired
	}
	id := ids.New()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into boards(id, name, owner_user_id) values($1, $2, $3)
	`, id, name, userID); err != nil {
		return "", err
	}
	if err := insertAudit(ctx, tx, board.AuditEntry{
		BoardID:     id,
		UserID:      userID,
		Action:      board.ActionCreate,
		EntityType:  board.EntityBoard,
		EntityID:    id,
		EntityTitle: name,
	}); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Boards(ctx context.Context, userID string) ([]board.Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, owner_user_id, created_at, updated_at
		from boards
		where owner_user_id = $1
		order by updated_at desc, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []board.Board{}
	for rows.Next() {
		var b board.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.OwnerUserID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) BoardByID(ctx context.Context, userID, boardID string) (board.BoardTree, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return board.BoardTree{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Ownership and existence collapse into one condition: a foreign board
	// reads exactly like a missing one.
	var tree board.BoardTree
	err = tx.QueryRowContext(ctx, `
		select id, name, owner_user_id, created_at, updated_at
		from boards
		where id = $1 and owner_user_id = $2
	`, boardID, userID).Scan(&tree.ID, &tree.Name, &tree.OwnerUserID, &tree.CreatedAt, &tree.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return board.BoardTree{}, board.ErrNotFound
	}
	if err != nil {
		return board.BoardTree{}, err
	}

	lrows, err := tx.QueryContext(ctx, `
		select id, name, position, board_id, created_at, updated_at
		from lists
		where board_id = $1
		order by position, id
	`, boardID)
	if err != nil {
		return board.BoardTree{}, err
	}
	defer lrows.Close()

	tree.Lists = []board.ListTree{}
	index := map[string]int{}
	for lrows.Next() {
		var l board.List
		if err := lrows.Scan(&l.ID, &l.Name, &l.Position, &l.BoardID, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return board.BoardTree{}, err
		}
		index[l.ID] = len(tree.Lists)
		tree.Lists = append(tree.Lists, board.ListTree{List: l, Cards: []board.Card{}})
	}
	if err := lrows.Err(); err != nil {
		return board.BoardTree{}, err
	}

	crows, err := tx.QueryContext(ctx, `
		select c.id, c.title, coalesce(c.description, ''), c.position, c.list_id, c.created_at, c.updated_at
		from cards c
		join lists l on l.id = c.list_id
		where l.board_id = $1
		order by c.position, c.id
	`, boardID)
	if err != nil {
		return board.BoardTree{}, err
	}
	defer crows.Close()

	for crows.Next() {
		var c board.Card
		if err := crows.Scan(&c.ID, &c.Title, &c.Description, &c.Position, &c.ListID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return board.BoardTree{}, err
		}
		if i, ok := index[c.ListID]; ok {
			tree.Lists[i].Cards = append(tree.Lists[i].Cards, c)
		}
	}
	if err := crows.Err(); err != nil {
		return board.BoardTree{}, err
	}
	return tree, tx.Commit()
}

func (s *Store) RenameBoard(ctx context.Context, userID, boardID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return board.ErrNameRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		update boards set name = $1, updated_at = now()
		where id = $2 and owner_user_id = $3
	`, name, boardID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return board.ErrNotFound
	}
	if err := insertAudit(ctx, tx, board.AuditEntry{
		BoardID:     boardID,
		UserID:      userID,
		Action:      board.ActionUpdate,
		EntityType:  board.EntityBoard,
		EntityID:    boardID,
		EntityTitle: name,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeleteBoard(ctx context.Context, userID, boardID string) error {
	// The board's lists, cards, and audit trail cascade with the row, so no
	// audit entry is written here: it could not outlive its own transaction.
	res, err := s.db.ExecContext(ctx, `
		delete from boards where id = $1 and owner_user_id = $2
	`, boardID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return board.ErrNotFound
	}
	return nil
}

func (s *Store) CreateList(ctx context.Context, userID, boardID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", board.ErrNameRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	b, err := boardByID(ctx, tx, boardID)
	if err != nil {
		return "", err
	}
	if err := board.ResolveOwner(b, userID).Err(); err != nil {
		return "", err
	}

	// Append position: max sibling + 1, or 0 for an empty board. Two racing
	// transactions may both read the same max and insert equal positions;
	// the schema deliberately has no uniqueness constraint on position.
	var pos int
	if err := tx.QueryRowContext(ctx, `
		select coalesce(max(position) + 1, 0) from lists where board_id = $1
	`, boardID).Scan(&pos); err != nil {
		return "", err
	}

	id := ids.New()
	if _, err := tx.ExecContext(ctx, `
		insert into lists(id, name, position, board_id) values($1, $2, $3, $4)
	`, id, name, pos, boardID); err != nil {
		return "", err
	}
	if err := insertAudit(ctx, tx, board.AuditEntry{
		BoardID:     boardID,
		UserID:      userID,
		Action:      board.ActionCreate,
		EntityType:  board.EntityList,
		EntityID:    id,
		EntityTitle: name,
	}); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) RenameList(ctx context.Context, userID, listID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return board.ErrNameRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	l, b, err := listWithBoard(ctx, tx, listID)
	if err != nil {
		return err
	}
	if err := board.ResolveOwner(b, userID).Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		update lists set name = $1, updated_at = now() where id = $2
	`, name, listID); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, board.AuditEntry{
		BoardID:     l.BoardID,
		UserID:      userID,
		Action:      board.ActionUpdate,
		EntityType:  board.EntityList,
		EntityID:    listID,
		EntityTitle: name,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeleteList(ctx context.Context, userID, listID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	l, b, err := listWithBoard(ctx, tx, listID)
	if err != nil {
		return err
	}
	if err := board.ResolveOwner(b, userID).Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `delete from lists where id = $1`, listID); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, board.AuditEntry{
		BoardID:     l.BoardID,
		UserID:      userID,
		Action:      board.ActionDelete,
		EntityType:  board.EntityList,
		EntityID:    listID,
		EntityTitle: l.Name,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) CreateCard(ctx context.Context, userID, listID, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", board.ErrNameRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	l, b, err := listWithBoard(ctx, tx, listID)
	if err != nil {
		return "", err
	}
	if err := board.ResolveOwner(b, userID).Err(); err != nil {
		return "", err
	}

	var pos int
	if err := tx.QueryRowContext(ctx, `
		select coalesce(max(position) + 1, 0) from cards where list_id = $1
	`, listID).Scan(&pos); err != nil {
		return "", err
	}

	id := ids.New()
	if _, err := tx.ExecContext(ctx, `
		insert into cards(id, title, position, list_id) values($1, $2, $3, $4)
	`, id, title, pos, listID); err != nil {
		return "", err
	}
	if err := insertAudit(ctx, tx, board.AuditEntry{
		BoardID:     l.BoardID,
		UserID:      userID,
		Action:      board.ActionCreate,
		EntityType:  board.EntityCard,
		EntityID:    id,
		EntityTitle: title,
	}); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateCard(ctx context.Context, userID, cardID string, patch board.CardPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return board.ErrNameRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	c, b, err := cardWithBoard(ctx, tx, cardID)
	if err != nil {
		return err
	}
	if err := board.ResolveOwner(b, userID).Err(); err != nil {
		return err
	}

	if patch.Title == nil && patch.Description == nil {
		return tx.Commit()
	}
	title := c.Title
	if patch.Title != nil {
		title = strings.TrimSpace(*patch.Title)
	}
	description := c.Description
	if patch.Description != nil {
		description = *patch.Description
	}

	if _, err := tx.ExecContext(ctx, `
		update cards set title = $1, description = nullif($2, ''), updated_at = now()
		where id = $3
	`, title, description, cardID); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, board.AuditEntry{
		BoardID:     b.ID,
		UserID:      userID,
		Action:      board.ActionUpdate,
		EntityType:  board.EntityCard,
		EntityID:    cardID,
		EntityTitle: title,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeleteCard(ctx context.Context, userID, cardID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	c, b, err := cardWithBoard(ctx, tx, cardID)
	if err != nil {
		return err
	}
	if err := board.ResolveOwner(b, userID).Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `delete from cards where id = $1`, cardID); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, board.AuditEntry{
		BoardID:     b.ID,
		UserID:      userID,
		Action:      board.ActionDelete,
		EntityType:  board.EntityCard,
		EntityID:    cardID,
		EntityTitle: c.Title,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Activity(ctx context.Context, userID, boardID string, limit int) ([]board.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var one int
	err := s.db.QueryRowContext(ctx, `
		select 1 from boards where id = $1 and owner_user_id = $2
	`, boardID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, board.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select id, board_id, user_id, action, entity_type, entity_id, entity_title, created_at
		from audit_log
		where board_id = $1
		order by created_at desc, id desc
		limit $2
	`, boardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []board.AuditEntry{}
	for rows.Next() {
		var e board.AuditEntry
		if err := rows.Scan(&e.ID, &e.BoardID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &e.EntityTitle, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- helpers ---

// boardByID loads a board inside the transaction, returning nil when absent.
func boardByID(ctx context.Context, tx *sql.Tx, boardID string) (*board.Board, error) {
	var b board.Board
	err := tx.QueryRowContext(ctx, `
		select id, name, owner_user_id, created_at, updated_at
		from boards where id = $1
	`, boardID).Scan(&b.ID, &b.Name, &b.OwnerUserID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// listWithBoard resolves the parent chain list -> board. A missing list is
// ErrNotFound; a missing board leaves the chain broken and returns nil.
func listWithBoard(ctx context.Context, tx *sql.Tx, listID string) (*board.List, *board.Board, error) {
	var l board.List
	err := tx.QueryRowContext(ctx, `
		select id, name, position, board_id from lists where id = $1
	`, listID).Scan(&l.ID, &l.Name, &l.Position, &l.BoardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, board.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	b, err := boardByID(ctx, tx, l.BoardID)
	if err != nil {
		return nil, nil, err
	}
	return &l, b, nil
}

// cardWithBoard resolves the parent chain card -> list -> board.
func cardWithBoard(ctx context.Context, tx *sql.Tx, cardID string) (*board.Card, *board.Board, error) {
	var c board.Card
	var boardID string
	err := tx.QueryRowContext(ctx, `
		select c.id, c.title, coalesce(c.description, ''), c.list_id, l.board_id
		from cards c
		join lists l on l.id = c.list_id
		where c.id = $1
	`, cardID).Scan(&c.ID, &c.Title, &c.Description, &c.ListID, &boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, board.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	b, err := boardByID(ctx, tx, boardID)
	if err != nil {
		return nil, nil, err
	}
	return &c, b, nil
}

// insertAudit appends one immutable audit row inside the caller's transaction.
func insertAudit(ctx context.Context, tx *sql.Tx, e board.AuditEntry) error {
	_, err := tx.ExecContext(ctx, `
		insert into audit_log(id, board_id, user_id, action, entity_type, entity_id, entity_title)
		values($1, $2, $3, $4, $5, $6, $7)
	`, ids.New(), e.BoardID, e.UserID, string(e.Action), string(e.EntityType), e.EntityID, e.EntityTitle)
	return err
}
