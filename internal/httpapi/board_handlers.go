package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"taskdeck.org/internal/auth"
	"taskdeck.org/internal/board"
)

type createBoardRequest struct {
	Name string `json:"name"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type createCardRequest struct {
	Title string `json:"title"`
}

type updateCardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type activityResponse struct {
	Items []board.AuditEntry `json:"items"`
}

func (a *API) handleBoardsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createBoard(w, r)
	case http.MethodGet:
		a.listBoards(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleBoardResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/boards/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/lists") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/lists"), "/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, r, http.StatusNotFound, "board not found")
			return
		}
		switch r.Method {
		case http.MethodPost:
			a.createList(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodPost)
		}
		return
	}

	if strings.HasSuffix(path, "/activity") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/activity"), "/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, r, http.StatusNotFound, "board not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			a.boardActivity(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet)
		}
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getBoard(w, r, path)
	case http.MethodPatch:
		a.renameBoard(w, r, path)
	case http.MethodDelete:
		a.deleteBoard(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleListResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/lists/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/cards") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/cards"), "/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, r, http.StatusNotFound, "list not found")
			return
		}
		switch r.Method {
		case http.MethodPost:
			a.createCard(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodPost)
		}
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		a.renameList(w, r, path)
	case http.MethodDelete:
		a.deleteList(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleCardResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/cards/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		a.updateCard(w, r, path)
	case http.MethodDelete:
		a.deleteCard(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "authenticated",
		"user":    principal,
	})
}

// --- board operations ---

func (a *API) createBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createBoardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := a.boards.CreateBoard(r.Context(), userID, req.Name)
	if err != nil {
		handleBoardError(w, r, err)
		return
	}

	a.audit(r.Context(), "board.create", "board", id, map[string]string{
		"name": strings.TrimSpace(req.Name),
	})

	w.Header().Set("Location", "/v1/boards/"+id)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) listBoards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boards, err := a.boards.Boards(r.Context(), userID)
	if err != nil {
		handleBoardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": boards})
}

func (a *API) getBoard(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tree, err := a.boards.BoardByID(r.Context(), userID, id)
	if err != nil {
		handleBoardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (a *API) renameBoard(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.boards.RenameBoard(r.Context(), userID, id, req.Name); err != nil {
		handleBoardError(w, r, err)
		return
	}
	a.audit(r.Context(), "board.rename", "board", id, map[string]string{
		"name": strings.TrimSpace(req.Name),
	})
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (a *API) deleteBoard(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := a.boards.DeleteBoard(r.Context(), userID, id); err != nil {
		handleBoardError(w, r, err)
		return
	}
	a.audit(r.Context(), "board.delete", "board", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) boardActivity(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 500)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.boards.Activity(r.Context(), userID, id, limit)
	if err != nil {
		handleBoardError(w, r, err)
		return
	}
	if items == nil {
		items = []board.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, activityResponse{Items: items})
}

// --- list operations ---

func (a *API) createList(w http.ResponseWriter, r *http.Request, boardID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, err := a.boards.CreateList(r.Context(), userID, boardID, req.Name)
	if err != nil {
		handleBoardError(w, r, err)
		return
	}
	a.audit(r.Context(), "list.create", "list", id, map[string]string{
		"board_id": boardID,
		"name":     strings.TrimSpace(req.Name),
	})
	w.Header().Set("Location", "/v1/lists/"+id)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) renameList(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.boards.RenameList(r.Context(), userID, id, req.Name); err != nil {
		handleBoardError(w, r, err)
		return
	}
	a.audit(r.Context(), "list.rename", "list", id, map[string]string{
		"name": strings.TrimSpace(req.Name),
	})
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (a *API) deleteList(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := a.boards.DeleteList(r.Context(), userID, id); err != nil {
		handleBoardError(w, r, err)
		return
	}
	a.audit(r.Context(), "list.delete", "list", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// --- card operations ---

func (a *API) createCard(w http.ResponseWriter, r *http.Request, listID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, err := a.boards.CreateCard(r.Context(), userID, listID, req.Title)
	if err != nil {
		handleBoardError(w, r, err)
		return
	}
	a.audit(r.Context(), "card.create", "card", id, map[string]string{
		"list_id": listID,
		"title":   strings.TrimSpace(req.Title),
	})
	w.Header().Set("Location", "/v1/cards/"+id)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) updateCard(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req updateCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == nil && req.Description == nil {
		writeError(w, r, http.StatusBadRequest, "title or description is required")
		return
	}
	patch := board.CardPatch{Title: req.Title, Description: req.Description}
	if err := a.boards.UpdateCard(r.Context(), userID, id, patch); err != nil {
		handleBoardError(w, r, err)
		return
	}
	fields := map[string]string{}
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description_changed"] = "true"
	}
	a.audit(r.Context(), "card.update", "card", id, fields)
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (a *API) deleteCard(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := a.boards.DeleteCard(r.Context(), userID, id); err != nil {
		handleBoardError(w, r, err)
		return
	}
	a.audit(r.Context(), "card.delete", "card", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// --- shared ---

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return "", false
	}
	return userID, true
}

func handleBoardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, board.ErrNameRequired):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, board.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrAccessDenied):
		writeError(w, r, http.StatusForbidden, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit out of range")
	}
	return val, nil
}
