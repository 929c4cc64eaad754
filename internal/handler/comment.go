package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/service"
)

// CommentHandler serves /reviews/{id}/comments and /comments/{id}.
// Comments go out flat; clients build the reply tree.
type CommentHandler struct {
	svc    *service.CommentService
	logger *slog.Logger
}

func NewCommentHandler(svc *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{svc: svc, logger: logger}
}

type commentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"`
}

type commentUpdateRequest struct {
	Content string `json:"content"`
}

// HandleList handles GET /reviews/{id}/comments.
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleCreate handles POST /reviews/{id}/comments.
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	caller, _ := auth.IdentityFromContext(r.Context())

	comment, err := h.svc.Create(r.Context(), caller, chi.URLParam(r, "id"), req.Content, req.ParentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleUpdate handles PUT /comments/{id}.
func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req commentUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	caller, _ := auth.IdentityFromContext(r.Context())

	comment, err := h.svc.Update(r.Context(), caller, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// HandleDelete handles DELETE /comments/{id}. Replies are kept.
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
