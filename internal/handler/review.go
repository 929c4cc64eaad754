package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/service"
)

// ReviewHandler serves /fields/{id}/reviews and /reviews/{id}.
type ReviewHandler struct {
	svc    *service.ReviewService
	logger *slog.Logger
}

func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{svc: svc, logger: logger}
}

type reviewRequest struct {
	Rating          int      `json:"rating"`
	Content         string   `json:"content"`
	GrassType       string   `json:"grassType"`
	GrassConditions []string `json:"grassConditions"`
	RecommendedShoe string   `json:"recommendedShoe"`
	ShoeLink        string   `json:"shoeLink"`
}

// reviewUpdateRequest distinguishes "absent" (nil) from "set to empty".
type reviewUpdateRequest struct {
	Rating          *int      `json:"rating"`
	Content         *string   `json:"content"`
	GrassType       *string   `json:"grassType"`
	GrassConditions *[]string `json:"grassConditions"`
	RecommendedShoe *string   `json:"recommendedShoe"`
	ShoeLink        *string   `json:"shoeLink"`
}

// HandleList handles GET /fields/{id}/reviews?lastId=.
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("lastId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleCreate handles POST /fields/{id}/reviews.
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	caller, _ := auth.IdentityFromContext(r.Context())

	review, err := h.svc.Create(r.Context(), caller, chi.URLParam(r, "id"), service.ReviewInput{
		Rating:          req.Rating,
		Content:         req.Content,
		GrassType:       req.GrassType,
		GrassConditions: req.GrassConditions,
		RecommendedShoe: req.RecommendedShoe,
		ShoeLink:        req.ShoeLink,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// HandleUpdate handles PUT /reviews/{id}.
func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req reviewUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	caller, _ := auth.IdentityFromContext(r.Context())

	review, err := h.svc.Update(r.Context(), caller, chi.URLParam(r, "id"), service.ReviewUpdate{
		Rating:          req.Rating,
		Content:         req.Content,
		GrassType:       req.GrassType,
		GrassConditions: req.GrassConditions,
		RecommendedShoe: req.RecommendedShoe,
		ShoeLink:        req.ShoeLink,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// HandleDelete handles DELETE /reviews/{id}. Comments under the review go too.
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
