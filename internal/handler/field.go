package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/service"
)

// FieldHandler serves /fields.
type FieldHandler struct {
	svc    *service.FieldService
	logger *slog.Logger
}

func NewFieldHandler(svc *service.FieldService, logger *slog.Logger) *FieldHandler {
	return &FieldHandler{svc: svc, logger: logger}
}

type createFieldRequest struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Image     string  `json:"image"`
	GrassType string  `json:"grassType"`
	ShoeType  string  `json:"shoeType"`
}

// HandleList handles GET /fields.
func (h *FieldHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	fields, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// HandleSearch handles GET /fields/search?keyword=.
func (h *FieldHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	fields, err := h.svc.Search(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// HandleGet handles GET /fields/{id}.
func (h *FieldHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	field, err := h.svc.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

// HandleCreate handles POST /fields. The new field awaits admin approval.
func (h *FieldHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createFieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	caller, _ := auth.IdentityFromContext(r.Context())

	field, err := h.svc.Create(r.Context(), caller, service.CreateFieldInput{
		Name:      req.Name,
		Address:   req.Address,
		Lat:       req.Lat,
		Lng:       req.Lng,
		Image:     req.Image,
		GrassType: req.GrassType,
		ShoeType:  req.ShoeType,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, field)
}

// HandlePending handles GET /fields/pending (admin).
func (h *FieldHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	fields, err := h.svc.ListPending(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// HandleApprove handles PATCH /fields/{id}/approve (admin).
func (h *FieldHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.IdentityFromContext(r.Context())

	field, err := h.svc.Approve(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}
