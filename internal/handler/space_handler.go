package handler

import (
	"context"
	"net/http"

	"polyform-sync/internal/domain"
	"polyform-sync/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type SpaceService interface {
	Create(ctx context.Context, req *domain.CreateSpaceRequest) (*domain.SpaceResponse, error)
	List(ctx context.Context) ([]*domain.Space, error)
	Get(ctx context.Context, spaceID, requestedMode, token string) (*domain.SpaceResponse, error)
	Update(ctx context.Context, spaceID string, req *domain.UpdateSpaceRequest) (*domain.Space, error)
	Delete(ctx context.Context, spaceID string) error
}

type SpaceHandler struct {
	service  SpaceService
	validate *validator.Validate
}

func NewSpaceHandler(service SpaceService) *SpaceHandler {
	return &SpaceHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *SpaceHandler) List(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err, "Failed to list spaces")
		return
	}

	response.JSON(w, http.StatusOK, spaces)
}

func (h *SpaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSpaceRequest
	if err := decode(r, h.validate, &req, true); err != nil {
		badRequest(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to create space")
		return
	}

	response.Created(w, created)
}

func (h *SpaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	spaceID := mux.Vars(r)["id"]
	query := r.URL.Query()

	space, err := h.service.Get(r.Context(), spaceID, query.Get("mode"), query.Get("token"))
	if err != nil {
		writeError(w, err, "Failed to load space")
		return
	}

	response.JSON(w, http.StatusOK, space)
}

func (h *SpaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	spaceID := mux.Vars(r)["id"]

	var req domain.UpdateSpaceRequest
	if err := decode(r, h.validate, &req, true); err != nil {
		badRequest(w, err)
		return
	}

	space, err := h.service.Update(r.Context(), spaceID, &req)
	if err != nil {
		writeError(w, err, "Failed to update space")
		return
	}

	response.JSON(w, http.StatusOK, space)
}

func (h *SpaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	spaceID := mux.Vars(r)["id"]

	if err := h.service.Delete(r.Context(), spaceID); err != nil {
		writeError(w, err, "Failed to delete space")
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
