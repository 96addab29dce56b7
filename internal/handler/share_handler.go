package handler

import (
	"context"
	"net/http"

	"polyform-sync/internal/domain"
	"polyform-sync/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type ShareService interface {
	Create(ctx context.Context, spaceID string, req *domain.CreateShareLinkRequest) (*domain.ShareLinkResponse, error)
}

type SnapshotService interface {
	Create(ctx context.Context, spaceID string) (*domain.CreateSnapshotResponse, error)
	Get(ctx context.Context, snapshotID string) (*domain.Snapshot, error)
}

type ShareHandler struct {
	shares    ShareService
	snapshots SnapshotService
	validate  *validator.Validate
}

func NewShareHandler(shares ShareService, snapshots SnapshotService) *ShareHandler {
	return &ShareHandler{
		shares:    shares,
		snapshots: snapshots,
		validate:  validator.New(),
	}
}

func (h *ShareHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	spaceID := mux.Vars(r)["id"]

	var req domain.CreateShareLinkRequest
	if err := decode(r, h.validate, &req, true); err != nil {
		badRequest(w, err)
		return
	}

	link, err := h.shares.Create(r.Context(), spaceID, &req)
	if err != nil {
		writeError(w, err, "Failed to create share link")
		return
	}

	response.JSON(w, http.StatusOK, link)
}

func (h *ShareHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	spaceID := mux.Vars(r)["id"]

	snapshot, err := h.snapshots.Create(r.Context(), spaceID)
	if err != nil {
		writeError(w, err, "Failed to create snapshot")
		return
	}

	response.JSON(w, http.StatusOK, snapshot)
}

func (h *ShareHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshotID := mux.Vars(r)["id"]

	snapshot, err := h.snapshots.Get(r.Context(), snapshotID)
	if err != nil {
		writeError(w, err, "Failed to load snapshot")
		return
	}

	response.JSON(w, http.StatusOK, snapshot)
}
