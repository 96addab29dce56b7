package handler

import (
	"context"
	"errors"
	"net/http"

	"polyform-sync/internal/domain"
	"polyform-sync/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type BlockService interface {
	Patch(ctx context.Context, spaceID string, req *domain.PatchBlocksRequest) ([]*domain.Block, error)
}

type BlockHandler struct {
	service  BlockService
	validate *validator.Validate
}

func NewBlockHandler(service BlockService) *BlockHandler {
	return &BlockHandler{
		service:  service,
		validate: validator.New(),
	}
}

// Patch applies field-level block updates. Routed behind an edit ticket.
func (h *BlockHandler) Patch(w http.ResponseWriter, r *http.Request) {
	spaceID := mux.Vars(r)["id"]

	var req domain.PatchBlocksRequest
	if err := decode(r, h.validate, &req, false); err != nil {
		if len(req.Blocks) == 0 && !errors.Is(err, errInvalidPayload) {
			response.BadRequest(w, "No block updates provided")
			return
		}
		badRequest(w, err)
		return
	}

	blocks, err := h.service.Patch(r.Context(), spaceID, &req)
	if err != nil {
		writeError(w, err, "Failed to update blocks")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{"ok": true, "blocks": blocks})
}
