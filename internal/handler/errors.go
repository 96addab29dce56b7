package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"polyform-sync/internal/service"
	"polyform-sync/internal/translation"
	"polyform-sync/pkg/response"

	"github.com/go-playground/validator/v10"
)

// writeError maps service errors to a status and a single message. Anything
// unrecognised is a 500 with the fallback message.
func writeError(w http.ResponseWriter, err error, fallback string) {
	var patchErr *service.BlockPatchError
	if errors.As(err, &patchErr) {
		status := http.StatusInternalServerError
		message := "Failed to update block"
		if errors.Is(err, service.ErrBlockNotFound) {
			status = http.StatusNotFound
			message = "Block not found in this space"
		}
		response.ErrorDetail(w, status, message, map[string]string{"failedBlockId": patchErr.BlockID})
		return
	}

	switch {
	case errors.Is(err, service.ErrSpaceNotFound):
		response.NotFound(w, "Space not found")
	case errors.Is(err, service.ErrSnapshotNotFound):
		response.NotFound(w, "Snapshot not found")
	case errors.Is(err, service.ErrInvalidShareToken):
		response.Forbidden(w, "Invalid share link token")
	case errors.Is(err, service.ErrNoUpdates):
		response.BadRequest(w, "No updates provided")
	case errors.Is(err, translation.ErrUpstream):
		response.Error(w, http.StatusBadGateway, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}

// decode reads a JSON body into dst and validates it. An empty body decodes
// to the zero value when allowEmpty is set.
func decode(r *http.Request, v *validator.Validate, dst interface{}, allowEmpty bool) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !allowEmpty || !errors.Is(err, io.EOF) {
			return errInvalidPayload
		}
	}
	return v.Struct(dst)
}

var errInvalidPayload = errors.New("invalid request payload")

func badRequest(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidPayload) {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	response.Invalid(w, err)
}
