package handler

import (
	"net/http"

	"polyform-sync/internal/domain"
	"polyform-sync/pkg/response"
)

func Languages(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, domain.SupportedLanguages)
}

func Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
