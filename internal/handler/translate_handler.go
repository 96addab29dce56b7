package handler

import (
	"context"
	"net/http"

	"polyform-sync/internal/domain"
	"polyform-sync/pkg/response"

	"github.com/go-playground/validator/v10"
)

type Translator interface {
	Translate(ctx context.Context, req *domain.TranslateRequest) (*domain.TranslateResponse, error)
}

type TranslateHandler struct {
	translator Translator
	validate   *validator.Validate
}

func NewTranslateHandler(translator Translator) *TranslateHandler {
	return &TranslateHandler{
		translator: translator,
		validate:   validator.New(),
	}
}

func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req domain.TranslateRequest
	if err := decode(r, h.validate, &req, false); err != nil {
		badRequest(w, err)
		return
	}

	result, err := h.translator.Translate(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Translation failed")
		return
	}

	response.JSON(w, http.StatusOK, result)
}

type Localizer interface {
	Localize(ctx context.Context, targetLang string, texts map[string]string) (map[string]string, error)
}

type LocalizeHandler struct {
	localizer Localizer
	validate  *validator.Validate
}

func NewLocalizeHandler(localizer Localizer) *LocalizeHandler {
	return &LocalizeHandler{
		localizer: localizer,
		validate:  validator.New(),
	}
}

func (h *LocalizeHandler) Localize(w http.ResponseWriter, r *http.Request) {
	var req domain.UILocalizeRequest
	if err := decode(r, h.validate, &req, false); err != nil {
		badRequest(w, err)
		return
	}

	texts, err := h.localizer.Localize(r.Context(), req.TargetLang, req.Texts)
	if err != nil {
		writeError(w, err, "Failed to localize interface text")
		return
	}

	response.JSON(w, http.StatusOK, &domain.UILocalizeResponse{Texts: texts})
}
