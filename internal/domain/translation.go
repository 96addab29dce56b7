package domain

import "strconv"

type TranslateRequest struct {
	SpaceID            string   `json:"spaceId" validate:"required"`
	BlockID            string   `json:"blockId" validate:"required"`
	Texts              []string `json:"texts" validate:"required,min=1"`
	SourceLang         string   `json:"sourceLang" validate:"required,min=2"`
	TargetLangs        []string `json:"targetLangs" validate:"required,min=1,dive,required,min=2"`
	TranslationVersion int64    `json:"translationVersion" validate:"required,gt=0"`
}

// VersionTag identifies the source revision a translation was computed for.
func (r *TranslateRequest) VersionTag() string {
	return r.BlockID + ":" + strconv.FormatInt(r.TranslationVersion, 10) + ":" + r.SourceLang
}

type TranslateResponse struct {
	BlockID            string              `json:"blockId"`
	TranslationVersion int64               `json:"translationVersion"`
	Results            map[string][]string `json:"results"`
	Cached             bool                `json:"cached"`
}

// UILocalizeRequest carries interface copy keyed by message id. The copy is
// always authored in English.
type UILocalizeRequest struct {
	TargetLang string            `json:"targetLang" validate:"required,min=2"`
	Texts      map[string]string `json:"texts" validate:"required,min=1"`
}

type UILocalizeResponse struct {
	Texts map[string]string `json:"texts"`
}

// TranslationEntry is a translated view of one block in one language.
type TranslationEntry struct {
	TranslationVersion int64    `json:"translationVersion"`
	Texts              []string `json:"texts"`
}
