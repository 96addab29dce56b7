package domain

// EventType names the broadcast events exchanged inside a space room.
type EventType string

const (
	EventPresenceUpdate    EventType = "presence_update"
	EventBlockPatch        EventType = "block_patch"
	EventTranslationResult EventType = "translation_result"
	EventSourceUpdate      EventType = "source_update"
)

func (t EventType) Valid() bool {
	switch t {
	case EventPresenceUpdate, EventBlockPatch, EventTranslationResult, EventSourceUpdate:
		return true
	}
	return false
}

// Mutating reports whether the event changes block state and therefore needs
// edit access.
func (t EventType) Mutating() bool {
	return t == EventSourceUpdate || t == EventBlockPatch
}

type SourceUpdate struct {
	BlockID            string  `json:"blockId"`
	TranslationVersion int64   `json:"translationVersion"`
	SourceContent      Content `json:"sourceContent"`
	SessionID          string  `json:"sessionId"`
}

type TranslationResult struct {
	BlockID            string   `json:"blockId"`
	TranslationVersion int64    `json:"translationVersion"`
	Language           string   `json:"language"`
	Texts              []string `json:"texts"`
}

type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Presence struct {
	SessionID      string         `json:"sessionId"`
	DisplayName    string         `json:"displayName"`
	Language       string         `json:"language"`
	Color          string         `json:"color"`
	CursorPosition CursorPosition `json:"cursorPosition"`
	LastSeen       int64          `json:"lastSeen"`
}

// BlockPatchEvent is the metadata-only notification broadcast next to a
// source update or geometry change.
type BlockPatchEvent struct {
	ID                 string   `json:"id"`
	TranslationVersion *int64   `json:"translationVersion,omitempty"`
	Universal          *bool    `json:"universal,omitempty"`
	X                  *float64 `json:"x,omitempty"`
	Y                  *float64 `json:"y,omitempty"`
	W                  *float64 `json:"w,omitempty"`
	H                  *float64 `json:"h,omitempty"`
}
