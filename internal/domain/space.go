package domain

import "time"

type ShareMode string

const (
	ShareModeEdit ShareMode = "edit"
	ShareModeView ShareMode = "view"
)

// ParseShareMode treats anything other than "view" as edit.
func ParseShareMode(s string) ShareMode {
	if ShareMode(s) == ShareModeView {
		return ShareModeView
	}
	return ShareModeEdit
}

const (
	DefaultSpaceTitle     = "Untitled Space"
	DefaultSourceLanguage = "en"
)

type Space struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	SourceLanguage   string    `json:"source_language"`
	ShareModeDefault ShareMode `json:"share_mode_default"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateSpaceRequest struct {
	Title          string `json:"title" validate:"max=200"`
	SourceLanguage string `json:"sourceLanguage" validate:"omitempty,min=2,max=16"`
}

type UpdateSpaceRequest struct {
	Title            *string    `json:"title" validate:"omitempty,min=1,max=200"`
	ShareModeDefault *ShareMode `json:"shareModeDefault" validate:"omitempty,oneof=edit view"`
}

type SpaceResponse struct {
	Space      *Space    `json:"space"`
	Blocks     []*Block  `json:"blocks,omitempty"`
	AccessMode ShareMode `json:"accessMode,omitempty"`
	Ticket     string    `json:"ticket,omitempty"`
	// SessionID is the room identity the ticket is bound to.
	SessionID string `json:"sessionId,omitempty"`
}
