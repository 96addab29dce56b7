package domain

import "time"

type ShareLink struct {
	SpaceID   string    `json:"space_id"`
	Token     string    `json:"token"`
	Mode      ShareMode `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateShareLinkRequest struct {
	Mode ShareMode `json:"mode" validate:"omitempty,oneof=edit view"`
}

type ShareLinkResponse struct {
	Link  string    `json:"link"`
	Mode  ShareMode `json:"mode"`
	Token string    `json:"token"`
}
