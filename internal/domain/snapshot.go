package domain

import "time"

// Snapshot is an immutable copy of a space and its blocks.
type Snapshot struct {
	ID        string          `json:"id"`
	SpaceID   string          `json:"space_id"`
	Payload   SnapshotPayload `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type SnapshotPayload struct {
	Space  *Space   `json:"space"`
	Blocks []*Block `json:"blocks"`
}

type CreateSnapshotResponse struct {
	SnapshotID string    `json:"snapshotId"`
	CreatedAt  time.Time `json:"createdAt"`
	Link       string    `json:"link"`
}
