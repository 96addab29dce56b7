package service

import (
	"errors"
	"fmt"
)

var (
	ErrSpaceNotFound     = errors.New("space not found")
	ErrBlockNotFound     = errors.New("block not found")
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrInvalidShareToken = errors.New("invalid share link token")
	ErrNoUpdates         = errors.New("no updates provided")
	ErrReadOnlySession   = errors.New("session is read-only")
	ErrUnknownEvent      = errors.New("unknown event type")
)

// BlockPatchError reports which block of a batch could not be written.
// Blocks before it in the batch were already persisted.
type BlockPatchError struct {
	BlockID string
	Err     error
}

func (e *BlockPatchError) Error() string {
	return fmt.Sprintf("patch block %s: %v", e.BlockID, e.Err)
}

func (e *BlockPatchError) Unwrap() error {
	return e.Err
}
