package service

import (
	"context"
	"errors"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/repository"

	"golang.org/x/exp/slog"
)

type BlockService struct {
	blockRepo repository.BlockRepository
	log       *slog.Logger
}

func NewBlockService(blockRepo repository.BlockRepository, log *slog.Logger) *BlockService {
	return &BlockService{
		blockRepo: blockRepo,
		log:       log.With(slog.String("component", "blocks")),
	}
}

// Patch writes each patch in order and stops at the first failure, which is
// reported as a *BlockPatchError.
func (s *BlockService) Patch(ctx context.Context, spaceID string, req *domain.PatchBlocksRequest) ([]*domain.Block, error) {
	if len(req.Blocks) == 0 {
		return nil, ErrNoUpdates
	}

	updated := make([]*domain.Block, 0, len(req.Blocks))
	for i := range req.Blocks {
		patch := &req.Blocks[i]

		block, err := s.blockRepo.Patch(ctx, spaceID, patch)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				err = ErrBlockNotFound
			}
			s.log.Warn("block patch failed",
				slog.String("space_id", spaceID),
				slog.String("block_id", patch.ID),
				slog.String("error", err.Error()))
			return updated, &BlockPatchError{BlockID: patch.ID, Err: err}
		}
		updated = append(updated, block)
	}

	return updated, nil
}
