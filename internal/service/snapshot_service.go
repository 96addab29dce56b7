package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/repository"

	"github.com/google/uuid"
)

type SnapshotService struct {
	spaceRepo    repository.SpaceRepository
	blockRepo    repository.BlockRepository
	snapshotRepo repository.SnapshotRepository
	appURL       string
	now          func() time.Time
}

func NewSnapshotService(
	spaceRepo repository.SpaceRepository,
	blockRepo repository.BlockRepository,
	snapshotRepo repository.SnapshotRepository,
	appURL string,
) *SnapshotService {
	return &SnapshotService{
		spaceRepo:    spaceRepo,
		blockRepo:    blockRepo,
		snapshotRepo: snapshotRepo,
		appURL:       strings.TrimRight(appURL, "/"),
		now:          time.Now,
	}
}

// Create freezes the current space and blocks into a new snapshot.
func (s *SnapshotService) Create(ctx context.Context, spaceID string) (*domain.CreateSnapshotResponse, error) {
	space, err := s.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}

	blocks, err := s.blockRepo.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []*domain.Block{}
	}

	snapshot := &domain.Snapshot{
		ID:        uuid.New().String(),
		SpaceID:   spaceID,
		Payload:   domain.SnapshotPayload{Space: space, Blocks: blocks},
		CreatedAt: s.now().UTC(),
	}

	if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
		return nil, err
	}

	return &domain.CreateSnapshotResponse{
		SnapshotID: snapshot.ID,
		CreatedAt:  snapshot.CreatedAt,
		Link:       fmt.Sprintf("%s/space/%s/snapshot/%s", s.appURL, url.PathEscape(spaceID), snapshot.ID),
	}, nil
}

func (s *SnapshotService) Get(ctx context.Context, snapshotID string) (*domain.Snapshot, error) {
	snapshot, err := s.snapshotRepo.FindByID(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return snapshot, nil
}
