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

type ShareService struct {
	spaceRepo     repository.SpaceRepository
	shareLinkRepo repository.ShareLinkRepository
	appURL        string
	now           func() time.Time
}

func NewShareService(spaceRepo repository.SpaceRepository, shareLinkRepo repository.ShareLinkRepository, appURL string) *ShareService {
	return &ShareService{
		spaceRepo:     spaceRepo,
		shareLinkRepo: shareLinkRepo,
		appURL:        strings.TrimRight(appURL, "/"),
		now:           time.Now,
	}
}

// newShareToken is a random UUID rendered as 32 hex characters.
func newShareToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func (s *ShareService) Create(ctx context.Context, spaceID string, req *domain.CreateShareLinkRequest) (*domain.ShareLinkResponse, error) {
	if _, err := s.spaceRepo.FindByID(ctx, spaceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}

	mode := domain.ParseShareMode(string(req.Mode))
	link := &domain.ShareLink{
		SpaceID:   spaceID,
		Token:     newShareToken(),
		Mode:      mode,
		CreatedAt: s.now().UTC(),
	}

	if err := s.shareLinkRepo.Create(ctx, link); err != nil {
		return nil, err
	}

	return &domain.ShareLinkResponse{
		Link:  fmt.Sprintf("%s/space/%s?mode=%s&token=%s", s.appURL, url.PathEscape(spaceID), mode, link.Token),
		Mode:  mode,
		Token: link.Token,
	}, nil
}
