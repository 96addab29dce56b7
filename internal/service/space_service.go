package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/repository"
	"polyform-sync/pkg/jwt"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const listSpacesLimit = 20

// blockOrder lists the block types every new space starts with.
var blockOrder = []domain.BlockType{domain.BlockTypeDocument}

type SpaceService struct {
	spaceRepo     repository.SpaceRepository
	blockRepo     repository.BlockRepository
	shareLinkRepo repository.ShareLinkRepository
	ticketSecret  string
	ticketTTL     time.Duration
	now           func() time.Time
	log           *slog.Logger
}

func NewSpaceService(
	spaceRepo repository.SpaceRepository,
	blockRepo repository.BlockRepository,
	shareLinkRepo repository.ShareLinkRepository,
	ticketSecret string,
	ticketTTL time.Duration,
	log *slog.Logger,
) *SpaceService {
	return &SpaceService{
		spaceRepo:     spaceRepo,
		blockRepo:     blockRepo,
		shareLinkRepo: shareLinkRepo,
		ticketSecret:  ticketSecret,
		ticketTTL:     ticketTTL,
		now:           time.Now,
		log:           log.With(slog.String("component", "spaces")),
	}
}

// Create stores a new space together with its default blocks and hands the
// creator an edit ticket.
func (s *SpaceService) Create(ctx context.Context, req *domain.CreateSpaceRequest) (*domain.SpaceResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = domain.DefaultSpaceTitle
	}
	sourceLanguage := strings.TrimSpace(req.SourceLanguage)
	if sourceLanguage == "" {
		sourceLanguage = domain.DefaultSourceLanguage
	}

	now := s.now().UTC()
	space := &domain.Space{
		ID:               uuid.New().String(),
		Title:            title,
		SourceLanguage:   sourceLanguage,
		ShareModeDefault: domain.ShareModeEdit,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.spaceRepo.Create(ctx, space); err != nil {
		return nil, err
	}

	blocks := make([]*domain.Block, len(blockOrder))
	for i, t := range blockOrder {
		blocks[i] = domain.NewDefaultBlock(uuid.New().String(), space.ID, t, i, sourceLanguage, now)
	}
	if err := s.blockRepo.CreateMany(ctx, blocks); err != nil {
		return nil, err
	}

	sessionID, ticket, err := s.issueTicket(space.ID, domain.ShareModeEdit)
	if err != nil {
		return nil, err
	}

	s.log.Info("space created", slog.String("space_id", space.ID), slog.String("source_language", sourceLanguage))

	return &domain.SpaceResponse{
		Space:      space,
		Blocks:     blocks,
		AccessMode: domain.ShareModeEdit,
		Ticket:     ticket,
		SessionID:  sessionID,
	}, nil
}

func (s *SpaceService) List(ctx context.Context) ([]*domain.Space, error) {
	spaces, err := s.spaceRepo.List(ctx, listSpacesLimit)
	if err != nil {
		return nil, err
	}
	if spaces == nil {
		spaces = []*domain.Space{}
	}
	return spaces, nil
}

// Get loads a space for a visitor. A share token, when given, must match a
// stored link and its mode wins over the requested one.
func (s *SpaceService) Get(ctx context.Context, spaceID, requestedMode, token string) (*domain.SpaceResponse, error) {
	access := domain.ParseShareMode(requestedMode)

	if token != "" {
		link, err := s.shareLinkRepo.Find(ctx, spaceID, token)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidShareToken
			}
			return nil, err
		}
		access = link.Mode
	}

	space, err := s.find(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	blocks, err := s.blockRepo.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []*domain.Block{}
	}

	sessionID, ticket, err := s.issueTicket(spaceID, access)
	if err != nil {
		return nil, err
	}

	return &domain.SpaceResponse{
		Space:      space,
		Blocks:     blocks,
		AccessMode: access,
		Ticket:     ticket,
		SessionID:  sessionID,
	}, nil
}

func (s *SpaceService) Update(ctx context.Context, spaceID string, req *domain.UpdateSpaceRequest) (*domain.Space, error) {
	var title string
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	if title == "" && req.ShareModeDefault == nil {
		return nil, ErrNoUpdates
	}

	space, err := s.find(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	if title != "" {
		space.Title = title
	}
	if req.ShareModeDefault != nil {
		space.ShareModeDefault = *req.ShareModeDefault
	}
	space.UpdatedAt = s.now().UTC()

	if err := s.spaceRepo.Update(ctx, space); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}

	return space, nil
}

// Delete removes a space with everything it owns.
func (s *SpaceService) Delete(ctx context.Context, spaceID string) error {
	if _, err := s.find(ctx, spaceID); err != nil {
		return err
	}

	if err := s.blockRepo.DeleteBySpace(ctx, spaceID); err != nil {
		return err
	}
	if err := s.shareLinkRepo.DeleteBySpace(ctx, spaceID); err != nil {
		return err
	}
	if err := s.spaceRepo.Delete(ctx, spaceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSpaceNotFound
		}
		return err
	}

	s.log.Info("space deleted", slog.String("space_id", spaceID))
	return nil
}

func (s *SpaceService) find(ctx context.Context, spaceID string) (*domain.Space, error) {
	space, err := s.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}
	return space, nil
}

// issueTicket mints a fresh room session and a ticket bound to it.
func (s *SpaceService) issueTicket(spaceID string, mode domain.ShareMode) (sessionID, ticket string, err error) {
	sessionID = uuid.New().String()
	ticket, err = jwt.GenerateToken(spaceID, sessionID, string(mode), s.ticketTTL, s.ticketSecret)
	if err != nil {
		return "", "", err
	}
	return sessionID, ticket, nil
}
