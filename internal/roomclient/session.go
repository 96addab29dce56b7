package roomclient

import (
	"context"
	"fmt"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/logger"
	"polyform-sync/internal/room"

	"golang.org/x/exp/slog"
)

// Store persists controller writes through PATCH /spaces/{id}/blocks.
type Store struct {
	api    *Client
	ticket string
}

func NewStore(api *Client, ticket string) *Store {
	return &Store{api: api, ticket: ticket}
}

func (s *Store) PatchBlocks(ctx context.Context, spaceID string, patches []domain.BlockPatch) error {
	_, err := s.api.PatchBlocks(ctx, spaceID, s.ticket, patches)
	return err
}

type SessionOptions struct {
	SpaceID string
	// Mode and Token come from a share link and may be empty.
	Mode        string
	Token       string
	DisplayName string
	Language    string
	OnChange    func(blockID string)
	Log         *slog.Logger
}

// Session is a joined room: the loaded space plus the controller driving it.
type Session struct {
	Space      *domain.Space
	Mode       domain.ShareMode
	Controller *room.Controller
	Channel    *WSChannel
}

// Open loads the space, connects to its room and joins it.
func Open(ctx context.Context, api *Client, opts SessionOptions) (*Session, error) {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	if opts.DisplayName == "" {
		opts.DisplayName = "Guest"
	}

	loaded, err := api.GetSpace(ctx, opts.SpaceID, opts.Mode, opts.Token)
	if err != nil {
		return nil, fmt.Errorf("load space: %w", err)
	}
	if loaded.Ticket == "" || loaded.SessionID == "" {
		return nil, fmt.Errorf("load space: server issued no room ticket")
	}

	roomURL, err := api.RoomURL(loaded.Ticket, loaded.SessionID)
	if err != nil {
		return nil, err
	}
	channel := NewWSChannel(roomURL, opts.Log)

	mode := loaded.AccessMode
	if mode == "" {
		mode = domain.ShareModeEdit
	}

	ctrl := room.NewController(room.Config{
		SpaceID:     loaded.Space.ID,
		SessionID:   loaded.SessionID,
		DisplayName: opts.DisplayName,
		Language:    opts.Language,
		Mode:        mode,
		OnChange:    opts.OnChange,
	}, loaded.Blocks, room.Deps{
		Channel:    channel,
		Store:      NewStore(api, loaded.Ticket),
		Translator: api,
		Log:        opts.Log,
	})

	if err := ctrl.Join(ctx); err != nil {
		return nil, err
	}

	opts.Log.Info("joined space",
		slog.String("space_id", loaded.Space.ID),
		slog.String("session_id", loaded.SessionID),
		slog.String("mode", string(mode)))

	return &Session{
		Space:      loaded.Space,
		Mode:       mode,
		Controller: ctrl,
		Channel:    channel,
	}, nil
}

func (s *Session) Close() error {
	return s.Controller.Close()
}
