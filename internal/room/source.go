package room

import (
	"errors"
	"sort"

	"polyform-sync/internal/domain"
)

var (
	ErrUnknownBlock = errors.New("unknown block")
	ErrReadOnly     = errors.New("session is read-only")
)

// SourceStore holds the canonical source of each block as this client knows
// it. It is not safe for concurrent use; the Controller serialises access.
type SourceStore struct {
	blocks map[string]*domain.Block
	order  []string
}

func NewSourceStore(blocks []*domain.Block) *SourceStore {
	s := &SourceStore{blocks: make(map[string]*domain.Block, len(blocks))}
	for _, b := range blocks {
		s.Put(b)
	}
	return s
}

// Put stores a copy of b, replacing any block with the same id.
func (s *SourceStore) Put(b *domain.Block) {
	if _, ok := s.blocks[b.ID]; !ok {
		s.order = append(s.order, b.ID)
	}
	s.blocks[b.ID] = b.Clone()
}

func (s *SourceStore) Get(id string) (*domain.Block, bool) {
	b, ok := s.blocks[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// get returns the stored block itself for in-package mutation.
func (s *SourceStore) get(id string) (*domain.Block, error) {
	b, ok := s.blocks[id]
	if !ok {
		return nil, ErrUnknownBlock
	}
	return b, nil
}

// Blocks returns copies in load order.
func (s *SourceStore) Blocks() []*domain.Block {
	out := make([]*domain.Block, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.blocks[id].Clone())
	}
	return out
}

// IDs lists block ids in load order.
func (s *SourceStore) IDs() []string {
	return append([]string(nil), s.order...)
}

// ApplyLocalEdit replaces the content of a block wholesale and bumps its
// version by exactly one.
func (s *SourceStore) ApplyLocalEdit(id string, content domain.Content) (int64, domain.Content, error) {
	b, err := s.get(id)
	if err != nil {
		return 0, domain.Content{}, err
	}

	b.TranslationVersion++
	b.SourceContent = content.Clone()
	return b.TranslationVersion, b.SourceContent.Clone(), nil
}

// AdoptRemote takes a peer's content and version as-is. The last update
// delivered wins, even when its version is lower than the local one.
func (s *SourceStore) AdoptRemote(id string, version int64, content domain.Content) error {
	b, err := s.get(id)
	if err != nil {
		return err
	}

	b.TranslationVersion = version
	b.SourceContent = content.Clone()
	return nil
}

// ApplyPatchEvent applies the metadata of a block_patch broadcast.
func (s *SourceStore) ApplyPatchEvent(p *domain.BlockPatchEvent) error {
	b, err := s.get(p.ID)
	if err != nil {
		return err
	}

	patch := domain.BlockPatch{
		ID:                 p.ID,
		X:                  p.X,
		Y:                  p.Y,
		W:                  p.W,
		H:                  p.H,
		TranslationVersion: p.TranslationVersion,
		Universal:          p.Universal,
	}
	patch.Apply(b)
	return nil
}

// sortedKeys is used where map iteration must be deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
