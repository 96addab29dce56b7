package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/repository"
)

type mockSpaceRepo struct {
	mu     sync.Mutex
	spaces map[string]*domain.Space
	err    error
}

func newMockSpaceRepo() *mockSpaceRepo {
	return &mockSpaceRepo{spaces: make(map[string]*domain.Space)}
}

func (m *mockSpaceRepo) Create(_ context.Context, s *domain.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	c := *s
	m.spaces[s.ID] = &c
	return nil
}

func (m *mockSpaceRepo) FindByID(_ context.Context, id string) (*domain.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.spaces[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockSpaceRepo) List(_ context.Context, limit int) ([]*domain.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Space
	for _, s := range m.spaces {
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockSpaceRepo) Update(_ context.Context, s *domain.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[s.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *s
	m.spaces[s.ID] = &c
	return nil
}

func (m *mockSpaceRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.spaces, id)
	return nil
}

type mockBlockRepo struct {
	mu       sync.Mutex
	blocks   map[string]*domain.Block
	patchErr map[string]error
}

func newMockBlockRepo() *mockBlockRepo {
	return &mockBlockRepo{
		blocks:   make(map[string]*domain.Block),
		patchErr: make(map[string]error),
	}
}

func (m *mockBlockRepo) CreateMany(_ context.Context, blocks []*domain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range blocks {
		m.blocks[b.ID] = b.Clone()
	}
	return nil
}

func (m *mockBlockRepo) ListBySpace(_ context.Context, spaceID string) ([]*domain.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Block
	for _, b := range m.blocks {
		if b.SpaceID == spaceID {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockBlockRepo) Patch(_ context.Context, spaceID string, p *domain.BlockPatch) (*domain.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.patchErr[p.ID]; err != nil {
		return nil, err
	}
	b, ok := m.blocks[p.ID]
	if !ok || b.SpaceID != spaceID {
		return nil, repository.ErrNotFound
	}
	p.Apply(b)
	return b.Clone(), nil
}

func (m *mockBlockRepo) DeleteBySpace(_ context.Context, spaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.blocks {
		if b.SpaceID == spaceID {
			delete(m.blocks, id)
		}
	}
	return nil
}

type mockShareLinkRepo struct {
	mu    sync.Mutex
	links map[string]*domain.ShareLink
}

func newMockShareLinkRepo() *mockShareLinkRepo {
	return &mockShareLinkRepo{links: make(map[string]*domain.ShareLink)}
}

func (m *mockShareLinkRepo) Create(_ context.Context, l *domain.ShareLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := l.SpaceID + ":" + l.Token
	if _, ok := m.links[key]; ok {
		return repository.ErrExists
	}
	c := *l
	m.links[key] = &c
	return nil
}

func (m *mockShareLinkRepo) Find(_ context.Context, spaceID, token string) (*domain.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[spaceID+":"+token]; ok {
		c := *l
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockShareLinkRepo) DeleteBySpace(_ context.Context, spaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, l := range m.links {
		if l.SpaceID == spaceID {
			delete(m.links, k)
		}
	}
	return nil
}

type mockSnapshotRepo struct {
	snapshots map[string]*domain.Snapshot
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{snapshots: make(map[string]*domain.Snapshot)}
}

func (m *mockSnapshotRepo) Create(_ context.Context, s *domain.Snapshot) error {
	m.snapshots[s.ID] = s
	return nil
}

func (m *mockSnapshotRepo) FindByID(_ context.Context, id string) (*domain.Snapshot, error) {
	if s, ok := m.snapshots[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

var errStoreDown = errors.New("store unavailable")
