package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"polyform-sync/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
)

type SpaceRepository interface {
	Create(ctx context.Context, space *domain.Space) error
	FindByID(ctx context.Context, id string) (*domain.Space, error)
	// List returns up to limit spaces, most recently updated first.
	List(ctx context.Context, limit int) ([]*domain.Space, error)
	Update(ctx context.Context, space *domain.Space) error
	Delete(ctx context.Context, id string) error
}

type BlockRepository interface {
	CreateMany(ctx context.Context, blocks []*domain.Block) error
	// ListBySpace returns the blocks of a space ordered by creation time.
	ListBySpace(ctx context.Context, spaceID string) ([]*domain.Block, error)
	// Patch applies the set fields of patch to the block with patch.ID, but
	// only if it belongs to spaceID. Concurrent writers: last write wins.
	Patch(ctx context.Context, spaceID string, patch *domain.BlockPatch) (*domain.Block, error)
	DeleteBySpace(ctx context.Context, spaceID string) error
}

type ShareLinkRepository interface {
	Create(ctx context.Context, link *domain.ShareLink) error
	Find(ctx context.Context, spaceID, token string) (*domain.ShareLink, error)
	DeleteBySpace(ctx context.Context, spaceID string) error
}

type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *domain.Snapshot) error
	FindByID(ctx context.Context, id string) (*domain.Snapshot, error)
}

// TranslationCacheRepository stores translation results by fingerprint key.
// A missing or expired key reports ok=false.
type TranslationCacheRepository interface {
	Get(ctx context.Context, key string) (results map[string][]string, ok bool, err error)
	Set(ctx context.Context, key string, results map[string][]string, ttl time.Duration) error
}

// Repositories bundles one implementation of every store the server needs.
type Repositories struct {
	Spaces           SpaceRepository
	Blocks           BlockRepository
	ShareLinks       ShareLinkRepository
	Snapshots        SnapshotRepository
	TranslationCache TranslationCacheRepository
	Close            func()
}

// NewCouchRepositories wires every repository to the same CouchDB database.
func NewCouchRepositories(client *kivik.Client, dbName string) *Repositories {
	return &Repositories{
		Spaces:           NewSpaceRepository(client, dbName),
		Blocks:           NewBlockRepository(client, dbName),
		ShareLinks:       NewShareLinkRepository(client, dbName),
		Snapshots:        NewSnapshotRepository(client, dbName),
		TranslationCache: NewTranslationCacheRepository(client, dbName),
		Close:            func() { client.Close() },
	}
}

// EnsureDatabase creates dbName when it does not exist yet.
func EnsureDatabase(ctx context.Context, client *kivik.Client, dbName string) (created bool, err error) {
	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := client.CreateDB(ctx, dbName); err != nil {
		return false, fmt.Errorf("failed to create database: %w", err)
	}
	return true, nil
}

const timeLayout = time.RFC3339Nano

func docID(docType, id string) string {
	return docType + ":" + id
}

func stripDocID(docType, id string) string {
	return strings.TrimPrefix(id, docType+":")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func isNotFound(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusNotFound
}

func isConflict(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusConflict
}

// maxPutRetries bounds read-modify-write loops that lose a revision race.
const maxPutRetries = 5
