package repository

import (
	"context"
	"fmt"

	"polyform-sync/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const docTypeSnapshot = "snapshot"

type CouchDBSnapshotRepository struct {
	db *kivik.DB
}

type snapshotDoc struct {
	ID        string                 `json:"_id"`
	Rev       string                 `json:"_rev,omitempty"`
	DocType   string                 `json:"doc_type"`
	SpaceID   string                 `json:"space_id"`
	Payload   domain.SnapshotPayload `json:"payload"`
	CreatedAt string                 `json:"created_at"`
}

func NewSnapshotRepository(client *kivik.Client, dbName string) *CouchDBSnapshotRepository {
	return &CouchDBSnapshotRepository{
		db: client.DB(dbName),
	}
}

func (r *CouchDBSnapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	doc := snapshotDoc{
		ID:        docID(docTypeSnapshot, snapshot.ID),
		DocType:   docTypeSnapshot,
		SpaceID:   snapshot.SpaceID,
		Payload:   snapshot.Payload,
		CreatedAt: formatTime(snapshot.CreatedAt),
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		if isConflict(err) {
			return ErrExists
		}
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	return nil
}

func (r *CouchDBSnapshotRepository) FindByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	var doc snapshotDoc
	if err := r.db.Get(ctx, docID(docTypeSnapshot, id)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &domain.Snapshot{
		ID:        stripDocID(docTypeSnapshot, doc.ID),
		SpaceID:   doc.SpaceID,
		Payload:   doc.Payload,
		CreatedAt: createdAt,
	}, nil
}
