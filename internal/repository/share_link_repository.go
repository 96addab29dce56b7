package repository

import (
	"context"
	"fmt"

	"polyform-sync/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const docTypeShareLink = "share_link"

type CouchDBShareLinkRepository struct {
	db *kivik.DB
}

type shareLinkDoc struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	DocType   string `json:"doc_type"`
	SpaceID   string `json:"space_id"`
	Token     string `json:"token"`
	Mode      string `json:"mode"`
	CreatedAt string `json:"created_at"`
}

func NewShareLinkRepository(client *kivik.Client, dbName string) *CouchDBShareLinkRepository {
	return &CouchDBShareLinkRepository{
		db: client.DB(dbName),
	}
}

func shareLinkDocID(spaceID, token string) string {
	return docID(docTypeShareLink, spaceID+":"+token)
}

func (r *CouchDBShareLinkRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	doc := shareLinkDoc{
		ID:        shareLinkDocID(link.SpaceID, link.Token),
		DocType:   docTypeShareLink,
		SpaceID:   link.SpaceID,
		Token:     link.Token,
		Mode:      string(link.Mode),
		CreatedAt: formatTime(link.CreatedAt),
	}

	if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
		if isConflict(err) {
			return ErrExists
		}
		return fmt.Errorf("failed to create share link: %w", err)
	}

	return nil
}

func (r *CouchDBShareLinkRepository) Find(ctx context.Context, spaceID, token string) (*domain.ShareLink, error) {
	var doc shareLinkDoc
	if err := r.db.Get(ctx, shareLinkDocID(spaceID, token)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get share link: %w", err)
	}

	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &domain.ShareLink{
		SpaceID:   doc.SpaceID,
		Token:     doc.Token,
		Mode:      domain.ParseShareMode(doc.Mode),
		CreatedAt: createdAt,
	}, nil
}

func (r *CouchDBShareLinkRepository) DeleteBySpace(ctx context.Context, spaceID string) error {
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": docTypeShareLink,
			"space_id": spaceID,
		},
	}

	rows := r.db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to query share links: %w", err)
	}
	defer rows.Close()

	var docs []shareLinkDoc
	for rows.Next() {
		var doc shareLinkDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return fmt.Errorf("failed to scan share link: %w", err)
		}
		docs = append(docs, doc)
	}

	for _, doc := range docs {
		if _, err := r.db.Delete(ctx, doc.ID, doc.Rev); err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to delete share link: %w", err)
		}
	}

	return nil
}
