package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"polyform-sync/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const docTypeBlock = "block"

type CouchDBBlockRepository struct {
	db  *kivik.DB
	now func() time.Time
}

type blockDoc struct {
	ID                 string         `json:"_id"`
	Rev                string         `json:"_rev,omitempty"`
	DocType            string         `json:"doc_type"`
	SpaceID            string         `json:"space_id"`
	Type               string         `json:"type"`
	X                  float64        `json:"x"`
	Y                  float64        `json:"y"`
	W                  float64        `json:"w"`
	H                  float64        `json:"h"`
	SourceLanguage     string         `json:"source_language"`
	TranslationVersion int64          `json:"translation_version"`
	Universal          bool           `json:"universal"`
	SourceContent      domain.Content `json:"source_content"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
}

func NewBlockRepository(client *kivik.Client, dbName string) *CouchDBBlockRepository {
	return &CouchDBBlockRepository{
		db:  client.DB(dbName),
		now: time.Now,
	}
}

func blockToDoc(b *domain.Block) blockDoc {
	return blockDoc{
		ID:                 docID(docTypeBlock, b.ID),
		DocType:            docTypeBlock,
		SpaceID:            b.SpaceID,
		Type:               string(b.Type),
		X:                  b.X,
		Y:                  b.Y,
		W:                  b.W,
		H:                  b.H,
		SourceLanguage:     b.SourceLanguage,
		TranslationVersion: b.TranslationVersion,
		Universal:          b.Universal,
		SourceContent:      b.SourceContent,
		CreatedAt:          formatTime(b.CreatedAt),
		UpdatedAt:          formatTime(b.UpdatedAt),
	}
}

func (r *CouchDBBlockRepository) CreateMany(ctx context.Context, blocks []*domain.Block) error {
	for _, b := range blocks {
		doc := blockToDoc(b)
		if _, err := r.db.Put(ctx, doc.ID, doc); err != nil {
			if isConflict(err) {
				return ErrExists
			}
			return fmt.Errorf("failed to create block %s: %w", b.ID, err)
		}
	}
	return nil
}

func (r *CouchDBBlockRepository) findBySpace(ctx context.Context, spaceID string) ([]blockDoc, error) {
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": docTypeBlock,
			"space_id": spaceID,
		},
	}

	rows := r.db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var docs []blockDoc
	for rows.Next() {
		var doc blockDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocks: %w", err)
	}

	return docs, nil
}

func (r *CouchDBBlockRepository) ListBySpace(ctx context.Context, spaceID string) ([]*domain.Block, error) {
	docs, err := r.findBySpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	blocks := make([]*domain.Block, 0, len(docs))
	for i := range docs {
		b, err := docToBlock(&docs[i])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].CreatedAt.Before(blocks[j].CreatedAt)
	})

	return blocks, nil
}

func (r *CouchDBBlockRepository) Patch(ctx context.Context, spaceID string, patch *domain.BlockPatch) (*domain.Block, error) {
	id := docID(docTypeBlock, patch.ID)

	for attempt := 0; ; attempt++ {
		var doc blockDoc
		if err := r.db.Get(ctx, id).ScanDoc(&doc); err != nil {
			if isNotFound(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("failed to get block for patch: %w", err)
		}
		if doc.SpaceID != spaceID {
			return nil, ErrNotFound
		}

		block, err := docToBlock(&doc)
		if err != nil {
			return nil, err
		}
		patch.Apply(block)
		block.UpdatedAt = r.now()

		next := blockToDoc(block)
		next.Rev = doc.Rev
		next.CreatedAt = doc.CreatedAt

		_, err = r.db.Put(ctx, next.ID, next)
		if err == nil {
			return block, nil
		}
		if !isConflict(err) || attempt >= maxPutRetries {
			return nil, fmt.Errorf("failed to patch block: %w", err)
		}
	}
}

func (r *CouchDBBlockRepository) DeleteBySpace(ctx context.Context, spaceID string) error {
	docs, err := r.findBySpace(ctx, spaceID)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if _, err := r.db.Delete(ctx, doc.ID, doc.Rev); err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to delete block: %w", err)
		}
	}

	return nil
}

func docToBlock(doc *blockDoc) (*domain.Block, error) {
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	updatedAt, err := parseTime(doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &domain.Block{
		ID:                 stripDocID(docTypeBlock, doc.ID),
		SpaceID:            doc.SpaceID,
		Type:               domain.BlockType(doc.Type),
		X:                  doc.X,
		Y:                  doc.Y,
		W:                  doc.W,
		H:                  doc.H,
		SourceLanguage:     doc.SourceLanguage,
		TranslationVersion: doc.TranslationVersion,
		Universal:          doc.Universal,
		SourceContent:      doc.SourceContent,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, nil
}
