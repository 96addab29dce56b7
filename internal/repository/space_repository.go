package repository

import (
	"context"
	"fmt"
	"sort"

	"polyform-sync/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const docTypeSpace = "space"

type CouchDBSpaceRepository struct {
	db *kivik.DB
}

type spaceDoc struct {
	ID               string `json:"_id"`
	Rev              string `json:"_rev,omitempty"`
	DocType          string `json:"doc_type"`
	Title            string `json:"title"`
	SourceLanguage   string `json:"source_language"`
	ShareModeDefault string `json:"share_mode_default"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func NewSpaceRepository(client *kivik.Client, dbName string) *CouchDBSpaceRepository {
	return &CouchDBSpaceRepository{
		db: client.DB(dbName),
	}
}

func spaceToDoc(space *domain.Space) spaceDoc {
	return spaceDoc{
		ID:               docID(docTypeSpace, space.ID),
		DocType:          docTypeSpace,
		Title:            space.Title,
		SourceLanguage:   space.SourceLanguage,
		ShareModeDefault: string(space.ShareModeDefault),
		CreatedAt:        formatTime(space.CreatedAt),
		UpdatedAt:        formatTime(space.UpdatedAt),
	}
}

func (r *CouchDBSpaceRepository) Create(ctx context.Context, space *domain.Space) error {
	doc := spaceToDoc(space)

	_, err := r.db.Put(ctx, doc.ID, doc)
	if err != nil {
		if isConflict(err) {
			return ErrExists
		}
		return fmt.Errorf("failed to create space: %w", err)
	}

	return nil
}

func (r *CouchDBSpaceRepository) get(ctx context.Context, id string) (*spaceDoc, error) {
	var doc spaceDoc
	if err := r.db.Get(ctx, docID(docTypeSpace, id)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	return &doc, nil
}

func (r *CouchDBSpaceRepository) FindByID(ctx context.Context, id string) (*domain.Space, error) {
	doc, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return docToSpace(doc)
}

func (r *CouchDBSpaceRepository) List(ctx context.Context, limit int) ([]*domain.Space, error) {
	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": docTypeSpace,
		},
	}

	rows := r.db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query spaces: %w", err)
	}
	defer rows.Close()

	var spaces []*domain.Space
	for rows.Next() {
		var doc spaceDoc
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}

		space, err := docToSpace(&doc)
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, space)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate spaces: %w", err)
	}

	sort.SliceStable(spaces, func(i, j int) bool {
		return spaces[i].UpdatedAt.After(spaces[j].UpdatedAt)
	})
	if limit > 0 && len(spaces) > limit {
		spaces = spaces[:limit]
	}

	return spaces, nil
}

func (r *CouchDBSpaceRepository) Update(ctx context.Context, space *domain.Space) error {
	for attempt := 0; ; attempt++ {
		existing, err := r.get(ctx, space.ID)
		if err != nil {
			return err
		}

		doc := spaceToDoc(space)
		doc.Rev = existing.Rev
		doc.CreatedAt = existing.CreatedAt

		_, err = r.db.Put(ctx, doc.ID, doc)
		if err == nil {
			return nil
		}
		if !isConflict(err) || attempt >= maxPutRetries {
			return fmt.Errorf("failed to update space: %w", err)
		}
	}
}

func (r *CouchDBSpaceRepository) Delete(ctx context.Context, id string) error {
	doc, err := r.get(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.db.Delete(ctx, doc.ID, doc.Rev); err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}

	return nil
}

func docToSpace(doc *spaceDoc) (*domain.Space, error) {
	createdAt, err := parseTime(doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	updatedAt, err := parseTime(doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &domain.Space{
		ID:               stripDocID(docTypeSpace, doc.ID),
		Title:            doc.Title,
		SourceLanguage:   doc.SourceLanguage,
		ShareModeDefault: domain.ParseShareMode(doc.ShareModeDefault),
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}, nil
}
