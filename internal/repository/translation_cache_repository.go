package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kivik/kivik/v4"
)

const docTypeTranslationCache = "translation_cache"

// CouchDBTranslationCacheRepository keeps translation results as documents
// with an expiry stamp. Expired entries are removed lazily on read.
type CouchDBTranslationCacheRepository struct {
	db  *kivik.DB
	now func() time.Time
}

type translationCacheDoc struct {
	ID        string              `json:"_id"`
	Rev       string              `json:"_rev,omitempty"`
	DocType   string              `json:"doc_type"`
	Results   map[string][]string `json:"results"`
	ExpiresAt string              `json:"expires_at"`
}

func NewTranslationCacheRepository(client *kivik.Client, dbName string) *CouchDBTranslationCacheRepository {
	return &CouchDBTranslationCacheRepository{
		db:  client.DB(dbName),
		now: time.Now,
	}
}

func (r *CouchDBTranslationCacheRepository) Get(ctx context.Context, key string) (map[string][]string, bool, error) {
	var doc translationCacheDoc
	if err := r.db.Get(ctx, docID(docTypeTranslationCache, key)).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached translation: %w", err)
	}

	expiresAt, err := parseTime(doc.ExpiresAt)
	if err != nil || !r.now().Before(expiresAt) {
		_, _ = r.db.Delete(ctx, doc.ID, doc.Rev)
		return nil, false, nil
	}

	return doc.Results, true, nil
}

func (r *CouchDBTranslationCacheRepository) Set(ctx context.Context, key string, results map[string][]string, ttl time.Duration) error {
	doc := translationCacheDoc{
		ID:        docID(docTypeTranslationCache, key),
		DocType:   docTypeTranslationCache,
		Results:   results,
		ExpiresAt: formatTime(r.now().Add(ttl)),
	}

	for attempt := 0; ; attempt++ {
		_, err := r.db.Put(ctx, doc.ID, doc)
		if err == nil {
			return nil
		}
		if !isConflict(err) || attempt >= maxPutRetries {
			return fmt.Errorf("failed to cache translation: %w", err)
		}

		var existing translationCacheDoc
		if err := r.db.Get(ctx, doc.ID).ScanDoc(&existing); err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to read cached translation: %w", err)
		}
		doc.Rev = existing.Rev
	}
}
