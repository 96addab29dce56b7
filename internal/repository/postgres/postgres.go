// Package postgres implements the repository interfaces on PostgreSQL
// through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Open connects a pool and runs the embedded migrations.
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if err := Migrate(databaseURL, EmbeddedEngine); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// DB is the part of *pgxpool.Pool the repositories query through.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func NewRepositories(pool *pgxpool.Pool) *repository.Repositories {
	repos := newRepositories(pool, time.Now)
	repos.Close = pool.Close
	return repos
}

func newRepositories(db DB, now func() time.Time) *repository.Repositories {
	return &repository.Repositories{
		Spaces:           &SpaceRepository{db: db},
		Blocks:           &BlockRepository{db: db, now: now},
		ShareLinks:       &ShareLinkRepository{db: db},
		Snapshots:        &SnapshotRepository{db: db},
		TranslationCache: &TranslationCacheRepository{db: db, now: now},
	}
}

func wrap(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrExists
	}
	return fmt.Errorf("%s: %w", op, err)
}

type SpaceRepository struct {
	db DB
}

const spaceColumns = `id, title, source_language, share_mode_default, created_at, updated_at`

func scanSpace(row pgx.Row) (*domain.Space, error) {
	var (
		s    domain.Space
		mode string
	)
	if err := row.Scan(&s.ID, &s.Title, &s.SourceLanguage, &mode, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.ShareModeDefault = domain.ParseShareMode(mode)
	return &s, nil
}

func (r *SpaceRepository) Create(ctx context.Context, s *domain.Space) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO spaces (`+spaceColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Title, s.SourceLanguage, string(s.ShareModeDefault), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return wrap("insert space", err)
	}
	return nil
}

func (r *SpaceRepository) FindByID(ctx context.Context, id string) (*domain.Space, error) {
	s, err := scanSpace(r.db.QueryRow(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("select space", err)
	}
	return s, nil
}

func (r *SpaceRepository) List(ctx context.Context, limit int) ([]*domain.Space, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+spaceColumns+` FROM spaces ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, wrap("list spaces", err)
	}
	defer rows.Close()

	var spaces []*domain.Space
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, wrap("scan space", err)
		}
		spaces = append(spaces, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list spaces", err)
	}
	return spaces, nil
}

func (r *SpaceRepository) Update(ctx context.Context, s *domain.Space) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE spaces SET title = $2, source_language = $3, share_mode_default = $4, updated_at = $5 WHERE id = $1`,
		s.ID, s.Title, s.SourceLanguage, string(s.ShareModeDefault), s.UpdatedAt)
	if err != nil {
		return wrap("update space", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SpaceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM spaces WHERE id = $1`, id)
	if err != nil {
		return wrap("delete space", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type BlockRepository struct {
	db DB
	now  func() time.Time
}

const blockColumns = `id, space_id, type, x, y, w, h, source_language, translation_version, universal, source_content, created_at, updated_at`

func scanBlock(row pgx.Row) (*domain.Block, error) {
	var (
		b       domain.Block
		typ     string
		content []byte
	)
	err := row.Scan(&b.ID, &b.SpaceID, &typ, &b.X, &b.Y, &b.W, &b.H, &b.SourceLanguage,
		&b.TranslationVersion, &b.Universal, &content, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Type = domain.BlockType(typ)
	if err := json.Unmarshal(content, &b.SourceContent); err != nil {
		return nil, fmt.Errorf("decode source_content: %w", err)
	}
	return &b, nil
}

func (r *BlockRepository) CreateMany(ctx context.Context, blocks []*domain.Block) error {
	batch := &pgx.Batch{}
	for _, b := range blocks {
		content, err := json.Marshal(b.SourceContent)
		if err != nil {
			return fmt.Errorf("encode source_content: %w", err)
		}
		batch.Queue(`INSERT INTO blocks (`+blockColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			b.ID, b.SpaceID, string(b.Type), b.X, b.Y, b.W, b.H, b.SourceLanguage,
			b.TranslationVersion, b.Universal, content, b.CreatedAt, b.UpdatedAt)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return wrap("insert blocks", err)
	}
	return nil
}

func (r *BlockRepository) ListBySpace(ctx context.Context, spaceID string) ([]*domain.Block, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE space_id = $1 ORDER BY created_at ASC`, spaceID)
	if err != nil {
		return nil, wrap("list blocks", err)
	}
	defer rows.Close()

	var blocks []*domain.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, wrap("scan block", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list blocks", err)
	}
	return blocks, nil
}

func (r *BlockRepository) Patch(ctx context.Context, spaceID string, p *domain.BlockPatch) (*domain.Block, error) {
	var content []byte
	if p.SourceContent != nil {
		raw, err := json.Marshal(p.SourceContent)
		if err != nil {
			return nil, fmt.Errorf("encode source_content: %w", err)
		}
		content = raw
	}

	b, err := scanBlock(r.db.QueryRow(ctx, `
		UPDATE blocks SET
			x = COALESCE($3::double precision, x),
			y = COALESCE($4::double precision, y),
			w = COALESCE($5::double precision, w),
			h = COALESCE($6::double precision, h),
			source_content = COALESCE($7::jsonb, source_content),
			translation_version = COALESCE($8::bigint, translation_version),
			universal = COALESCE($9::boolean, universal),
			updated_at = $10
		WHERE id = $1 AND space_id = $2
		RETURNING `+blockColumns,
		p.ID, spaceID, p.X, p.Y, p.W, p.H, content, p.TranslationVersion, p.Universal, r.now()))
	if err != nil {
		return nil, wrap("patch block", err)
	}
	return b, nil
}

func (r *BlockRepository) DeleteBySpace(ctx context.Context, spaceID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM blocks WHERE space_id = $1`, spaceID); err != nil {
		return wrap("delete blocks", err)
	}
	return nil
}

type ShareLinkRepository struct {
	db DB
}

func (r *ShareLinkRepository) Create(ctx context.Context, l *domain.ShareLink) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO share_links (space_id, token, mode, created_at) VALUES ($1, $2, $3, $4)`,
		l.SpaceID, l.Token, string(l.Mode), l.CreatedAt)
	if err != nil {
		return wrap("insert share link", err)
	}
	return nil
}

func (r *ShareLinkRepository) Find(ctx context.Context, spaceID, token string) (*domain.ShareLink, error) {
	var (
		l    domain.ShareLink
		mode string
	)
	err := r.db.QueryRow(ctx,
		`SELECT space_id, token, mode, created_at FROM share_links WHERE space_id = $1 AND token = $2`,
		spaceID, token).Scan(&l.SpaceID, &l.Token, &mode, &l.CreatedAt)
	if err != nil {
		return nil, wrap("select share link", err)
	}
	l.Mode = domain.ParseShareMode(mode)
	return &l, nil
}

func (r *ShareLinkRepository) DeleteBySpace(ctx context.Context, spaceID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM share_links WHERE space_id = $1`, spaceID); err != nil {
		return wrap("delete share links", err)
	}
	return nil
}

type SnapshotRepository struct {
	db DB
}

func (r *SnapshotRepository) Create(ctx context.Context, s *domain.Snapshot) error {
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("encode snapshot payload: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO snapshots (id, space_id, payload, created_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.SpaceID, payload, s.CreatedAt)
	if err != nil {
		return wrap("insert snapshot", err)
	}
	return nil
}

func (r *SnapshotRepository) FindByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	var (
		s       domain.Snapshot
		payload []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, space_id, payload, created_at FROM snapshots WHERE id = $1`, id).
		Scan(&s.ID, &s.SpaceID, &payload, &s.CreatedAt)
	if err != nil {
		return nil, wrap("select snapshot", err)
	}
	if err := json.Unmarshal(payload, &s.Payload); err != nil {
		return nil, fmt.Errorf("decode snapshot payload: %w", err)
	}
	return &s, nil
}

type TranslationCacheRepository struct {
	db DB
	now  func() time.Time
}

func (r *TranslationCacheRepository) Get(ctx context.Context, key string) (map[string][]string, bool, error) {
	var raw []byte
	err := r.db.QueryRow(ctx,
		`SELECT results FROM translation_cache WHERE key = $1 AND expires_at > $2`, key, r.now()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("select cached translation", err)
	}

	var results map[string][]string
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, fmt.Errorf("decode cached translation: %w", err)
	}
	return results, true, nil
}

func (r *TranslationCacheRepository) Set(ctx context.Context, key string, results map[string][]string, ttl time.Duration) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode cached translation: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO translation_cache (key, results, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET results = EXCLUDED.results, expires_at = EXCLUDED.expires_at`,
		key, raw, r.now().Add(ttl))
	if err != nil {
		return wrap("upsert cached translation", err)
	}
	return nil
}
