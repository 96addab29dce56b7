// Package translation turns block text units into per-language views,
// memoized by a content and version fingerprint.
package translation

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"polyform-sync/internal/domain"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// UISourceLang is the language interface copy is written in.
const UISourceLang = "en"

// ErrUpstream marks a failure of the translation backend. Callers may retry.
var ErrUpstream = errors.New("translation backend failed")

const DefaultCacheTTL = 24 * time.Hour

// flightTimeout bounds one shared backend round.
const flightTimeout = 60 * time.Second

type Service struct {
	backend Backend
	cache   Cache
	ttl     time.Duration
	group   singleflight.Group
	log     *slog.Logger
}

func NewService(backend Backend, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		backend: backend,
		cache:   cache,
		ttl:     ttl,
		log:     log.With(slog.String("component", "translation")),
	}
}

type flightResult struct {
	results map[string][]string
	cached  bool
}

// Translate answers req from the cache or, on a miss, from one backend call
// per target language. Either every target succeeds or the call fails and
// nothing is cached.
func (s *Service) Translate(ctx context.Context, req *domain.TranslateRequest) (*domain.TranslateResponse, error) {
	targets := NormalizeTargets(req.TargetLangs)
	key := Fingerprint(req.SpaceID, req.VersionTag(), req.Texts, targets)

	// the shared flight outlives any single caller; each caller only stops
	// waiting when its own context ends
	flight := s.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		return s.resolve(fctx, key, req, targets)
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}

	fr := res.Val.(*flightResult)
	return &domain.TranslateResponse{
		BlockID:            req.BlockID,
		TranslationVersion: req.TranslationVersion,
		Results:            copyResults(fr.results),
		Cached:             fr.cached,
	}, nil
}

func (s *Service) resolve(ctx context.Context, key string, req *domain.TranslateRequest, targets []string) (*flightResult, error) {
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("cache read failed, treating as miss", slog.String("key", key), slog.String("error", err.Error()))
	} else if ok {
		return &flightResult{results: cached, cached: true}, nil
	}

	results := make(map[string][]string, len(targets))
	translated := make([][]string, len(targets))

	var g errgroup.Group
	for i, target := range targets {
		if target == req.SourceLang {
			translated[i] = slices.Clone(req.Texts)
			continue
		}
		g.Go(func() error {
			out, err := s.backend.Translate(ctx, req.Texts, req.SourceLang, target)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrUpstream, target, err)
			}
			if len(out) != len(req.Texts) {
				return fmt.Errorf("%w: %s returned %d units for %d", ErrUpstream, target, len(out), len(req.Texts))
			}
			translated[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("translation failed",
			slog.String("block_id", req.BlockID),
			slog.Int64("version", req.TranslationVersion),
			slog.String("error", err.Error()))
		return nil, err
	}

	for i, target := range targets {
		results[target] = translated[i]
	}

	if err := s.cache.Set(ctx, key, results, s.ttl); err != nil {
		s.log.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	s.log.Debug("translated",
		slog.String("block_id", req.BlockID),
		slog.Int64("version", req.TranslationVersion),
		slog.Int("targets", len(targets)),
		slog.Int("units", len(req.Texts)))

	return &flightResult{results: results}, nil
}

// Localize translates interface copy keyed by message id in one backend call.
// Copy requested in its authoring language is returned as is.
func (s *Service) Localize(ctx context.Context, targetLang string, texts map[string]string) (map[string]string, error) {
	if targetLang == UISourceLang {
		return maps.Clone(texts), nil
	}

	keys := slices.Sorted(maps.Keys(texts))
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = texts[k]
	}

	out, err := s.backend.Translate(ctx, values, UISourceLang, targetLang)
	if err != nil {
		s.log.Error("ui localization failed", slog.String("target", targetLang), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, targetLang, err)
	}
	if len(out) != len(values) {
		return nil, fmt.Errorf("%w: %s returned %d strings for %d", ErrUpstream, targetLang, len(out), len(values))
	}

	localized := make(map[string]string, len(keys))
	for i, k := range keys {
		localized[k] = out[i]
	}
	return localized, nil
}
