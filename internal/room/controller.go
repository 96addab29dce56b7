package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"polyform-sync/internal/domain"
	"polyform-sync/internal/logger"

	"golang.org/x/exp/slog"
)

const (
	DefaultPersistDelay     = 450 * time.Millisecond
	DefaultTranslateDelay   = 180 * time.Millisecond
	DefaultPresenceInterval = 80 * time.Millisecond
)

type Config struct {
	SpaceID     string
	SessionID   string
	DisplayName string
	Language    string
	Mode        domain.ShareMode

	PersistDelay     time.Duration
	TranslateDelay   time.Duration
	PresenceInterval time.Duration
	HistoryLimit     int

	// OnChange runs after anything visible about a block may have changed,
	// outside the controller lock. Room-level changes pass an empty id.
	OnChange func(blockID string)
}

type Deps struct {
	Channel    Channel
	Store      Store
	Translator Translator
	Scheduler  Scheduler
	Now        func() time.Time
	Log        *slog.Logger
}

// Status is the sync state of one block for this viewer. A block can be
// awaiting a translation and hold unsaved local edits at the same time.
type Status struct {
	BlockID             string
	Version             int64
	Language            string
	AwaitingTranslation bool
	DirtyLocal          bool
	Translating         bool
}

func (s Status) Synced() bool {
	return !s.AwaitingTranslation
}

func (s Status) String() string {
	parts := []string{"synced"}
	if s.AwaitingTranslation {
		parts[0] = "awaiting translation"
	}
	if s.Translating {
		parts = append(parts, "translating")
	}
	if s.DirtyLocal {
		parts = append(parts, "unsaved")
	}
	return strings.Join(parts, ", ")
}

type outbound struct {
	eventType domain.EventType
	payload   interface{}
}

// Controller keeps one client's view of a space in step with the room. Local
// edits bump the block version, are broadcast at once, and reach the store
// and the translator behind debounce timers. Remote events are merged by
// version so a stale translation is never displayed.
type Controller struct {
	mu sync.Mutex

	cfg        Config
	channel    Channel
	store      Store
	translator Translator
	sched      Scheduler
	now        func() time.Time
	log        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	source       *SourceStore
	translations *TranslationStore
	presence     *Presence
	history      map[string]*History
	dirty        map[string]bool
	inflight     map[string]int64
	meta         map[string]*domain.BlockPatch

	cursor       domain.CursorPosition
	lastPresence time.Time
	lastErr      error
	closed       bool
}

func NewController(cfg Config, blocks []*domain.Block, deps Deps) *Controller {
	if cfg.PersistDelay <= 0 {
		cfg.PersistDelay = DefaultPersistDelay
	}
	if cfg.TranslateDelay <= 0 {
		cfg.TranslateDelay = DefaultTranslateDelay
	}
	if cfg.PresenceInterval <= 0 {
		cfg.PresenceInterval = DefaultPresenceInterval
	}
	if cfg.Language == "" {
		cfg.Language = domain.DefaultSourceLanguage
	}
	if deps.Scheduler == nil {
		deps.Scheduler = NewTimerScheduler()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		cfg:          cfg,
		channel:      deps.Channel,
		store:        deps.Store,
		translator:   deps.Translator,
		sched:        deps.Scheduler,
		now:          deps.Now,
		log:          deps.Log.With(slog.String("component", "controller"), slog.String("session_id", cfg.SessionID)),
		ctx:          ctx,
		cancel:       cancel,
		source:       NewSourceStore(blocks),
		translations: NewTranslationStore(),
		presence:     NewPresence(),
		history:      make(map[string]*History),
		dirty:        make(map[string]bool),
		inflight:     make(map[string]int64),
		meta:         make(map[string]*domain.BlockPatch),
	}
}

// Join subscribes to the room, connects, announces this session and starts
// fetching whatever the viewer's language is missing.
func (c *Controller) Join(ctx context.Context) error {
	c.channel.Subscribe(domain.EventSourceUpdate, c.onSourceUpdate)
	c.channel.Subscribe(domain.EventTranslationResult, c.onTranslationResult)
	c.channel.Subscribe(domain.EventPresenceUpdate, c.onPresence)
	c.channel.Subscribe(domain.EventBlockPatch, c.onBlockPatch)
	c.channel.Subscribe(EventSessionLeft, c.onSessionLeft)

	if err := c.channel.Connect(ctx); err != nil {
		return fmt.Errorf("connect room: %w", err)
	}

	c.mu.Lock()
	out := []outbound{c.presenceLocked(c.now())}
	for _, id := range c.source.IDs() {
		c.ensureTranslationLocked(id, 0)
	}
	c.mu.Unlock()

	c.publish(out)
	c.changed("")
	return nil
}

// Close persists pending edits, then leaves the room.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.sched.Stop()
	flushErr := c.Flush()
	c.cancel()

	return errors.Join(flushErr, c.channel.Close())
}

// Flush writes unsaved block content and metadata now instead of waiting
// for the debounce.
func (c *Controller) Flush() error {
	c.mu.Lock()
	dirty := sortedKeys(c.dirty)
	meta := sortedKeys(c.meta)
	c.mu.Unlock()

	var errs []error
	for _, id := range dirty {
		c.sched.Cancel(persistKey(id))
		errs = append(errs, c.persist(id))
	}
	for _, id := range meta {
		c.sched.Cancel(metaKey(id))
		errs = append(errs, c.persistMeta(id))
	}
	return errors.Join(errs...)
}

func (c *Controller) CanEdit() bool {
	return c.cfg.Mode != domain.ShareModeView
}

func (c *Controller) SessionID() string {
	return c.cfg.SessionID
}

func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Language
}

// Edit replaces the source content of a block. Every accepted edit bumps the
// version by one, even when the content is unchanged.
func (c *Controller) Edit(blockID string, content domain.Content) (int64, error) {
	c.mu.Lock()
	version, out, err := c.editLocked(blockID, content, true)
	c.mu.Unlock()
	if err != nil {
		return 0, err
	}

	c.publish(out)
	c.changed(blockID)
	return version, nil
}

func (c *Controller) Undo(blockID string) (bool, error) {
	return c.replay(blockID, (*History).Undo)
}

func (c *Controller) Redo(blockID string) (bool, error) {
	return c.replay(blockID, (*History).Redo)
}

func (c *Controller) replay(blockID string, pop func(*History, domain.Content) (domain.Content, bool)) (bool, error) {
	c.mu.Lock()
	if !c.CanEdit() {
		c.mu.Unlock()
		return false, ErrReadOnly
	}
	b, err := c.source.get(blockID)
	if err != nil {
		c.mu.Unlock()
		return false, err
	}

	content, ok := pop(c.historyFor(blockID), b.SourceContent)
	if !ok {
		c.mu.Unlock()
		return false, nil
	}

	_, out, err := c.editLocked(blockID, content, false)
	c.mu.Unlock()
	if err != nil {
		return false, err
	}

	c.publish(out)
	c.changed(blockID)
	return true, nil
}

// HistoryCounts reports the undo and redo depth of a block.
func (c *Controller) HistoryCounts(blockID string) (undo, redo int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.historyFor(blockID).Counts()
}

func (c *Controller) editLocked(blockID string, content domain.Content, track bool) (int64, []outbound, error) {
	if !c.CanEdit() {
		return 0, nil, ErrReadOnly
	}
	b, err := c.source.get(blockID)
	if err != nil {
		return 0, nil, err
	}

	if track && !b.SourceContent.Equal(content) {
		c.historyFor(blockID).Record(b.SourceContent)
	}

	version, stored, err := c.source.ApplyLocalEdit(blockID, content)
	if err != nil {
		return 0, nil, err
	}

	c.dirty[blockID] = true
	c.sched.After(persistKey(blockID), c.cfg.PersistDelay, func() { c.persist(blockID) })
	if !b.Universal {
		c.sched.After(translateKey(blockID), c.cfg.TranslateDelay, func() { c.translate(blockID, false) })
	}

	out := []outbound{
		{domain.EventBlockPatch, &domain.BlockPatchEvent{ID: blockID, TranslationVersion: &version}},
		{domain.EventSourceUpdate, &domain.SourceUpdate{
			BlockID:            blockID,
			TranslationVersion: version,
			SourceContent:      stored,
			SessionID:          c.cfg.SessionID,
		}},
	}
	return version, out, nil
}

// SetLanguage switches the viewer's language. A missing translation is
// fetched right away rather than debounced.
func (c *Controller) SetLanguage(lang string) {
	c.mu.Lock()
	if lang == "" || lang == c.cfg.Language {
		c.mu.Unlock()
		return
	}
	c.cfg.Language = lang
	ids := c.source.IDs()
	for _, id := range ids {
		c.ensureTranslationLocked(id, 0)
	}
	out := []outbound{c.presenceLocked(c.now())}
	c.mu.Unlock()

	c.publish(out)
	for _, id := range ids {
		c.changed(id)
	}
}

// SetUniversal marks a block as language-agnostic, or back.
func (c *Controller) SetUniversal(blockID string, universal bool) error {
	c.mu.Lock()
	if !c.CanEdit() {
		c.mu.Unlock()
		return ErrReadOnly
	}
	b, err := c.source.get(blockID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if b.Universal == universal {
		c.mu.Unlock()
		return nil
	}

	b.Universal = universal
	c.queueMetaLocked(blockID, func(p *domain.BlockPatch) { p.Universal = &universal })
	if universal {
		c.sched.Cancel(translateKey(blockID))
	} else {
		c.ensureTranslationLocked(blockID, 0)
	}
	out := []outbound{{domain.EventBlockPatch, &domain.BlockPatchEvent{ID: blockID, Universal: &universal}}}
	c.mu.Unlock()

	c.publish(out)
	c.changed(blockID)
	return nil
}

// MoveBlock changes block geometry. It does not touch the version.
func (c *Controller) MoveBlock(blockID string, g domain.Geometry) error {
	c.mu.Lock()
	if !c.CanEdit() {
		c.mu.Unlock()
		return ErrReadOnly
	}
	b, err := c.source.get(blockID)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	b.X, b.Y, b.W, b.H = g.X, g.Y, g.W, g.H
	c.queueMetaLocked(blockID, func(p *domain.BlockPatch) {
		p.X, p.Y, p.W, p.H = &g.X, &g.Y, &g.W, &g.H
	})
	out := []outbound{{domain.EventBlockPatch, &domain.BlockPatchEvent{ID: blockID, X: &g.X, Y: &g.Y, W: &g.W, H: &g.H}}}
	c.mu.Unlock()

	c.publish(out)
	c.changed(blockID)
	return nil
}

// UpdateCursor records the cursor and broadcasts presence at most once per
// presence interval. It reports whether a broadcast went out.
func (c *Controller) UpdateCursor(pos domain.CursorPosition) bool {
	c.mu.Lock()
	c.cursor = pos
	now := c.now()
	if now.Sub(c.lastPresence) < c.cfg.PresenceInterval {
		c.mu.Unlock()
		return false
	}
	out := []outbound{c.presenceLocked(now)}
	c.mu.Unlock()

	c.publish(out)
	return true
}

func (c *Controller) Block(blockID string) (*domain.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source.Get(blockID)
}

func (c *Controller) Blocks() []*domain.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source.Blocks()
}

// Display is what the viewer currently sees for a block.
func (c *Controller) Display(blockID string) (domain.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.source.get(blockID)
	if err != nil {
		return domain.Content{}, err
	}
	var entry *domain.TranslationEntry
	if e, ok := c.translations.Get(blockID, c.cfg.Language); ok {
		entry = &e
	}
	return Display(b, c.cfg.Language, entry), nil
}

func (c *Controller) Status(blockID string) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.source.get(blockID)
	if err != nil {
		return Status{}, err
	}

	_, translating := c.inflight[blockID]
	return Status{
		BlockID:             blockID,
		Version:             b.TranslationVersion,
		Language:            c.cfg.Language,
		AwaitingTranslation: c.awaitingLocked(b),
		DirtyLocal:          c.dirty[blockID],
		Translating:         translating,
	}, nil
}

func (c *Controller) Translation(blockID, lang string) (domain.TranslationEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.translations.Get(blockID, lang)
}

func (c *Controller) Peers() []domain.Presence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presence.Peers()
}

// ActiveLanguages is every language the room needs, the viewer's included.
func (c *Controller) ActiveLanguages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presence.ActiveLanguages(c.cfg.Language)
}

// PruneStale forgets peers that have not broadcast presence within window.
func (c *Controller) PruneStale(window time.Duration) []string {
	c.mu.Lock()
	stale := c.presence.Stale(c.now(), window)
	for _, id := range stale {
		c.presence.Remove(id)
	}
	c.mu.Unlock()

	if len(stale) > 0 {
		c.changed("")
	}
	return stale
}

// Err returns the last background failure (persistence or translation).
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) persist(blockID string) error {
	c.mu.Lock()
	b, err := c.source.get(blockID)
	if err != nil || !c.dirty[blockID] {
		c.mu.Unlock()
		return nil
	}
	content := b.SourceContent.Clone()
	version := b.TranslationVersion
	ctx := c.ctx
	c.mu.Unlock()

	err = c.store.PatchBlocks(ctx, c.cfg.SpaceID, []domain.BlockPatch{{
		ID:                 blockID,
		SourceContent:      &content,
		TranslationVersion: &version,
	}})

	c.mu.Lock()
	if err != nil {
		// the next edit's write carries the latest state, so no retry here
		c.lastErr = fmt.Errorf("save block %s: %w", blockID, err)
		c.log.Warn("persist failed", slog.String("block_id", blockID), logger.Err(err))
	} else if cur, getErr := c.source.get(blockID); getErr == nil && cur.TranslationVersion == version {
		delete(c.dirty, blockID)
	}
	c.mu.Unlock()

	c.changed(blockID)
	return err
}

func (c *Controller) queueMetaLocked(blockID string, set func(*domain.BlockPatch)) {
	p := c.meta[blockID]
	if p == nil {
		p = &domain.BlockPatch{ID: blockID}
		c.meta[blockID] = p
	}
	set(p)
	c.sched.After(metaKey(blockID), c.cfg.PersistDelay, func() { c.persistMeta(blockID) })
}

func (c *Controller) persistMeta(blockID string) error {
	c.mu.Lock()
	p := c.meta[blockID]
	delete(c.meta, blockID)
	ctx := c.ctx
	c.mu.Unlock()

	if p == nil {
		return nil
	}

	if err := c.store.PatchBlocks(ctx, c.cfg.SpaceID, []domain.BlockPatch{*p}); err != nil {
		c.mu.Lock()
		c.lastErr = fmt.Errorf("save block %s: %w", blockID, err)
		c.mu.Unlock()
		c.log.Warn("metadata persist failed", slog.String("block_id", blockID), logger.Err(err))
		return err
	}
	return nil
}

// translate requests translations of a block into every active language of
// the room. With onlyIfNeeded it does nothing once the viewer's own language
// is covered. Results are tagged with the version the request was made for.
func (c *Controller) translate(blockID string, onlyIfNeeded bool) {
	c.mu.Lock()
	b, err := c.source.get(blockID)
	if err != nil || b.Universal || (onlyIfNeeded && !c.awaitingLocked(b)) {
		c.mu.Unlock()
		return
	}

	units := ExtractUnits(b.Type, b.SourceContent)
	targets := c.targetsLocked(b)
	if len(units) == 0 || len(targets) == 0 {
		c.mu.Unlock()
		return
	}

	req := &domain.TranslateRequest{
		SpaceID:            c.cfg.SpaceID,
		BlockID:            blockID,
		Texts:              units,
		SourceLang:         b.SourceLanguage,
		TargetLangs:        targets,
		TranslationVersion: b.TranslationVersion,
	}
	c.inflight[blockID] = req.TranslationVersion
	ctx := c.ctx
	c.mu.Unlock()
	c.changed(blockID)

	resp, err := c.translator.Translate(ctx, req)

	c.mu.Lock()
	if c.inflight[blockID] == req.TranslationVersion {
		delete(c.inflight, blockID)
	}
	if err != nil {
		c.lastErr = fmt.Errorf("translate block %s: %w", blockID, err)
		c.mu.Unlock()
		c.log.Warn("translation failed", slog.String("block_id", blockID), logger.Err(err))
		c.changed(blockID)
		return
	}

	var out []outbound
	for _, lang := range sortedKeys(resp.Results) {
		texts := resp.Results[lang]
		if len(texts) != len(units) {
			c.log.Warn("translation dropped: unit count mismatch",
				slog.String("block_id", blockID),
				slog.String("language", lang),
				slog.Int("want", len(units)),
				slog.Int("got", len(texts)))
			continue
		}

		c.translations.Put(blockID, lang, domain.TranslationEntry{TranslationVersion: req.TranslationVersion, Texts: texts})
		out = append(out, outbound{domain.EventTranslationResult, &domain.TranslationResult{
			BlockID:            blockID,
			TranslationVersion: req.TranslationVersion,
			Language:           lang,
			Texts:              texts,
		}})
	}
	c.mu.Unlock()

	c.publish(out)
	c.changed(blockID)
}

// ensureTranslationLocked schedules a fetch when the viewer's language is
// not covered for the current version and none is already in flight.
func (c *Controller) ensureTranslationLocked(blockID string, delay time.Duration) {
	b, err := c.source.get(blockID)
	if err != nil || !c.awaitingLocked(b) {
		return
	}
	if v, ok := c.inflight[blockID]; ok && v == b.TranslationVersion {
		return
	}
	c.sched.After(translateKey(blockID), delay, func() { c.translate(blockID, true) })
}

func (c *Controller) awaitingLocked(b *domain.Block) bool {
	if !NeedsTranslation(b, c.cfg.Language) {
		return false
	}
	entry, ok := c.translations.Get(b.ID, c.cfg.Language)
	return !ok || !Usable(b, &entry)
}

func (c *Controller) targetsLocked(b *domain.Block) []string {
	active := c.presence.ActiveLanguages(c.cfg.Language)
	targets := make([]string, 0, len(active))
	for _, lang := range active {
		if lang != b.SourceLanguage {
			targets = append(targets, lang)
		}
	}
	return targets
}

func (c *Controller) presenceLocked(now time.Time) outbound {
	c.lastPresence = now
	return outbound{domain.EventPresenceUpdate, &domain.Presence{
		SessionID:      c.cfg.SessionID,
		DisplayName:    c.cfg.DisplayName,
		Language:       c.cfg.Language,
		Color:          ColorFor(c.cfg.SessionID),
		CursorPosition: c.cursor,
		LastSeen:       now.UnixMilli(),
	}}
}

func (c *Controller) historyFor(blockID string) *History {
	h := c.history[blockID]
	if h == nil {
		h = NewHistory(c.cfg.HistoryLimit)
		c.history[blockID] = h
	}
	return h
}

func (c *Controller) publish(out []outbound) {
	for _, o := range out {
		if err := c.channel.Publish(o.eventType, o.payload); err != nil {
			c.log.Debug("publish failed", slog.String("type", string(o.eventType)), logger.Err(err))
		}
	}
}

func (c *Controller) changed(blockID string) {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(blockID)
	}
}

func (c *Controller) isSelf(sessionID string) bool {
	return sessionID != "" && sessionID == c.cfg.SessionID
}

func (c *Controller) onSourceUpdate(ev Event) {
	var p domain.SourceUpdate
	if err := ev.Decode(&p); err != nil {
		c.log.Debug("bad source_update", logger.Err(err))
		return
	}
	if c.isSelf(ev.SessionID) || c.isSelf(p.SessionID) {
		return
	}

	c.mu.Lock()
	if err := c.source.AdoptRemote(p.BlockID, p.TranslationVersion, p.SourceContent); err != nil {
		c.mu.Unlock()
		return
	}
	// the peer's write supersedes ours
	delete(c.dirty, p.BlockID)
	c.sched.Cancel(persistKey(p.BlockID))
	c.ensureTranslationLocked(p.BlockID, c.cfg.TranslateDelay)
	c.mu.Unlock()

	c.changed(p.BlockID)
}

func (c *Controller) onTranslationResult(ev Event) {
	var p domain.TranslationResult
	if err := ev.Decode(&p); err != nil || p.BlockID == "" || p.Language == "" {
		return
	}

	c.mu.Lock()
	b, err := c.source.get(p.BlockID)
	if err != nil {
		c.mu.Unlock()
		return
	}
	// a result for a version we hold must match its unit count; a newer one
	// is checked by Usable once its source arrives
	if units := len(ExtractUnits(b.Type, b.SourceContent)); p.TranslationVersion <= b.TranslationVersion && len(p.Texts) != units {
		c.mu.Unlock()
		c.log.Warn("remote translation dropped: unit count mismatch",
			slog.String("block_id", p.BlockID),
			slog.String("language", p.Language),
			slog.Int("want", units),
			slog.Int("got", len(p.Texts)))
		return
	}
	stored := c.translations.Put(p.BlockID, p.Language, domain.TranslationEntry{
		TranslationVersion: p.TranslationVersion,
		Texts:              p.Texts,
	})
	c.mu.Unlock()

	if stored {
		c.changed(p.BlockID)
	}
}

func (c *Controller) onPresence(ev Event) {
	var p domain.Presence
	if err := ev.Decode(&p); err != nil {
		return
	}
	if p.SessionID == "" {
		p.SessionID = ev.SessionID
	}
	if c.isSelf(p.SessionID) {
		return
	}

	c.mu.Lock()
	// a newcomer has not seen our join announcement
	var out []outbound
	if !c.presence.Has(p.SessionID) && !c.closed {
		out = append(out, c.presenceLocked(c.now()))
	}
	c.presence.Record(p)
	c.mu.Unlock()

	c.publish(out)
	c.changed("")
}

func (c *Controller) onBlockPatch(ev Event) {
	var p domain.BlockPatchEvent
	if err := ev.Decode(&p); err != nil || c.isSelf(ev.SessionID) {
		return
	}

	c.mu.Lock()
	if err := c.source.ApplyPatchEvent(&p); err != nil {
		c.mu.Unlock()
		return
	}
	c.ensureTranslationLocked(p.ID, c.cfg.TranslateDelay)
	c.mu.Unlock()

	c.changed(p.ID)
}

func (c *Controller) onSessionLeft(ev Event) {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	if err := ev.Decode(&p); err != nil || p.SessionID == "" {
		p.SessionID = ev.SessionID
	}

	c.mu.Lock()
	removed := c.presence.Remove(p.SessionID)
	c.mu.Unlock()

	if removed {
		c.changed("")
	}
}

func persistKey(blockID string) string   { return "persist:" + blockID }
func metaKey(blockID string) string      { return "meta:" + blockID }
func translateKey(blockID string) string { return "translate:" + blockID }
