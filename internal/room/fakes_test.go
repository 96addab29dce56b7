package room

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"polyform-sync/internal/domain"

	"github.com/stretchr/testify/require"
)

// bus delivers synchronously to every connected member except the sender.
type bus struct {
	members []*busChannel
}

type busChannel struct {
	bus       *bus
	session   string
	handlers  map[domain.EventType][]func(Event)
	published []Event
	connected bool
	closed    bool
	hold      bool
	queued    []Event
}

func (b *bus) join(session string) *busChannel {
	ch := &busChannel{bus: b, session: session, handlers: map[domain.EventType][]func(Event){}}
	b.members = append(b.members, ch)
	return ch
}

func (ch *busChannel) Connect(context.Context) error {
	ch.connected = true
	return nil
}

func (ch *busChannel) Publish(t domain.EventType, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ev := Event{Type: t, SessionID: ch.session, Payload: raw}
	ch.published = append(ch.published, ev)

	for _, m := range ch.bus.members {
		if m == ch || !m.connected || m.closed {
			continue
		}
		m.receive(ev)
	}
	return nil
}

func (ch *busChannel) Subscribe(t domain.EventType, handler func(Event)) {
	ch.handlers[t] = append(ch.handlers[t], handler)
}

func (ch *busChannel) Close() error {
	ch.closed = true
	return nil
}

func (ch *busChannel) receive(ev Event) {
	if ch.hold {
		ch.queued = append(ch.queued, ev)
		return
	}
	ch.inject(ev)
}

// inject hands ev to the subscribed handlers, bypassing the bus.
func (ch *busChannel) inject(ev Event) {
	for _, h := range ch.handlers[ev.Type] {
		h(ev)
	}
}

// release delivers held events sender by sender in the given order, keeping
// each sender's own order, and stops holding.
func (ch *busChannel) release(senders ...string) {
	queued := ch.queued
	ch.queued, ch.hold = nil, false
	for _, s := range senders {
		for _, ev := range queued {
			if ev.SessionID == s {
				ch.inject(ev)
			}
		}
	}
}

func (ch *busChannel) publishedOf(t domain.EventType) []Event {
	var out []Event
	for _, ev := range ch.published {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fakeStore struct {
	patches []domain.BlockPatch
	err     error
}

func (s *fakeStore) PatchBlocks(_ context.Context, _ string, patches []domain.BlockPatch) error {
	if s.err != nil {
		return s.err
	}
	s.patches = append(s.patches, patches...)
	return nil
}

type fakeTranslator struct {
	dict  map[string]map[string]string
	err   error
	calls []*domain.TranslateRequest
	// during runs once inside the next call, while the request is in flight
	during func()
}

func (f *fakeTranslator) Translate(_ context.Context, req *domain.TranslateRequest) (*domain.TranslateResponse, error) {
	f.calls = append(f.calls, req)
	if d := f.during; d != nil {
		f.during = nil
		d()
	}
	if f.err != nil {
		return nil, f.err
	}

	results := make(map[string][]string, len(req.TargetLangs))
	for _, lang := range req.TargetLangs {
		out := make([]string, len(req.Texts))
		for i, s := range req.Texts {
			if t, ok := f.dict[lang][s]; ok {
				out[i] = t
			} else {
				out[i] = lang + ":" + s
			}
		}
		results[lang] = out
	}
	return &domain.TranslateResponse{BlockID: req.BlockID, TranslationVersion: req.TranslationVersion, Results: results}, nil
}

var spanish = map[string]map[string]string{
	"es": {"Hello": "Hola", "World": "Mundo", "Friend": "Amigo"},
}

type peer struct {
	c     *Controller
	ch    *busChannel
	sched *ManualScheduler
	store *fakeStore
	tr    *fakeTranslator
}

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testBlock() *domain.Block {
	return &domain.Block{
		ID:                 "b1",
		SpaceID:            "s1",
		Type:               domain.BlockTypeDocument,
		SourceLanguage:     "en",
		TranslationVersion: 1,
		SourceContent:      content("Hello", "World"),
		W:                  760,
		H:                  520,
	}
}

func content(paragraphs ...string) domain.Content {
	return domain.Content{Paragraphs: paragraphs}
}

func newPeer(t *testing.T, b *bus, cfg Config) *peer {
	t.Helper()

	p := &peer{
		ch:    b.join(cfg.SessionID),
		sched: NewManualScheduler(epoch),
		store: &fakeStore{},
		tr:    &fakeTranslator{dict: spanish},
	}
	if cfg.SpaceID == "" {
		cfg.SpaceID = "s1"
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = cfg.SessionID
	}
	p.c = NewController(cfg, []*domain.Block{testBlock()}, Deps{
		Channel:    p.ch,
		Store:      p.store,
		Translator: p.tr,
		Scheduler:  p.sched,
		Now:        p.sched.Now,
	})
	return p
}

func joinPeer(t *testing.T, b *bus, cfg Config) *peer {
	t.Helper()
	p := newPeer(t, b, cfg)
	require.NoError(t, p.c.Join(context.Background()))
	return p
}

func (p *peer) display(t *testing.T) []string {
	t.Helper()
	c, err := p.c.Display("b1")
	require.NoError(t, err)
	return c.Paragraphs
}

func (p *peer) status(t *testing.T) Status {
	t.Helper()
	s, err := p.c.Status("b1")
	require.NoError(t, err)
	return s
}

func (p *peer) block(t *testing.T) *domain.Block {
	t.Helper()
	b, ok := p.c.Block("b1")
	require.True(t, ok)
	return b
}

func rawEvent(t *testing.T, typ domain.EventType, session string, payload interface{}) Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Event{Type: typ, SessionID: session, Payload: raw}
}
