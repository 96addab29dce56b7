package room

import (
	"errors"
	"testing"
	"time"

	"polyform-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditBumpsVersionByOne(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})

	for want := int64(2); want <= 6; want++ {
		got, err := p.c.Edit("b1", content("draft", string(rune('a'+want))))
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, want, p.block(t).TranslationVersion)
	}

	updates := p.ch.publishedOf(domain.EventSourceUpdate)
	require.Len(t, updates, 5)
	for i, ev := range updates {
		var u domain.SourceUpdate
		require.NoError(t, ev.Decode(&u))
		assert.Equal(t, int64(i+2), u.TranslationVersion)
		assert.Equal(t, "alice", u.SessionID)
	}
	assert.Len(t, p.ch.publishedOf(domain.EventBlockPatch), 5)
}

func TestIdenticalEditStillCounts(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})

	v, err := p.c.Edit("b1", content("Hello", "World"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	undo, _ := p.c.HistoryCounts("b1")
	assert.Zero(t, undo)
}

func TestEditUnknownBlock(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice"})

	_, err := p.c.Edit("nope", content("x"))
	assert.ErrorIs(t, err, ErrUnknownBlock)
}

func TestPersistIsDebounced(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})

	_, err := p.c.Edit("b1", content("one"))
	require.NoError(t, err)
	p.sched.Advance(200 * time.Millisecond)
	_, err = p.c.Edit("b1", content("two"))
	require.NoError(t, err)
	p.sched.Advance(200 * time.Millisecond)
	_, err = p.c.Edit("b1", content("three"))
	require.NoError(t, err)

	assert.True(t, p.status(t).DirtyLocal)

	p.sched.Advance(449 * time.Millisecond)
	assert.Empty(t, p.store.patches)

	p.sched.Advance(time.Millisecond)
	require.Len(t, p.store.patches, 1)
	saved := p.store.patches[0]
	assert.Equal(t, "b1", saved.ID)
	require.NotNil(t, saved.TranslationVersion)
	assert.Equal(t, int64(4), *saved.TranslationVersion)
	require.NotNil(t, saved.SourceContent)
	assert.Equal(t, []string{"three"}, saved.SourceContent.Paragraphs)

	assert.False(t, p.status(t).DirtyLocal)
}

func TestPersistFailureKeepsBlockDirty(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})
	p.store.err = errors.New("offline")

	_, err := p.c.Edit("b1", content("lost?"))
	require.NoError(t, err)
	p.sched.Advance(time.Second)

	assert.True(t, p.status(t).DirtyLocal)
	assert.ErrorContains(t, p.c.Err(), "offline")

	// the next edit's write carries the latest state
	p.store.err = nil
	_, err = p.c.Edit("b1", content("kept"))
	require.NoError(t, err)
	p.sched.Advance(time.Second)

	require.Len(t, p.store.patches, 1)
	assert.Equal(t, []string{"kept"}, p.store.patches[0].SourceContent.Paragraphs)
	assert.False(t, p.status(t).DirtyLocal)
}

func TestTranslationIsDebouncedAndUsesLatestVersion(t *testing.T) {
	b := &bus{}
	alice := joinPeer(t, b, Config{SessionID: "alice", Language: "en"})
	joinPeer(t, b, Config{SessionID: "bob", Language: "es"})

	for _, text := range []string{"H", "He", "Hel", "Hello"} {
		_, err := alice.c.Edit("b1", content(text))
		require.NoError(t, err)
		alice.sched.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, alice.tr.calls)

	alice.sched.Advance(80 * time.Millisecond)
	require.Len(t, alice.tr.calls, 1)
	req := alice.tr.calls[0]
	assert.Equal(t, int64(5), req.TranslationVersion)
	assert.Equal(t, []string{"Hello"}, req.Texts)
	assert.Equal(t, []string{"es"}, req.TargetLangs)
	assert.Equal(t, "en", req.SourceLang)
}

func TestEndToEndStalenessScenario(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "viewer", Language: "es"})

	assert.Equal(t, []string{"Hello", "World"}, p.display(t))
	assert.True(t, p.status(t).AwaitingTranslation)

	// a language that is not the source is fetched at once on join
	p.sched.Advance(0)
	require.Len(t, p.tr.calls, 1)
	assert.Equal(t, int64(1), p.tr.calls[0].TranslationVersion)
	assert.Equal(t, []string{"Hola", "Mundo"}, p.display(t))
	assert.True(t, p.status(t).Synced())

	v, err := p.c.Edit("b1", content("Hello", "Friend"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, []string{"Hello", "Friend"}, p.display(t))
	assert.True(t, p.status(t).AwaitingTranslation)

	p.sched.Advance(DefaultTranslateDelay)
	require.Len(t, p.tr.calls, 2)
	assert.Equal(t, int64(2), p.tr.calls[1].TranslationVersion)
	assert.Equal(t, []string{"Hola", "Amigo"}, p.display(t))
	assert.True(t, p.status(t).Synced())

	results := p.ch.publishedOf(domain.EventTranslationResult)
	require.Len(t, results, 2)
	var last domain.TranslationResult
	require.NoError(t, results[1].Decode(&last))
	assert.Equal(t, domain.TranslationResult{BlockID: "b1", TranslationVersion: 2, Language: "es", Texts: []string{"Hola", "Amigo"}}, last)
}

func TestRemoteTranslationResultFollowsVersionGate(t *testing.T) {
	b := &bus{}
	viewer := joinPeer(t, b, Config{SessionID: "viewer", Language: "es"})

	viewer.ch.inject(rawEvent(t, domain.EventTranslationResult, "peer", &domain.TranslationResult{
		BlockID: "b1", TranslationVersion: 1, Language: "es", Texts: []string{"Hola", "Mundo"},
	}))
	assert.Equal(t, []string{"Hola", "Mundo"}, viewer.display(t))

	viewer.ch.inject(rawEvent(t, domain.EventSourceUpdate, "peer", &domain.SourceUpdate{
		BlockID: "b1", TranslationVersion: 2, SourceContent: content("Hello", "Friend"), SessionID: "peer",
	}))
	assert.Equal(t, []string{"Hello", "Friend"}, viewer.display(t))

	// an older result never evicts a newer one
	viewer.ch.inject(rawEvent(t, domain.EventTranslationResult, "peer", &domain.TranslationResult{
		BlockID: "b1", TranslationVersion: 2, Language: "es", Texts: []string{"Hola", "Amigo"},
	}))
	viewer.ch.inject(rawEvent(t, domain.EventTranslationResult, "late", &domain.TranslationResult{
		BlockID: "b1", TranslationVersion: 1, Language: "es", Texts: []string{"Hola", "Mundo"},
	}))
	assert.Equal(t, []string{"Hola", "Amigo"}, viewer.display(t))

	entry, ok := viewer.c.Translation("b1", "es")
	require.True(t, ok)
	assert.Equal(t, int64(2), entry.TranslationVersion)
}

func TestRemoteTranslationWithWrongUnitCountIsDropped(t *testing.T) {
	b := &bus{}
	viewer := joinPeer(t, b, Config{SessionID: "viewer", Language: "es"})

	viewer.ch.inject(rawEvent(t, domain.EventTranslationResult, "peer", &domain.TranslationResult{
		BlockID: "b1", TranslationVersion: 1, Language: "es", Texts: []string{"Hola"},
	}))
	assert.Equal(t, []string{"Hello", "World"}, viewer.display(t))
	_, ok := viewer.c.Translation("b1", "es")
	assert.False(t, ok)
	assert.True(t, viewer.status(t).AwaitingTranslation)

	// a result ahead of our source is held, but only shown if it fits
	viewer.ch.inject(rawEvent(t, domain.EventTranslationResult, "peer", &domain.TranslationResult{
		BlockID: "b1", TranslationVersion: 2, Language: "es", Texts: []string{"Hola"},
	}))
	viewer.ch.inject(rawEvent(t, domain.EventSourceUpdate, "peer", &domain.SourceUpdate{
		BlockID: "b1", TranslationVersion: 2, SourceContent: content("Hello", "Friend"), SessionID: "peer",
	}))
	assert.Equal(t, []string{"Hello", "Friend"}, viewer.display(t))
	assert.True(t, viewer.status(t).AwaitingTranslation)

	viewer.sched.Advance(DefaultTranslateDelay)
	assert.Equal(t, []string{"Hola", "Amigo"}, viewer.display(t))
}

func TestSupersededFetchIsCachedButNotShown(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "viewer", Language: "es"})

	// an edit lands while the join-time fetch for version 1 is in flight
	p.tr.during = func() {
		_, err := p.c.Edit("b1", content("Hello", "Friend"))
		require.NoError(t, err)
	}
	p.sched.Advance(0)

	entry, ok := p.c.Translation("b1", "es")
	require.True(t, ok)
	assert.Equal(t, int64(1), entry.TranslationVersion)
	assert.Equal(t, []string{"Hello", "Friend"}, p.display(t))
	assert.True(t, p.status(t).AwaitingTranslation)

	p.sched.Advance(DefaultTranslateDelay)
	assert.Equal(t, []string{"Hola", "Amigo"}, p.display(t))
}

func TestTranslationFailureCachesNothing(t *testing.T) {
	p := newPeer(t, &bus{}, Config{SessionID: "viewer", Language: "es"})
	p.tr.err = errors.New("upstream down")
	require.NoError(t, p.c.Join(t.Context()))

	p.sched.Advance(0)

	_, ok := p.c.Translation("b1", "es")
	assert.False(t, ok)
	assert.Equal(t, []string{"Hello", "World"}, p.display(t))
	assert.Empty(t, p.ch.publishedOf(domain.EventTranslationResult))
	assert.ErrorContains(t, p.c.Err(), "upstream down")
	assert.False(t, p.status(t).Translating)
}

func TestOwnBroadcastIsNeverReapplied(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})

	_, err := p.c.Edit("b1", content("mine"))
	require.NoError(t, err)

	echo := &domain.SourceUpdate{BlockID: "b1", TranslationVersion: 99, SourceContent: content("echo"), SessionID: "alice"}
	p.ch.inject(rawEvent(t, domain.EventSourceUpdate, "alice", echo))
	p.ch.inject(rawEvent(t, domain.EventSourceUpdate, "", echo))

	b := p.block(t)
	assert.Equal(t, int64(2), b.TranslationVersion)
	assert.Equal(t, []string{"mine"}, b.SourceContent.Paragraphs)
	assert.True(t, p.status(t).DirtyLocal)
}

func TestUniversalBlockBypassesTranslation(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "es"})
	p.sched.Advance(0)
	require.Equal(t, []string{"Hola", "Mundo"}, p.display(t))

	require.NoError(t, p.c.SetUniversal("b1", true))
	assert.Equal(t, []string{"Hello", "World"}, p.display(t))
	assert.True(t, p.status(t).Synced())

	_, err := p.c.Edit("b1", content("https://example.com"))
	require.NoError(t, err)
	assert.False(t, p.sched.Pending(translateKey("b1")))

	p.sched.Advance(time.Second)
	assert.Len(t, p.tr.calls, 1)
	assert.Equal(t, []string{"https://example.com"}, p.display(t))

	patches := p.ch.publishedOf(domain.EventBlockPatch)
	var first domain.BlockPatchEvent
	require.NoError(t, patches[0].Decode(&first))
	require.NotNil(t, first.Universal)
	assert.True(t, *first.Universal)

	var sawUniversal bool
	for _, saved := range p.store.patches {
		if saved.Universal != nil && *saved.Universal {
			sawUniversal = true
		}
	}
	assert.True(t, sawUniversal)

	// turning it off makes the viewer's language due again
	require.NoError(t, p.c.SetUniversal("b1", false))
	assert.True(t, p.status(t).AwaitingTranslation)
	p.sched.Advance(0)
	assert.Len(t, p.tr.calls, 2)
	assert.Equal(t, []string{"es:https://example.com"}, p.display(t))
}

func TestLastDeliveredSourceUpdateWins(t *testing.T) {
	b := &bus{}
	a := joinPeer(t, b, Config{SessionID: "a", Language: "en"})
	bb := joinPeer(t, b, Config{SessionID: "b", Language: "en"})
	observer := joinPeer(t, b, Config{SessionID: "c", Language: "en"})

	_, err := a.c.Edit("b1", content("A1"))
	require.NoError(t, err)
	_, err = bb.c.Edit("b1", content("B1", "extra"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B1", "extra"}, observer.display(t))
	assert.Equal(t, int64(3), observer.block(t).TranslationVersion)

	observer.ch.hold = true
	_, err = a.c.Edit("b1", content("A2"))
	require.NoError(t, err)
	_, err = bb.c.Edit("b1", content("B2", "more", "lines"))
	require.NoError(t, err)

	// b's edit reaches the observer first, a's last; a's wins whole
	observer.ch.release("b", "a")
	got := observer.block(t)
	assert.Equal(t, []string{"A2"}, got.SourceContent.Paragraphs)
	assert.Equal(t, int64(4), got.TranslationVersion)
}

func TestRemoteEditSupersedesPendingSave(t *testing.T) {
	b := &bus{}
	a := joinPeer(t, b, Config{SessionID: "a", Language: "en"})
	bb := joinPeer(t, b, Config{SessionID: "b", Language: "en"})

	_, err := a.c.Edit("b1", content("mine"))
	require.NoError(t, err)
	require.True(t, a.status(t).DirtyLocal)

	_, err = bb.c.Edit("b1", content("theirs"))
	require.NoError(t, err)

	assert.False(t, a.status(t).DirtyLocal)
	assert.False(t, a.sched.Pending(persistKey("b1")))
	assert.Equal(t, []string{"theirs"}, a.display(t))
}

func TestEditorTranslatesForEveryActiveLanguage(t *testing.T) {
	b := &bus{}
	alice := joinPeer(t, b, Config{SessionID: "alice", Language: "en"})
	bob := joinPeer(t, b, Config{SessionID: "bob", Language: "ja"})
	carol := joinPeer(t, b, Config{SessionID: "carol", Language: "es"})
	bob.sched.Advance(0)
	carol.sched.Advance(0)
	require.Len(t, bob.tr.calls, 1)
	// bob's fetch covered es as well
	assert.Empty(t, carol.tr.calls)

	assert.Equal(t, []string{"en", "es", "ja"}, alice.c.ActiveLanguages())

	_, err := alice.c.Edit("b1", content("Hello", "Friend"))
	require.NoError(t, err)
	alice.sched.Advance(DefaultTranslateDelay)

	require.Len(t, alice.tr.calls, 1)
	assert.Equal(t, []string{"es", "ja"}, alice.tr.calls[0].TargetLangs)

	assert.Equal(t, []string{"Hola", "Amigo"}, carol.display(t))
	assert.Equal(t, []string{"ja:Hello", "ja:Friend"}, bob.display(t))

	// peers' own follow-up fetches find their language already covered
	bob.sched.Advance(time.Second)
	carol.sched.Advance(time.Second)
	assert.Len(t, bob.tr.calls, 1)
	assert.Empty(t, carol.tr.calls)
}

func TestLanguageSwitchFetchesImmediately(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})
	assert.False(t, p.sched.Pending(translateKey("b1")))

	p.c.SetLanguage("es")
	assert.Equal(t, "es", p.c.Language())
	assert.True(t, p.status(t).AwaitingTranslation)
	assert.True(t, p.sched.Pending(translateKey("b1")))

	p.sched.Advance(0)
	assert.Equal(t, []string{"Hola", "Mundo"}, p.display(t))

	// switching back to the source needs no fetch
	p.c.SetLanguage("en")
	assert.False(t, p.sched.Pending(translateKey("b1")))
	assert.Equal(t, []string{"Hello", "World"}, p.display(t))

	presences := p.ch.publishedOf(domain.EventPresenceUpdate)
	require.Len(t, presences, 3)
	var last domain.Presence
	require.NoError(t, presences[2].Decode(&last))
	assert.Equal(t, "en", last.Language)
}

func TestUndoRedo(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})

	_, err := p.c.Edit("b1", content("one"))
	require.NoError(t, err)
	_, err = p.c.Edit("b1", content("two"))
	require.NoError(t, err)

	ok, err := p.c.Undo("b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"one"}, p.display(t))
	assert.Equal(t, int64(4), p.block(t).TranslationVersion)

	ok, err = p.c.Undo("b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Hello", "World"}, p.display(t))

	ok, err = p.c.Undo("b1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.c.Redo("b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"one"}, p.display(t))
	assert.Equal(t, int64(6), p.block(t).TranslationVersion)

	undo, redo := p.c.HistoryCounts("b1")
	assert.Equal(t, 1, undo)
	assert.Equal(t, 1, redo)

	_, err = p.c.Edit("b1", content("fresh"))
	require.NoError(t, err)
	undo, redo = p.c.HistoryCounts("b1")
	assert.Equal(t, 2, undo)
	assert.Zero(t, redo)

	// undo goes through the normal edit path
	p.sched.Advance(time.Second)
	require.NotEmpty(t, p.store.patches)
	assert.Equal(t, []string{"fresh"}, p.store.patches[len(p.store.patches)-1].SourceContent.Paragraphs)
}

func TestViewSessionCannotMutate(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "guest", Language: "en", Mode: domain.ShareModeView})

	_, err := p.c.Edit("b1", content("x"))
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = p.c.Undo("b1")
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, p.c.SetUniversal("b1", true), ErrReadOnly)
	assert.ErrorIs(t, p.c.MoveBlock("b1", domain.Geometry{X: 1}), ErrReadOnly)

	assert.Empty(t, p.ch.publishedOf(domain.EventSourceUpdate))
	assert.Len(t, p.ch.publishedOf(domain.EventPresenceUpdate), 1)
}

func TestMoveBlock(t *testing.T) {
	b := &bus{}
	a := joinPeer(t, b, Config{SessionID: "a", Language: "en"})
	bb := joinPeer(t, b, Config{SessionID: "b", Language: "en"})

	require.NoError(t, a.c.MoveBlock("b1", domain.Geometry{X: 10, Y: 20, W: 300, H: 200}))
	require.NoError(t, a.c.MoveBlock("b1", domain.Geometry{X: 15, Y: 25, W: 300, H: 200}))

	assert.Equal(t, domain.Geometry{X: 15, Y: 25, W: 300, H: 200}, bb.block(t).Geometry())
	assert.Equal(t, int64(1), a.block(t).TranslationVersion)

	a.sched.Advance(DefaultPersistDelay)
	require.Len(t, a.store.patches, 1)
	saved := a.store.patches[0]
	assert.Nil(t, saved.TranslationVersion)
	assert.Nil(t, saved.SourceContent)
	require.NotNil(t, saved.X)
	assert.Equal(t, 15.0, *saved.X)
}

func TestPresenceTracking(t *testing.T) {
	b := &bus{}
	alice := joinPeer(t, b, Config{SessionID: "alice", Language: "en"})
	bob := joinPeer(t, b, Config{SessionID: "bob", Language: "ja", DisplayName: "Bob"})

	// alice answers the newcomer so bob learns about her too
	require.Len(t, bob.c.Peers(), 1)
	assert.Equal(t, "alice", bob.c.Peers()[0].SessionID)
	assert.Len(t, alice.ch.publishedOf(domain.EventPresenceUpdate), 2)
	assert.Len(t, bob.ch.publishedOf(domain.EventPresenceUpdate), 2)

	peers := alice.c.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, "Bob", peers[0].DisplayName)
	assert.Equal(t, ColorFor("bob"), peers[0].Color)
	assert.Equal(t, []string{"en", "ja"}, alice.c.ActiveLanguages())

	alice.ch.inject(rawEvent(t, EventSessionLeft, "bob", map[string]string{"sessionId": "bob"}))
	assert.Empty(t, alice.c.Peers())
	assert.Equal(t, []string{"en"}, alice.c.ActiveLanguages())
}

func TestPresenceIsThrottled(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})
	require.Len(t, p.ch.publishedOf(domain.EventPresenceUpdate), 1)

	assert.False(t, p.c.UpdateCursor(domain.CursorPosition{X: 1, Y: 1}))
	p.sched.Advance(DefaultPresenceInterval)
	assert.True(t, p.c.UpdateCursor(domain.CursorPosition{X: 2, Y: 2}))
	p.sched.Advance(10 * time.Millisecond)
	assert.False(t, p.c.UpdateCursor(domain.CursorPosition{X: 3, Y: 3}))

	presences := p.ch.publishedOf(domain.EventPresenceUpdate)
	require.Len(t, presences, 2)
	var last domain.Presence
	require.NoError(t, presences[1].Decode(&last))
	assert.Equal(t, domain.CursorPosition{X: 2, Y: 2}, last.CursorPosition)
	assert.Equal(t, epoch.Add(DefaultPresenceInterval).UnixMilli(), last.LastSeen)

	// a language switch is announced regardless of the throttle
	p.c.SetLanguage("fr")
	presences = p.ch.publishedOf(domain.EventPresenceUpdate)
	require.Len(t, presences, 3)
	require.NoError(t, presences[2].Decode(&last))
	assert.Equal(t, domain.CursorPosition{X: 3, Y: 3}, last.CursorPosition)
}

func TestPruneStalePeers(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})
	p.ch.inject(rawEvent(t, domain.EventPresenceUpdate, "old", &domain.Presence{
		SessionID: "old", Language: "de", LastSeen: epoch.Add(-time.Minute).UnixMilli(),
	}))
	p.ch.inject(rawEvent(t, domain.EventPresenceUpdate, "new", &domain.Presence{
		SessionID: "new", Language: "ko", LastSeen: epoch.UnixMilli(),
	}))

	assert.Equal(t, []string{"old"}, p.c.PruneStale(30*time.Second))
	assert.Equal(t, []string{"en", "ko"}, p.c.ActiveLanguages())
}

func TestCloseFlushesPendingEdits(t *testing.T) {
	p := joinPeer(t, &bus{}, Config{SessionID: "alice", Language: "en"})

	_, err := p.c.Edit("b1", content("unsaved"))
	require.NoError(t, err)
	require.NoError(t, p.c.MoveBlock("b1", domain.Geometry{X: 1, Y: 2, W: 3, H: 4}))

	require.NoError(t, p.c.Close())
	require.Len(t, p.store.patches, 2)
	assert.Equal(t, []string{"unsaved"}, p.store.patches[0].SourceContent.Paragraphs)
	assert.True(t, p.ch.closed)
	assert.False(t, p.status(t).DirtyLocal)

	require.NoError(t, p.c.Close())
}

func TestOnChangeIsCalled(t *testing.T) {
	var changes []string
	p := joinPeer(t, &bus{}, Config{
		SessionID: "alice",
		Language:  "en",
		OnChange:  func(id string) { changes = append(changes, id) },
	})

	_, err := p.c.Edit("b1", content("x"))
	require.NoError(t, err)
	assert.Contains(t, changes, "b1")
}
