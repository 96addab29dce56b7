package room

import (
	"fmt"
	"testing"
	"time"

	"polyform-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayVersionGate(t *testing.T) {
	b := testBlock()
	b.TranslationVersion = 5

	tests := []struct {
		name  string
		entry *domain.TranslationEntry
		want  []string
	}{
		{"no entry", nil, []string{"Hello", "World"}},
		{"older version", &domain.TranslationEntry{TranslationVersion: 4, Texts: []string{"Hola", "Mundo"}}, []string{"Hello", "World"}},
		{"current version", &domain.TranslationEntry{TranslationVersion: 5, Texts: []string{"Hola", "Mundo"}}, []string{"Hola", "Mundo"}},
		{"newer version", &domain.TranslationEntry{TranslationVersion: 6, Texts: []string{"Hola", "Mundo"}}, []string{"Hola", "Mundo"}},
		{"too few units", &domain.TranslationEntry{TranslationVersion: 5, Texts: []string{"Hola"}}, []string{"Hello", "World"}},
		{"too many units", &domain.TranslationEntry{TranslationVersion: 6, Texts: []string{"Hola", "Mundo", "Extra"}}, []string{"Hello", "World"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Display(b, "es", tt.entry).Paragraphs)
		})
	}
}

func TestDisplaySourceLanguageAndUniversal(t *testing.T) {
	b := testBlock()
	entry := &domain.TranslationEntry{TranslationVersion: 1, Texts: []string{"x", "y"}}

	assert.Equal(t, []string{"Hello", "World"}, Display(b, "en", entry).Paragraphs)

	b.Universal = true
	assert.Equal(t, []string{"Hello", "World"}, Display(b, "es", entry).Paragraphs)
	assert.False(t, NeedsTranslation(b, "es"))
}

func TestApplyUnitsKeepsFormat(t *testing.T) {
	src := domain.Content{
		Paragraphs: []string{"Hello", "World"},
		Format:     &domain.Format{FontSize: 18, Bold: true},
	}

	units := ExtractUnits(domain.BlockTypeDocument, src)
	assert.Equal(t, []string{"Hello", "World"}, units)
	units[0] = "mutated"
	assert.Equal(t, "Hello", src.Paragraphs[0])

	out := ApplyUnits(domain.BlockTypeDocument, src, []string{"Hola", "Mundo"})
	assert.Equal(t, []string{"Hola", "Mundo"}, out.Paragraphs)
	require.NotNil(t, out.Format)
	assert.Equal(t, 18.0, out.Format.FontSize)
	assert.NotSame(t, src.Format, out.Format)

	assert.Empty(t, ExtractUnits("sticky", src))
	assert.Equal(t, []string{"a"}, ApplyUnits("sticky", src, []string{"a"}).Paragraphs)
}

func TestTranslationStoreRejectsOlder(t *testing.T) {
	s := NewTranslationStore()

	assert.True(t, s.Put("b1", "es", domain.TranslationEntry{TranslationVersion: 2, Texts: []string{"dos"}}))
	assert.False(t, s.Put("b1", "es", domain.TranslationEntry{TranslationVersion: 1, Texts: []string{"uno"}}))
	assert.True(t, s.Put("b1", "es", domain.TranslationEntry{TranslationVersion: 2, Texts: []string{"otra"}}))
	assert.True(t, s.Put("b1", "fr", domain.TranslationEntry{TranslationVersion: 1, Texts: []string{"un"}}))

	got, ok := s.Get("b1", "es")
	require.True(t, ok)
	assert.Equal(t, domain.TranslationEntry{TranslationVersion: 2, Texts: []string{"otra"}}, got)
	assert.Equal(t, []string{"es", "fr"}, s.Languages("b1"))

	_, ok = s.Get("b2", "es")
	assert.False(t, ok)
}

func TestSourceStore(t *testing.T) {
	s := NewSourceStore([]*domain.Block{testBlock()})

	v, stored, err := s.ApplyLocalEdit("b1", content("edited"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, []string{"edited"}, stored.Paragraphs)

	// remote adoption is unconditional
	require.NoError(t, s.AdoptRemote("b1", 1, content("older")))
	b, ok := s.Get("b1")
	require.True(t, ok)
	assert.Equal(t, int64(1), b.TranslationVersion)

	b.SourceContent.Paragraphs[0] = "tampered"
	again, _ := s.Get("b1")
	assert.Equal(t, "older", again.SourceContent.Paragraphs[0])

	universal := true
	x := 42.0
	require.NoError(t, s.ApplyPatchEvent(&domain.BlockPatchEvent{ID: "b1", Universal: &universal, X: &x}))
	b, _ = s.Get("b1")
	assert.True(t, b.Universal)
	assert.Equal(t, 42.0, b.X)
	assert.Equal(t, 760.0, b.W)

	_, _, err = s.ApplyLocalEdit("missing", content("x"))
	assert.ErrorIs(t, err, ErrUnknownBlock)
	assert.ErrorIs(t, s.AdoptRemote("missing", 1, content()), ErrUnknownBlock)
	assert.Equal(t, []string{"b1"}, s.IDs())
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistoryLimit+10; i++ {
		h.Record(content(fmt.Sprint(i)))
	}

	undo, redo := h.Counts()
	assert.Equal(t, DefaultHistoryLimit, undo)
	assert.Zero(t, redo)

	var last domain.Content
	for {
		prev, ok := h.Undo(content("current"))
		if !ok {
			break
		}
		last = prev
	}
	// the ten oldest snapshots were dropped
	assert.Equal(t, []string{"10"}, last.Paragraphs)
}

func TestHistoryRedoClearedByRecord(t *testing.T) {
	h := NewHistory(5)
	h.Record(content("a"))

	prev, ok := h.Undo(content("b"))
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, prev.Paragraphs)

	next, ok := h.Redo(content("a"))
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, next.Paragraphs)

	_, _ = h.Undo(content("b"))
	h.Record(content("a"))
	_, ok = h.Redo(content("c"))
	assert.False(t, ok)
}

func TestPresence(t *testing.T) {
	p := NewPresence()
	p.Record(domain.Presence{SessionID: "", Language: "xx"})
	p.Record(domain.Presence{SessionID: "s2", DisplayName: "Zoe", Language: "ja", LastSeen: 1000})
	p.Record(domain.Presence{SessionID: "s1", DisplayName: "Ann", Language: "es", LastSeen: 5000})
	p.Record(domain.Presence{SessionID: "s3", DisplayName: "Ann", Language: "es", LastSeen: 5000})

	peers := p.Peers()
	require.Len(t, peers, 3)
	assert.Equal(t, []string{"s1", "s3", "s2"}, []string{peers[0].SessionID, peers[1].SessionID, peers[2].SessionID})
	assert.Equal(t, []string{"en", "es", "ja"}, p.ActiveLanguages("en"))

	now := time.UnixMilli(6000)
	assert.Equal(t, []string{"s2"}, p.Stale(now, 2*time.Second))

	assert.True(t, p.Remove("s2"))
	assert.False(t, p.Remove("s2"))
	assert.Equal(t, []string{"es"}, p.ActiveLanguages(""))
}

func TestColorForIsStable(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range presencePalette {
		seen[c] = true
	}

	for _, id := range []string{"", "a", "session-1", "ffffffff-ffff-ffff-ffff-ffffffffffff", "日本語"} {
		c := ColorFor(id)
		assert.Equal(t, c, ColorFor(id))
		assert.True(t, seen[c], "color %s for %q not in palette", c, id)
	}
	assert.Equal(t, presencePalette[0], ColorFor(""))
	// 'a' hashes to 97
	assert.Equal(t, presencePalette[97%len(presencePalette)], ColorFor("a"))
}
