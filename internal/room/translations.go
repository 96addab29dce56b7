package room

import (
	"slices"

	"polyform-sync/internal/domain"
)

// TranslationStore keeps one entry per (block, language), each tagged with
// the source version it was computed against.
type TranslationStore struct {
	entries map[string]map[string]domain.TranslationEntry
}

func NewTranslationStore() *TranslationStore {
	return &TranslationStore{entries: make(map[string]map[string]domain.TranslationEntry)}
}

// Put overwrites the entry for (blockID, lang) unless the held entry was
// computed for a newer version. It reports whether the entry was stored.
func (s *TranslationStore) Put(blockID, lang string, entry domain.TranslationEntry) bool {
	byLang := s.entries[blockID]
	if byLang == nil {
		byLang = make(map[string]domain.TranslationEntry)
		s.entries[blockID] = byLang
	}

	if held, ok := byLang[lang]; ok && held.TranslationVersion > entry.TranslationVersion {
		return false
	}

	byLang[lang] = domain.TranslationEntry{
		TranslationVersion: entry.TranslationVersion,
		Texts:              slices.Clone(entry.Texts),
	}
	return true
}

func (s *TranslationStore) Get(blockID, lang string) (domain.TranslationEntry, bool) {
	entry, ok := s.entries[blockID][lang]
	if !ok {
		return domain.TranslationEntry{}, false
	}
	entry.Texts = slices.Clone(entry.Texts)
	return entry, true
}

// Languages lists the languages held for blockID.
func (s *TranslationStore) Languages(blockID string) []string {
	return sortedKeys(s.entries[blockID])
}
