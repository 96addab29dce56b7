package room

import (
	"slices"

	"polyform-sync/internal/domain"
)

// ExtractUnits returns the translatable text units of content in order.
func ExtractUnits(t domain.BlockType, content domain.Content) []string {
	if t == domain.BlockTypeDocument {
		return slices.Clone(content.Paragraphs)
	}
	return []string{}
}

// ApplyUnits puts translated units back into content. Unit i replaces
// paragraph i; formatting is kept.
func ApplyUnits(t domain.BlockType, content domain.Content, translated []string) domain.Content {
	if t == domain.BlockTypeDocument {
		out := content.Clone()
		out.Paragraphs = slices.Clone(translated)
		return out
	}
	return domain.Content{Paragraphs: slices.Clone(translated)}
}

// NeedsTranslation reports whether lang must be derived from a translation
// rather than shown as the source itself.
func NeedsTranslation(b *domain.Block, lang string) bool {
	return lang != b.SourceLanguage && !b.Universal
}

// Usable reports whether entry may be shown for b: it must be at least as
// new as the source and carry one text per translatable unit.
func Usable(b *domain.Block, entry *domain.TranslationEntry) bool {
	if entry == nil || entry.TranslationVersion < b.TranslationVersion {
		return false
	}
	return len(entry.Texts) == len(ExtractUnits(b.Type, b.SourceContent))
}

// Display picks what a viewer reading lang sees for b. A missing, stale or
// misshapen entry falls back to the source; a stale translation is never
// shown.
func Display(b *domain.Block, lang string, entry *domain.TranslationEntry) domain.Content {
	if !NeedsTranslation(b, lang) || !Usable(b, entry) {
		return b.SourceContent.Clone()
	}
	return ApplyUnits(b.Type, b.SourceContent, entry.Texts)
}
