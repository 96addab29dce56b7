package translation

import (
	"context"
	"slices"
)

// Backend translates an ordered list of strings from one locale to another.
// The result must have the same length as texts, index for index.
type Backend interface {
	Translate(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error)
}

// PassthroughBackend echoes its input. Local development runs without a
// translation engine use it.
type PassthroughBackend struct{}

func (PassthroughBackend) Translate(_ context.Context, texts []string, _, _ string) ([]string, error) {
	return slices.Clone(texts), nil
}
