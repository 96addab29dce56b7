package domain

import "slices"

// Content is the source material of a block: ordered paragraphs plus an
// optional style structure. It is always replaced wholesale.
type Content struct {
	Paragraphs []string `json:"paragraphs"`
	Format     *Format  `json:"format,omitempty"`
}

type Format struct {
	Zoom       float64 `json:"zoom,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
	Italic     bool    `json:"italic,omitempty"`
	Underline  bool    `json:"underline,omitempty"`
	LineHeight float64 `json:"lineHeight,omitempty"`
	Align      string  `json:"align,omitempty"`
	TextType   string  `json:"textType,omitempty"`
}

func (c Content) Clone() Content {
	out := Content{Paragraphs: slices.Clone(c.Paragraphs)}
	if c.Format != nil {
		f := *c.Format
		out.Format = &f
	}
	return out
}

func (c Content) Equal(o Content) bool {
	if !slices.Equal(c.Paragraphs, o.Paragraphs) {
		return false
	}
	if c.Format == nil || o.Format == nil {
		return c.Format == nil && o.Format == nil
	}
	return *c.Format == *o.Format
}
