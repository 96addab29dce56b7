package domain

import "time"

type BlockType string

const BlockTypeDocument BlockType = "document"

// Block is the editable unit of a space. TranslationVersion starts at 1 and
// grows by one per accepted source edit; it gates which translations may be
// displayed.
type Block struct {
	ID                 string    `json:"id"`
	SpaceID            string    `json:"space_id"`
	Type               BlockType `json:"type"`
	X                  float64   `json:"x"`
	Y                  float64   `json:"y"`
	W                  float64   `json:"w"`
	H                  float64   `json:"h"`
	SourceLanguage     string    `json:"source_language"`
	TranslationVersion int64     `json:"translation_version"`
	Universal          bool      `json:"universal"`
	SourceContent      Content   `json:"source_content"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (b *Block) Clone() *Block {
	c := *b
	c.SourceContent = b.SourceContent.Clone()
	return &c
}

func (b *Block) Geometry() Geometry {
	return Geometry{X: b.X, Y: b.Y, W: b.W, H: b.H}
}

type Geometry struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// BlockPatch is a field-level update of one block as persisted through
// PATCH /spaces/{id}/blocks. Nil fields are left untouched.
type BlockPatch struct {
	ID                 string   `json:"id" validate:"required"`
	X                  *float64 `json:"x,omitempty"`
	Y                  *float64 `json:"y,omitempty"`
	W                  *float64 `json:"w,omitempty" validate:"omitempty,gte=0"`
	H                  *float64 `json:"h,omitempty" validate:"omitempty,gte=0"`
	SourceContent      *Content `json:"source_content,omitempty"`
	TranslationVersion *int64   `json:"translation_version,omitempty" validate:"omitempty,gt=0"`
	Universal          *bool    `json:"universal,omitempty"`
}

func (p *BlockPatch) Empty() bool {
	return p.X == nil && p.Y == nil && p.W == nil && p.H == nil &&
		p.SourceContent == nil && p.TranslationVersion == nil && p.Universal == nil
}

// Apply writes the set fields of p onto b.
func (p *BlockPatch) Apply(b *Block) {
	if p.X != nil {
		b.X = *p.X
	}
	if p.Y != nil {
		b.Y = *p.Y
	}
	if p.W != nil {
		b.W = *p.W
	}
	if p.H != nil {
		b.H = *p.H
	}
	if p.SourceContent != nil {
		b.SourceContent = p.SourceContent.Clone()
	}
	if p.TranslationVersion != nil {
		b.TranslationVersion = *p.TranslationVersion
	}
	if p.Universal != nil {
		b.Universal = *p.Universal
	}
}

type PatchBlocksRequest struct {
	Blocks []BlockPatch `json:"blocks" validate:"required,min=1,dive"`
}

func DefaultContent(t BlockType) Content {
	return Content{
		Paragraphs: []string{
			"Welcome to your shared document.",
			"Type here and collaborators will see updates in real time.",
		},
	}
}

func DefaultSize(t BlockType) (w, h float64) {
	return 760, 520
}

// NewDefaultBlock builds the index-th block of a freshly created space.
func NewDefaultBlock(id, spaceID string, t BlockType, index int, sourceLanguage string, now time.Time) *Block {
	w, h := DefaultSize(t)
	return &Block{
		ID:                 id,
		SpaceID:            spaceID,
		Type:               t,
		X:                  120 + float64(index)*90,
		Y:                  120 + float64(index)*70,
		W:                  w,
		H:                  h,
		SourceLanguage:     sourceLanguage,
		TranslationVersion: 1,
		Universal:          false,
		SourceContent:      DefaultContent(t),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
