package model

// Патчи для частичных обновлений: каждое опциональное поле — явный указатель.
// nil = «не трогать», значение = «записать». Динамических map-патчей нет.

type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p ProjectPatch) Empty() bool { return p.Name == nil && p.Description == nil }

type EntityPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p EntityPatch) Empty() bool { return p.Name == nil && p.Description == nil }

type FieldPatch struct {
	Name              *string `json:"name,omitempty"`
	Type              *string `json:"type,omitempty"`
	Required          *bool   `json:"required,omitempty"`
	IsUnique          *bool   `json:"isUnique,omitempty"`
	DefaultValue      *string `json:"defaultValue,omitempty"`
	MaxLength         *int    `json:"maxLength,omitempty"`
	Description       *string `json:"description,omitempty"`
	AcceptsMultiple   *bool   `json:"acceptsMultiple,omitempty"`
	MaxFileSize       *int64  `json:"maxFileSize,omitempty"`
	AllowedExtensions *string `json:"allowedExtensions,omitempty"`
	IsForeignKey      *bool   `json:"isForeignKey,omitempty"`
	ForeignEntityID   *string `json:"foreignEntityId,omitempty"`
	ForeignFieldID    *string `json:"foreignFieldId,omitempty"`
}

func (p FieldPatch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Required == nil && p.IsUnique == nil &&
		p.DefaultValue == nil && p.MaxLength == nil && p.Description == nil &&
		p.AcceptsMultiple == nil && p.MaxFileSize == nil && p.AllowedExtensions == nil &&
		p.IsForeignKey == nil && p.ForeignEntityID == nil && p.ForeignFieldID == nil
}

type RelationshipPatch struct {
	RelationshipType *string `json:"relationshipType,omitempty"`
	SourceFieldID    *string `json:"sourceFieldId,omitempty"`
	TargetFieldID    *string `json:"targetFieldId,omitempty"`
	Name             *string `json:"name,omitempty"`
	Description      *string `json:"description,omitempty"`
	IsRequired       *bool   `json:"isRequired,omitempty"`
	CascadeDelete    *bool   `json:"cascadeDelete,omitempty"`
}

func (p RelationshipPatch) Empty() bool {
	return p.RelationshipType == nil && p.SourceFieldID == nil && p.TargetFieldID == nil &&
		p.Name == nil && p.Description == nil && p.IsRequired == nil && p.CascadeDelete == nil
}

type FilePatch struct {
	Width          *int    `json:"width,omitempty"`
	Height         *int    `json:"height,omitempty"`
	CompressedPath *string `json:"compressedPath,omitempty"`
	ThumbnailPath  *string `json:"thumbnailPath,omitempty"`
}

func (p FilePatch) Empty() bool {
	return p.Width == nil && p.Height == nil && p.CompressedPath == nil && p.ThumbnailPath == nil
}
