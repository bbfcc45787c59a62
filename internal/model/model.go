package model

import (
	"time"

	"github.com/google/uuid"
)

// Типы полей, которые может объявить пользователь.
const (
	FieldString   = "string"
	FieldNumber   = "number"
	FieldBoolean  = "boolean"
	FieldDate     = "date"
	FieldText     = "text"
	FieldInteger  = "integer"
	FieldDecimal  = "decimal"
	FieldFile     = "file"
	FieldImage    = "image"
	FieldDocument = "document"
)

// Типы связей между сущностями.
const (
	RelOneToOne   = "one_to_one"
	RelOneToMany  = "one_to_many"
	RelManyToOne  = "many_to_one"
	RelManyToMany = "many_to_many"
)

// MaxFileSizeBytes — потолок для maxFileSize поля (50MB).
const MaxFileSizeBytes = 50 * 1024 * 1024

var fieldTypes = map[string]struct{}{
	FieldString: {}, FieldNumber: {}, FieldBoolean: {}, FieldDate: {},
	FieldText: {}, FieldInteger: {}, FieldDecimal: {}, FieldFile: {},
	FieldImage: {}, FieldDocument: {},
}

var relationshipTypes = map[string]struct{}{
	RelOneToOne: {}, RelOneToMany: {}, RelManyToOne: {}, RelManyToMany: {},
}

func IsFieldType(t string) bool        { _, ok := fieldTypes[t]; return ok }
func IsRelationshipType(t string) bool { _, ok := relationshipTypes[t]; return ok }

// IsBinaryFieldType — тип, к которому можно прикреплять файлы.
func IsBinaryFieldType(t string) bool {
	return t == FieldFile || t == FieldImage || t == FieldDocument
}

// NewID генерит id записи. Везде UUID v4 строкой — так же он уходит в JSON и в БД.
func NewID() string { return uuid.NewString() }

type Project struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type Entity struct {
	ID          string    `db:"id" json:"id"`
	ProjectID   string    `db:"project_id" json:"projectId"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type Field struct {
	ID                string    `db:"id" json:"id"`
	EntityID          string    `db:"entity_id" json:"entityId"`
	Name              string    `db:"name" json:"name"`
	Type              string    `db:"type" json:"type"`
	Required          bool      `db:"required" json:"required"`
	IsUnique          bool      `db:"is_unique" json:"isUnique"`
	DefaultValue      *string   `db:"default_value" json:"defaultValue,omitempty"`
	MaxLength         *int      `db:"max_length" json:"maxLength,omitempty"`
	Description       *string   `db:"description" json:"description,omitempty"`
	AcceptsMultiple   bool      `db:"accepts_multiple" json:"acceptsMultiple"`
	MaxFileSize       *int64    `db:"max_file_size" json:"maxFileSize,omitempty"`
	AllowedExtensions *string   `db:"allowed_extensions" json:"allowedExtensions,omitempty"`
	IsForeignKey      bool      `db:"is_foreign_key" json:"isForeignKey"`
	ForeignEntityID   *string   `db:"foreign_entity_id" json:"foreignEntityId,omitempty"`
	ForeignFieldID    *string   `db:"foreign_field_id" json:"foreignFieldId,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// EntityRelationship — независимое ребро между двумя сущностями,
// опционально привязанное к конкретным полям.
type EntityRelationship struct {
	ID               string    `db:"id" json:"id"`
	SourceEntityID   string    `db:"source_entity_id" json:"sourceEntityId"`
	TargetEntityID   string    `db:"target_entity_id" json:"targetEntityId"`
	RelationshipType string    `db:"relationship_type" json:"relationshipType"`
	SourceFieldID    *string   `db:"source_field_id" json:"sourceFieldId,omitempty"`
	TargetFieldID    *string   `db:"target_field_id" json:"targetFieldId,omitempty"`
	Name             *string   `db:"name" json:"name,omitempty"`
	Description      *string   `db:"description" json:"description,omitempty"`
	IsRequired       bool      `db:"is_required" json:"isRequired"`
	CascadeDelete    bool      `db:"cascade_delete" json:"cascadeDelete"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// RelationshipDetails — денормализованная строка для отображения списка связей.
type RelationshipDetails struct {
	EntityRelationship
	SourceEntityName  string `db:"source_entity_name" json:"sourceEntityName"`
	TargetEntityName  string `db:"target_entity_name" json:"targetEntityName"`
	SourceProjectID   string `db:"source_project_id" json:"sourceProjectId"`
	TargetProjectID   string `db:"target_project_id" json:"targetProjectId"`
	SourceProjectName string `db:"source_project_name" json:"sourceProjectName"`
	TargetProjectName string `db:"target_project_name" json:"targetProjectName"`
}

type FileRecord struct {
	ID             string    `db:"id" json:"id"`
	OriginalName   string    `db:"original_name" json:"originalName"`
	Filename       string    `db:"filename" json:"filename"`
	Mimetype       string    `db:"mimetype" json:"mimetype"`
	Size           int64     `db:"size" json:"size"`
	Path           string    `db:"path" json:"path"`
	IsImage        bool      `db:"is_image" json:"isImage"`
	Width          *int      `db:"width" json:"width,omitempty"`
	Height         *int      `db:"height" json:"height,omitempty"`
	CompressedPath *string   `db:"compressed_path" json:"compressedPath,omitempty"`
	ThumbnailPath  *string   `db:"thumbnail_path" json:"thumbnailPath,omitempty"`
	Checksum       string    `db:"checksum" json:"checksum"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// FieldFileLink — связка файла с парой (field, record). Файл без связок — сирота.
type FieldFileLink struct {
	ID       string `db:"id" json:"id"`
	FieldID  string `db:"field_id" json:"fieldId"`
	RecordID string `db:"record_id" json:"recordId"`
	FileID   string `db:"file_id" json:"fileId"`
}

// APILog — строка журнала запросов, её же отдаёт аналитика и live-стрим.
type APILog struct {
	ID         string    `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"requestId"`
	Method     string    `db:"method" json:"method"`
	Path       string    `db:"path" json:"path"`
	Status     int       `db:"status" json:"status"`
	DurationMs int64     `db:"duration_ms" json:"durationMs"`
	Level      string    `db:"level" json:"level"`
	ProjectID  *string   `db:"project_id" json:"projectId,omitempty"`
	ClientIP   string    `db:"client_ip" json:"clientIp"`
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
