package validate

import (
	"fmt"
	"regexp"
	"strings"

	"oroya/internal/model"
)

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Коды ошибок, которыми будем пользоваться
const (
	ErrRequired      = "required"
	ErrTooShort      = "too_short"
	ErrTooLong       = "too_long"
	ErrBadCharset    = "bad_charset"
	ErrDuplicateName = "duplicate_name"
	ErrReservedWord  = "reserved_word"
	ErrEnumInvalid   = "enum_invalid"
	ErrOutOfRange    = "out_of_range"
	ErrBadExtension  = "bad_extension"
	ErrRefInvalid    = "ref_invalid"
	ErrNotFound      = "not_found"
	ErrInternal      = "internal"
)

func Ferr(code, field, msg string) *FieldError {
	return &FieldError{Code: code, Field: field, Message: msg}
}

var (
	projectNameRe = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)
	entityNameRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
	fieldNameRe   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)
	extensionRe   = regexp.MustCompile(`^\.[a-zA-Z0-9]+$`)
)

// Слова, запрещённые для имён полей: ключевые слова C-семейства и скриптовых
// языков, регистронезависимо. Формат имени может быть валиден — всё равно нет.
var reservedWords = map[string]struct{}{
	"id": {}, "class": {}, "type": {}, "function": {}, "return": {},
	"if": {}, "else": {}, "for": {}, "while": {}, "do": {},
	"switch": {}, "case": {}, "break": {}, "continue": {},
	"new": {}, "delete": {}, "var": {}, "let": {}, "const": {},
	"void": {}, "null": {}, "undefined": {}, "true": {}, "false": {},
	"this": {}, "super": {}, "import": {}, "export": {}, "default": {},
	"try": {}, "catch": {}, "finally": {}, "throw": {}, "enum": {},
	"interface": {}, "public": {}, "private": {}, "static": {},
}

func IsReserved(name string) bool {
	_, ok := reservedWords[strings.ToLower(name)]
	return ok
}

// ProjectName: 3–50 символов, буквы/цифры/пробел/дефис/подчёркивание,
// затем регистронезависимая проверка на дубликат. Первая сработавшая
// ошибка — наружу; формат важнее дубликата.
func ProjectName(name string, existingLower map[string]struct{}) *FieldError {
	name = strings.TrimSpace(name)
	if name == "" {
		return Ferr(ErrRequired, "name", "Project name is required")
	}
	if len(name) < 3 {
		return Ferr(ErrTooShort, "name", "Project name must be at least 3 characters")
	}
	if len(name) > 50 {
		return Ferr(ErrTooLong, "name", "Project name must be at most 50 characters")
	}
	if !projectNameRe.MatchString(name) {
		return Ferr(ErrBadCharset, "name", "Project name may contain letters, digits, spaces, hyphens and underscores only")
	}
	if _, dup := existingLower[strings.ToLower(name)]; dup {
		return Ferr(ErrDuplicateName, "name", fmt.Sprintf("Project '%s' already exists", name))
	}
	return nil
}

// EntityName: 2–30 символов, первая — буква, дальше буквы/цифры, без пробелов.
// Дубликаты считаются в рамках проекта-владельца.
func EntityName(name string, existingLower map[string]struct{}) *FieldError {
	name = strings.TrimSpace(name)
	if name == "" {
		return Ferr(ErrRequired, "name", "Entity name is required")
	}
	if len(name) < 2 {
		return Ferr(ErrTooShort, "name", "Entity name must be at least 2 characters")
	}
	if len(name) > 30 {
		return Ferr(ErrTooLong, "name", "Entity name must be at most 30 characters")
	}
	if !entityNameRe.MatchString(name) {
		return Ferr(ErrBadCharset, "name", "Entity name must start with a letter and contain letters and digits only")
	}
	if _, dup := existingLower[strings.ToLower(name)]; dup {
		return Ferr(ErrDuplicateName, "name", fmt.Sprintf("Entity '%s' already exists in this project", name))
	}
	return nil
}

// FieldName: 2–20 символов, первая — буква, дальше буквы/цифры.
// Порядок проверок фиксированный: формат → дубликат → reserved word,
// поэтому "Id" валиден по формату, но срезается как reserved.
func FieldName(name string, existingLower map[string]struct{}) *FieldError {
	name = strings.TrimSpace(name)
	if name == "" {
		return Ferr(ErrRequired, "name", "Field name is required")
	}
	if len(name) < 2 {
		return Ferr(ErrTooShort, "name", "Field name must be at least 2 characters")
	}
	if len(name) > 20 {
		return Ferr(ErrTooLong, "name", "Field name must be at most 20 characters")
	}
	if !fieldNameRe.MatchString(name) {
		return Ferr(ErrBadCharset, "name", "Field name must start with a letter and contain letters and digits only")
	}
	if _, dup := existingLower[strings.ToLower(name)]; dup {
		return Ferr(ErrDuplicateName, "name", fmt.Sprintf("Field '%s' already exists in this entity", name))
	}
	if IsReserved(name) {
		return Ferr(ErrReservedWord, "name", fmt.Sprintf("'%s' is a reserved word", name))
	}
	return nil
}

// FieldPayload проверяет остальной состав поля: тип, файловые лимиты,
// согласованность FK-триады. Имя валидируется отдельно (FieldName).
func FieldPayload(f *model.Field) []FieldError {
	var errs []FieldError

	if !model.IsFieldType(f.Type) {
		errs = append(errs, *Ferr(ErrEnumInvalid, "type", fmt.Sprintf("Unknown field type '%s'", f.Type)))
	}
	if f.MaxLength != nil && *f.MaxLength <= 0 {
		errs = append(errs, *Ferr(ErrOutOfRange, "maxLength", "maxLength must be positive"))
	}
	if f.MaxFileSize != nil {
		if *f.MaxFileSize <= 0 {
			errs = append(errs, *Ferr(ErrOutOfRange, "maxFileSize", "maxFileSize must be positive"))
		} else if *f.MaxFileSize > model.MaxFileSizeBytes {
			errs = append(errs, *Ferr(ErrOutOfRange, "maxFileSize", "maxFileSize must not exceed 50MB"))
		}
	}
	if f.Description != nil && len(*f.Description) > 300 {
		errs = append(errs, *Ferr(ErrTooLong, "description", "Description must be at most 300 characters"))
	}
	if f.AllowedExtensions != nil && strings.TrimSpace(*f.AllowedExtensions) != "" {
		for _, ext := range strings.Split(*f.AllowedExtensions, ",") {
			ext = strings.TrimSpace(ext)
			if !extensionRe.MatchString(ext) {
				errs = append(errs, *Ferr(ErrBadExtension, "allowedExtensions",
					fmt.Sprintf("'%s' is not a valid extension (expected '.ext')", ext)))
				break
			}
		}
	}
	if f.IsForeignKey {
		if f.ForeignEntityID == nil || *f.ForeignEntityID == "" {
			errs = append(errs, *Ferr(ErrRefInvalid, "foreignEntityId", "foreignEntityId is required for foreign key fields"))
		}
		if f.ForeignFieldID == nil || *f.ForeignFieldID == "" {
			errs = append(errs, *Ferr(ErrRefInvalid, "foreignFieldId", "foreignFieldId is required for foreign key fields"))
		}
	} else if f.ForeignEntityID != nil || f.ForeignFieldID != nil {
		errs = append(errs, *Ferr(ErrRefInvalid, "isForeignKey", "foreign references are only allowed when isForeignKey is set"))
	}

	return errs
}

// ProjectDescription / EntityDescription — лимиты на описания.
func ProjectDescription(desc string) *FieldError {
	if len(desc) > 500 {
		return Ferr(ErrTooLong, "description", "Description must be at most 500 characters")
	}
	return nil
}

func EntityDescription(desc string) *FieldError {
	if len(desc) > 300 {
		return Ferr(ErrTooLong, "description", "Description must be at most 300 characters")
	}
	return nil
}

// LowerSet — хелпер для загона списка имён в регистронезависимое множество.
func LowerSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[strings.ToLower(n)] = struct{}{}
	}
	return out
}
