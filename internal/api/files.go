package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gin-gonic/gin"

	"oroya/internal/model"
	"oroya/internal/validate"
)

// POST /api/files/upload
// multipart: file (обязателен), fieldId/recordId (опционально — сразу привязка).
// Если fieldId задан — лимиты и расширения берём из настроек поля.
func UploadFileHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, hdr, err := c.Request.FormFile("file")
		if err != nil {
			badRequest(c, "upload_error", "multipart file not found (field name 'file')")
			return
		}
		defer file.Close()

		fieldID := strings.TrimSpace(c.PostForm("fieldId"))
		recordID := strings.TrimSpace(c.PostForm("recordId"))

		var field *model.Field
		if fieldID != "" {
			field, err = s.Fields.FindByID(c.Request.Context(), fieldID)
			if err != nil {
				s.internalErr(c, err)
				return
			}
			if field == nil {
				notFound(c, "Field not found")
				return
			}
			if !model.IsBinaryFieldType(field.Type) {
				badRequest(c, "upload_error", "Field does not accept file uploads")
				return
			}
		}
		if fe := checkUploadLimits(hdr.Filename, hdr.Size, field); fe != nil {
			oneFieldError(c, fe)
			return
		}

		key, size, sum, err := s.Blob.Put("", file) // key генерится автоматически
		if err != nil {
			s.internalErr(c, err)
			return
		}

		rec := s.buildFileRecord(hdr.Filename, hdr.Header.Get("Content-Type"), key, size, sum)
		created, err := s.Files.Create(c.Request.Context(), rec)
		if err != nil {
			s.internalErr(c, err)
			return
		}

		if fieldID != "" && recordID != "" {
			link := model.FieldFileLink{ID: model.NewID(), FieldID: fieldID, RecordID: recordID, FileID: created.ID}
			if err := s.Files.Associate(c.Request.Context(), link); err != nil {
				s.internalErr(c, err)
				return
			}
		}
		c.JSON(http.StatusCreated, created)
	}
}

type base64Req struct {
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Data     string `json:"data"`
	FieldID  string `json:"fieldId"`
	RecordID string `json:"recordId"`
}

// POST /api/files/base64
func UploadBase64Handler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req base64Req
		if err := c.ShouldBindJSON(&req); err != nil || req.Filename == "" || req.Data == "" {
			badRequest(c, "invalid_json", "Expected {filename, mimetype, data}")
			return
		}

		// data URL-префикс вида "data:image/png;base64," срезаем
		payload := req.Data
		if i := strings.Index(payload, ";base64,"); i >= 0 {
			payload = payload[i+len(";base64,"):]
		}
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			badRequest(c, "upload_error", "Invalid base64 payload")
			return
		}

		var field *model.Field
		if req.FieldID != "" {
			field, err = s.Fields.FindByID(c.Request.Context(), req.FieldID)
			if err != nil {
				s.internalErr(c, err)
				return
			}
			if field == nil {
				notFound(c, "Field not found")
				return
			}
		}
		if fe := checkUploadLimits(req.Filename, int64(len(raw)), field); fe != nil {
			oneFieldError(c, fe)
			return
		}

		key, size, sum, err := s.Blob.Put("", bytes.NewReader(raw))
		if err != nil {
			s.internalErr(c, err)
			return
		}

		rec := s.buildFileRecord(req.Filename, req.Mimetype, key, size, sum)
		created, err := s.Files.Create(c.Request.Context(), rec)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if req.FieldID != "" && req.RecordID != "" {
			link := model.FieldFileLink{ID: model.NewID(), FieldID: req.FieldID, RecordID: req.RecordID, FileID: created.ID}
			if err := s.Files.Associate(c.Request.Context(), link); err != nil {
				s.internalErr(c, err)
				return
			}
		}
		c.JSON(http.StatusCreated, created)
	}
}

// checkUploadLimits: лимит поля, если есть, иначе глобальный потолок 50MB;
// расширение сверяем со списком поля.
func checkUploadLimits(filename string, size int64, field *model.Field) *validate.FieldError {
	limit := int64(model.MaxFileSizeBytes)
	if field != nil && field.MaxFileSize != nil {
		limit = *field.MaxFileSize
	}
	if size > limit {
		return validate.Ferr(validate.ErrOutOfRange, "file",
			fmt.Sprintf("File exceeds the size limit of %d bytes", limit))
	}
	if field != nil && field.AllowedExtensions != nil && strings.TrimSpace(*field.AllowedExtensions) != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		ok := false
		for _, allowed := range strings.Split(*field.AllowedExtensions, ",") {
			if strings.ToLower(strings.TrimSpace(allowed)) == ext {
				ok = true
				break
			}
		}
		if !ok {
			return validate.Ferr(validate.ErrBadExtension, "file",
				fmt.Sprintf("Extension '%s' is not allowed for this field", ext))
		}
	}
	return nil
}

func (s *Server) buildFileRecord(originalName, mimetype, key string, size int64, sum string) *model.FileRecord {
	rec := &model.FileRecord{
		ID:           model.NewID(),
		OriginalName: safeName(originalName),
		Filename:     filepath.Base(key),
		Mimetype:     mimetype,
		Size:         size,
		Path:         key,
		Checksum:     sum,
	}
	if strings.HasPrefix(mimetype, "image/") {
		rec.IsImage = true
		// размеры читаем из заголовка файла, без полного декода
		if p, err := s.Blob.Path(key); err == nil {
			if f, err := os.Open(p); err == nil {
				if cfg, _, err := image.DecodeConfig(f); err == nil {
					rec.Width = &cfg.Width
					rec.Height = &cfg.Height
				}
				_ = f.Close()
			}
		}
	}
	return rec
}

func safeName(name string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" {
		return "file"
	}
	return name
}

// GET /api/files
func ListFilesHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ?fieldId=&recordId= — файлы одной пары, иначе все
		fieldID := c.Query("fieldId")
		recordID := c.Query("recordId")
		var (
			out []model.FileRecord
			err error
		)
		if fieldID != "" && recordID != "" {
			out, err = s.Files.FindByFieldRecord(c.Request.Context(), fieldID, recordID)
		} else {
			out, err = s.Files.FindAll(c.Request.Context())
		}
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/files/orphans
func OrphanFilesHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.Files.FindOrphans(c.Request.Context())
		if err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/files/:id
func GetFileHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := s.Files.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if f == nil {
			notFound(c, "File not found")
			return
		}
		c.JSON(http.StatusOK, f)
	}
}

// GET /api/files/:id/download
func DownloadFileHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.Files.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if rec == nil {
			notFound(c, "File not found")
			return
		}

		p, _ := s.Blob.Path(rec.Path)

		// явно проставляем заголовки, чтобы использовать сохранённый MIME
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rec.OriginalName))
		if rec.Mimetype != "" {
			c.Header("Content-Type", rec.Mimetype)
		} else {
			c.Header("Content-Type", "application/octet-stream")
		}
		c.File(p)
	}
}

type associateReq struct {
	FieldID  string `json:"fieldId"`
	RecordID string `json:"recordId"`
}

// POST /api/files/:id/associate
func AssociateFileHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req associateReq
		if err := c.ShouldBindJSON(&req); err != nil || req.FieldID == "" || req.RecordID == "" {
			badRequest(c, "invalid_json", "Expected {fieldId, recordId}")
			return
		}

		ok, err := s.Files.Exists(c.Request.Context(), id)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "File not found")
			return
		}
		ok, err = s.Fields.Exists(c.Request.Context(), req.FieldID)
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if !ok {
			notFound(c, "Field not found")
			return
		}

		link := model.FieldFileLink{ID: model.NewID(), FieldID: req.FieldID, RecordID: req.RecordID, FileID: id}
		if err := s.Files.Associate(c.Request.Context(), link); err != nil {
			s.internalErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	}
}

// DELETE /api/files/:id
func DeleteFileHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.Files.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.internalErr(c, err)
			return
		}
		if rec == nil {
			notFound(c, "File not found")
			return
		}
		if _, err := s.Files.Delete(c.Request.Context(), rec.ID); err != nil {
			s.internalErr(c, err)
			return
		}
		// блоб чистим после строки; провал удаления с диска запрос не валит
		if err := s.Blob.Delete(rec.Path); err != nil {
			s.Log.Warn().Err(err).Str("path", rec.Path).Msg("blob delete failed")
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "File deleted"})
	}
}
