package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oroya/internal/blob"
	"oroya/internal/config"
	"oroya/internal/logstream"
	"oroya/internal/validate"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{Port: "0", DevMode: true, FilesRoot: t.TempDir()}
	s := NewServer(cfg, zerolog.Nop(), db, &blob.LocalStore{Root: cfg.FilesRoot}, logstream.NewHub())
	return s, mock
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func firstErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Errors []validate.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.Errors)
	return out.Errors[0].Code
}

func projectRows(id, name string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
		AddRow(id, name, "", now, now)
}

func expectLogInsert(mock sqlmock.Sqlmock) {
	mock.ExpectExec("insert into api_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestCreateProjectOK(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select lower\(name\) from projects`).
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}))
	mock.ExpectExec("insert into projects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from projects where id`).
		WillReturnRows(projectRows("p1", "Shop"))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodPost, "/api/projects", map[string]string{"name": "Shop"})
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Shop", body["name"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateProjectDuplicate(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select lower\(name\) from projects`).
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}).AddRow("shop"))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodPost, "/api/projects", map[string]string{"name": "SHOP"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, validate.ErrDuplicateName, firstErrorCode(t, w))
}

func TestCreateProjectBadName(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select lower\(name\) from projects`).
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodPost, "/api/projects", map[string]string{"name": "ab"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, validate.ErrTooShort, firstErrorCode(t, w))
}

func TestGetProjectMissing(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select \* from projects where id`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodGet, "/api/projects/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "not_found", body["error"])
}

func TestDeleteProject(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectExec(`delete from projects where id`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodDelete, "/api/projects/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
}

func TestCreateEntityProjectMissing(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select exists`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodPost, "/api/projects/ghost/entities", map[string]string{"name": "User"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateEntityBadName(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select exists`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`select lower\(name\) from entities`).
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}))
	expectLogInsert(mock)

	// имя сущности не может начинаться с цифры
	w := doJSON(t, r, http.MethodPost, "/api/projects/p1/entities", map[string]string{"name": "1User"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, validate.ErrBadCharset, firstErrorCode(t, w))
}

func entityRows(id, projectID, name string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "project_id", "name", "description", "created_at", "updated_at"}).
		AddRow(id, projectID, name, "", now, now)
}

func TestCreateFieldReservedName(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select \* from entities where id`).
		WithArgs("e1").
		WillReturnRows(entityRows("e1", "p1", "User"))
	mock.ExpectQuery(`select lower\(name\) from fields`).
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodPost, "/api/projects/p1/entities/e1/fields",
		map[string]any{"name": "class", "type": "string"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, validate.ErrReservedWord, firstErrorCode(t, w))
}

func TestCreateFieldWrongProject(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	// сущность существует, но принадлежит другому проекту
	mock.ExpectQuery(`select \* from entities where id`).
		WithArgs("e1").
		WillReturnRows(entityRows("e1", "other-project", "User"))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodPost, "/api/projects/p1/entities/e1/fields",
		map[string]any{"name": "userName", "type": "string"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateFieldOversizedLimit(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select \* from entities where id`).
		WithArgs("e1").
		WillReturnRows(entityRows("e1", "p1", "User"))
	mock.ExpectQuery(`select lower\(name\) from fields`).
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodPost, "/api/projects/p1/entities/e1/fields",
		map[string]any{"name": "avatar", "type": "image", "maxFileSize": 60 * 1024 * 1024})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, validate.ErrOutOfRange, firstErrorCode(t, w))
}

func fieldRows(id, entityID, name string, fk bool) *sqlmock.Rows {
	now := time.Now().UTC()
	var fkEntity, fkField any
	if fk {
		fkEntity, fkField = "e2", "f2"
	}
	return sqlmock.NewRows([]string{
		"id", "entity_id", "name", "type", "required", "is_unique",
		"default_value", "max_length", "description", "accepts_multiple",
		"max_file_size", "allowed_extensions", "is_foreign_key",
		"foreign_entity_id", "foreign_field_id", "created_at", "updated_at",
	}).AddRow(
		id, entityID, name, "string", false, false,
		nil, nil, nil, false,
		nil, nil, fk,
		fkEntity, fkField, now, now,
	)
}

func TestUpdateFieldDropForeignKey(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select \* from fields where id`).
		WithArgs("f1").
		WillReturnRows(fieldRows("f1", "e1", "ownerRef", true))
	mock.ExpectExec(`UPDATE fields SET updated_at = \?, is_foreign_key = \?, foreign_entity_id = \?, foreign_field_id = \? WHERE id = \?`).
		WithArgs(sqlmock.AnyArg(), false, nil, nil, "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from fields where id`).
		WithArgs("f1").
		WillReturnRows(fieldRows("f1", "e1", "ownerRef", false))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodPatch, "/api/fields/f1", map[string]any{"isForeignKey": false})
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["isForeignKey"])
	assert.Nil(t, body["foreignEntityId"])
	assert.Nil(t, body["foreignFieldId"])
}

func TestDeleteFieldNoContent(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectExec(`delete from fields where id`).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodDelete, "/api/fields/f1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCreateRelationshipBadType(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodPost, "/api/relationships", map[string]any{
		"sourceEntityId":   "e1",
		"targetEntityId":   "e2",
		"relationshipType": "one_to_everything",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, validate.ErrEnumInvalid, firstErrorCode(t, w))
}

func TestRelationshipExistsQuery(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()

	mock.ExpectQuery(`select exists`).
		WithArgs("e1", "e2", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodGet, "/api/relationships/exists?sourceEntityId=e1&targetEntityId=e2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["exists"])
}

func TestAnalyticsLogs(t *testing.T) {
	s, mock := newTestServer(t)
	r := s.Router()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT count\(\*\) FROM api_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM api_logs`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "request_id", "method", "path", "status", "duration_ms",
			"level", "project_id", "client_ip", "message", "created_at",
		}).AddRow("l1", "req1", "GET", "/api/projects", 200, 3, "info", nil, "127.0.0.1", "", now))
	expectLogInsert(mock)

	w := doJSON(t, r, http.MethodGet, "/api/analytics/logs?method=GET", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["page"])
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
