package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSeed = `
name: Shop
description: demo project
entities:
  - name: User
    fields:
      - name: userName
        type: string
        required: true
      - name: avatar
        type: image
        maxFileSize: 1048576
`

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.yaml"), []byte(sampleSeed), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	seeds, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "Shop", seeds[0].Name)
	require.Len(t, seeds[0].Entities, 1)
	assert.Equal(t, "User", seeds[0].Entities[0].Name)
	require.Len(t, seeds[0].Entities[0].Fields, 2)
	require.NotNil(t, seeds[0].Entities[0].Fields[1].MaxFileSize)
	assert.EqualValues(t, 1048576, *seeds[0].Entities[0].Fields[1].MaxFileSize)
}

func TestLoadDirNameFromFilename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crm.yml"), []byte("description: x"), 0o644))

	seeds, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "crm", seeds[0].Name)
}

func TestLoadDirBadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(":\n\t- broken"), 0o644))

	_, err := LoadDir(dir)
	assert.Error(t, err)
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestApplySkipsExistingProject(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`select lower\(name\) from projects`).
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}).AddRow("shop"))

	err := Apply(context.Background(), db, zerolog.Nop(), []ProjectSeed{{Name: "Shop"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyInsertsProjectTree(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	seeds, err := func() ([]ProjectSeed, error) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "shop.yaml"), []byte(sampleSeed), 0o644); err != nil {
			return nil, err
		}
		return LoadDir(dir)
	}()
	require.NoError(t, err)

	mock.ExpectQuery(`select lower\(name\) from projects`).
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}))

	mock.ExpectExec("insert into projects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from projects where id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
			AddRow("p1", "Shop", "demo project", now, now))

	mock.ExpectExec("insert into entities").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from entities where id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "description", "created_at", "updated_at"}).
			AddRow("e1", "p1", "User", "", now, now))

	fieldCols := []string{
		"id", "entity_id", "name", "type", "required", "is_unique",
		"default_value", "max_length", "description", "accepts_multiple",
		"max_file_size", "allowed_extensions", "is_foreign_key",
		"foreign_entity_id", "foreign_field_id", "created_at", "updated_at",
	}
	for _, name := range []string{"userName", "avatar"} {
		mock.ExpectExec("insert into fields").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`select \* from fields where id`).
			WillReturnRows(sqlmock.NewRows(fieldCols).AddRow(
				"f-"+name, "e1", name, "string", false, false,
				nil, nil, nil, false, nil, nil, false, nil, nil, now, now))
	}

	require.NoError(t, Apply(context.Background(), db, zerolog.Nop(), seeds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRejectsReservedFieldName(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`select lower\(name\) from projects`).
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}))
	mock.ExpectExec("insert into projects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from projects where id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
			AddRow("p1", "Bad", "", now, now))
	mock.ExpectExec("insert into entities").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from entities where id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "description", "created_at", "updated_at"}).
			AddRow("e1", "p1", "User", "", now, now))

	err := Apply(context.Background(), db, zerolog.Nop(), []ProjectSeed{{
		Name: "Bad",
		Entities: []EntitySeed{{
			Name:   "User",
			Fields: []FieldSeed{{Name: "class", Type: "string"}},
		}},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "class")
}
