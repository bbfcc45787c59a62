package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oroya/internal/model"
)

func fieldColumns() []string {
	return []string{
		"id", "entity_id", "name", "type", "required", "is_unique",
		"default_value", "max_length", "description", "accepts_multiple",
		"max_file_size", "allowed_extensions", "is_foreign_key",
		"foreign_entity_id", "foreign_field_id", "created_at", "updated_at",
	}
}

func fieldRow(id, entityID, name string, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(fieldColumns()).AddRow(
		id, entityID, name, "string", false, false,
		nil, nil, nil, false,
		nil, nil, false,
		nil, nil, now, now,
	)
}

func strptr(s string) *string { return &s }

func TestFieldRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFieldRepo(db)
	now := time.Now().UTC()

	mock.ExpectExec("insert into fields").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from fields where id = \?`).
		WithArgs("f1").
		WillReturnRows(fieldRow("f1", "e1", "userName", now))

	got, err := repo.Create(context.Background(), &model.Field{
		ID: "f1", EntityID: "e1", Name: "userName", Type: model.FieldString,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "userName", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldRepoCreateCheckedFK(t *testing.T) {
	fk := &model.Field{
		ID: "f1", EntityID: "e1", Name: "ownerRef", Type: model.FieldString,
		IsForeignKey:    true,
		ForeignEntityID: strptr("e2"),
		ForeignFieldID:  strptr("f2"),
	}

	t.Run("ok", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewFieldRepo(db)
		now := time.Now().UTC()

		mock.ExpectBegin()
		mock.ExpectQuery(`select exists \(select 1 from entities where id = \?\)`).
			WithArgs("e2").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`select entity_id from fields where id = \?`).
			WithArgs("f2").
			WillReturnRows(sqlmock.NewRows([]string{"entity_id"}).AddRow("e2"))
		mock.ExpectExec("insert into fields").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(`select \* from fields where id = \?`).
			WithArgs("f1").
			WillReturnRows(fieldRow("f1", "e1", "ownerRef", now))

		got, err := repo.CreateChecked(context.Background(), fk)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign entity missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewFieldRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`select exists \(select 1 from entities where id = \?\)`).
			WithArgs("e2").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := repo.CreateChecked(context.Background(), fk)
		assert.ErrorIs(t, err, ErrForeignEntityMissing)
	})

	t.Run("foreign field missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewFieldRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`select exists`).
			WithArgs("e2").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`select entity_id from fields where id = \?`).
			WithArgs("f2").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.CreateChecked(context.Background(), fk)
		assert.ErrorIs(t, err, ErrForeignFieldMissing)
	})

	t.Run("foreign field belongs to another entity", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewFieldRepo(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`select exists`).
			WithArgs("e2").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`select entity_id from fields where id = \?`).
			WithArgs("f2").
			WillReturnRows(sqlmock.NewRows([]string{"entity_id"}).AddRow("e-other"))
		mock.ExpectRollback()

		_, err := repo.CreateChecked(context.Background(), fk)
		assert.ErrorIs(t, err, ErrForeignFieldMismatch)
	})

	t.Run("plain field skips checks", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewFieldRepo(db)
		now := time.Now().UTC()

		mock.ExpectExec("insert into fields").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`select \* from fields where id = \?`).
			WithArgs("f3").
			WillReturnRows(fieldRow("f3", "e1", "plain", now))

		got, err := repo.CreateChecked(context.Background(), &model.Field{
			ID: "f3", EntityID: "e1", Name: "plain", Type: model.FieldString,
		})
		require.NoError(t, err)
		require.NotNil(t, got)
	})
}

func TestFieldRepoNamesLower(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFieldRepo(db)

	mock.ExpectQuery(`select lower\(name\) from fields where entity_id = \? and id <> \?`).
		WithArgs("e1", "f1").
		WillReturnRows(sqlmock.NewRows([]string{"lower(name)"}).AddRow("username"))

	names, err := repo.NamesLower(context.Background(), "e1", "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"username"}, names)
}

func TestFieldRepoUpdatePartial(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFieldRepo(db)
	now := time.Now().UTC()

	req := true
	maxLen := 120
	mock.ExpectExec(`UPDATE fields SET updated_at = \?, required = \?, max_length = \? WHERE id = \?`).
		WithArgs(sqlmock.AnyArg(), true, 120, "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from fields where id = \?`).
		WithArgs("f1").
		WillReturnRows(fieldRow("f1", "e1", "userName", now))

	got, err := repo.Update(context.Background(), "f1", model.FieldPatch{
		Required:  &req,
		MaxLength: &maxLen,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldRepoUpdateDropForeignKeyClearsRefs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFieldRepo(db)
	now := time.Now().UTC()

	off := false
	mock.ExpectExec(`UPDATE fields SET updated_at = \?, is_foreign_key = \?, foreign_entity_id = \?, foreign_field_id = \? WHERE id = \?`).
		WithArgs(sqlmock.AnyArg(), false, nil, nil, "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from fields where id = \?`).
		WithArgs("f1").
		WillReturnRows(fieldRow("f1", "e1", "ownerRef", now))

	got, err := repo.Update(context.Background(), "f1", model.FieldPatch{IsForeignKey: &off})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsForeignKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldRepoDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFieldRepo(db)

	mock.ExpectExec(`delete from fields where id = \?`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Delete(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}
