package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oroya/internal/model"
)

func relationshipColumns() []string {
	return []string{
		"id", "source_entity_id", "target_entity_id", "relationship_type",
		"source_field_id", "target_field_id", "name", "description",
		"is_required", "cascade_delete", "created_at", "updated_at",
	}
}

func relationshipRow(id string, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(relationshipColumns()).AddRow(
		id, "e1", "e2", model.RelOneToMany,
		nil, nil, nil, nil,
		false, false, now, now,
	)
}

func TestRelationshipRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)
	now := time.Now().UTC()

	mock.ExpectExec("insert into entity_relationships").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`select \* from entity_relationships where id = \?`).
		WithArgs("r1").
		WillReturnRows(relationshipRow("r1", now))

	got, err := repo.Create(context.Background(), &model.EntityRelationship{
		ID:               "r1",
		SourceEntityID:   "e1",
		TargetEntityID:   "e2",
		RelationshipType: model.RelOneToMany,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.RelOneToMany, got.RelationshipType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationshipRepoFindByEntity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)
	now := time.Now().UTC()

	// сущность матчится и как source, и как target
	mock.ExpectQuery(`source_entity_id = \? or target_entity_id = \?`).
		WithArgs("e1", "e1").
		WillReturnRows(relationshipRow("r1", now))

	out, err := repo.FindByEntity(context.Background(), "e1")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestRelationshipRepoExistsBetweenEntities(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	mock.ExpectQuery(`source_entity_id = \? and target_entity_id = \? and id <> \?`).
		WithArgs("e1", "e2", "").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsBetweenEntities(context.Background(), "e1", "e2", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelationshipRepoFindWithEntityDetails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)
	now := time.Now().UTC()

	cols := append(relationshipColumns(),
		"source_entity_name", "target_entity_name",
		"source_project_id", "target_project_id",
		"source_project_name", "target_project_name")
	mock.ExpectQuery(`join entities se on se.id = r.source_entity_id`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"r1", "e1", "e2", model.RelOneToMany,
			nil, nil, nil, nil, false, false, now, now,
			"User", "Order", "p1", "p1", "Shop", "Shop"))

	out, err := repo.FindWithEntityDetails(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "User", out[0].SourceEntityName)
	assert.Equal(t, "Shop", out[0].TargetProjectName)
}

func TestRelationshipRepoUpdateEmptyPatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`select \* from entity_relationships where id = \?`).
		WithArgs("r1").
		WillReturnRows(relationshipRow("r1", now))

	got, err := repo.Update(context.Background(), "r1", model.RelationshipPatch{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationshipRepoDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRelationshipRepo(db)

	mock.ExpectExec(`delete from entity_relationships where id = \?`).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Delete(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, ok)
}
