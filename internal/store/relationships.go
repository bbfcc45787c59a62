package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"oroya/internal/model"
)

type RelationshipRepo struct {
	db *sqlx.DB
}

func NewRelationshipRepo(db *sqlx.DB) *RelationshipRepo { return &RelationshipRepo{db: db} }

func (r *RelationshipRepo) Create(ctx context.Context, rel *model.EntityRelationship) (*model.EntityRelationship, error) {
	now := time.Now().UTC()
	q := r.db.Rebind(`insert into entity_relationships (
		id, source_entity_id, target_entity_id, relationship_type,
		source_field_id, target_field_id, name, description,
		is_required, cascade_delete, created_at, updated_at
	) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		rel.ID, rel.SourceEntityID, rel.TargetEntityID, rel.RelationshipType,
		rel.SourceFieldID, rel.TargetFieldID, rel.Name, rel.Description,
		rel.IsRequired, rel.CascadeDelete, now, now)
	if err != nil {
		return nil, wrap("create", "entity_relationships", err)
	}
	return r.FindByID(ctx, rel.ID)
}

func (r *RelationshipRepo) FindByID(ctx context.Context, id string) (*model.EntityRelationship, error) {
	var rel model.EntityRelationship
	err := r.db.GetContext(ctx, &rel,
		r.db.Rebind(`select * from entity_relationships where id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find", "entity_relationships", err)
	}
	return &rel, nil
}

func (r *RelationshipRepo) FindAll(ctx context.Context) ([]model.EntityRelationship, error) {
	out := []model.EntityRelationship{}
	err := r.db.SelectContext(ctx, &out,
		`select * from entity_relationships order by created_at`)
	if err != nil {
		return nil, wrap("list", "entity_relationships", err)
	}
	return out, nil
}

// FindByEntity — рёбра, где сущность стоит с любой стороны.
func (r *RelationshipRepo) FindByEntity(ctx context.Context, entityID string) ([]model.EntityRelationship, error) {
	out := []model.EntityRelationship{}
	err := r.db.SelectContext(ctx, &out,
		r.db.Rebind(`select * from entity_relationships
			where source_entity_id = ? or target_entity_id = ?
			order by created_at`), entityID, entityID)
	if err != nil {
		return nil, wrap("list", "entity_relationships", err)
	}
	return out, nil
}

// ExistsBetweenEntities — есть ли уже ребро между парой сущностей (в любом
// порядке не считаем: направление значимо). excludeID — для проверок при update.
func (r *RelationshipRepo) ExistsBetweenEntities(ctx context.Context, sourceID, targetID, excludeID string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		r.db.Rebind(`select exists (
			select 1 from entity_relationships
			where source_entity_id = ? and target_entity_id = ? and id <> ?)`),
		sourceID, targetID, excludeID)
	if err != nil {
		return false, wrap("exists", "entity_relationships", err)
	}
	return ok, nil
}

// FindWithEntityDetails — денормализованный список для UI: имена сущностей
// и их проекты подтянуты джойнами.
func (r *RelationshipRepo) FindWithEntityDetails(ctx context.Context) ([]model.RelationshipDetails, error) {
	out := []model.RelationshipDetails{}
	err := r.db.SelectContext(ctx, &out, `select
		r.*,
		se.name as source_entity_name,
		te.name as target_entity_name,
		se.project_id as source_project_id,
		te.project_id as target_project_id,
		sp.name as source_project_name,
		tp.name as target_project_name
	from entity_relationships r
	join entities se on se.id = r.source_entity_id
	join entities te on te.id = r.target_entity_id
	join projects sp on sp.id = se.project_id
	join projects tp on tp.id = te.project_id
	order by r.created_at`)
	if err != nil {
		return nil, wrap("details", "entity_relationships", err)
	}
	return out, nil
}

func (r *RelationshipRepo) Update(ctx context.Context, id string, patch model.RelationshipPatch) (*model.EntityRelationship, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	b := squirrel.Update("entity_relationships").Set("updated_at", time.Now().UTC())
	if patch.RelationshipType != nil {
		b = b.Set("relationship_type", *patch.RelationshipType)
	}
	if patch.SourceFieldID != nil {
		b = b.Set("source_field_id", *patch.SourceFieldID)
	}
	if patch.TargetFieldID != nil {
		b = b.Set("target_field_id", *patch.TargetFieldID)
	}
	if patch.Name != nil {
		b = b.Set("name", *patch.Name)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}
	if patch.IsRequired != nil {
		b = b.Set("is_required", *patch.IsRequired)
	}
	if patch.CascadeDelete != nil {
		b = b.Set("cascade_delete", *patch.CascadeDelete)
	}
	qs, args, err := b.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, wrap("update", "entity_relationships", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(qs), args...)
	if err != nil {
		return nil, wrap("update", "entity_relationships", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *RelationshipRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`delete from entity_relationships where id = ?`), id)
	if err != nil {
		return false, wrap("delete", "entity_relationships", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *RelationshipRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		r.db.Rebind(`select exists (select 1 from entity_relationships where id = ?)`), id)
	if err != nil {
		return false, wrap("exists", "entity_relationships", err)
	}
	return ok, nil
}
