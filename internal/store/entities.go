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

type EntityRepo struct {
	db *sqlx.DB
}

func NewEntityRepo(db *sqlx.DB) *EntityRepo { return &EntityRepo{db: db} }

func (r *EntityRepo) Create(ctx context.Context, e *model.Entity) (*model.Entity, error) {
	now := time.Now().UTC()
	q := r.db.Rebind(`insert into entities (id, project_id, name, description, created_at, updated_at)
		values (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, e.ID, e.ProjectID, e.Name, e.Description, now, now); err != nil {
		return nil, wrap("create", "entities", err)
	}
	return r.FindByID(ctx, e.ID)
}

func (r *EntityRepo) FindByID(ctx context.Context, id string) (*model.Entity, error) {
	var e model.Entity
	err := r.db.GetContext(ctx, &e, r.db.Rebind(`select * from entities where id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find", "entities", err)
	}
	return &e, nil
}

func (r *EntityRepo) FindByProject(ctx context.Context, projectID string) ([]model.Entity, error) {
	out := []model.Entity{}
	err := r.db.SelectContext(ctx, &out,
		r.db.Rebind(`select * from entities where project_id = ? order by created_at`), projectID)
	if err != nil {
		return nil, wrap("list", "entities", err)
	}
	return out, nil
}

// NamesLower — имена сущностей проекта в нижнем регистре; дубли считаются
// только в рамках проекта-владельца.
func (r *EntityRepo) NamesLower(ctx context.Context, projectID, excludeID string) ([]string, error) {
	out := []string{}
	err := r.db.SelectContext(ctx, &out,
		r.db.Rebind(`select lower(name) from entities where project_id = ? and id <> ?`),
		projectID, excludeID)
	if err != nil {
		return nil, wrap("names", "entities", err)
	}
	return out, nil
}

func (r *EntityRepo) Update(ctx context.Context, id string, patch model.EntityPatch) (*model.Entity, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	b := squirrel.Update("entities").Set("updated_at", time.Now().UTC())
	if patch.Name != nil {
		b = b.Set("name", *patch.Name)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}
	qs, args, err := b.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, wrap("update", "entities", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(qs), args...)
	if err != nil {
		return nil, wrap("update", "entities", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *EntityRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`delete from entities where id = ?`), id)
	if err != nil {
		return false, wrap("delete", "entities", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *EntityRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		r.db.Rebind(`select exists (select 1 from entities where id = ?)`), id)
	if err != nil {
		return false, wrap("exists", "entities", err)
	}
	return ok, nil
}
