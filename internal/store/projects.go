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

// ProjectRepo — CRUD по таблице projects. Контракт одинаковый для всех
// репозиториев: Create вставляет и перечитывает каноничную строку,
// FindByID отдаёт nil без ошибки на промах, Update собирает SET только
// из заданных полей патча и возвращает nil для несуществующего id.
type ProjectRepo struct {
	db *sqlx.DB
}

func NewProjectRepo(db *sqlx.DB) *ProjectRepo { return &ProjectRepo{db: db} }

func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) (*model.Project, error) {
	now := time.Now().UTC()
	q := r.db.Rebind(`insert into projects (id, name, description, created_at, updated_at)
		values (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, p.ID, p.Name, p.Description, now, now); err != nil {
		return nil, wrap("create", "projects", err)
	}
	return r.FindByID(ctx, p.ID)
}

func (r *ProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := r.db.GetContext(ctx, &p, r.db.Rebind(`select * from projects where id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find", "projects", err)
	}
	return &p, nil
}

func (r *ProjectRepo) FindAll(ctx context.Context) ([]model.Project, error) {
	out := []model.Project{}
	err := r.db.SelectContext(ctx, &out, `select * from projects order by created_at`)
	if err != nil {
		return nil, wrap("list", "projects", err)
	}
	return out, nil
}

// NamesLower — имена всех проектов в нижнем регистре, для проверки дублей.
// excludeID выкидывает сам проект при переименовании.
func (r *ProjectRepo) NamesLower(ctx context.Context, excludeID string) ([]string, error) {
	out := []string{}
	err := r.db.SelectContext(ctx, &out,
		r.db.Rebind(`select lower(name) from projects where id <> ?`), excludeID)
	if err != nil {
		return nil, wrap("names", "projects", err)
	}
	return out, nil
}

func (r *ProjectRepo) Update(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error) {
	// пустой патч — это не ошибка, просто перечитываем текущее состояние
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	b := squirrel.Update("projects").Set("updated_at", time.Now().UTC())
	if patch.Name != nil {
		b = b.Set("name", *patch.Name)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}
	qs, args, err := b.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, wrap("update", "projects", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(qs), args...)
	if err != nil {
		return nil, wrap("update", "projects", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *ProjectRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`delete from projects where id = ?`), id)
	if err != nil {
		return false, wrap("delete", "projects", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ProjectRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		r.db.Rebind(`select exists (select 1 from projects where id = ?)`), id)
	if err != nil {
		return false, wrap("exists", "projects", err)
	}
	return ok, nil
}
