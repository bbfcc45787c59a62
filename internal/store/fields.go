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

type FieldRepo struct {
	db *sqlx.DB
}

func NewFieldRepo(db *sqlx.DB) *FieldRepo { return &FieldRepo{db: db} }

const fieldInsert = `insert into fields (
	id, entity_id, name, type, required, is_unique, default_value, max_length,
	description, accepts_multiple, max_file_size, allowed_extensions,
	is_foreign_key, foreign_entity_id, foreign_field_id, created_at, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func fieldInsertArgs(f *model.Field, now time.Time) []interface{} {
	return []interface{}{
		f.ID, f.EntityID, f.Name, f.Type, f.Required, f.IsUnique, f.DefaultValue,
		f.MaxLength, f.Description, f.AcceptsMultiple, f.MaxFileSize,
		f.AllowedExtensions, f.IsForeignKey, f.ForeignEntityID, f.ForeignFieldID,
		now, now,
	}
}

func (r *FieldRepo) Create(ctx context.Context, f *model.Field) (*model.Field, error) {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(fieldInsert), fieldInsertArgs(f, now)...); err != nil {
		return nil, wrap("create", "fields", err)
	}
	return r.FindByID(ctx, f.ID)
}

// CreateChecked валидирует FK-триаду и вставляет поле одной транзакцией:
// между проверкой существования цели и insert'ом никто не успеет её снести.
func (r *FieldRepo) CreateChecked(ctx context.Context, f *model.Field) (*model.Field, error) {
	if f.IsForeignKey {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, wrap("create", "fields", err)
		}
		defer tx.Rollback()

		var ok bool
		err = tx.GetContext(ctx, &ok,
			tx.Rebind(`select exists (select 1 from entities where id = ?)`), *f.ForeignEntityID)
		if err != nil {
			return nil, wrap("create", "fields", err)
		}
		if !ok {
			return nil, ErrForeignEntityMissing
		}

		var ownerEntity string
		err = tx.GetContext(ctx, &ownerEntity,
			tx.Rebind(`select entity_id from fields where id = ?`), *f.ForeignFieldID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrForeignFieldMissing
		}
		if err != nil {
			return nil, wrap("create", "fields", err)
		}
		if ownerEntity != *f.ForeignEntityID {
			return nil, ErrForeignFieldMismatch
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, tx.Rebind(fieldInsert), fieldInsertArgs(f, now)...); err != nil {
			return nil, wrap("create", "fields", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, wrap("create", "fields", err)
		}
		return r.FindByID(ctx, f.ID)
	}
	return r.Create(ctx, f)
}

func (r *FieldRepo) FindByID(ctx context.Context, id string) (*model.Field, error) {
	var f model.Field
	err := r.db.GetContext(ctx, &f, r.db.Rebind(`select * from fields where id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find", "fields", err)
	}
	return &f, nil
}

func (r *FieldRepo) FindByEntity(ctx context.Context, entityID string) ([]model.Field, error) {
	out := []model.Field{}
	err := r.db.SelectContext(ctx, &out,
		r.db.Rebind(`select * from fields where entity_id = ? order by created_at`), entityID)
	if err != nil {
		return nil, wrap("list", "fields", err)
	}
	return out, nil
}

func (r *FieldRepo) NamesLower(ctx context.Context, entityID, excludeID string) ([]string, error) {
	out := []string{}
	err := r.db.SelectContext(ctx, &out,
		r.db.Rebind(`select lower(name) from fields where entity_id = ? and id <> ?`),
		entityID, excludeID)
	if err != nil {
		return nil, wrap("names", "fields", err)
	}
	return out, nil
}

func (r *FieldRepo) Update(ctx context.Context, id string, patch model.FieldPatch) (*model.Field, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	b := squirrel.Update("fields").Set("updated_at", time.Now().UTC())
	if patch.Name != nil {
		b = b.Set("name", *patch.Name)
	}
	if patch.Type != nil {
		b = b.Set("type", *patch.Type)
	}
	if patch.Required != nil {
		b = b.Set("required", *patch.Required)
	}
	if patch.IsUnique != nil {
		b = b.Set("is_unique", *patch.IsUnique)
	}
	if patch.DefaultValue != nil {
		b = b.Set("default_value", *patch.DefaultValue)
	}
	if patch.MaxLength != nil {
		b = b.Set("max_length", *patch.MaxLength)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}
	if patch.AcceptsMultiple != nil {
		b = b.Set("accepts_multiple", *patch.AcceptsMultiple)
	}
	if patch.MaxFileSize != nil {
		b = b.Set("max_file_size", *patch.MaxFileSize)
	}
	if patch.AllowedExtensions != nil {
		b = b.Set("allowed_extensions", *patch.AllowedExtensions)
	}
	if patch.IsForeignKey != nil {
		b = b.Set("is_foreign_key", *patch.IsForeignKey)
		// FK выключили — ссылки обнуляем той же командой
		if !*patch.IsForeignKey {
			b = b.Set("foreign_entity_id", nil).Set("foreign_field_id", nil)
		}
	}
	if patch.ForeignEntityID != nil {
		b = b.Set("foreign_entity_id", *patch.ForeignEntityID)
	}
	if patch.ForeignFieldID != nil {
		b = b.Set("foreign_field_id", *patch.ForeignFieldID)
	}
	qs, args, err := b.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, wrap("update", "fields", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(qs), args...)
	if err != nil {
		return nil, wrap("update", "fields", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *FieldRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`delete from fields where id = ?`), id)
	if err != nil {
		return false, wrap("delete", "fields", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *FieldRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		r.db.Rebind(`select exists (select 1 from fields where id = ?)`), id)
	if err != nil {
		return false, wrap("exists", "fields", err)
	}
	return ok, nil
}
