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

type FileRepo struct {
	db *sqlx.DB
}

func NewFileRepo(db *sqlx.DB) *FileRepo { return &FileRepo{db: db} }

func (r *FileRepo) Create(ctx context.Context, f *model.FileRecord) (*model.FileRecord, error) {
	now := time.Now().UTC()
	q := r.db.Rebind(`insert into files (
		id, original_name, filename, mimetype, size, path, is_image,
		width, height, compressed_path, thumbnail_path, checksum,
		created_at, updated_at
	) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		f.ID, f.OriginalName, f.Filename, f.Mimetype, f.Size, f.Path, f.IsImage,
		f.Width, f.Height, f.CompressedPath, f.ThumbnailPath, f.Checksum, now, now)
	if err != nil {
		return nil, wrap("create", "files", err)
	}
	return r.FindByID(ctx, f.ID)
}

func (r *FileRepo) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	var f model.FileRecord
	err := r.db.GetContext(ctx, &f, r.db.Rebind(`select * from files where id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find", "files", err)
	}
	return &f, nil
}

func (r *FileRepo) FindAll(ctx context.Context) ([]model.FileRecord, error) {
	out := []model.FileRecord{}
	err := r.db.SelectContext(ctx, &out, `select * from files order by created_at`)
	if err != nil {
		return nil, wrap("list", "files", err)
	}
	return out, nil
}

// FindOrphans — файлы без единой привязки в field_files.
func (r *FileRepo) FindOrphans(ctx context.Context) ([]model.FileRecord, error) {
	out := []model.FileRecord{}
	err := r.db.SelectContext(ctx, &out, `select f.* from files f
		left join field_files ff on ff.file_id = f.id
		where ff.id is null
		order by f.created_at`)
	if err != nil {
		return nil, wrap("orphans", "files", err)
	}
	return out, nil
}

func (r *FileRepo) Update(ctx context.Context, id string, patch model.FilePatch) (*model.FileRecord, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	b := squirrel.Update("files").Set("updated_at", time.Now().UTC())
	if patch.Width != nil {
		b = b.Set("width", *patch.Width)
	}
	if patch.Height != nil {
		b = b.Set("height", *patch.Height)
	}
	if patch.CompressedPath != nil {
		b = b.Set("compressed_path", *patch.CompressedPath)
	}
	if patch.ThumbnailPath != nil {
		b = b.Set("thumbnail_path", *patch.ThumbnailPath)
	}
	qs, args, err := b.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, wrap("update", "files", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(qs), args...)
	if err != nil {
		return nil, wrap("update", "files", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *FileRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`delete from files where id = ?`), id)
	if err != nil {
		return false, wrap("delete", "files", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *FileRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		r.db.Rebind(`select exists (select 1 from files where id = ?)`), id)
	if err != nil {
		return false, wrap("exists", "files", err)
	}
	return ok, nil
}

// Associate привязывает файл к паре (field, record).
func (r *FileRepo) Associate(ctx context.Context, link model.FieldFileLink) error {
	q := r.db.Rebind(`insert into field_files (id, field_id, record_id, file_id)
		values (?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, link.ID, link.FieldID, link.RecordID, link.FileID); err != nil {
		return wrap("associate", "field_files", err)
	}
	return nil
}

func (r *FileRepo) Dissociate(ctx context.Context, fieldID, recordID, fileID string) (bool, error) {
	q := r.db.Rebind(`delete from field_files where field_id = ? and record_id = ? and file_id = ?`)
	res, err := r.db.ExecContext(ctx, q, fieldID, recordID, fileID)
	if err != nil {
		return false, wrap("dissociate", "field_files", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *FileRepo) FindByFieldRecord(ctx context.Context, fieldID, recordID string) ([]model.FileRecord, error) {
	out := []model.FileRecord{}
	err := r.db.SelectContext(ctx, &out,
		r.db.Rebind(`select f.* from files f
			join field_files ff on ff.file_id = f.id
			where ff.field_id = ? and ff.record_id = ?
			order by f.created_at`), fieldID, recordID)
	if err != nil {
		return nil, wrap("list", "field_files", err)
	}
	return out, nil
}
