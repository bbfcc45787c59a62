package store

// Схема фиксированная: каталожные таблицы Oroya, не пользовательские данные.
// FK объявлены на уровне базы; каскад Project→Entity→Field и зачистка
// связей/привязок файлов решаются здесь же, а не кодом обходов.
var Schema = []string{
	`create table if not exists projects (
  id          text primary key,
  name        text not null,
  description text not null default '',
  created_at  timestamp not null,
  updated_at  timestamp not null
);`,
	`create unique index if not exists projects_name_ci_uq on projects (lower(name));`,

	`create table if not exists entities (
  id          text primary key,
  project_id  text not null references projects(id) on delete cascade,
  name        text not null,
  description text not null default '',
  created_at  timestamp not null,
  updated_at  timestamp not null
);`,
	`create unique index if not exists entities_project_name_ci_uq on entities (project_id, lower(name));`,

	`create table if not exists fields (
  id                 text primary key,
  entity_id          text not null references entities(id) on delete cascade,
  name               text not null,
  type               text not null,
  required           boolean not null default false,
  is_unique          boolean not null default false,
  default_value      text,
  max_length         integer,
  description        text,
  accepts_multiple   boolean not null default false,
  max_file_size      bigint,
  allowed_extensions text,
  is_foreign_key     boolean not null default false,
  foreign_entity_id  text references entities(id) on delete set null,
  foreign_field_id   text references fields(id) on delete set null,
  created_at         timestamp not null,
  updated_at         timestamp not null
);`,
	`create unique index if not exists fields_entity_name_ci_uq on fields (entity_id, lower(name));`,

	`create table if not exists entity_relationships (
  id                text primary key,
  source_entity_id  text not null references entities(id) on delete cascade,
  target_entity_id  text not null references entities(id) on delete cascade,
  relationship_type text not null,
  source_field_id   text references fields(id) on delete set null,
  target_field_id   text references fields(id) on delete set null,
  name              text,
  description       text,
  is_required       boolean not null default false,
  cascade_delete    boolean not null default false,
  created_at        timestamp not null,
  updated_at        timestamp not null
);`,

	`create table if not exists files (
  id              text primary key,
  original_name   text not null,
  filename        text not null,
  mimetype        text not null,
  size            bigint not null,
  path            text not null,
  is_image        boolean not null default false,
  width           integer,
  height          integer,
  compressed_path text,
  thumbnail_path  text,
  checksum        text not null default '',
  created_at      timestamp not null,
  updated_at      timestamp not null
);`,

	`create table if not exists field_files (
  id        text primary key,
  field_id  text not null references fields(id) on delete cascade,
  record_id text not null,
  file_id   text not null references files(id) on delete cascade
);`,
	`create index if not exists field_files_file_idx on field_files (file_id);`,
	`create index if not exists field_files_pair_idx on field_files (field_id, record_id);`,

	`create table if not exists api_logs (
  id          text primary key,
  request_id  text not null,
  method      text not null,
  path        text not null,
  status      integer not null,
  duration_ms bigint not null,
  level       text not null,
  project_id  text,
  client_ip   text not null default '',
  message     text not null default '',
  created_at  timestamp not null
);`,
	`create index if not exists api_logs_created_idx on api_logs (created_at);`,
}
