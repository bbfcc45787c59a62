package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"oroya/internal/model"
	"oroya/internal/store"
	"oroya/internal/validate"
)

// ProjectSeed — описание проекта в yaml-файле затравки.
// Один файл = один проект со всеми сущностями и полями.
type ProjectSeed struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Entities    []EntitySeed `yaml:"entities"`
}

type EntitySeed struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Fields      []FieldSeed `yaml:"fields"`
}

type FieldSeed struct {
	Name              string  `yaml:"name"`
	Type              string  `yaml:"type"`
	Required          bool    `yaml:"required"`
	IsUnique          bool    `yaml:"isUnique"`
	DefaultValue      *string `yaml:"defaultValue"`
	MaxLength         *int    `yaml:"maxLength"`
	Description       *string `yaml:"description"`
	MaxFileSize       *int64  `yaml:"maxFileSize"`
	AllowedExtensions *string `yaml:"allowedExtensions"`
}

// LoadDir читает все yaml-файлы из каталога затравки.
func LoadDir(dir string) ([]ProjectSeed, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []ProjectSeed
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if !strings.HasSuffix(file.Name(), ".yaml") && !strings.HasSuffix(file.Name(), ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		var ps ProjectSeed
		if err := yaml.Unmarshal(data, &ps); err != nil {
			return nil, fmt.Errorf("seed %s: %w", file.Name(), err)
		}
		// имя проекта — из yaml или из имени файла
		if ps.Name == "" {
			ps.Name = strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		}
		out = append(out, ps)
	}
	return out, nil
}

// Apply заливает затравку в базу. Уже существующие проекты (по имени,
// без учёта регистра) пропускаем — повторный старт ничего не дублирует.
func Apply(ctx context.Context, db *sqlx.DB, log zerolog.Logger, seeds []ProjectSeed) error {
	projects := store.NewProjectRepo(db)
	entities := store.NewEntityRepo(db)
	fields := store.NewFieldRepo(db)

	existing, err := projects.NamesLower(ctx, "")
	if err != nil {
		return err
	}
	taken := validate.LowerSet(existing)

	for _, ps := range seeds {
		if fe := validate.ProjectName(ps.Name, taken); fe != nil {
			if fe.Code == validate.ErrDuplicateName {
				log.Debug().Str("project", ps.Name).Msg("seed: project exists, skipping")
				continue
			}
			return fmt.Errorf("seed project %q: %s", ps.Name, fe.Message)
		}

		p, err := projects.Create(ctx, &model.Project{
			ID:          model.NewID(),
			Name:        strings.TrimSpace(ps.Name),
			Description: ps.Description,
		})
		if err != nil {
			return err
		}
		taken[strings.ToLower(strings.TrimSpace(ps.Name))] = struct{}{}

		entityNames := map[string]struct{}{}
		for _, es := range ps.Entities {
			if fe := validate.EntityName(es.Name, entityNames); fe != nil {
				return fmt.Errorf("seed entity %q in %q: %s", es.Name, ps.Name, fe.Message)
			}
			e, err := entities.Create(ctx, &model.Entity{
				ID:          model.NewID(),
				ProjectID:   p.ID,
				Name:        strings.TrimSpace(es.Name),
				Description: es.Description,
			})
			if err != nil {
				return err
			}
			entityNames[strings.ToLower(strings.TrimSpace(es.Name))] = struct{}{}

			fieldNames := map[string]struct{}{}
			for _, fs := range es.Fields {
				if fe := validate.FieldName(fs.Name, fieldNames); fe != nil {
					return fmt.Errorf("seed field %q in %q: %s", fs.Name, es.Name, fe.Message)
				}
				f := &model.Field{
					ID:                model.NewID(),
					EntityID:          e.ID,
					Name:              strings.TrimSpace(fs.Name),
					Type:              fs.Type,
					Required:          fs.Required,
					IsUnique:          fs.IsUnique,
					DefaultValue:      fs.DefaultValue,
					MaxLength:         fs.MaxLength,
					Description:       fs.Description,
					MaxFileSize:       fs.MaxFileSize,
					AllowedExtensions: fs.AllowedExtensions,
				}
				if errs := validate.FieldPayload(f); len(errs) > 0 {
					return fmt.Errorf("seed field %q in %q: %s", fs.Name, es.Name, errs[0].Message)
				}
				if _, err := fields.Create(ctx, f); err != nil {
					return err
				}
				fieldNames[strings.ToLower(strings.TrimSpace(fs.Name))] = struct{}{}
			}
		}
		log.Info().Str("project", p.Name).Int("entities", len(ps.Entities)).Msg("seed: project loaded")
	}
	return nil
}
