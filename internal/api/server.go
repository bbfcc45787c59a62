package api

import (
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"oroya/internal/blob"
	"oroya/internal/config"
	"oroya/internal/logstream"
	"oroya/internal/store"
)

// Server держит все зависимости хендлеров. Состояния между запросами нет —
// всё живёт в базе; сам Server после конструирования только читается.
type Server struct {
	Cfg config.Config
	Log zerolog.Logger

	Projects      *store.ProjectRepo
	Entities      *store.EntityRepo
	Fields        *store.FieldRepo
	Relationships *store.RelationshipRepo
	Files         *store.FileRepo
	Logs          *store.LogRepo

	Blob blob.Store
	Hub  *logstream.Hub
}

func NewServer(cfg config.Config, log zerolog.Logger, db *sqlx.DB, b blob.Store, hub *logstream.Hub) *Server {
	return &Server{
		Cfg: cfg,
		Log: log,

		Projects:      store.NewProjectRepo(db),
		Entities:      store.NewEntityRepo(db),
		Fields:        store.NewFieldRepo(db),
		Relationships: store.NewRelationshipRepo(db),
		Files:         store.NewFileRepo(db),
		Logs:          store.NewLogRepo(db),

		Blob: b,
		Hub:  hub,
	}
}
