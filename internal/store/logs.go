package store

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"oroya/internal/model"
)

type LogRepo struct {
	db *sqlx.DB
}

func NewLogRepo(db *sqlx.DB) *LogRepo { return &LogRepo{db: db} }

func (r *LogRepo) Insert(ctx context.Context, l *model.APILog) error {
	q := r.db.Rebind(`insert into api_logs (
		id, request_id, method, path, status, duration_ms, level,
		project_id, client_ip, message, created_at
	) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.RequestID, l.Method, l.Path, l.Status, l.DurationMs, l.Level,
		l.ProjectID, l.ClientIP, l.Message, l.CreatedAt)
	return wrap("insert", "api_logs", err)
}

// LogQuery — фильтры и пагинация для /api/analytics/logs.
type LogQuery struct {
	Page   int
	Limit  int
	Method string
	Status int
	Level  string
	Path   string
}

// Search отдаёт страницу журналов и общий счётчик под теми же фильтрами.
func (r *LogRepo) Search(ctx context.Context, q LogQuery) ([]model.APILog, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 500 {
		q.Limit = 50
	}

	cond := squirrel.And{}
	if q.Method != "" {
		cond = append(cond, squirrel.Eq{"method": q.Method})
	}
	if q.Status != 0 {
		cond = append(cond, squirrel.Eq{"status": q.Status})
	}
	if q.Level != "" {
		cond = append(cond, squirrel.Eq{"level": q.Level})
	}
	if q.Path != "" {
		cond = append(cond, squirrel.Like{"path": "%" + q.Path + "%"})
	}

	countSQL, countArgs, err := squirrel.Select("count(*)").From("api_logs").Where(cond).ToSql()
	if err != nil {
		return nil, 0, wrap("search", "api_logs", err)
	}
	var total int64
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(countSQL), countArgs...); err != nil {
		return nil, 0, wrap("search", "api_logs", err)
	}

	pageSQL, pageArgs, err := squirrel.Select("*").From("api_logs").Where(cond).
		OrderBy("created_at desc").
		Limit(uint64(q.Limit)).
		Offset(uint64((q.Page - 1) * q.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, wrap("search", "api_logs", err)
	}
	rows := []model.APILog{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(pageSQL), pageArgs...); err != nil {
		return nil, 0, wrap("search", "api_logs", err)
	}
	return rows, total, nil
}

type StatusCount struct {
	Status int   `db:"status" json:"status"`
	Count  int64 `db:"cnt" json:"count"`
}

type PathCount struct {
	Path  string `db:"path" json:"path"`
	Count int64  `db:"cnt" json:"count"`
}

type LogStats struct {
	TotalRequests int64         `json:"totalRequests"`
	ErrorCount    int64         `json:"errorCount"`
	AvgDurationMs float64       `json:"avgDurationMs"`
	StatusCounts  []StatusCount `json:"statusCounts"`
	TopPaths      []PathCount   `json:"topPaths"`
}

// Stats — агрегаты по журналу запросов начиная с since.
func (r *LogRepo) Stats(ctx context.Context, since time.Time) (*LogStats, error) {
	out := &LogStats{}

	row := r.db.QueryRowxContext(ctx, r.db.Rebind(`select
		count(*),
		coalesce(sum(case when status >= 400 then 1 else 0 end), 0),
		coalesce(avg(duration_ms), 0)
	from api_logs where created_at >= ?`), since)
	if err := row.Scan(&out.TotalRequests, &out.ErrorCount, &out.AvgDurationMs); err != nil {
		return nil, wrap("stats", "api_logs", err)
	}

	out.StatusCounts = []StatusCount{}
	err := r.db.SelectContext(ctx, &out.StatusCounts,
		r.db.Rebind(`select status, count(*) as cnt from api_logs
			where created_at >= ? group by status order by cnt desc`), since)
	if err != nil {
		return nil, wrap("stats", "api_logs", err)
	}

	out.TopPaths = []PathCount{}
	err = r.db.SelectContext(ctx, &out.TopPaths,
		r.db.Rebind(`select path, count(*) as cnt from api_logs
			where created_at >= ? group by path order by cnt desc limit 10`), since)
	if err != nil {
		return nil, wrap("stats", "api_logs", err)
	}
	return out, nil
}
