package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite (pure Go)
)

// Open подключает базу: пустой url = локальный SQLite-файл, иначе Postgres.
// Все репозитории пишут запросы с '?' и прогоняют их через Rebind,
// поэтому оба драйвера обслуживаются одним кодом.
func Open(dbURL, sqlitePath string) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	if strings.TrimSpace(dbURL) == "" {
		dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqlitePath)
		db, err = sqlx.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// SQLite — один писатель; пул сверх этого только плодит SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db, err = sqlx.Open("pgx", dbURL)
		if err != nil {
			return nil, err
		}
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ApplyDDL выполняет стейтменты по порядку. Ожидается idempotent DDL
// (create ... if not exists), но "already exists" на всякий случай глотаем.
func ApplyDDL(db *sqlx.DB, stmts []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, s); err != nil {
			e := strings.ToLower(err.Error())
			if strings.Contains(e, "already exists") || strings.Contains(e, "duplicate") {
				continue
			}
			return fmt.Errorf("DDL apply failed: %w", err)
		}
	}
	return nil
}
