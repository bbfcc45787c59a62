package config

import (
	"encoding/json"
	"flag"
	"os"
	"strings"
)

type Config struct {
	Port       string `json:"port"`
	DBURL      string `json:"dbUrl"`      // пустой = локальный SQLite
	SQLitePath string `json:"sqlitePath"` // файл базы для SQLite
	SeedDir    string `json:"seedDir"`    // каталог с YAML-сидами ("" = не грузим)
	DevMode    bool   `json:"devMode"`    // в dev отдаём детали 500-х

	// Файлы (локально)
	FilesRoot string `json:"filesRoot"` // папка хранения загруженных файлов
}

func def() Config {
	return Config{
		Port:       "8080",
		DBURL:      "",
		SQLitePath: "oroya.db",
		SeedDir:    "",
		DevMode:    false,

		FilesRoot: "uploads",
	}
}

func loadJSON(path string) (Config, error) {
	c := def()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "1" || v == "true" || v == "yes" {
			return true
		}
		if v == "0" || v == "false" || v == "no" {
			return false
		}
	}
	return fallback
}

// LoadFile читает JSON по указанному пути (если он есть), потом применяет ENV.
// Флаги сюда не лезут — их накатывает Load, чтобы это можно было тестировать.
func LoadFile(jsonPath string) Config {
	cfg := def()

	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		if c2, err := loadJSON(jsonPath); err == nil {
			cfg = c2
		}
	}

	// ENV overrides
	cfg.Port = getenv("OROYA_PORT", cfg.Port)
	cfg.DBURL = getenv("OROYA_DB_URL", cfg.DBURL)
	cfg.SQLitePath = getenv("OROYA_SQLITE_PATH", cfg.SQLitePath)
	cfg.SeedDir = getenv("OROYA_SEED_DIR", cfg.SeedDir)
	cfg.DevMode = getenvBool("OROYA_DEV", cfg.DevMode)
	cfg.FilesRoot = getenv("OROYA_FILES_ROOT", cfg.FilesRoot)

	return cfg
}

// Load: JSON → ENV → флаги, последний слой побеждает.
func Load(jsonPath string) Config {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	return loadWithFlags(jsonPath, fs, os.Args[1:])
}

// loadWithFlags парсит args в переданный FlagSet. Поверх перечитанного
// конфига накатываются только явно переданные флаги: дефолты из первого
// JSON не должны затирать значения из -config другого файла.
func loadWithFlags(jsonPath string, fs *flag.FlagSet, args []string) Config {
	cfg := LoadFile(jsonPath)

	configPath := fs.String("config", jsonPath, "Path to config JSON")
	port := fs.String("port", cfg.Port, "HTTP port")
	db := fs.String("db", cfg.DBURL, "Postgres URL (empty = SQLite)")
	sqlite := fs.String("sqlite", cfg.SQLitePath, "SQLite database path")
	seed := fs.String("seed", cfg.SeedDir, "Seed catalog directory (empty = skip)")
	dev := fs.Bool("dev", cfg.DevMode, "Development mode (verbose errors)")
	files := fs.String("files-root", cfg.FilesRoot, "Local files root")

	if err := fs.Parse(args); err != nil {
		return cfg
	}

	// Если через флаг передали другой конфиг — перечитаем
	if *configPath != jsonPath {
		cfg = LoadFile(*configPath)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = strings.TrimSpace(*port)
		case "db":
			cfg.DBURL = strings.TrimSpace(*db)
		case "sqlite":
			cfg.SQLitePath = strings.TrimSpace(*sqlite)
		case "seed":
			cfg.SeedDir = strings.TrimSpace(*seed)
		case "dev":
			cfg.DevMode = *dev
		case "files-root":
			cfg.FilesRoot = strings.TrimSpace(*files)
		}
	})

	return cfg
}
