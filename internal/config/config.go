package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	StoreBackend string // json|sql
	DataDir      string // for the json backend and blob uploads

	OpenAIAPIKey string
	Model        string

	SliceBudget     int // chars of submission text per criterion call
	EvalConcurrency int // criteria evaluated in parallel

	EnableLocalAuth bool
	AuthSecret      string

	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:  addr,
		PublicURL: os.Getenv("PUBLIC_URL"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		StoreBackend: envOr("STORE_BACKEND", "json"),
		DataDir:      envOr("DATA_DIR", "./data"),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		Model:        envOr("EVAL_MODEL", "gpt-4o-mini"),

		SliceBudget:     envInt("SLICE_BUDGET", 6000),
		EvalConcurrency: envInt("EVAL_CONCURRENCY", 3),

		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		AuthSecret:      envOr("AUTH_SECRET", "dev-secret-change-me"),

		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}
func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
