package config

import (
	"os"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobBasePath string // fs store root: model snapshots, archived reports

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	ModelName      string
	ModelBackend   string // linear|remote
	ModelServerURL string
	ModelTimeout   time.Duration
	ModelDayOffset bool // use the day offset as a model feature

	AMQPURL   string // optional; events also go to the broker when set
	AMQPQueue string

	Location *time.Location // decides "today"
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		BlobBasePath:       envOr("BLOB_BASE_PATH", "./data"),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassHash:      envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://progress.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010"),
		ModelName:          envOr("MODEL_NAME", "default"),
		ModelBackend:       envOr("MODEL_BACKEND", "linear"),
		ModelServerURL:     envOr("MODEL_SERVER_URL", "http://localhost:8500"),
		ModelTimeout:       envDuration("MODEL_TIMEOUT", 30*time.Second),
		ModelDayOffset:     envBool("MODEL_DAY_OFFSET", false),
		AMQPURL:            os.Getenv("AMQP_URL"),
		AMQPQueue:          envOr("AMQP_QUEUE", "progress.events"),
		Location:           envLocation("TIMEZONE", "Europe/Vienna"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
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
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func envLocation(k, def string) *time.Location {
	loc, err := time.LoadLocation(envOr(k, def))
	if err != nil {
		return time.Local
	}
	return loc
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
