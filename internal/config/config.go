package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"exam-session"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat               string        `env:"LOG_FORMAT" envDefault:"auto"`

	Postgres    Postgres
	Redis       Redis
	Security    Security
	Session     Session
	Catalog     Catalog
	Proctor     Proctor
	Leaderboard Leaderboard
	CORS        CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// ConnString renders a plain libpq-style connection string.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// DSN renders the pgxpool connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("%s pool_max_conns=%d", p.ConnString(), p.MaxConns)
}

// LoadPostgres parses only the database settings, for tooling such as the migrator.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Postgres{}, fmt.Errorf("parse postgres config: %w", err)
	}
	return pg, nil
}

// Redis holds cache + queue configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for token validation.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"exam-session"`
}

// Session groups test-taking defaults.
type Session struct {
	TickInterval   time.Duration `env:"SESSION_TICK_INTERVAL" envDefault:"1s"`
	SubmitTimeout  time.Duration `env:"SESSION_SUBMIT_TIMEOUT" envDefault:"15s"`
	DraftInterval  time.Duration `env:"SESSION_DRAFT_INTERVAL" envDefault:"0s"`
	DraftTTL       time.Duration `env:"SESSION_DRAFT_TTL" envDefault:"24h"`
	LockTTL        time.Duration `env:"SESSION_SUBMIT_LOCK_TTL" envDefault:"30s"`
	ReviewWindow   time.Duration `env:"SESSION_REVIEW_WINDOW" envDefault:"30m"`
	IdleTimeout    time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"6h"`
	SweepInterval  time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	MaxQuestions   int           `env:"SESSION_DEFAULT_MAX_QUESTIONS" envDefault:"0"`
	RecordOnSubmit bool          `env:"SESSION_RECORD_LEADERBOARD" envDefault:"true"`
}

// Catalog controls test data caching.
type Catalog struct {
	CacheTTL    time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"10m"`
	LoadTimeout time.Duration `env:"CATALOG_LOAD_TIMEOUT" envDefault:"4s"`
}

// Proctor configures the violation queue worker.
type Proctor struct {
	QueueKey     string        `env:"PROCTOR_QUEUE_KEY" envDefault:"proctor:violations"`
	BatchSize    int           `env:"PROCTOR_BATCH_SIZE" envDefault:"200"`
	BatchTimeout time.Duration `env:"PROCTOR_BATCH_TIMEOUT" envDefault:"2s"`
}

// Leaderboard governs snapshotting and broadcast behavior.
type Leaderboard struct {
	SnapshotInterval time.Duration `env:"LEADERBOARD_SNAPSHOT_INTERVAL" envDefault:"5m"`
	SnapshotTopN     int           `env:"LEADERBOARD_SNAPSHOT_TOP" envDefault:"50"`
	PubSubChannel    string        `env:"LEADERBOARD_PUBSUB_CHANNEL" envDefault:"lb:updates"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Session.SubmitTimeout <= 0 {
		return nil, fmt.Errorf("SESSION_SUBMIT_TIMEOUT must be positive")
	}
	return cfg, nil
}
