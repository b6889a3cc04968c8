package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"shelfaudit/internal/compliance/engine"
	dErrors "shelfaudit/pkg/domain-errors"
	pstrings "shelfaudit/pkg/platform/strings"
)

// Config is the full runtime configuration, read once at startup.
type Config struct {
	Server   Server
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Engine   EngineConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig selects Postgres storage. An empty URL means in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LoadTimeout     time.Duration
	SinkTimeout     time.Duration
	SinkMaxRetries  uint64
}

// RedisConfig enables distributed progress and run locking when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RunLockTTL   time.Duration
	ProgressTTL  time.Duration
}

// KafkaConfig enables verdict event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers           []string
	VerdictTopic      string
	Partitions        int32
	ReplicationFactor int16
}

type EngineConfig struct {
	SentinelProgram string
	DuplicateAudits engine.DuplicatePolicy
	Workers         int
	SinkBatchSize   int
	ProgressEvery   int
}

// Policy returns the engine policy described by the config.
func (e EngineConfig) Policy() engine.Policy {
	return engine.Policy{
		SentinelProgram: e.SentinelProgram,
		DuplicateAudits: e.DuplicateAudits,
	}
}

// FromEnv builds a Config from environment variables so main stays lean.
// Malformed values fall back to defaults; Validate reports the rest.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("SHELFAUDIT_ADDR", ":8080"),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			LoadTimeout:     envDuration("LOAD_TIMEOUT", 2*time.Minute),
			SinkTimeout:     envDuration("SINK_TIMEOUT", 30*time.Second),
			SinkMaxRetries:  uint64(envInt("SINK_MAX_RETRIES", 3)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			RunLockTTL:   envDuration("RUN_LOCK_TTL", 30*time.Minute),
			ProgressTTL:  envDuration("PROGRESS_TTL", 7*24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:           pstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			VerdictTopic:      envString("KAFKA_VERDICT_TOPIC", "shelfaudit.customer-verdicts"),
			Partitions:        int32(envInt("KAFKA_VERDICT_PARTITIONS", 6)),
			ReplicationFactor: int16(envInt("KAFKA_REPLICATION_FACTOR", 1)),
		},
		Engine: EngineConfig{
			SentinelProgram: envString("SENTINEL_PROGRAM", engine.DefaultSentinelProgram),
			DuplicateAudits: engine.DuplicatePolicy(envString("DUPLICATE_AUDIT_POLICY", string(engine.DuplicateReject))),
			Workers:         envInt("WORKERS", runtime.NumCPU()),
			SinkBatchSize:   envInt("SINK_BATCH_SIZE", 500),
			ProgressEvery:   envInt("PROGRESS_EVERY", 1000),
		},
	}
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Engine.Workers <= 0 {
		problems = append(problems, fmt.Sprintf("WORKERS must be positive, got %d", c.Engine.Workers))
	}
	if c.Engine.SinkBatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("SINK_BATCH_SIZE must be positive, got %d", c.Engine.SinkBatchSize))
	}
	if c.Engine.ProgressEvery <= 0 {
		problems = append(problems, fmt.Sprintf("PROGRESS_EVERY must be positive, got %d", c.Engine.ProgressEvery))
	}
	if !c.Engine.DuplicateAudits.IsValid() {
		problems = append(problems, fmt.Sprintf("DUPLICATE_AUDIT_POLICY must be reject or keep-last, got %q", c.Engine.DuplicateAudits))
	}
	if strings.TrimSpace(c.Engine.SentinelProgram) == "" {
		problems = append(problems, "SENTINEL_PROGRAM must not be empty")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.VerdictTopic == "" {
		problems = append(problems, "KAFKA_VERDICT_TOPIC must be set when KAFKA_BROKERS is")
	}
	if len(problems) > 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid configuration: "+strings.Join(problems, "; "))
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
