package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port        string `yaml:"port" env:"PORT" env-default:"8080"`
	LogMode     string `yaml:"log_mode" env:"LOG_MODE" env-default:"development"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"local"`
	CORSOrigins string `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:""`
	MaxUploadMB int64  `yaml:"max_upload_mb" env:"MAX_UPLOAD_MB" env-default:"512"`

	Database  DatabaseConfig  `yaml:"database"`
	Worker    WorkerConfig    `yaml:"worker"`
	Retry     RetryConfig     `yaml:"retry"`
	Media     MediaConfig     `yaml:"media"`
	Storage   StorageConfig   `yaml:"storage"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	GCP       GCPConfig       `yaml:"gcp"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port         string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User         string `yaml:"user" env:"POSTGRES_USER" env-default:"postgres"`
	Password     string `yaml:"-" env:"POSTGRES_PASSWORD"`
	Name         string `yaml:"name" env:"POSTGRES_NAME" env-default:"auditbridge"`
	SSLMode      string `yaml:"ssl_mode" env:"POSTGRES_SSLMODE" env-default:"disable"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"POSTGRES_MAX_OPEN_CONNS" env-default:"25"`
}

type WorkerConfig struct {
	Concurrency       int           `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"4"`
	PollInterval      time.Duration `yaml:"poll_interval" env:"WORKER_POLL_INTERVAL" env-default:"1s"`
	MaxAttempts       int           `yaml:"max_attempts" env:"JOB_MAX_ATTEMPTS" env-default:"5"`
	RetryDelay        time.Duration `yaml:"retry_delay" env:"JOB_RETRY_DELAY" env-default:"30s"`
	StaleRunning      time.Duration `yaml:"stale_running" env:"JOB_STALE_RUNNING" env-default:"30m"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"JOB_HEARTBEAT_INTERVAL" env-default:"1m"`
}

// RetryConfig is the budget for calls into semantic and transcription backends.
type RetryConfig struct {
	Attempts int           `yaml:"attempts" env:"BACKEND_RETRY_ATTEMPTS" env-default:"3"`
	Delay    time.Duration `yaml:"delay" env:"BACKEND_RETRY_DELAY" env-default:"5s"`
}

type MediaConfig struct {
	AudioChunk       time.Duration `yaml:"audio_chunk" env:"AUDIO_CHUNK" env-default:"15m"`
	ChunkConcurrency int           `yaml:"chunk_concurrency" env:"AUDIO_CHUNK_CONCURRENCY" env-default:"2"`
	// TranscriptionProvider is "openai" or "gcp".
	TranscriptionProvider string        `yaml:"transcription_provider" env:"TRANSCRIPTION_PROVIDER" env-default:"openai"`
	FFmpegPath            string        `yaml:"ffmpeg_path" env:"FFMPEG_PATH" env-default:"ffmpeg"`
	FFprobePath           string        `yaml:"ffprobe_path" env:"FFPROBE_PATH" env-default:"ffprobe"`
	PandocPath            string        `yaml:"pandoc_path" env:"PANDOC_PATH" env-default:"pandoc"`
	ToolTimeout           time.Duration `yaml:"tool_timeout" env:"MEDIA_TOOL_TIMEOUT" env-default:"10m"`
	TempDir               string        `yaml:"temp_dir" env:"MEDIA_TEMP_DIR" env-default:""`
}

type StorageConfig struct {
	// Backend is "local" or "gcs".
	Backend   string `yaml:"backend" env:"CONTENT_STORE" env-default:"local"`
	LocalRoot string `yaml:"local_root" env:"CONTENT_STORE_DIR" env-default:"./data/content"`
	Bucket    string `yaml:"bucket" env:"GCS_BUCKET" env-default:""`
	Prefix    string `yaml:"prefix" env:"GCS_PREFIX" env-default:"evidence"`
}

type OpenAIConfig struct {
	APIKey             string        `yaml:"-" env:"OPENAI_API_KEY"`
	BaseURL            string        `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:""`
	ChatModel          string        `yaml:"chat_model" env:"OPENAI_CHAT_MODEL" env-default:"gpt-4o-mini"`
	VisionModel        string        `yaml:"vision_model" env:"OPENAI_VISION_MODEL" env-default:"gpt-4o-mini"`
	TranscriptionModel string        `yaml:"transcription_model" env:"OPENAI_TRANSCRIPTION_MODEL" env-default:"whisper-1"`
	Timeout            time.Duration `yaml:"timeout" env:"OPENAI_TIMEOUT" env-default:"2m"`
}

type GCPConfig struct {
	Credentials       string `yaml:"-" env:"GCP_CREDENTIALS"`
	SpeechLanguage    string `yaml:"speech_language" env:"GCP_SPEECH_LANGUAGE" env-default:"en-US"`
	SpeechModel       string `yaml:"speech_model" env:"GCP_SPEECH_MODEL" env-default:""`
	SpeechDiarization bool   `yaml:"speech_diarization" env:"GCP_SPEECH_DIARIZATION" env-default:"false"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:""`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	LockTTL  time.Duration `yaml:"lock_ttl" env:"LOCK_TTL" env-default:"2m"`
}

type TelemetryConfig struct {
	MetricsEnabled bool    `yaml:"metrics_enabled" env:"METRICS_ENABLED" env-default:"true"`
	MetricsAddr    string  `yaml:"metrics_addr" env:"METRICS_ADDR" env-default:""`
	OtelEnabled    bool    `yaml:"otel_enabled" env:"OTEL_ENABLED" env-default:"false"`
	OtelEndpoint   string  `yaml:"otel_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
	OtelHeaders    string  `yaml:"-" env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure   bool    `yaml:"otel_insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"false"`
	OtelSampleRate float64 `yaml:"otel_sample_rate" env:"OTEL_SAMPLE_RATIO" env-default:"0.1"`
	ServiceName    string  `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"auditbridge"`
}

// LoadConfig reads CONFIG_FILE when set; environment variables override it.
func LoadConfig() (Config, error) {
	var cfg Config
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config from env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case "local":
	case "gcs":
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return fmt.Errorf("GCS_BUCKET required when CONTENT_STORE=gcs")
		}
	default:
		return fmt.Errorf("unsupported CONTENT_STORE %q", c.Storage.Backend)
	}
	switch c.Media.TranscriptionProvider {
	case "openai", "gcp":
	default:
		return fmt.Errorf("unsupported TRANSCRIPTION_PROVIDER %q", c.Media.TranscriptionProvider)
	}
	if c.Worker.Concurrency < 0 || c.Retry.Attempts < 0 {
		return fmt.Errorf("worker concurrency and retry attempts must not be negative")
	}
	return nil
}

func (c Config) corsOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
