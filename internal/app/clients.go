package app

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	aiclient "github.com/yungbote/auditbridge-backend/internal/clients/openai"
	"github.com/yungbote/auditbridge-backend/internal/clients/gcp"
	"github.com/yungbote/auditbridge-backend/internal/clients/redis"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/contentstore"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/auditbridge-backend/internal/platform/lock"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/platform/openai"
)

type Clients struct {
	Redis       *goredis.Client
	Locker      lock.Locker
	Store       contentstore.Store
	Semantic    aiclient.Semantic
	Captioner   extractor.Captioner
	Transcriber extractor.Transcriber

	bucket gcp.Bucket
	speech *gcp.Speech
}

func wireClients(log *logger.Logger, cfg Config) (*Clients, error) {
	log.Info("Wiring clients...")
	c := &Clients{}

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := redis.NewClient(log, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rdb
		c.Locker = lock.NewRedis(log, rdb, "auditbridge:lock:", cfg.Redis.LockTTL)
	} else {
		log.Warn("REDIS_ADDR not set; company profile locks are process-local")
		c.Locker = lock.NewMemory()
	}

	// Content store
	switch cfg.Storage.Backend {
	case "gcs":
		bucket, err := gcp.NewBucket(log, gcp.BucketConfig{Name: cfg.Storage.Bucket, Prefix: cfg.Storage.Prefix, Credentials: cfg.GCP.Credentials})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init bucket client: %w", err)
		}
		c.bucket = bucket
		c.Store = contentstore.NewGCS(log, bucket, cfg.Media.TempDir)
	default:
		store, err := contentstore.NewLocal(log, cfg.Storage.LocalRoot)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init local content store: %w", err)
		}
		c.Store = store
	}

	// Openai
	oc, err := openai.NewClient(log, openai.Config{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		ChatModel:          cfg.OpenAI.ChatModel,
		VisionModel:        cfg.OpenAI.VisionModel,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
		Timeout:            cfg.OpenAI.Timeout,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	semantic, err := aiclient.NewSemantic(log, oc)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init semantic backend: %w", err)
	}
	c.Semantic = semantic
	c.Captioner = aiclient.NewCaptioner(log, oc)

	// Transcription
	switch cfg.Media.TranscriptionProvider {
	case "gcp":
		sp, err := gcp.NewSpeech(log, gcp.SpeechConfig{
			Credentials:                cfg.GCP.Credentials,
			LanguageCode:               cfg.GCP.SpeechLanguage,
			Model:                      cfg.GCP.SpeechModel,
			EnableAutomaticPunctuation: true,
			EnableSpeakerDiarization:   cfg.GCP.SpeechDiarization,
			SampleRateHertz:            transcodeOptions(cfg).SampleRateHz,
			AudioChannelCount:          transcodeOptions(cfg).Channels,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init speech client: %w", err)
		}
		c.speech = sp
		c.Transcriber = sp
	default:
		c.Transcriber = aiclient.NewWhisper(oc)
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.speech != nil {
		_ = c.speech.Close()
	}
	if c.bucket != nil {
		_ = c.bucket.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
