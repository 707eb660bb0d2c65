package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	jobtypes "github.com/yungbote/auditbridge-backend/internal/domain/jobs"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/auditbridge-backend/internal/jobs/pipeline/company_parse"
	"github.com/yungbote/auditbridge-backend/internal/jobs/pipeline/evidence_extract"
	"github.com/yungbote/auditbridge-backend/internal/jobs/pipeline/file_process"
	"github.com/yungbote/auditbridge-backend/internal/jobs/pipeline/question_generate"
	jobrt "github.com/yungbote/auditbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/auditbridge-backend/internal/jobs/worker"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/platform/localmedia"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type Services struct {
	Jobs         services.JobService
	Coordinator  services.PipelineCoordinator
	EvidenceFile services.EvidenceFileService
	Extraction   services.EvidenceExtractionService
	Questions    services.QuestionService
	Profiles     services.CompanyProfileService
	Criteria     services.CriterionService

	Media     localmedia.Tools
	JobWorker *worker.Worker
}

// transcodeOptions picks the chunk encoding the transcription provider accepts.
func transcodeOptions(cfg Config) localmedia.AudioOptions {
	if cfg.Media.TranscriptionProvider == "gcp" {
		return localmedia.AudioOptions{SampleRateHz: 16000, Channels: 1, Format: "flac"}
	}
	return localmedia.AudioOptions{SampleRateHz: 16000, Channels: 1, Format: "mp3"}
}

func backendPolicy(log *logger.Logger, cfg Config) retry.Policy {
	return retry.Policy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Notify: func(err error, wait time.Duration) {
			log.Warn("backend call failed; retrying", "error", err, "wait", wait.String())
		},
	}
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients *Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	policy := backendPolicy(log, cfg)

	media := localmedia.New(log, localmedia.Config{
		FFmpegPath:  cfg.Media.FFmpegPath,
		FFprobePath: cfg.Media.FFprobePath,
		PandocPath:  cfg.Media.PandocPath,
		Timeout:     cfg.Media.ToolTimeout,
	})
	textExtractor := extractor.New(log, media, clients.Transcriber, clients.Captioner, extractor.Config{
		AudioChunk:       cfg.Media.AudioChunk,
		ChunkConcurrency: cfg.Media.ChunkConcurrency,
		Audio:            transcodeOptions(cfg),
		Retry:            policy,
		TempDir:          cfg.Media.TempDir,
	})

	jobs := services.NewJobService(db, log, repos.JobRun)
	extraction := services.NewEvidenceExtractionService(db, log, clients.Semantic, repos.Criterion, repos.EvidenceFile, repos.Evidence, policy, metrics)
	coordinator := services.NewPipelineCoordinator(db, log, jobs, extraction, repos.Audit, repos.Criterion, repos.Company, repos.EvidenceFile)
	files := services.NewEvidenceFileService(db, log, clients.Store, textExtractor, coordinator, repos.Audit, repos.EvidenceFile, metrics)
	questions := services.NewQuestionService(db, log, clients.Semantic, repos.Audit, repos.Criterion, repos.Evidence, repos.Question, policy, metrics)
	profiles := services.NewCompanyProfileService(db, log, clients.Semantic, clients.Locker, repos.Company, repos.Audit, repos.EvidenceFile, policy, metrics)
	criteria := services.NewCriterionService(db, log, repos.Criterion)

	// Job handlers
	jobRegistry := jobrt.NewRegistry()
	for _, h := range []jobrt.Handler{
		file_process.New(log, files, cfg.Worker.StaleRunning),
		evidence_extract.New(log, extraction),
		company_parse.New(log, profiles),
		question_generate.New(log, questions),
	} {
		if err := jobRegistry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register %s: %w", h.Type(), err)
		}
	}
	if err := jobRegistry.Require(jobtypes.PipelineTypes()...); err != nil {
		return Services{}, err
	}
	jobWorker := worker.NewWorker(db, log, repos.JobRun, jobRegistry, metrics, worker.Config{
		Concurrency:       cfg.Worker.Concurrency,
		PollInterval:      cfg.Worker.PollInterval,
		MaxAttempts:       cfg.Worker.MaxAttempts,
		RetryDelay:        cfg.Worker.RetryDelay,
		StaleRunning:      cfg.Worker.StaleRunning,
		HeartbeatInterval: cfg.Worker.HeartbeatInterval,
	})

	return Services{
		Jobs:         jobs,
		Coordinator:  coordinator,
		EvidenceFile: files,
		Extraction:   extraction,
		Questions:    questions,
		Profiles:     profiles,
		Criteria:     criteria,
		Media:        media,
		JobWorker:    jobWorker,
	}, nil
}
