package gcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

type SpeechConfig struct {
	Credentials  string
	LanguageCode string
	Model        string
	UseEnhanced  bool

	EnableAutomaticPunctuation bool

	// Diarized transcripts are rendered as "Speaker N: ..." lines.
	EnableSpeakerDiarization bool
	MinSpeakerCount          int
	MaxSpeakerCount          int

	SampleRateHertz   int
	AudioChannelCount int

	Timeout time.Duration
}

// Speech transcribes audio chunks with Cloud Speech-to-Text.
type Speech struct {
	log    *logger.Logger
	client *speech.Client
	cfg    SpeechConfig
}

func NewSpeech(log *logger.Logger, cfg SpeechConfig) (*Speech, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	c, err := speech.NewClient(context.Background(), ClientOptions(cfg.Credentials)...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &Speech{
		log:    log.With("service", "gcp.Speech"),
		client: c,
		cfg:    cfg,
	}, nil
}

func (s *Speech) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Transcribe sends one inline chunk. gRPC errors are returned as-is so the
// caller's retry policy can classify them by status code.
func (s *Speech) Transcribe(ctx context.Context, audio []byte, filename string, mimeType string) (string, error) {
	ctx = ctxutil.Default(ctx)
	if len(audio) == 0 {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: buildSpeechRecognitionConfig(mimeType, filename, s.cfg),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}
	op, err := s.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech longrunningrecognize: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("speech wait: %w", err)
	}
	text := transcriptText(resp, s.cfg.EnableSpeakerDiarization)
	s.log.Debug("chunk transcribed", "file", filename, "bytes", len(audio), "chars", len(text))
	return text, nil
}

func buildSpeechRecognitionConfig(mimeType string, filename string, cfg SpeechConfig) *speechpb.RecognitionConfig {
	rc := &speechpb.RecognitionConfig{
		LanguageCode:               cfg.LanguageCode,
		Model:                      cfg.Model,
		UseEnhanced:                cfg.UseEnhanced,
		EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
		Encoding:                   inferSpeechEncoding(mimeType, filename),
		SampleRateHertz:            int32(max0(cfg.SampleRateHertz)),
		AudioChannelCount:          int32(max0(cfg.AudioChannelCount)),
	}
	if cfg.EnableSpeakerDiarization {
		rc.EnableWordTimeOffsets = true
		rc.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          int32(max0(cfg.MinSpeakerCount)),
			MaxSpeakerCount:          int32(max0(cfg.MaxSpeakerCount)),
		}
	}
	return rc
}

func inferSpeechEncoding(mimeType string, filename string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case strings.Contains(m, "wav") || ext == ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac") || ext == ".flac":
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg") || strings.Contains(m, "mp3") || ext == ".mp3":
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || ext == ".ogg" || ext == ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func transcriptText(resp *speechpb.LongRunningRecognizeResponse, diarize bool) string {
	if resp == nil || len(resp.Results) == 0 {
		return ""
	}
	if diarize {
		// With diarization the final result repeats every word with its
		// speaker tag.
		last := resp.Results[len(resp.Results)-1]
		if last != nil && len(last.Alternatives) > 0 && last.Alternatives[0] != nil && len(last.Alternatives[0].Words) > 0 {
			return groupBySpeaker(last.Alternatives[0].Words)
		}
	}
	var full strings.Builder
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		t := strings.TrimSpace(r.Alternatives[0].Transcript)
		if t == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(t)
	}
	return full.String()
}

func groupBySpeaker(words []*speechpb.WordInfo) string {
	var (
		lines []string
		buf   strings.Builder
		cur   int32 = -1
	)
	flush := func() {
		if txt := strings.TrimSpace(buf.String()); txt != "" {
			lines = append(lines, fmt.Sprintf("Speaker %d: %s", cur, txt))
		}
		buf.Reset()
	}
	for _, w := range words {
		if w == nil {
			continue
		}
		if w.SpeakerTag != cur {
			flush()
			cur = w.SpeakerTag
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(w.Word)
	}
	flush()
	return strings.Join(lines, "\n")
}

func max0(x int) int {
	if x < 0 {
		return 0
	}
	return x
}
