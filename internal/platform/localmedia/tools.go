package localmedia

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

// Tools is the glue around system binaries used by text extraction.
//
// REQUIRED BINARIES in worker runtime:
// - ffmpeg / ffprobe for audio decode, slicing and video -> audio
// - pandoc for office/markup documents -> HTML (with extracted media)
//
// Calls are synchronous and should run from worker jobs, not request handlers.
type Tools interface {
	AssertReady(ctx context.Context) error

	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	SplitAudio(ctx context.Context, inputPath string, outDir string, chunk time.Duration, opts AudioOptions) ([]string, error)
	ExtractAudioFromVideo(ctx context.Context, videoPath string, outPath string, opts AudioOptions) (string, error)

	ConvertToHTML(ctx context.Context, inputPath string, outDir string) (htmlPath string, mediaDir string, err error)
}

type AudioOptions struct {
	SampleRateHz int
	Channels     int
	Format       string // "mp3", "wav" or "flac"
}

func (o AudioOptions) normalized() AudioOptions {
	if o.SampleRateHz <= 0 {
		o.SampleRateHz = 16000
	}
	if o.Channels <= 0 {
		o.Channels = 1
	}
	o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	if o.Format == "" {
		o.Format = "mp3"
	}
	return o
}

// Ext is the file extension (with dot) produced for these options.
func (o AudioOptions) Ext() string { return "." + o.normalized().Format }

// MIME is the content type of audio produced for these options.
func (o AudioOptions) MIME() string {
	switch o.normalized().Format {
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	default:
		return "audio/mpeg"
	}
}

type Config struct {
	FFmpegPath  string
	FFprobePath string
	PandocPath  string
	Timeout     time.Duration
}

type tools struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string
	pandocPath  string

	defaultTimeout time.Duration
}

func New(log *logger.Logger, cfg Config) Tools {
	t := &tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     cfg.FFmpegPath,
		ffprobePath:    cfg.FFprobePath,
		pandocPath:     cfg.PandocPath,
		defaultTimeout: cfg.Timeout,
	}
	if t.ffmpegPath == "" {
		t.ffmpegPath = "ffmpeg"
	}
	if t.ffprobePath == "" {
		t.ffprobePath = "ffprobe"
	}
	if t.pandocPath == "" {
		t.pandocPath = "pandoc"
	}
	if t.defaultTimeout <= 0 {
		t.defaultTimeout = 10 * time.Minute
	}
	return t
}

func (m *tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath, m.pandocPath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (m *tools) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	ctx = ctxutil.Default(ctx)
	if path == "" {
		return 0, fmt.Errorf("path required")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeDuration(string(out))
}

func parseProbeDuration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", s, err)
	}
	if secs < 0 || math.IsNaN(secs) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Window is one [Start, Start+Length) slice of a media timeline.
type Window struct {
	Start  time.Duration
	Length time.Duration
}

// Windows slices total into consecutive windows of at most chunk each.
// A non-positive total yields a single open window covering the whole input.
func Windows(total, chunk time.Duration) []Window {
	if chunk <= 0 || total <= 0 {
		return []Window{{Start: 0, Length: 0}}
	}
	n := int(math.Ceil(float64(total) / float64(chunk)))
	out := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		start := time.Duration(i) * chunk
		length := chunk
		if start+length > total {
			length = total - start
		}
		out = append(out, Window{Start: start, Length: length})
	}
	return out
}

// SplitAudio decodes inputPath and re-encodes it into consecutive chunks no
// longer than chunk. Slicing happens on the decoded timeline so chunk
// boundaries never cut through an encoded frame.
func (m *tools) SplitAudio(ctx context.Context, inputPath string, outDir string, chunk time.Duration, opts AudioOptions) ([]string, error) {
	ctx = ctxutil.Default(ctx)
	if inputPath == "" {
		return nil, fmt.Errorf("inputPath required")
	}
	if outDir == "" {
		return nil, fmt.Errorf("outDir required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir outDir: %w", err)
	}
	opts = opts.normalized()

	total, err := m.ProbeDuration(ctx, inputPath)
	if err != nil {
		m.log.Warn("duration probe failed; transcoding as a single chunk", "path", inputPath, "error", err)
		total = 0
	}

	windows := Windows(total, chunk)
	paths := make([]string, 0, len(windows))
	for i, w := range windows {
		out := filepath.Join(outDir, fmt.Sprintf("chunk_%03d%s", i, opts.Ext()))
		args := []string{"-y"}
		if w.Length > 0 {
			args = append(args,
				"-ss", formatSeconds(w.Start),
				"-t", formatSeconds(w.Length),
			)
		}
		args = append(args, "-i", inputPath, "-vn",
			"-ac", strconv.Itoa(opts.Channels),
			"-ar", strconv.Itoa(opts.SampleRateHz),
		)
		args = append(args, encoderArgs(opts.Format)...)
		args = append(args, out)

		if err := m.runFFmpeg(ctx, args); err != nil {
			return nil, fmt.Errorf("slice chunk %d: %w", i, err)
		}
		paths = append(paths, out)
	}
	m.log.Debug("audio split", "path", inputPath, "duration", total.String(), "chunks", len(paths))
	return paths, nil
}

func (m *tools) ExtractAudioFromVideo(ctx context.Context, videoPath string, outPath string, opts AudioOptions) (string, error) {
	ctx = ctxutil.Default(ctx)
	if videoPath == "" {
		return "", fmt.Errorf("videoPath required")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir outPath dir: %w", err)
	}
	opts = opts.normalized()

	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", strconv.Itoa(opts.Channels),
		"-ar", strconv.Itoa(opts.SampleRateHz),
	}
	args = append(args, encoderArgs(opts.Format)...)
	args = append(args, outPath)

	if err := m.runFFmpeg(ctx, args); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("audio output missing at %s", outPath)
	}
	return outPath, nil
}

// ConvertToHTML runs pandoc over inputPath. Embedded images are written under
// mediaDir and referenced from the HTML by path.
func (m *tools) ConvertToHTML(ctx context.Context, inputPath string, outDir string) (string, string, error) {
	ctx = ctxutil.Default(ctx)
	if inputPath == "" {
		return "", "", fmt.Errorf("inputPath required")
	}
	if outDir == "" {
		return "", "", fmt.Errorf("outDir required")
	}
	mediaDir := filepath.Join(outDir, "media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return "", "", fmt.Errorf("mkdir media dir: %w", err)
	}
	htmlPath := filepath.Join(outDir, "document.html")

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.pandocPath,
		inputPath,
		"-t", "html",
		"--extract-media="+mediaDir,
		"-o", htmlPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", "", fmt.Errorf("pandoc convert failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(htmlPath); err != nil {
		return "", "", fmt.Errorf("html output missing at %s", htmlPath)
	}
	return htmlPath, mediaDir, nil
}

func (m *tools) runFFmpeg(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, m.ffmpegPath, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w; out=%s", err, string(out))
	}
	return nil
}

func encoderArgs(format string) []string {
	switch format {
	case "wav":
		return []string{"-c:a", "pcm_s16le", "-f", "wav"}
	case "flac":
		return []string{"-c:a", "flac", "-f", "flac"}
	default:
		return []string{"-c:a", "libmp3lame", "-b:a", "64k", "-f", "mp3"}
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
