package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/auditbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
)

// ImageInput is one image attached to a chat request.
type ImageInput struct {
	Bytes []byte
	MIME  string
	// "low" | "high" | "auto"
	Detail string
}

// Tool describes the single function the model is forced to call.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type ToolRequest struct {
	Model       string // empty means the client's chat model
	System      string
	User        string
	Images      []ImageInput
	Tool        Tool
	MaxTokens   int
	Temperature float32
}

// Client is the narrow slice of the OpenAI API the pipeline needs.
type Client interface {
	// CallTool forces a function call and returns its raw JSON arguments.
	CallTool(ctx context.Context, req ToolRequest) (json.RawMessage, error)
	// Complete returns the plain assistant text for a system+user exchange.
	Complete(ctx context.Context, system string, user string, maxTokens int) (string, error)
	// Transcribe runs speech-to-text over one audio file's bytes.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Config struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	VisionModel        string
	TranscriptionModel string
	Timeout            time.Duration
}

type client struct {
	log *logger.Logger
	api *goopenai.Client
	cfg Config
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = goopenai.GPT4oMini
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = goopenai.GPT4o
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = goopenai.Whisper1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		apiCfg.BaseURL = strings.TrimSuffix(base, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &client{
		log: log.With("service", "OpenAIClient"),
		api: goopenai.NewClientWithConfig(apiCfg),
		cfg: cfg,
	}, nil
}

// Requests with images go to the vision model.
func (c *client) modelFor(req ToolRequest) string {
	if req.Model != "" {
		return req.Model
	}
	if len(req.Images) > 0 {
		return c.cfg.VisionModel
	}
	return c.cfg.ChatModel
}

func (c *client) CallTool(ctx context.Context, req ToolRequest) (json.RawMessage, error) {
	ctx = ctxutil.Default(ctx)
	if req.Tool.Name == "" {
		return nil, fmt.Errorf("tool name required")
	}
	params, err := json.Marshal(req.Tool.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal tool parameters: %w", err)
	}

	user := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser}
	if len(req.Images) == 0 {
		user.Content = req.User
	} else {
		parts := []goopenai.ChatMessagePart{{Type: goopenai.ChatMessagePartTypeText, Text: req.User}}
		for _, img := range req.Images {
			parts = append(parts, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{
					URL:    DataURL(img.MIME, img.Bytes),
					Detail: imageDetail(img.Detail),
				},
			})
		}
		user.MultiContent = parts
	}

	model := c.modelFor(req)
	started := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.System},
			user,
		},
		Tools: []goopenai.Tool{{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters:  json.RawMessage(params),
			},
		}},
		ToolChoice: goopenai.ToolChoice{
			Type:     goopenai.ToolTypeFunction,
			Function: goopenai.ToolFunction{Name: req.Tool.Name},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		c.log.Warn("tool call failed", "tool", req.Tool.Name, "model", model, "elapsed", time.Since(started).String(), "error", err)
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		if tc.Function.Name == req.Tool.Name {
			c.log.Debug("tool call completed",
				"tool", req.Tool.Name,
				"model", model,
				"prompt_tokens", resp.Usage.PromptTokens,
				"completion_tokens", resp.Usage.CompletionTokens,
				"elapsed", time.Since(started).String(),
			)
			return json.RawMessage(tc.Function.Arguments), nil
		}
	}
	return nil, fmt.Errorf("model did not call %s", req.Tool.Name)
}

func (c *client) Complete(ctx context.Context, system string, user string, maxTokens int) (string, error) {
	ctx = ctxutil.Default(ctx)
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	ctx = ctxutil.Default(ctx)
	if filename == "" {
		filename = "audio.mp3"
	}
	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.cfg.TranscriptionModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", classify(err)
	}
	return resp.Text, nil
}

// classify marks rate limits, timeouts and server errors as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isRetryableStatus(statusCode(err)) {
		return retry.MarkTransient(err)
	}
	return err
}

func statusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func isRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func imageDetail(d string) goopenai.ImageURLDetail {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "low":
		return goopenai.ImageURLDetailLow
	case "high":
		return goopenai.ImageURLDetailHigh
	default:
		return goopenai.ImageURLDetailAuto
	}
}

// DataURL inlines bytes as a base64 data: URL.
func DataURL(mime string, b []byte) string {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}
