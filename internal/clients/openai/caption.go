package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	oai "github.com/yungbote/auditbridge-backend/internal/platform/openai"
)

const irrelevantSentinel = "irrelevant"

// Captioner describes evidence images with a vision model.
type Captioner struct {
	log    *logger.Logger
	client oai.Client
	detail string
}

func NewCaptioner(log *logger.Logger, client oai.Client) *Captioner {
	return &Captioner{log: log.With("service", "Captioner"), client: client, detail: "high"}
}

func (c *Captioner) DescribeImage(ctx context.Context, data []byte, mime string) (string, bool, error) {
	raw, err := c.client.CallTool(ctx, oai.ToolRequest{
		System: captionSystem,
		User:   captionUser,
		Images: []oai.ImageInput{{Bytes: data, MIME: mime, Detail: c.detail}},
		Tool:   describeImageTool,
	})
	if err != nil {
		return "", false, err
	}
	var args struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", false, fmt.Errorf("decode %s arguments: %w", describeImageTool.Name, err)
	}
	desc := strings.TrimSpace(args.Description)
	if isIrrelevant(desc) {
		return "", false, nil
	}
	return desc, true, nil
}

func isIrrelevant(desc string) bool {
	d := strings.ToLower(strings.Trim(strings.TrimSpace(desc), ".'\""))
	return d == "" || d == irrelevantSentinel
}
