package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	oai "github.com/yungbote/auditbridge-backend/internal/platform/openai"
)

// Semantic is the language-model backend behind evidence extraction,
// question generation and company profiling. Calls are single attempts;
// callers own the retry policy.
type Semantic interface {
	ExtractEvidence(ctx context.Context, criterion *types.Criterion, text string) (types.EvidenceExtraction, error)
	GenerateQuestions(ctx context.Context, criterion *types.Criterion, evidenceText string) ([]string, error)
	SummarizeForCompany(ctx context.Context, text string, companyName string, category string) (string, error)
	AnalyzeCompany(ctx context.Context, rawEvidence string) (types.CompanyAnalysis, error)
}

type semantic struct {
	log    *logger.Logger
	client oai.Client
}

func NewSemantic(log *logger.Logger, client oai.Client) (Semantic, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if client == nil {
		return nil, fmt.Errorf("openai client required")
	}
	return &semantic{log: log.With("service", "Semantic"), client: client}, nil
}

func (s *semantic) ExtractEvidence(ctx context.Context, criterion *types.Criterion, text string) (types.EvidenceExtraction, error) {
	var out types.EvidenceExtraction
	if criterion == nil {
		return out, fmt.Errorf("criterion required")
	}
	raw, err := s.client.CallTool(ctx, oai.ToolRequest{
		System:    extractSystem,
		User:      extractUser(criterion, text),
		Tool:      extractEvidenceTool,
		MaxTokens: 2000,
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return types.EvidenceExtraction{}, fmt.Errorf("decode %s arguments: %w", extractEvidenceTool.Name, err)
	}
	if !out.Relevant {
		return types.EvidenceExtraction{}, nil
	}
	return out, nil
}

type questionsArgs struct {
	EvidenceSufficient bool     `json:"evidence_sufficient"`
	Questions          []string `json:"questions"`
}

func (s *semantic) GenerateQuestions(ctx context.Context, criterion *types.Criterion, evidenceText string) ([]string, error) {
	if criterion == nil {
		return nil, fmt.Errorf("criterion required")
	}
	raw, err := s.client.CallTool(ctx, oai.ToolRequest{
		System:      questionsSystem,
		User:        questionsUser(criterion, evidenceText),
		Tool:        generateQuestionsTool,
		MaxTokens:   2000,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}
	var args questionsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", generateQuestionsTool.Name, err)
	}
	s.log.Debug("questions generated", "criterion_id", criterion.ID, "sufficient", args.EvidenceSufficient, "count", len(args.Questions))

	out := make([]string, 0, len(args.Questions))
	for _, q := range args.Questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *semantic) SummarizeForCompany(ctx context.Context, text string, companyName string, category string) (string, error) {
	out, err := s.client.Complete(ctx, summarizeSystem(companyName, category), text, 500)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (s *semantic) AnalyzeCompany(ctx context.Context, rawEvidence string) (types.CompanyAnalysis, error) {
	var out types.CompanyAnalysis
	raw, err := s.client.CallTool(ctx, oai.ToolRequest{
		System: analyzeSystem,
		User:   rawEvidence,
		Tool:   companyInfoTool,
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return types.CompanyAnalysis{}, fmt.Errorf("decode %s arguments: %w", companyInfoTool.Name, err)
	}
	return out, nil
}
