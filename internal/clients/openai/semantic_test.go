package openai

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
	oai "github.com/yungbote/auditbridge-backend/internal/platform/openai"
)

type fakeClient struct {
	args     map[string]string
	complete string
	lastReq  oai.ToolRequest
}

func (f *fakeClient) CallTool(ctx context.Context, req oai.ToolRequest) (json.RawMessage, error) {
	f.lastReq = req
	return json.RawMessage(f.args[req.Tool.Name]), nil
}

func (f *fakeClient) Complete(ctx context.Context, system string, user string, maxTokens int) (string, error) {
	return f.complete, nil
}

func (f *fakeClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return " transcript ", nil
}

func testCriterion() *types.Criterion {
	return &types.Criterion{
		ID:                  uuid.New(),
		Title:               "Delivery cadence",
		Description:         "How often software reaches production.",
		MaturityDefinitions: types.EncodeMaturity(map[string]string{"1": "Ad hoc", "2": "Scheduled", "3": "Continuous"}),
	}
}

func TestExtractEvidenceDecodesArguments(t *testing.T) {
	fc := &fakeClient{args: map[string]string{
		"extract_relevant_content": `{"has_relevant_content":true,"summary":"Weekly releases.","quotes":["Our team ships weekly using CI/CD pipelines."]}`,
	}}
	s, err := NewSemantic(logger.Nop(), fc)
	if err != nil {
		t.Fatalf("NewSemantic: %v", err)
	}
	out, err := s.ExtractEvidence(context.Background(), testCriterion(), "Our team ships weekly using CI/CD pipelines.")
	if err != nil {
		t.Fatalf("ExtractEvidence: %v", err)
	}
	if out.Summary != "Weekly releases." || len(out.Quotes) != 1 {
		t.Fatalf("unexpected extraction %+v", out)
	}
	if !strings.Contains(fc.lastReq.User, "Title: Delivery cadence") || !strings.Contains(fc.lastReq.User, "Source Document Content:") {
		t.Fatalf("prompt missing criterion context: %q", fc.lastReq.User)
	}
}

func TestExtractEvidenceIrrelevantIsEmpty(t *testing.T) {
	fc := &fakeClient{args: map[string]string{
		"extract_relevant_content": `{"has_relevant_content":false,"summary":"ignored","quotes":["ignored"]}`,
	}}
	s, _ := NewSemantic(logger.Nop(), fc)
	out, err := s.ExtractEvidence(context.Background(), testCriterion(), "lunch menu")
	if err != nil || !out.Empty() {
		t.Fatalf("expected empty extraction, got %+v err=%v", out, err)
	}
}

func TestGenerateQuestionsDropsBlanks(t *testing.T) {
	fc := &fakeClient{args: map[string]string{
		"generate_questions": `{"evidence_sufficient":false,"questions":["How are releases approved?"," ",""]}`,
	}}
	s, _ := NewSemantic(logger.Nop(), fc)
	qs, err := s.GenerateQuestions(context.Background(), testCriterion(), "Summary: weekly releases")
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(qs) != 1 || qs[0] != "How are releases approved?" {
		t.Fatalf("got %v", qs)
	}
}

func TestCaptionerIrrelevantSentinel(t *testing.T) {
	fc := &fakeClient{args: map[string]string{"describe_image": `{"description":"Irrelevant."}`}}
	c := NewCaptioner(logger.Nop(), fc)
	desc, relevant, err := c.DescribeImage(context.Background(), []byte("png"), "image/png")
	if err != nil || relevant || desc != "" {
		t.Fatalf("got desc=%q relevant=%v err=%v", desc, relevant, err)
	}
	if len(fc.lastReq.Images) != 1 || fc.lastReq.Images[0].MIME != "image/png" {
		t.Fatalf("image not attached: %+v", fc.lastReq.Images)
	}
}

func TestWhisperTrims(t *testing.T) {
	got, err := NewWhisper(&fakeClient{}).Transcribe(context.Background(), []byte("x"), "chunk_000.mp3", "audio/mpeg")
	if err != nil || got != "transcript" {
		t.Fatalf("got %q err=%v", got, err)
	}
}
