package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/auditbridge-backend/internal/data/repos/audits"
	jobrepo "github.com/yungbote/auditbridge-backend/internal/data/repos/jobs"
	"github.com/yungbote/auditbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	httpH "github.com/yungbote/auditbridge-backend/internal/http/handlers"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/contentstore"
	"github.com/yungbote/auditbridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/auditbridge-backend/internal/observability"
	"github.com/yungbote/auditbridge-backend/internal/platform/retry"
	"github.com/yungbote/auditbridge-backend/internal/services"
)

type quietSemantic struct{}

func (quietSemantic) ExtractEvidence(ctx context.Context, c *types.Criterion, text string) (types.EvidenceExtraction, error) {
	return types.EvidenceExtraction{Relevant: true, Summary: "Deploys weekly."}, nil
}

func (quietSemantic) GenerateQuestions(ctx context.Context, c *types.Criterion, evidenceText string) ([]string, error) {
	return nil, nil
}

func (quietSemantic) SummarizeForCompany(ctx context.Context, text, companyName, category string) (string, error) {
	return text, nil
}

func (quietSemantic) AnalyzeCompany(ctx context.Context, raw string) (types.CompanyAnalysis, error) {
	return types.CompanyAnalysis{}, nil
}

type fixture struct {
	router  *gin.Engine
	audit   *types.Audit
	company *types.Company
	crit    *types.Criterion
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	store, err := contentstore.NewLocal(log, t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	policy := retry.Policy{Attempts: 1}
	metrics := observability.New()
	sem := quietSemantic{}

	auditRepo := audits.NewAuditRepo(db, log)
	companyRepo := audits.NewCompanyRepo(db, log)
	criterionRepo := audits.NewCriterionRepo(db, log)
	evidenceRepo := audits.NewEvidenceRepo(db, log)
	fileRepo := audits.NewEvidenceFileRepo(db, log)
	questionRepo := audits.NewQuestionRepo(db, log)
	jobRepo := jobrepo.NewJobRunRepo(db, log)

	jobs := services.NewJobService(db, log, jobRepo)
	extraction := services.NewEvidenceExtractionService(db, log, sem, criterionRepo, fileRepo, evidenceRepo, policy, metrics)
	coordinator := services.NewPipelineCoordinator(db, log, jobs, extraction, auditRepo, criterionRepo, companyRepo, fileRepo)
	textExtractor := extractor.New(log, nil, nil, nil, extractor.Config{Retry: policy})
	files := services.NewEvidenceFileService(db, log, store, textExtractor, coordinator, auditRepo, fileRepo, metrics)
	questions := services.NewQuestionService(db, log, sem, auditRepo, criterionRepo, evidenceRepo, questionRepo, policy, metrics)
	criteria := services.NewCriterionService(db, log, criterionRepo)

	f := &fixture{
		router: NewRouter(RouterConfig{
			Log:                 log,
			Metrics:             metrics,
			HealthHandler:       httpH.NewHealthHandler(nil),
			EvidenceFileHandler: httpH.NewEvidenceFileHandler(log, files, coordinator, 1<<20),
			EvidenceHandler:     httpH.NewEvidenceHandler(extraction, questions, coordinator),
			CriterionHandler:    httpH.NewCriterionHandler(criteria),
			CompanyHandler:      httpH.NewCompanyHandler(coordinator),
			JobHandler:          httpH.NewJobHandler(jobs),
		}),
	}
	f.company = testutil.SeedCompany(t, ctx, db, "Acme")
	f.audit = testutil.SeedAudit(t, ctx, db, f.company.ID)
	f.crit = testutil.SeedCriterion(t, ctx, db, "Release cadence", nil)
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func uploadRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestUploadThenDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	path := "/api/audits/" + f.audit.ID.String() + "/evidence-files"

	rec, body := f.do(t, uploadRequest(t, path, "notes.txt", []byte("We ship weekly.")))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status=%d body=%s", rec.Code, rec.Body.String())
	}
	file, _ := body["evidence_file"].(map[string]any)
	fileID, _ := file["id"].(string)

	rec, body = f.do(t, uploadRequest(t, path, "again.txt", []byte("We ship weekly.")))
	if rec.Code != http.StatusConflict || errorCode(body) != "already_associated" {
		t.Fatalf("duplicate status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec, _ = f.do(t, httptest.NewRequest(http.MethodGet, path+"/"+fileID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status=%d", rec.Code)
	}
	rec, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/audits/"+uuid.NewString()+"/evidence-files/"+fileID, nil))
	if rec.Code != http.StatusNotFound || errorCode(body) != "not_found" {
		t.Fatalf("cross-audit get status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec, _ = f.do(t, httptest.NewRequest(http.MethodGet, path+"/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rec.Code)
	}
}

func TestExtractEvidenceTriggers(t *testing.T) {
	f := newFixture(t)
	base := "/api/audits/" + f.audit.ID.String() + "/criteria/" + f.crit.ID.String()

	rec, body := f.do(t, httptest.NewRequest(http.MethodPost, base+"/actions/extract-evidence", nil))
	if rec.Code != http.StatusBadRequest || errorCode(body) != "nothing_to_process" {
		t.Fatalf("empty trigger status=%d body=%s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, base+"/actions/extract-evidence", bytes.NewBufferString(`{"text":"We deploy every week."}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body = f.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("text extract status=%d body=%s", rec.Code, rec.Body.String())
	}
	queued, _ := body["jobs"].([]any)
	if len(queued) != 1 {
		t.Fatalf("expected the text to be queued as one job, got %d", len(queued))
	}

	rec, body = f.do(t, httptest.NewRequest(http.MethodGet, base+"/evidence", nil))
	rows, _ := body["evidence"].([]any)
	if rec.Code != http.StatusOK || len(rows) != 0 {
		t.Fatalf("text must not be extracted inside the request: status=%d rows=%d", rec.Code, len(rows))
	}

	rec, _ = f.do(t, httptest.NewRequest(http.MethodPost, base+"/questions", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("questions status=%d", rec.Code)
	}
}

func TestDeleteBaseCriterionIsRejected(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/criteria/custom/"+f.crit.ID.String(), nil))
	if rec.Code != http.StatusBadRequest || errorCode(body) != "invalid_argument" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCompanyEvidenceAndJobPolling(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/companies/"+f.company.ID.String()+"/evidence", bytes.NewBufferString(`{"text":"We are a B2B vendor."}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := f.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("parse status=%d body=%s", rec.Code, rec.Body.String())
	}
	job, _ := body["job"].(map[string]any)
	jobID, _ := job["id"].(string)

	rec, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID, nil))
	polled, _ := body["job"].(map[string]any)
	if rec.Code != http.StatusOK || polled["status"] != "queued" {
		t.Fatalf("poll status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job status=%d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}
	f.do(t, httptest.NewRequest(http.MethodGet, "/api/jobs/"+uuid.NewString(), nil))
	rec, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("ab_api_requests_total")) {
		t.Fatalf("metrics status=%d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`route="/api/jobs/:job_id"`)) {
		t.Fatalf("job route not metered:\n%s", rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte(`route="/healthcheck"`)) {
		t.Fatalf("healthcheck should not be metered")
	}
}

func TestTraceHeadersAndScope(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/audits/"+f.audit.ID.String()+"/criteria/"+f.crit.ID.String()+"/evidence", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec, _ := f.do(t, req)
	if rec.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get("X-Request-Id"))
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("missing trace id header")
	}
}
