package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/automax/grievance-backend/internal/classifier"
	"github.com/automax/grievance-backend/internal/config"
	"github.com/automax/grievance-backend/internal/database"
	"github.com/automax/grievance-backend/internal/middleware"
	"github.com/automax/grievance-backend/internal/models"
	"github.com/automax/grievance-backend/internal/repository"
	"github.com/automax/grievance-backend/internal/services"
)

var validToken = strings.Repeat("t", 64)

type stubGenerator struct {
	reply string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.reply, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Upload(ctx context.Context, folder, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s/%s", folder, fileName)
	m.objects[name] = body
	return name, nil
}

func (m *memoryStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	return "https://objects.local/" + objectName, nil
}

func (m *memoryStore) Delete(ctx context.Context, objectName string) error {
	delete(m.objects, objectName)
	return nil
}

type testEnv struct {
	app   *fiber.App
	store *memoryStore
}

type envOptions struct {
	noDatabase bool
	generator  classifier.TextGenerator
	withStore  bool
}

func setupApp(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	var repo repository.GrievanceRepository
	var dbPing services.Pinger
	if !opts.noDatabase {
		name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
		db, err := database.Connect(&config.DatabaseConfig{
			Driver: "sqlite",
			Path:   "file:" + name + "?mode=memory&cache=shared",
		}, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, database.Migrate(db, zap.NewNop()))
		t.Cleanup(func() { database.Close(db) })
		repo = repository.NewGrievanceRepository(db)
		dbPing = services.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) })
	}

	pipeline := classifier.NewPipeline(classifier.NewPrimaryClassifier(opts.generator, time.Second), zap.NewNop(), nil)

	env := &testEnv{}
	var store services.ObjectStore
	if opts.withStore {
		env.store = &memoryStore{objects: make(map[string][]byte)}
		store = env.store
	}

	svc := services.NewGrievanceService(repo, pipeline, nil, 0, store, zap.NewNop())
	health := services.NewHealthService("grievance-backend", dbPing, pipeline.Model(), nil, nil)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler, BodyLimit: BodyLimit})
	SetupRoutes(app, NewGrievanceHandler(svc), NewHealthHandler(health, "test"), middleware.NewAuthMiddleware(nil, 50))
	env.app = app
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, auth bool) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+validToken)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (e *testEnv) upload(t *testing.T, path, fileName string, content []byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", "image/png")
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+validToken)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode(t *testing.T, raw []byte, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dest), string(raw))
}

func TestClassifyWaterSupplyRoundTrip(t *testing.T) {
	env := setupApp(t, envOptions{})

	resp, body := env.do(t, "POST", "/classify", map[string]string{"text": "There is no water supply in our area for a week"}, true)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var created models.ClassifyResponse
	decode(t, body, &created)
	assert.Regexp(t, `^MHG-[0-9A-F]{8}$`, created.TokenID)
	assert.Equal(t, models.DepartmentWaterResources, created.Department)
	assert.Equal(t, 5, created.RiskScore)

	resp, body = env.do(t, "GET", "/grievances", nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var list []models.GrievanceResponse
	decode(t, body, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created.TokenID, list[0].TokenID)
	assert.Equal(t, models.StatusPendingReview, list[0].Status)
	assert.False(t, list[0].AIClassificationUsed)
	_, err := time.Parse(time.RFC3339, list[0].Timestamp)
	assert.NoError(t, err)
}

func TestClassifyUsesModelReply(t *testing.T) {
	env := setupApp(t, envOptions{generator: &stubGenerator{
		reply: `Sure! {"department": "Urban Development", "risk_score": "3.9", "ai_suggested_action": "Clear the drain"}`,
	}})

	resp, body := env.do(t, "POST", "/classify", map[string]string{"text": "The drain near the park is clogged"}, true)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var created models.ClassifyResponse
	decode(t, body, &created)
	assert.Equal(t, models.DepartmentUrbanDevelopment, created.Department)
	assert.Equal(t, 3, created.RiskScore)
	assert.Equal(t, "Clear the drain", created.AISuggestedAction)
}

func TestClassifyRejections(t *testing.T) {
	env := setupApp(t, envOptions{})

	resp, _ := env.do(t, "POST", "/classify", map[string]string{"text": "There is no water supply in our area"}, false)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, "POST", "/classify", map[string]string{"text": "too short"}, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var envelope map[string]interface{}
	decode(t, body, &envelope)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "Invalid request", envelope["error"])
	assert.Contains(t, envelope["hint"], "at least 10 characters")

	resp, _ = env.do(t, "POST", "/classify", map[string]string{}, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestClassifyWithoutDatabase(t *testing.T) {
	env := setupApp(t, envOptions{noDatabase: true})

	resp, body := env.do(t, "POST", "/classify", map[string]string{"text": "There is no water supply in our area"}, true)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, string(body))

	resp, _ = env.do(t, "GET", "/grievances", nil, false)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestListLimitValidation(t *testing.T) {
	env := setupApp(t, envOptions{})

	for _, q := range []string{"limit=0", "limit=abc", "limit=101", "status=Open"} {
		resp, _ := env.do(t, "GET", "/grievances?"+q, nil, false)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, q)
	}

	resp, body := env.do(t, "GET", "/grievances?limit=5&status=Pending%20Review", nil, false)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestUpdateStatusFlow(t *testing.T) {
	env := setupApp(t, envOptions{})

	_, body := env.do(t, "POST", "/classify", map[string]string{"text": "Power cut since morning in sector 9"}, true)
	var created models.ClassifyResponse
	decode(t, body, &created)
	path := "/grievances/" + created.TokenID

	resp, _ := env.do(t, "PATCH", path+"/status", map[string]string{"status": "Closed"}, false)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, "PATCH", "/grievances/MHG-00000000/status", map[string]string{"status": "Resolved"}, false)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, "PATCH", path+"/status", map[string]string{"status": "Resolved", "admin_notes": "Line repaired"}, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(t, "GET", path, nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got struct {
		Data models.GrievanceResponse `json:"data"`
	}
	decode(t, body, &got)
	assert.Equal(t, models.StatusResolved, got.Data.Status)
	assert.Equal(t, "Line repaired", got.Data.AdminNotes)

	resp, body = env.do(t, "GET", path+"/history", nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history struct {
		Data []models.GrievanceStatusChange `json:"data"`
	}
	decode(t, body, &history)
	require.Len(t, history.Data, 1)
	assert.Equal(t, models.StatusResolved, history.Data[0].ToStatus)

	resp, body = env.do(t, "GET", "/grievances/stats", nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats struct {
		Data models.GrievanceStats `json:"data"`
	}
	decode(t, body, &stats)
	assert.EqualValues(t, 1, stats.Data.Total)
	assert.EqualValues(t, 1, stats.Data.ByStatus[models.StatusResolved])
}

func TestAttachmentEndpoints(t *testing.T) {
	env := setupApp(t, envOptions{withStore: true})

	_, body := env.do(t, "POST", "/classify", map[string]string{"text": "Huge pothole on the main road"}, true)
	var created models.ClassifyResponse
	decode(t, body, &created)
	path := "/grievances/" + created.TokenID + "/attachments"

	resp, _ := env.upload(t, path, "pothole.png", []byte("\x89PNG fake"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Len(t, env.store.objects, 1)

	resp, body = env.do(t, "GET", path, nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list struct {
		Data []models.GrievanceAttachmentResponse `json:"data"`
	}
	decode(t, body, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "pothole.png", list.Data[0].FileName)
	assert.Equal(t, "https://objects.local/"+created.TokenID+"/pothole.png", list.Data[0].URL)
}

func TestAttachmentSizeLimit(t *testing.T) {
	env := setupApp(t, envOptions{withStore: true})

	_, body := env.do(t, "POST", "/classify", map[string]string{"text": "Huge pothole on the main road"}, true)
	var created models.ClassifyResponse
	decode(t, body, &created)
	path := "/grievances/" + created.TokenID + "/attachments"

	// Larger than Fiber's default 4 MiB body limit.
	resp, body := env.upload(t, path, "site-survey.png", bytes.Repeat([]byte{0x42}, 5<<20))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	resp, body = env.upload(t, path, "too-big.png", bytes.Repeat([]byte{0x42}, services.MaxAttachmentSize+1))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var envelope map[string]interface{}
	decode(t, body, &envelope)
	assert.Equal(t, false, envelope["success"])
	assert.NotEmpty(t, envelope["error"])
	assert.Contains(t, envelope["hint"], "file size")

	assert.Len(t, env.store.objects, 1)
}

func TestAttachmentsDisabled(t *testing.T) {
	env := setupApp(t, envOptions{})

	resp, _ := env.do(t, "GET", "/grievances/MHG-00000000/attachments", nil, false)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	withoutModel := setupApp(t, envOptions{})
	resp, body := withoutModel.do(t, "GET", "/health", nil, false)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	var report map[string]interface{}
	decode(t, body, &report)
	assert.Equal(t, "degraded", report["status"])
	assert.Equal(t, "connected", report["database"])

	ready := setupApp(t, envOptions{generator: &stubGenerator{}})
	resp, body = ready.do(t, "GET", "/health", nil, false)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, body, &report)
	assert.Equal(t, "healthy", report["status"])
	assert.Equal(t, "stub-model", report["ai_model"])

	resp, body = ready.do(t, "GET", "/status", nil, false)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"OK"`)

	resp, body = ready.do(t, "GET", "/", nil, false)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Grievance backend is active.", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupApp(t, envOptions{})

	resp, body := env.do(t, "GET", "/metrics", nil, false)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}
