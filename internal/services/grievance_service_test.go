package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/automax/grievance-backend/internal/classifier"
	"github.com/automax/grievance-backend/internal/config"
	"github.com/automax/grievance-backend/internal/database"
	"github.com/automax/grievance-backend/internal/models"
	"github.com/automax/grievance-backend/internal/repository"
)

type stubGenerator struct {
	reply string
	err   error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func (s *stubGenerator) Model() string { return "stub-model" }

type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	hits    int
	deletes int
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return errors.New("connection refused")
	}
	raw, ok := c.data[key]
	if !ok {
		return database.ErrCacheMiss
	}
	c.hits++
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.data, key)
	return nil
}

type memoryStore struct {
	objects map[string][]byte
	failPut bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(ctx context.Context, folder, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	if m.failPut {
		return "", errors.New("bucket unreachable")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s/%d-%s", folder, len(m.objects), fileName)
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

func setupRepo(t *testing.T) repository.GrievanceRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + name + "?mode=memory&cache=shared",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zap.NewNop()))
	t.Cleanup(func() { database.Close(db) })
	return repository.NewGrievanceRepository(db)
}

func newPipeline(gen classifier.TextGenerator) *classifier.Pipeline {
	return classifier.NewPipeline(classifier.NewPrimaryClassifier(gen, time.Second), zap.NewNop(), ClassificationMetrics{})
}

func TestSubmitWaterSupplyWithoutAI(t *testing.T) {
	repo := setupRepo(t)
	svc := NewGrievanceService(repo, newPipeline(nil), nil, 0, nil, zap.NewNop())
	ctx := context.Background()

	resp, err := svc.Submit(ctx, &models.ClassifyRequest{Text: "There is no water supply in our area for a week"}, "citizen")
	require.NoError(t, err)
	assert.Regexp(t, `^MHG-[0-9A-F]{8}$`, resp.TokenID)
	assert.Equal(t, models.DepartmentWaterResources, resp.Department)
	assert.Equal(t, 5, resp.RiskScore)

	stored, err := svc.Get(ctx, resp.TokenID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, stored.Status)
	assert.False(t, stored.AIClassificationUsed)
	assert.Equal(t, "There is no water supply in our area for a week", stored.GrievanceText)
}

func TestSubmitUsesPrimaryClassifier(t *testing.T) {
	repo := setupRepo(t)
	gen := &stubGenerator{reply: "```json\n{\"department\": \"Health\", \"risk_score\": 9, \"ai_suggested_action\": \"Deploy a medical team\"}\n```"}
	svc := NewGrievanceService(repo, newPipeline(gen), nil, 0, nil, zap.NewNop())

	resp, err := svc.Submit(context.Background(), &models.ClassifyRequest{Text: "  Dengue cases rising near the lake  ", LocationWard: "Wakad"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.DepartmentHealth, resp.Department)
	assert.Equal(t, 5, resp.RiskScore)
	assert.Equal(t, "Deploy a medical team", resp.AISuggestedAction)

	stored, err := svc.Get(context.Background(), resp.TokenID)
	require.NoError(t, err)
	assert.True(t, stored.AIClassificationUsed)
	assert.Equal(t, "Dengue cases rising near the lake", stored.GrievanceText)
	assert.Equal(t, "Wakad", stored.LocationWard)
}

func TestSubmitFallsBackWhenFieldMissing(t *testing.T) {
	repo := setupRepo(t)
	gen := &stubGenerator{reply: `{"department": "Health", "risk_score": 2}`}
	svc := NewGrievanceService(repo, newPipeline(gen), nil, 0, nil, zap.NewNop())

	resp, err := svc.Submit(context.Background(), &models.ClassifyRequest{Text: "Huge pothole on the main road near the school"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.DepartmentPublicWorks, resp.Department)

	stored, err := svc.Get(context.Background(), resp.TokenID)
	require.NoError(t, err)
	assert.False(t, stored.AIClassificationUsed)
}

func TestSubmitValidation(t *testing.T) {
	svc := NewGrievanceService(setupRepo(t), newPipeline(nil), nil, 0, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), &models.ClassifyRequest{Text: "short"}, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit(context.Background(), &models.ClassifyRequest{Text: "          "}, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitWithoutDatabase(t *testing.T) {
	svc := NewGrievanceService(nil, newPipeline(nil), nil, 0, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), &models.ClassifyRequest{Text: "Garbage not collected for days"}, "")
	assert.ErrorIs(t, err, ErrDependencyUnavailable)

	_, err = svc.List(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestUpdateStatus(t *testing.T) {
	repo := setupRepo(t)
	svc := NewGrievanceService(repo, newPipeline(nil), nil, 0, nil, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Submit(ctx, &models.ClassifyRequest{Text: "Street light not working in lane 4"}, "")
	require.NoError(t, err)

	notes := "Electrician assigned"
	updated, err := svc.UpdateStatus(ctx, created.TokenID, &models.StatusUpdateRequest{Status: models.StatusInProgress, AdminNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, notes, updated.AdminNotes)

	history, err := svc.History(ctx, created.TokenID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusPendingReview, history[0].FromStatus)
	assert.Equal(t, models.StatusInProgress, history[0].ToStatus)
}

func TestUpdateStatusInvalidLeavesRecordUnchanged(t *testing.T) {
	repo := setupRepo(t)
	svc := NewGrievanceService(repo, newPipeline(nil), nil, 0, nil, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Submit(ctx, &models.ClassifyRequest{Text: "Street light not working in lane 4"}, "")
	require.NoError(t, err)
	before, err := svc.Get(ctx, created.TokenID)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.TokenID, &models.StatusUpdateRequest{Status: "Closed"})
	assert.ErrorIs(t, err, ErrValidation)

	after, err := svc.Get(ctx, created.TokenID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	history, err := svc.History(ctx, created.TokenID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdateStatusUnknownToken(t *testing.T) {
	svc := NewGrievanceService(setupRepo(t), newPipeline(nil), nil, 0, nil, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "MHG-00000000", &models.StatusUpdateRequest{Status: models.StatusResolved})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "MHG-00000000")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.History(context.Background(), "MHG-00000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListValidation(t *testing.T) {
	svc := NewGrievanceService(setupRepo(t), newPipeline(nil), nil, 0, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.List(ctx, &models.GrievanceFilter{Status: "Open"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.List(ctx, &models.GrievanceFilter{Department: "Transport"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.List(ctx, &models.GrievanceFilter{Limit: 101})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := svc.List(ctx, &models.GrievanceFilter{Department: "energy"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListUsesAndInvalidatesCache(t *testing.T) {
	repo := setupRepo(t)
	cache := newMemoryCache()
	svc := NewGrievanceService(repo, newPipeline(nil), cache, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, &models.ClassifyRequest{Text: "Power cut since morning in sector 9"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.deletes)

	first, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.hits)

	_, err = svc.Submit(ctx, &models.ClassifyRequest{Text: "Garbage dumped on the footpath again"}, "")
	require.NoError(t, err)

	third, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 1, cache.hits)

	// Filtered listings bypass the cache.
	gets := cache.gets
	_, err = svc.List(ctx, &models.GrievanceFilter{Status: models.StatusResolved})
	require.NoError(t, err)
	assert.Equal(t, gets, cache.gets)
}

// racingRepo runs afterList once, after the wrapped List has read its rows.
type racingRepo struct {
	repository.GrievanceRepository
	afterList func()
}

func (r *racingRepo) List(ctx context.Context, filter *models.GrievanceFilter) ([]models.Grievance, error) {
	grievances, err := r.GrievanceRepository.List(ctx, filter)
	if r.afterList != nil {
		hook := r.afterList
		r.afterList = nil
		hook()
	}
	return grievances, err
}

func TestListSkipsCacheWhenInvalidatedDuringRead(t *testing.T) {
	repo := &racingRepo{GrievanceRepository: setupRepo(t)}
	cache := newMemoryCache()
	svc := NewGrievanceService(repo, newPipeline(nil), cache, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, &models.ClassifyRequest{Text: "Power cut since morning in sector 9"}, "")
	require.NoError(t, err)

	repo.afterList = func() {
		_, err := svc.Submit(ctx, &models.ClassifyRequest{Text: "Garbage dumped on the footpath again"}, "")
		require.NoError(t, err)
	}

	stale, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, stale, 1)
	assert.Empty(t, cache.data, "a read overlapping a write must not be cached")

	fresh, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, 0, cache.hits)
}

func TestListCacheErrorsAreMisses(t *testing.T) {
	repo := setupRepo(t)
	cache := newMemoryCache()
	cache.failGet = true
	svc := NewGrievanceService(repo, newPipeline(nil), cache, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, &models.ClassifyRequest{Text: "Power cut since morning in sector 9"}, "")
	require.NoError(t, err)

	list, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStats(t *testing.T) {
	repo := setupRepo(t)
	svc := NewGrievanceService(repo, newPipeline(nil), nil, 0, nil, zap.NewNop())
	ctx := context.Background()

	for _, text := range []string{
		"There is no water supply in our area for a week",
		"Power cut since morning in sector 9",
		"School has no teacher for mathematics",
	} {
		_, err := svc.Submit(ctx, &models.ClassifyRequest{Text: text}, "")
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 3, stats.ByStatus[models.StatusPendingReview])
	assert.EqualValues(t, 1, stats.ByDepartment[models.DepartmentEnergy])
	assert.EqualValues(t, 1, stats.HighRiskPending)
	assert.Zero(t, stats.AIClassifiedTotal)
}

func TestAttachments(t *testing.T) {
	repo := setupRepo(t)
	store := newMemoryStore()
	svc := NewGrievanceService(repo, newPipeline(nil), nil, 0, store, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Submit(ctx, &models.ClassifyRequest{Text: "Huge pothole on the main road"}, "")
	require.NoError(t, err)

	body := []byte("fake jpeg bytes")
	att, err := svc.AddAttachment(ctx, created.TokenID, &AttachmentUpload{
		FileName:    "pothole.jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	}, "citizen")
	require.NoError(t, err)
	assert.Equal(t, "pothole.jpg", att.FileName)
	assert.True(t, strings.HasPrefix(att.URL, "https://objects.local/"+created.TokenID+"/"))
	assert.Len(t, store.objects, 1)

	list, err := svc.ListAttachments(ctx, created.TokenID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, att.ID, list[0].ID)

	_, err = svc.AddAttachment(ctx, created.TokenID, &AttachmentUpload{
		FileName: "virus.exe", ContentType: "application/x-msdownload", Size: 10, Body: bytes.NewReader(make([]byte, 10)),
	}, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddAttachment(ctx, "MHG-00000000", &AttachmentUpload{
		FileName: "a.png", ContentType: "image/png", Size: 3, Body: bytes.NewReader([]byte("png")),
	}, "")
	assert.ErrorIs(t, err, ErrNotFound)

	store.failPut = true
	_, err = svc.AddAttachment(ctx, created.TokenID, &AttachmentUpload{
		FileName: "a.png", ContentType: "image/png", Size: 3, Body: bytes.NewReader([]byte("png")),
	}, "")
	assert.ErrorIs(t, err, ErrStorage)
}

func TestAttachmentsWithoutStorage(t *testing.T) {
	svc := NewGrievanceService(setupRepo(t), newPipeline(nil), nil, 0, nil, zap.NewNop())

	_, err := svc.AddAttachment(context.Background(), "MHG-00000000", &AttachmentUpload{Size: 1}, "")
	assert.ErrorIs(t, err, ErrDependencyUnavailable)

	_, err = svc.ListAttachments(context.Background(), "MHG-00000000")
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}
