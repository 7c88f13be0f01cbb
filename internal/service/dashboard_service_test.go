package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		m.deleted = append(m.deleted, key)
		delete(m.entries, key)
	}
	return nil
}

type fakeDashboardSources struct {
	calls    int
	dayStart time.Time
}

func (f *fakeDashboardSources) StatusCounts(_ context.Context, _, _ string, dayStart time.Time) (*models.TaskStatusCounts, error) {
	f.calls++
	f.dayStart = dayStart
	return &models.TaskStatusCounts{Pending: 3, Completed: 5, Overdue: 1, Late: 2}, nil
}

func (f *fakeDashboardSources) CountByTeacher(context.Context, string) (int, error) { return 4, nil }

func (f *fakeDashboardSources) CountPending(context.Context, string) (int, error) { return 2, nil }

func (f *fakeDashboardSources) CountOpen(context.Context, string) (int, error) { return 1, nil }

func (f *fakeDashboardSources) AverageNetScore(context.Context, string) (*float64, error) {
	avg := 7.5
	return &avg, nil
}

func (f *fakeDashboardSources) Latest(context.Context, string, int) ([]models.TestResultDetail, error) {
	return nil, nil
}

func (f *fakeDashboardSources) SubjectCounts(context.Context, string) ([]models.SubjectProgressCount, error) {
	return []models.SubjectProgressCount{{SubjectID: "math", TotalTopics: 4, Completed: 1}}, nil
}

func newTestCache(store *memoryCache, enabled bool) *CacheService {
	if !enabled {
		return NewCacheService(nil, nil, time.Minute, nil)
	}
	return NewCacheService(store, nil, time.Minute, nil)
}

func newDashboardFixture(cacheEnabled bool) (*DashboardService, *fakeDashboardSources, *memoryCache) {
	sources := &fakeDashboardSources{}
	store := newMemoryCache()
	svc := NewDashboardService(DashboardServiceParams{
		Tasks: sources, Students: sources, Extensions: sources, Questions: sources,
		Results: sources, Progress: sources,
		Cache:  newTestCache(store, cacheEnabled),
		Config: DashboardServiceConfig{Location: time.UTC},
	})
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC) }
	return svc, sources, store
}

func TestDashboardServiceTeacherCaches(t *testing.T) {
	svc, sources, _ := newDashboardFixture(true)
	ctx := context.Background()

	first, hit, err := svc.Teacher(ctx, "teacher-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, first.StudentCount)
	assert.Equal(t, 2, first.PendingExtensions)
	assert.Equal(t, 1, first.OpenQuestions)
	assert.Equal(t, 7.5, *first.AverageNetScore)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), sources.dayStart)

	second, hit, err := svc.Teacher(ctx, "teacher-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Tasks, second.Tasks)
	assert.Equal(t, 1, sources.calls)

	svc.InvalidateDashboards(ctx, "teacher-1", "student-1")
	_, hit, err = svc.Teacher(ctx, "teacher-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, sources.calls)
}

func TestDashboardServiceStudent(t *testing.T) {
	svc, _, store := newDashboardFixture(true)

	summary, hit, err := svc.Student(context.Background(), "student-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 25.0, summary.Progress.OverallPercentage)
	assert.NotNil(t, summary.LatestTests)
	assert.Contains(t, store.entries, "dashboard:student:student-1")

	svc.InvalidateDashboards(context.Background(), "", "student-1")
	assert.Equal(t, []string{"dashboard:student:student-1"}, store.deleted)
}

func TestDashboardServiceWithoutCache(t *testing.T) {
	svc, sources, store := newDashboardFixture(false)

	_, hit, err := svc.Teacher(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, _ = svc.Teacher(context.Background(), "teacher-1")
	assert.False(t, hit)
	assert.Equal(t, 2, sources.calls)
	assert.Empty(t, store.entries)
}
