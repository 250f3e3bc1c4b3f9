package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type memoryCache struct {
	items     map[string]interface{}
	getErr    error
	deleted   []string
	setCalled int
}

func newMemoryCache() *memoryCache { return &memoryCache{items: map[string]interface{}{}} }

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	v, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *[]models.OfferingDetail:
		*d = v.([]models.OfferingDetail)
	case *[]models.CourseDetail:
		*d = v.([]models.CourseDetail)
	case *cachedCourseList:
		*d = v.(cachedCourseList)
	}
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalled++
	m.items[key] = value
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.items {
		if k == pattern || (strings.HasSuffix(pattern, "*") && strings.HasPrefix(k, prefix)) {
			delete(m.items, k)
		}
	}
	return nil
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, 0, nil, false)

	svc.Set(context.Background(), "k", []models.OfferingDetail{}, 0)
	var dest []models.OfferingDetail
	assert.False(t, svc.Get(context.Background(), "k", &dest))
	assert.Zero(t, repo.setCalled)
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	repo := newMemoryCache()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var dest []models.OfferingDetail
	assert.False(t, svc.Get(ctx, cacheKeyActiveOfferings, &dest))
	svc.Set(ctx, cacheKeyActiveOfferings, []models.OfferingDetail{{CourseName: "Go"}}, 0)
	assert.True(t, svc.Get(ctx, cacheKeyActiveOfferings, &dest))
	assert.Equal(t, "Go", dest[0].CourseName)

	snap := metrics.Snapshot()
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceSwallowsBackendErrors(t *testing.T) {
	repo := newMemoryCache()
	repo.getErr = errors.New("connection reset")
	svc := NewCacheService(repo, nil, 0, nil, true)

	var dest []models.OfferingDetail
	assert.False(t, svc.Get(context.Background(), "k", &dest))
}

func TestMetricsEnrollmentCounters(t *testing.T) {
	m := NewMetricsService()
	m.EnrollmentCreated(models.DiscountReasonDisability)
	m.EnrollmentCreated(models.DiscountReasonNone)
	m.EnrollmentRepriced(models.DiscountReasonNone)
	m.CodeCollision("enrollment")
	m.ObserveTransaction("enrollment.create", nil, time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.Equal(t, float64(2), counterValue(families, "enrollments_created_total", ""))
	assert.Equal(t, float64(2), counterValue(families, "enrollment_discounts_total", models.DiscountReasonNone))
	assert.Equal(t, float64(1), counterValue(families, "enrollment_discounts_total", models.DiscountReasonDisability))
	assert.Equal(t, float64(1), counterValue(families, "generated_code_collisions_total", "enrollment"))
}

// counterValue sums a counter family, restricted to series carrying labelValue when set.
func counterValue(families []*dto.MetricFamily, name, labelValue string) float64 {
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelValue != "" {
				matched := false
				for _, label := range metric.GetLabel() {
					if label.GetValue() == labelValue {
						matched = true
					}
				}
				if !matched {
					continue
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.EnrollmentCreated("x")
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		_ = m.Snapshot()
	})
}
