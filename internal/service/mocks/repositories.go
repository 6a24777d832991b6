package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/SergeiKhy/local-shortener/internal/models"
	"github.com/SergeiKhy/local-shortener/internal/repository"
)

// MockCollectionRepository implements repository.CollectionRepository for testing.
// Collections are kept as JSON so callers never share maps with the mock.
type MockCollectionRepository struct {
	mu        sync.Mutex
	urls      []byte
	analytics []byte

	// Injected failures
	LoadURLsStatus      repository.LoadStatus
	LoadAnalyticsStatus repository.LoadStatus
	SaveErr             error

	URLSaves       int
	AnalyticsSaves int
}

func NewMockCollectionRepository() *MockCollectionRepository {
	return &MockCollectionRepository{}
}

func (m *MockCollectionRepository) LoadURLs(ctx context.Context) repository.LoadResult[models.URLCollection] {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := repository.LoadResult[models.URLCollection]{Data: models.URLCollection{}}
	return loadInto(m.urls, m.LoadURLsStatus, res)
}

func (m *MockCollectionRepository) SaveURLs(ctx context.Context, urls models.URLCollection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.URLSaves++
	m.urls, _ = json.Marshal(urls)
	return nil
}

func (m *MockCollectionRepository) LoadAnalytics(ctx context.Context) repository.LoadResult[models.AnalyticsCollection] {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := repository.LoadResult[models.AnalyticsCollection]{Data: models.AnalyticsCollection{}}
	return loadInto(m.analytics, m.LoadAnalyticsStatus, res)
}

func (m *MockCollectionRepository) SaveAnalytics(ctx context.Context, analytics models.AnalyticsCollection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.AnalyticsSaves++
	m.analytics, _ = json.Marshal(analytics)
	return nil
}

// Saves returns the total number of successful collection writes
func (m *MockCollectionRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.URLSaves + m.AnalyticsSaves
}

func (m *MockCollectionRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = nil
	m.analytics = nil
	m.URLSaves = 0
	m.AnalyticsSaves = 0
}

func loadInto[T any](raw []byte, forced repository.LoadStatus, res repository.LoadResult[T]) repository.LoadResult[T] {
	switch {
	case forced == repository.LoadCorrupted:
		res.Status = repository.LoadCorrupted
		res.Err = repository.ErrCollectionCorrupted
	case forced == repository.LoadUnavailable:
		res.Status = repository.LoadUnavailable
		res.Err = repository.ErrCollectionUnavailable
	case raw == nil:
		res.Status = repository.LoadEmpty
	default:
		_ = json.Unmarshal(raw, &res.Data)
		res.Status = repository.LoadOK
	}
	return res
}
