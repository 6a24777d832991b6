package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/local-shortener/internal/models"
	"github.com/SergeiKhy/local-shortener/internal/repository"
	"github.com/SergeiKhy/local-shortener/internal/service"
	"github.com/SergeiKhy/local-shortener/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock управляемые часы для тестов
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// zeroReader всегда отдаёт нули: генератор будет выдавать один и тот же код
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func intPtr(v int) *int { return &v }

// setupTestService создаёт сервис поверх мокового репозитория
func setupTestService(t *testing.T, opts ...func(*service.Options)) (service.ShortenerService, *mocks.MockCollectionRepository, *fakeClock) {
	t.Helper()

	repo := mocks.NewMockCollectionRepository()
	clock := newFakeClock()
	logger, _ := zap.NewDevelopment()

	o := service.Options{
		Location: time.UTC,
		Clock:    clock.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return service.NewShortenerService(repo, logger, o), repo, clock
}

func withZeroRandom(o *service.Options) { o.Random = zeroReader{} }

func TestGenerateShortcode(t *testing.T) {
	svc, _, _ := setupTestService(t)

	code, err := svc.GenerateShortcode(0)
	require.NoError(t, err)
	assert.Len(t, code, service.DefaultShortcodeLength)

	code, err = svc.GenerateShortcode(20)
	require.NoError(t, err)
	assert.Len(t, code, 20)
	for _, r := range code {
		assert.True(t, strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789", r))
	}
}

func TestGenerateShortcode_CustomLengthOption(t *testing.T) {
	svc, _, _ := setupTestService(t, func(o *service.Options) { o.ShortcodeLength = 5 })

	code, err := svc.GenerateShortcode(0)
	require.NoError(t, err)
	assert.Len(t, code, 5)
}

func TestAddURL_WithExpiry(t *testing.T) {
	svc, _, clock := setupTestService(t)
	ctx := context.Background()

	record, err := svc.AddURL(ctx, "https://example.com/long", "promo", 45)
	require.NoError(t, err)

	assert.Equal(t, "promo", record.Shortcode)
	assert.Equal(t, clock.Now().UnixMilli(), record.CreatedAt)
	require.NotNil(t, record.ExpiryTime)
	assert.Equal(t, record.CreatedAt+45*60000, *record.ExpiryTime)
	assert.Equal(t, 45, record.ValidityMinutes)

	stored := svc.GetURLByShortcode(ctx, "promo")
	require.NotNil(t, stored)
	assert.Equal(t, *record, *stored)

	analytics := svc.GetAnalytics(ctx).Data["promo"]
	assert.Equal(t, 0, analytics.TotalClicks)
	assert.NotNil(t, analytics.Clicks)
	assert.Empty(t, analytics.Clicks)
}

func TestAddURL_ZeroValidityNeverExpires(t *testing.T) {
	svc, _, _ := setupTestService(t)

	record, err := svc.AddURL(context.Background(), "https://example.com", "", 0)
	require.NoError(t, err)

	assert.Nil(t, record.ExpiryTime)
	assert.Len(t, record.Shortcode, service.DefaultShortcodeLength)
}

func TestAddURL_CustomShortcodeCollision(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.AddURL(ctx, "https://a.example", "taken", 30)
	require.NoError(t, err)

	record, err := svc.AddURL(ctx, "https://b.example", "taken", 30)
	assert.ErrorIs(t, err, service.ErrShortcodeExists)
	assert.Nil(t, record)

	// первая запись не пострадала
	assert.Equal(t, "https://a.example", svc.GetURLByShortcode(ctx, "taken").OriginalURL)
}

// Сгенерированный код при коллизии не перегенерируется
func TestAddURL_GeneratedCollisionIsNotRetried(t *testing.T) {
	svc, repo, _ := setupTestService(t, withZeroRandom)
	ctx := context.Background()

	first, err := svc.AddURL(ctx, "https://a.example", "", 30)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAA", first.Shortcode)

	savesBefore := repo.Saves()

	_, err = svc.AddURL(ctx, "https://b.example", "", 30)
	assert.ErrorIs(t, err, service.ErrShortcodeExists)
	assert.Equal(t, savesBefore, repo.Saves())
	assert.Len(t, svc.GetStoredURLs(ctx).Data, 1)
}

func TestGetURLByShortcode_NoExpiryCheck(t *testing.T) {
	svc, _, clock := setupTestService(t)
	ctx := context.Background()

	_, err := svc.AddURL(ctx, "https://example.com", "old", 1)
	require.NoError(t, err)
	clock.Advance(time.Hour)

	assert.NotNil(t, svc.GetURLByShortcode(ctx, "old"))
	assert.Nil(t, svc.GetURLByShortcode(ctx, "missing"))
}

func TestCleanupExpiredURLs(t *testing.T) {
	svc, repo, clock := setupTestService(t)
	ctx := context.Background()

	_, err := svc.AddURL(ctx, "https://one.example", "short", 1)
	require.NoError(t, err)
	_, err = svc.AddURL(ctx, "https://two.example", "long", 10)
	require.NoError(t, err)
	_, err = svc.AddURL(ctx, "https://three.example", "forever", 0)
	require.NoError(t, err)
	svc.RecordClick(ctx, "short", models.Visit{})

	// ровно в момент истечения ссылка ещё жива
	clock.Advance(time.Minute)
	assert.False(t, svc.CleanupExpiredURLs(ctx))

	clock.Advance(time.Millisecond)
	assert.True(t, svc.CleanupExpiredURLs(ctx))

	urls := svc.GetStoredURLs(ctx).Data
	assert.NotContains(t, urls, "short")
	assert.Contains(t, urls, "long")
	assert.Contains(t, urls, "forever")
	assert.NotContains(t, svc.GetAnalytics(ctx).Data, "short")

	// повторный вызов ничего не удаляет и ничего не пишет
	saves := repo.Saves()
	assert.False(t, svc.CleanupExpiredURLs(ctx))
	assert.Equal(t, saves, repo.Saves())
}

func TestRecordClick_AppendsInOrder(t *testing.T) {
	svc, _, clock := setupTestService(t)
	ctx := context.Background()

	_, err := svc.AddURL(ctx, "https://example.com", "clicks", 30)
	require.NoError(t, err)

	const n = 5
	for i := 0; i < n; i++ {
		svc.RecordClick(ctx, "clicks", models.Visit{UserAgent: "agent"})
		clock.Advance(time.Second)
	}

	record := svc.GetAnalytics(ctx).Data["clicks"]
	assert.Equal(t, n, record.TotalClicks)
	require.Len(t, record.Clicks, n)
	for i := 1; i < n; i++ {
		assert.Less(t, record.Clicks[i-1].Timestamp, record.Clicks[i].Timestamp)
	}
}

// Без явной таймзоны клик получает "UTC", а не "Local"
func TestRecordClick_NilLocationDefaultsToUTC(t *testing.T) {
	svc, _, _ := setupTestService(t, func(o *service.Options) { o.Location = nil })

	click := svc.RecordClick(context.Background(), "tz", models.Visit{})

	assert.Equal(t, "UTC", click.Timezone)
	_, err := time.LoadLocation(click.Timezone)
	assert.NoError(t, err)
}

func TestRecordClick_Defaults(t *testing.T) {
	svc, _, clock := setupTestService(t)
	ctx := context.Background()

	click := svc.RecordClick(ctx, "unknown", models.Visit{UserAgent: "Mozilla/5.0"})

	assert.Equal(t, service.ReferrerDirect, click.Referrer)
	assert.Equal(t, "UTC", click.Timezone)
	assert.Equal(t, "Mozilla/5.0", click.UserAgent)
	assert.Equal(t, clock.Now().UnixMilli(), click.Timestamp)

	// аналитика создаётся лениво даже для неизвестного кода
	record := svc.GetAnalytics(ctx).Data["unknown"]
	assert.Equal(t, 1, record.TotalClicks)

	click = svc.RecordClick(ctx, "unknown", models.Visit{
		Referrer: "https://t.me/",
		Timezone: "Asia/Tokyo",
	})
	assert.Equal(t, "https://t.me/", click.Referrer)
	assert.Equal(t, "Asia/Tokyo", click.Timezone)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	expiry := int64(1_700_000_060_000)
	urls := models.URLCollection{
		"a1": {OriginalURL: "https://a.example", Shortcode: "a1", CreatedAt: 1_700_000_000_000, ExpiryTime: &expiry, ValidityMinutes: 1},
		"b2": {OriginalURL: "https://b.example", Shortcode: "b2", CreatedAt: 1_700_000_000_000},
	}
	require.NoError(t, svc.SaveURLs(ctx, urls))
	assert.Equal(t, urls, svc.GetStoredURLs(ctx).Data)

	analytics := models.AnalyticsCollection{
		"a1": {Clicks: []models.ClickEvent{{Timestamp: 1, Referrer: "Direct", UserAgent: "x", Timezone: "UTC"}}, TotalClicks: 1},
	}
	require.NoError(t, svc.SaveAnalytics(ctx, analytics))
	assert.Equal(t, analytics, svc.GetAnalytics(ctx).Data)
}

func TestCorruptedStorageDegradesToEmpty(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.AddURL(ctx, "https://example.com", "keep", 30)
	require.NoError(t, err)

	repo.LoadURLsStatus = repository.LoadCorrupted

	res := svc.GetStoredURLs(ctx)
	assert.Equal(t, repository.LoadCorrupted, res.Status)
	assert.True(t, res.Degraded())
	assert.Empty(t, res.Data)
	assert.Nil(t, svc.GetURLByShortcode(ctx, "keep"))

	// запись продолжает работать поверх пустой коллекции
	_, err = svc.AddURL(ctx, "https://example.org", "fresh", 30)
	assert.NoError(t, err)
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	svc, repo, _ := setupTestService(t)
	ctx := context.Background()

	repo.SaveErr = errors.New("quota exceeded")

	record, err := svc.AddURL(ctx, "https://example.com", "lost", 30)
	require.NoError(t, err)
	assert.Equal(t, "lost", record.Shortcode)
	assert.Nil(t, svc.GetURLByShortcode(ctx, "lost"))

	click := svc.RecordClick(ctx, "lost", models.Visit{})
	assert.Equal(t, service.ReferrerDirect, click.Referrer)

	assert.Error(t, svc.SaveURLs(ctx, models.URLCollection{}))
}

func TestResolve(t *testing.T) {
	svc, _, clock := setupTestService(t)
	ctx := context.Background()

	_, err := svc.AddURL(ctx, "https://example.com", "live", 5)
	require.NoError(t, err)

	record, err := svc.Resolve(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", record.OriginalURL)

	_, err = svc.Resolve(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrURLNotFound)

	clock.Advance(6 * time.Minute)
	_, err = svc.Resolve(ctx, "live")
	assert.ErrorIs(t, err, service.ErrURLExpired)
}
