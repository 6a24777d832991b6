package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/SergeiKhy/local-shortener/internal/models"
	"github.com/SergeiKhy/local-shortener/internal/service"
	"github.com/SergeiKhy/local-shortener/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortcodes(entries []models.StatsEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Shortcode)
	}
	return out
}

// seedStats три ссылки, созданные с интервалом в минуту
func seedStats(t *testing.T) (service.ShortenerService, *fakeClock) {
	t.Helper()

	svc, _, clock := setupTestService(t)
	ctx := context.Background()

	_, err := svc.AddURL(ctx, "https://golang.org/doc", "golang", 120)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	_, err = svc.AddURL(ctx, "https://example.com/Blog", "blog", 0)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	_, err = svc.AddURL(ctx, "https://news.example/today", "news", 10)
	require.NoError(t, err)

	svc.RecordClick(ctx, "blog", models.Visit{})
	svc.RecordClick(ctx, "blog", models.Visit{})
	svc.RecordClick(ctx, "news", models.Visit{})

	return svc, clock
}

func TestStatistics_SummaryAndDefaultSort(t *testing.T) {
	svc, _ := seedStats(t)

	dash := svc.Statistics(context.Background(), models.StatsQuery{})

	assert.Equal(t, models.StatsSummary{TotalURLs: 3, TotalClicks: 3, ActiveURLs: 3}, dash.Summary)
	assert.Equal(t, []string{"news", "blog", "golang"}, shortcodes(dash.Entries))
	assert.Equal(t, 2, dash.Entries[1].Analytics.TotalClicks)
	assert.Equal(t, "Never expires", dash.Entries[1].ExpiresIn)
	assert.Equal(t, "10m left", dash.Entries[0].ExpiresIn)
}

func TestStatistics_SortByClicksAndExpiry(t *testing.T) {
	svc, _ := seedStats(t)
	ctx := context.Background()

	dash := svc.Statistics(ctx, models.StatsQuery{SortBy: models.SortByClicks})
	assert.Equal(t, []string{"blog", "news", "golang"}, shortcodes(dash.Entries))

	dash = svc.Statistics(ctx, models.StatsQuery{SortBy: models.SortByExpiry})
	assert.Equal(t, []string{"news", "golang", "blog"}, shortcodes(dash.Entries))
}

func TestStatistics_SearchIsCaseInsensitive(t *testing.T) {
	svc, _ := seedStats(t)
	ctx := context.Background()

	dash := svc.Statistics(ctx, models.StatsQuery{Search: "BLOG"})
	assert.Equal(t, []string{"blog"}, shortcodes(dash.Entries))
	// сводка считается по всем ссылкам, а не по отфильтрованным
	assert.Equal(t, 3, dash.Summary.TotalURLs)

	dash = svc.Statistics(ctx, models.StatsQuery{Search: "golang"})
	assert.Equal(t, []string{"golang"}, shortcodes(dash.Entries))

	dash = svc.Statistics(ctx, models.StatsQuery{Search: "nothing-matches"})
	assert.Empty(t, dash.Entries)
}

func TestStatistics_RunsCleanupFirst(t *testing.T) {
	svc, clock := seedStats(t)

	clock.Advance(30 * time.Minute)
	dash := svc.Statistics(context.Background(), models.StatsQuery{})

	assert.Equal(t, []string{"blog", "golang"}, shortcodes(dash.Entries))
	// клики удалённой ссылки ушли вместе с ней
	assert.Equal(t, models.StatsSummary{TotalURLs: 2, TotalClicks: 2, ActiveURLs: 2}, dash.Summary)
}

func TestTimeUntilExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *int64 {
		v := now.Add(d).UnixMilli()
		return &v
	}

	assert.Equal(t, "Never expires", service.TimeUntilExpiry(nil, now))
	assert.Equal(t, "Expired", service.TimeUntilExpiry(at(0), now))
	assert.Equal(t, "Expired", service.TimeUntilExpiry(at(-time.Minute), now))
	assert.Equal(t, "0m left", service.TimeUntilExpiry(at(30*time.Second), now))
	assert.Equal(t, "45m left", service.TimeUntilExpiry(at(45*time.Minute), now))
	assert.Equal(t, "2h 5m left", service.TimeUntilExpiry(at(2*time.Hour+5*time.Minute), now))
	assert.Equal(t, "3d 4h left", service.TimeUntilExpiry(at(76*time.Hour+10*time.Minute), now))

	// дальше предела time.Duration
	far := now.UnixMilli() + validator.MaxValidityMinutes*60000
	assert.Equal(t, "100000000d 0h left", service.TimeUntilExpiry(&far, now))
}
