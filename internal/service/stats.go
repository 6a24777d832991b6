package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/SergeiKhy/local-shortener/internal/models"
)

// Statistics собирает данные для дашборда: перед чтением чистит просроченные ссылки,
// затем фильтрует по подстроке и сортирует.
func (s *shortenerService) Statistics(ctx context.Context, query models.StatsQuery) *models.Dashboard {
	s.mu.Lock()
	s.cleanupExpired(ctx)
	urls := s.loadURLs(ctx).Data
	analytics := s.loadAnalytics(ctx).Data
	s.mu.Unlock()

	now := s.now()
	dashboard := &models.Dashboard{
		Summary: models.StatsSummary{TotalURLs: len(urls)},
		Entries: []models.StatsEntry{},
	}

	for _, a := range analytics {
		dashboard.Summary.TotalClicks += a.TotalClicks
	}

	search := strings.ToLower(query.Search)
	for _, record := range urls {
		expired := record.IsExpired(now)
		if record.ExpiryTime == nil || *record.ExpiryTime > now.UnixMilli() {
			dashboard.Summary.ActiveURLs++
		}

		if search != "" &&
			!strings.Contains(strings.ToLower(record.OriginalURL), search) &&
			!strings.Contains(strings.ToLower(record.Shortcode), search) {
			continue
		}

		entryAnalytics, ok := analytics[record.Shortcode]
		if !ok {
			entryAnalytics = models.AnalyticsRecord{Clicks: []models.ClickEvent{}}
		}

		dashboard.Entries = append(dashboard.Entries, models.StatsEntry{
			URLRecord: record,
			Analytics: entryAnalytics,
			Expired:   expired,
			ExpiresIn: TimeUntilExpiry(record.ExpiryTime, now),
		})
	}

	sortEntries(dashboard.Entries, query.SortBy)
	return dashboard
}

// sortEntries порядок при равенстве ключей определяется shortcode
func sortEntries(entries []models.StatsEntry, sortBy string) {
	slices.SortFunc(entries, func(a, b models.StatsEntry) int {
		return cmp.Compare(a.Shortcode, b.Shortcode)
	})

	switch sortBy {
	case models.SortByClicks:
		slices.SortStableFunc(entries, func(a, b models.StatsEntry) int {
			return cmp.Compare(b.Analytics.TotalClicks, a.Analytics.TotalClicks)
		})
	case models.SortByExpiry:
		slices.SortStableFunc(entries, compareExpiry)
	case models.SortByCreated, "":
		slices.SortStableFunc(entries, func(a, b models.StatsEntry) int {
			return cmp.Compare(b.CreatedAt, a.CreatedAt)
		})
	}
}

// compareExpiry ближайшие к истечению первыми, бессрочные в конце
func compareExpiry(a, b models.StatsEntry) int {
	switch {
	case a.ExpiryTime == nil && b.ExpiryTime == nil:
		return 0
	case a.ExpiryTime == nil:
		return 1
	case b.ExpiryTime == nil:
		return -1
	default:
		return cmp.Compare(*a.ExpiryTime, *b.ExpiryTime)
	}
}

// TimeUntilExpiry человекочитаемый остаток жизни ссылки
func TimeUntilExpiry(expiryTime *int64, now time.Time) string {
	if expiryTime == nil {
		return "Never expires"
	}

	// в миллисекундах: time.Duration переполняется после ~292 лет
	left := *expiryTime - now.UnixMilli()
	if left <= 0 {
		return "Expired"
	}

	const (
		msPerMinute = int64(time.Minute / time.Millisecond)
		msPerHour   = int64(time.Hour / time.Millisecond)
		msPerDay    = 24 * msPerHour
	)
	days := left / msPerDay
	hours := left % msPerDay / msPerHour
	minutes := left % msPerHour / msPerMinute

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh left", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm left", hours, minutes)
	default:
		return fmt.Sprintf("%dm left", minutes)
	}
}
