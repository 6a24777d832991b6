package models

// Варианты сортировки статистики
const (
	SortByCreated = "created"
	SortByClicks  = "clicks"
	SortByExpiry  = "expiry"
)

type StatsQuery struct {
	Search string
	SortBy string
}

type StatsSummary struct {
	TotalURLs   int `json:"totalUrls"`
	TotalClicks int `json:"totalClicks"`
	ActiveURLs  int `json:"activeUrls"`
}

type StatsEntry struct {
	URLRecord
	Analytics AnalyticsRecord `json:"analytics"`
	Expired   bool            `json:"expired"`
	ExpiresIn string          `json:"expiresIn"`
}

type Dashboard struct {
	Summary StatsSummary `json:"summary"`
	Entries []StatsEntry `json:"entries"`
}
