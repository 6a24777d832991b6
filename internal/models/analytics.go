package models

// ClickEvent одно посещение короткой ссылки
type ClickEvent struct {
	Timestamp int64  `json:"timestamp"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"userAgent"`
	Timezone  string `json:"timezone"`
}

// AnalyticsRecord журнал кликов по одной короткой ссылке.
// TotalClicks всегда равен len(Clicks).
type AnalyticsRecord struct {
	Clicks      []ClickEvent `json:"clicks"`
	TotalClicks int          `json:"totalClicks"`
}

// AnalyticsCollection shortcode -> AnalyticsRecord
type AnalyticsCollection map[string]AnalyticsRecord

// Visit данные о посетителе, которые сообщает слой представления
type Visit struct {
	Referrer  string
	UserAgent string
	Timezone  string
}
