package models

import (
	"time"
)

// URLRecord сокращённая ссылка в том виде, в котором она лежит в хранилище
type URLRecord struct {
	OriginalURL     string `json:"originalUrl"`
	Shortcode       string `json:"shortcode"`
	CreatedAt       int64  `json:"createdAt"`
	ExpiryTime      *int64 `json:"expiryTime"`
	ValidityMinutes int    `json:"validityMinutes"`
}

// URLCollection shortcode -> URLRecord
type URLCollection map[string]URLRecord

// IsExpired сообщает, истёк ли срок жизни ссылки на момент now.
// Ссылка без expiryTime не истекает никогда.
func (r *URLRecord) IsExpired(now time.Time) bool {
	return r.ExpiryTime != nil && now.UnixMilli() > *r.ExpiryTime
}

// ShortenEntry одна строка формы пакетного сокращения
type ShortenEntry struct {
	OriginalURL     string `json:"originalUrl"`
	CustomShortcode string `json:"customShortcode,omitempty"`
	ValidityMinutes *int   `json:"validityMinutes,omitempty"`
}

// BatchResult результат пакетного сокращения.
// Errors индексируется ключами вида "<index>_<field>".
type BatchResult struct {
	Records []URLRecord       `json:"links"`
	Errors  map[string]string `json:"fields,omitempty"`
}
