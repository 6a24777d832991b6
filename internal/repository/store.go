package repository

import (
	"context"
)

// Ключи коллекций в хранилище
const (
	URLsKey      = "urls"
	AnalyticsKey = "analytics"
)

// KeyValueStore строковое хранилище ключ-значение.
// Коллекции читаются и пишутся целиком, транзакций между ключами нет.
type KeyValueStore interface {
	// GetItem возвращает found=false, если ключа нет
	GetItem(ctx context.Context, key string) (value string, found bool, err error)
	SetItem(ctx context.Context, key, value string) error
}
