package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SergeiKhy/local-shortener/internal/models"
)

var (
	ErrCollectionCorrupted   = errors.New("collection is corrupted")
	ErrCollectionUnavailable = errors.New("storage is unavailable")
)

// LoadStatus чем закончилась загрузка коллекции
type LoadStatus int

const (
	LoadOK LoadStatus = iota
	LoadEmpty
	LoadCorrupted
	LoadUnavailable
)

func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadEmpty:
		return "empty"
	case LoadCorrupted:
		return "corrupted"
	case LoadUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// LoadResult коллекция плюс диагностика.
// Data никогда не nil: при ошибке это пустая коллекция.
type LoadResult[T any] struct {
	Data   T
	Status LoadStatus
	Err    error
}

// Degraded true, если коллекция подменена пустой из-за ошибки
func (r LoadResult[T]) Degraded() bool {
	return r.Status == LoadCorrupted || r.Status == LoadUnavailable
}

type CollectionRepository interface {
	LoadURLs(ctx context.Context) LoadResult[models.URLCollection]
	SaveURLs(ctx context.Context, urls models.URLCollection) error
	LoadAnalytics(ctx context.Context) LoadResult[models.AnalyticsCollection]
	SaveAnalytics(ctx context.Context, analytics models.AnalyticsCollection) error
}

type collectionRepository struct {
	store KeyValueStore
}

func NewCollectionRepository(store KeyValueStore) CollectionRepository {
	return &collectionRepository{store: store}
}

func (r *collectionRepository) LoadURLs(ctx context.Context) LoadResult[models.URLCollection] {
	return load[models.URLCollection](ctx, r.store, URLsKey)
}

func (r *collectionRepository) SaveURLs(ctx context.Context, urls models.URLCollection) error {
	return save(ctx, r.store, URLsKey, urls)
}

func (r *collectionRepository) LoadAnalytics(ctx context.Context) LoadResult[models.AnalyticsCollection] {
	return load[models.AnalyticsCollection](ctx, r.store, AnalyticsKey)
}

func (r *collectionRepository) SaveAnalytics(ctx context.Context, analytics models.AnalyticsCollection) error {
	return save(ctx, r.store, AnalyticsKey, analytics)
}

func load[T ~map[string]V, V any](ctx context.Context, store KeyValueStore, key string) LoadResult[T] {
	raw, found, err := store.GetItem(ctx, key)
	if err != nil {
		return LoadResult[T]{
			Data:   make(T),
			Status: LoadUnavailable,
			Err:    fmt.Errorf("%w: read %q: %w", ErrCollectionUnavailable, key, err),
		}
	}
	if !found || raw == "" {
		return LoadResult[T]{Data: make(T), Status: LoadEmpty}
	}

	var data T
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return LoadResult[T]{
			Data:   make(T),
			Status: LoadCorrupted,
			Err:    fmt.Errorf("%w: decode %q: %w", ErrCollectionCorrupted, key, err),
		}
	}
	if data == nil {
		data = make(T)
	}

	return LoadResult[T]{Data: data, Status: LoadOK}
}

func save[T any](ctx context.Context, store KeyValueStore, key string, data T) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	if err := store.SetItem(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}

	return nil
}
