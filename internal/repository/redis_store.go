package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client    redis.Cmdable
	namespace string
}

// NewRedisStore хранит каждую коллекцию одной строкой под ключом "<namespace>:<key>"
func NewRedisStore(client redis.Cmdable, namespace string) KeyValueStore {
	return &redisStore{client: client, namespace: namespace}
}

func (s *redisStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}

	return v, true, nil
}

func (s *redisStore) SetItem(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (s *redisStore) key(key string) string {
	return namespaced(s.namespace, key)
}

func namespaced(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
