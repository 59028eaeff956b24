package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const counterKeyPrefix = "counter:"

// CounterStore хранит значения счетчиков в Redis без срока жизни
type CounterStore struct {
	client redis.Cmdable
}

func NewCounterStore(client redis.Cmdable) *CounterStore {
	return &CounterStore{client: client}
}

func (s *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Get(ctx, counterKeyPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return value, err
}

func (s *CounterStore) Set(ctx context.Context, key string, value int64) error {
	return s.client.Set(ctx, counterKeyPrefix+key, value, 0).Err()
}

// IncrBy - атомарный инкремент на стороне Redis, общий для всех инстансов
func (s *CounterStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return s.client.IncrBy(ctx, counterKeyPrefix+key, delta).Result()
}
