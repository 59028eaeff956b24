package services

import (
	"context"
	"fmt"
	"sync"
)

// CounterStore - хранилище значений счетчиков (postgres или redis)
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	Set(ctx context.Context, key string, value int64) error
}

// AtomicIncrementer - хранилище, которое само умеет атомарный инкремент (redis INCRBY)
type AtomicIncrementer interface {
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
}

// CounterService сериализует read-modify-write над счетчиками.
// Мьютекс локален для процесса: между несколькими инстансами
// корректность дает только атомарная операция хранилища.
type CounterService interface {
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type counterService struct {
	mu    sync.Mutex
	store CounterStore
}

func NewCounterService(store CounterStore) CounterService {
	return &counterService{store: store}
}

func (s *counterService) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inc, ok := s.store.(AtomicIncrementer); ok {
		next, err := inc.IncrBy(ctx, key, delta)
		if err != nil {
			return 0, fmt.Errorf("incr counter %s: %w", key, err)
		}
		if next < 0 {
			return 0, s.store.Set(ctx, key, 0)
		}
		return next, nil
	}

	current, err := s.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read counter %s: %w", key, err)
	}
	next := current + delta
	if next < 0 {
		next = 0
	}
	if err := s.store.Set(ctx, key, next); err != nil {
		return 0, fmt.Errorf("write counter %s: %w", key, err)
	}
	return next, nil
}

func (s *counterService) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(ctx, key)
}

func (s *counterService) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Set(ctx, key, 0)
}

// UnreadCounterKey - ключ счетчика непрочитанных уведомлений пользователя
func UnreadCounterKey(userID string) string {
	return "notifications:unread:" + userID
}
