package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis реализует только команды, которые использует пакет
type fakeRedis struct {
	redis.Cmdable

	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	gets int
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) IncrBy(_ context.Context, key string, value int64) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	current := int64(0)
	if raw, ok := f.data[key]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return redis.NewIntResult(0, errors.New("ERR value is not an integer"))
		}
		current = parsed
	}
	current += value
	f.data[key] = strconv.FormatInt(current, 10)
	return redis.NewIntResult(current, nil)
}
