package broker

import (
	"testing"
	"time"

	"platform_backend/internal/clock"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_AvailableByDefault(t *testing.T) {
	m := NewMonitor(clock.NewFake(time.Unix(0, 0)), 30*time.Second, nil)
	assert.True(t, m.IsAvailable())
}

func TestMonitor_DownUntilNextTick(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	m := NewMonitor(fake, 30*time.Second, nil)

	fake.Advance(5 * time.Second)
	m.MarkAsDown()
	assert.False(t, m.IsAvailable())

	fake.Set(start.Add(29 * time.Second))
	assert.False(t, m.IsAvailable())

	fake.Set(start.Add(30 * time.Second))
	assert.True(t, m.IsAvailable())
	assert.True(t, m.IsAvailable())
}

func TestMonitor_OneRetryPerInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	m := NewMonitor(fake, 30*time.Second, nil)

	m.MarkAsDown()
	fake.Set(start.Add(30 * time.Second))
	assert.True(t, m.IsAvailable())

	// повторная ошибка в том же интервале ждет следующего тика
	fake.Set(start.Add(31 * time.Second))
	m.MarkAsDown()
	assert.False(t, m.IsAvailable())

	fake.Set(start.Add(59 * time.Second))
	assert.False(t, m.IsAvailable())

	fake.Set(start.Add(60 * time.Second))
	assert.True(t, m.IsAvailable())
}

func TestMonitor_RepeatedMarkDoesNotExtend(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	m := NewMonitor(fake, 30*time.Second, nil)

	m.MarkAsDown()
	fake.Advance(20 * time.Second)
	m.MarkAsDown()

	fake.Set(start.Add(30 * time.Second))
	assert.True(t, m.IsAvailable())
}

func TestMonitor_DefaultInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	m := NewMonitor(fake, 0, nil)

	m.MarkAsDown()
	fake.Set(start.Add(29 * time.Second))
	assert.False(t, m.IsAvailable())
	fake.Set(start.Add(30 * time.Second))
	assert.True(t, m.IsAvailable())
}
