package broker

import (
	"sync"
	"time"

	"platform_backend/internal/clock"
	"platform_backend/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Availability - совет "стоит ли пытаться публиковать"
type Availability interface {
	IsAvailable() bool
	MarkAsDown()
}

// Monitor хранит флаг доступности брокера.
// Связь не проверяется: флаг сбрасывается в "доступен" на ближайшем тике
// (тики идут с шагом interval от момента создания), и следующая публикация
// становится попыткой переподключения.
type Monitor struct {
	mu        sync.Mutex
	clock     clock.Clock
	interval  time.Duration
	start     time.Time
	downUntil time.Time
	gauge     prometheus.Gauge
}

func NewMonitor(c clock.Clock, interval time.Duration, gauge prometheus.Gauge) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m := &Monitor{
		clock:    c,
		interval: interval,
		start:    c.Now(),
		gauge:    gauge,
	}
	m.setGauge(true)
	return m
}

func (m *Monitor) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.downUntil.IsZero() {
		return true
	}
	if m.clock.Now().Before(m.downUntil) {
		return false
	}

	m.downUntil = time.Time{}
	m.setGauge(true)
	logger.WithComponent("broker_monitor").Info("broker marked as available, next publish will retry")
	return true
}

func (m *Monitor) MarkAsDown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.nextTick(m.clock.Now())
	if !m.downUntil.IsZero() && !next.After(m.downUntil) {
		return
	}
	m.downUntil = next
	m.setGauge(false)
	logger.WithComponent("broker_monitor").Warn("broker marked as down", "retry_after", next)
}

// nextTick - первый тик строго после t
func (m *Monitor) nextTick(t time.Time) time.Time {
	elapsed := t.Sub(m.start)
	if elapsed < 0 {
		return m.start
	}
	ticks := elapsed/m.interval + 1
	return m.start.Add(ticks * m.interval)
}

func (m *Monitor) setGauge(up bool) {
	if m.gauge == nil {
		return
	}
	if up {
		m.gauge.Set(1)
	} else {
		m.gauge.Set(0)
	}
}
