package ws

import (
	"sync"

	"platform_backend/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Conn - зарегистрированное соединение пользователя
type Conn interface {
	SocketID() string
	Emit(event string, data any) error
}

// Registry хранит одно соединение на пользователя.
// Повторное подключение вытесняет прежнее соединение из реестра, но не закрывает его:
// старый сокет живет, пока клиент сам не отключится, и уведомлений больше не получает.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn // userID -> соединение
	gauge prometheus.Gauge
}

func NewRegistry(gauge prometheus.Gauge) *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		gauge: gauge,
	}
}

// Add регистрирует соединение и возвращает вытесненное, если оно было
func (r *Registry) Add(userID string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced := r.conns[userID]
	r.conns[userID] = conn
	r.updateGauge()

	if replaced {
		logger.WithComponent("ws").Info("connection replaced",
			"user_id", userID,
			"old_socket_id", previous.SocketID(),
			"socket_id", conn.SocketID(),
		)
		return previous
	}
	logger.WithComponent("ws").Info("client registered", "user_id", userID, "socket_id", conn.SocketID(), "total", len(r.conns))
	return nil
}

// Remove ищет соединение по socket id перебором всех пользователей.
// Неизвестный или уже вытесненный socket id ничего не меняет.
func (r *Registry) Remove(socketID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, conn := range r.conns {
		if conn.SocketID() == socketID {
			delete(r.conns, userID)
			r.updateGauge()
			logger.WithComponent("ws").Info("client unregistered", "user_id", userID, "socket_id", socketID, "total", len(r.conns))
			return userID, true
		}
	}
	return "", false
}

func (r *Registry) Get(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.Get(userID)
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) updateGauge() {
	if r.gauge != nil {
		r.gauge.Set(float64(len(r.conns)))
	}
}
