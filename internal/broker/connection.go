package broker

import (
	"fmt"
	"sync"

	"platform_backend/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection - соединение с RabbitMQ и канал поверх него.
// При обрыве соединения монитор помечает брокер недоступным.
type Connection struct {
	mu      sync.Mutex
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	monitor Availability
}

// NewConnection не подключается сразу: первый Channel() откроет соединение
func NewConnection(url string, monitor Availability) *Connection {
	return &Connection{url: url, monitor: monitor}
}

func Dial(url string, monitor Availability) (*Connection, error) {
	c := NewConnection(url, monitor)
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = ch

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if amqpErr, ok := <-closed; ok {
			logger.WithComponent("broker").Warn("rabbitmq connection closed", "error", amqpErr.Error())
			if c.monitor != nil {
				c.monitor.MarkAsDown()
			}
		}
	}()
	return nil
}

// Channel возвращает рабочий канал, переподключаясь при необходимости
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed() {
		if c.conn != nil && !c.conn.IsClosed() {
			c.conn.Close()
		}
		if err := c.connect(); err != nil {
			return nil, err
		}
		logger.WithComponent("broker").Info("rabbitmq reconnected")
	}
	return c.channel, nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
