package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"uc-donate-bot/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	NotifyExchange   = "order.notify.exchange"
	NotifyQueue      = "order.notify.queue"
	NotifyRoutingKey = "order.notify"

	// 重连间隔
	reconnectDelay = 3 * time.Second
)

// OrderEventMessage 订单生命周期事件（创建/付款上报/完成）
type OrderEventMessage struct {
	OrderID   int64  `json:"order_id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Option    string `json:"option"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// RabbitMQ 封装（支持自动重连）。事件发布是尽力而为的：
// 失败只记日志，不影响触发它的状态流转。
type RabbitMQ struct {
	url string

	conn    *amqp.Connection
	channel *amqp.Channel

	mu          sync.RWMutex
	isConnected bool
	done        chan struct{}
}

// NewRabbitMQ 创建 RabbitMQ 连接并声明队列
func NewRabbitMQ(url string) (*RabbitMQ, error) {
	r := &RabbitMQ{
		url:  url,
		done: make(chan struct{}),
	}

	if err := r.connect(); err != nil {
		return nil, err
	}

	// 启动连接监控 goroutine
	go r.monitorConnection()

	return r, nil
}

// connect 建立连接
func (r *RabbitMQ) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("打开 Channel 失败: %w", err)
	}

	r.conn = conn
	r.channel = ch
	r.isConnected = true

	if err := r.declareTopology(); err != nil {
		ch.Close()
		conn.Close()
		r.isConnected = false
		return err
	}

	logger.Logger.Info().Msg("RabbitMQ 连接成功")
	return nil
}

// monitorConnection 监控连接状态，断开时自动重连
func (r *RabbitMQ) monitorConnection() {
	for {
		select {
		case <-r.done:
			return
		default:
		}

		r.mu.RLock()
		conn := r.conn
		r.mu.RUnlock()

		if conn == nil {
			time.Sleep(reconnectDelay)
			continue
		}

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-r.done:
			return
		case err := <-notifyClose:
			if err != nil {
				logger.Logger.Warn().Err(err).Msg("RabbitMQ 连接断开")
			}

			r.mu.Lock()
			r.isConnected = false
			r.mu.Unlock()

			r.reconnect()
		}
	}
}

// reconnect 重连逻辑（无限重试）
func (r *RabbitMQ) reconnect() {
	attempt := 0
	for {
		select {
		case <-r.done:
			return
		default:
		}

		attempt++
		logger.Logger.Info().Int("attempt", attempt).Msg("RabbitMQ 尝试重连...")

		if err := r.connect(); err != nil {
			logger.Logger.Warn().Err(err).Msg("RabbitMQ 重连失败")
			time.Sleep(reconnectDelay)
			continue
		}

		logger.Logger.Info().Msg("RabbitMQ 重连成功")
		return
	}
}

// declareTopology 声明通知交换机和队列
func (r *RabbitMQ) declareTopology() error {
	if err := r.channel.ExchangeDeclare(NotifyExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明 NotifyExchange 失败: %w", err)
	}

	if _, err := r.channel.QueueDeclare(NotifyQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明 NotifyQueue 失败: %w", err)
	}

	if err := r.channel.QueueBind(NotifyQueue, NotifyRoutingKey, NotifyExchange, false, nil); err != nil {
		return fmt.Errorf("绑定 NotifyQueue 失败: %w", err)
	}

	return nil
}

// IsConnected 检查是否已连接
func (r *RabbitMQ) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isConnected
}

// PublishEvent 发送订单事件消息
func (r *RabbitMQ) PublishEvent(msg *OrderEventMessage) error {
	r.mu.RLock()
	if !r.isConnected {
		r.mu.RUnlock()
		return fmt.Errorf("RabbitMQ 未连接")
	}
	ch := r.channel
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, NotifyExchange, NotifyRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
}

// Close 关闭连接
func (r *RabbitMQ) Close() {
	close(r.done)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("关闭 RabbitMQ channel 失败")
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("关闭 RabbitMQ 连接失败")
		}
	}
	r.isConnected = false
}
