package service

import (
	"errors"
	"fmt"
	"time"

	"uc-donate-bot/internal/logger"
	"uc-donate-bot/internal/model"
	"uc-donate-bot/internal/mq"
	"uc-donate-bot/internal/repository"
)

// 对调用方的业务错误，直接转成面向用户的提示，不算运维异常
var (
	ErrNotFound     = errors.New("订单不存在")
	ErrInvalidState = errors.New("订单当前状态不允许该操作")
	ErrUnauthorized = errors.New("没有权限执行该操作")
	ErrAlreadyDone  = errors.New("订单已完成")
)

// Notifier 出站消息发送接口（聊天传输层实现）
type Notifier interface {
	SendMessage(chatID int64, text string, replyMarkup interface{}) error
}

// OrderService 订单生命周期操作。出站通知和 MQ 事件都是尽力而为：
// 失败只记日志，绝不回滚已发生的状态流转。
type OrderService struct {
	orderRepo          *repository.OrderRepository
	notifier           Notifier
	mqClient           *mq.RabbitMQ // 可为 nil（未配置 RABBITMQ_URL）
	adminIDs           []int64
	fulfillRequirePaid bool
}

func NewOrderService(
	orderRepo *repository.OrderRepository,
	notifier Notifier,
	mqClient *mq.RabbitMQ,
	adminIDs []int64,
	fulfillRequirePaid bool,
) *OrderService {
	return &OrderService{
		orderRepo:          orderRepo,
		notifier:           notifier,
		mqClient:           mqClient,
		adminIDs:           adminIDs,
		fulfillRequirePaid: fulfillRequirePaid,
	}
}

// CreateOrder 创建订单，status 为空时默认 pending。
// 同一用户重复下单是允许的，不做去重。
func (s *OrderService) CreateOrder(userID int64, username, option string, amount int64, status, note string) (*model.Order, error) {
	if status == "" {
		status = model.StatusPending
	}

	order := &model.Order{
		UserID:   userID,
		Username: username,
		Option:   option,
		Amount:   amount,
		Status:   status,
		Note:     note,
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("创建订单失败: %w", err)
	}

	s.publishEvent(order)
	return order, nil
}

// ReportPayment 用户自报已付款: pending → paid_waiting。
// 成功后尽力通知所有管理员去确认。
func (s *OrderService) ReportPayment(orderID int64) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}

	// 条件更新，并发时最多一方成功
	ok, err := s.orderRepo.UpdateStatusIf(orderID, model.StatusPaidWaiting, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("更新订单状态失败: %w", err)
	}
	if !ok {
		return nil, ErrInvalidState
	}
	order.Status = model.StatusPaidWaiting

	s.BroadcastToAdmins(fmt.Sprintf(
		"Buyurtma #%d uchun to'lov bildirildi. Tekshiring va /fulfill %d bilan bajarilsin.",
		order.ID, order.ID))

	s.publishEvent(order)
	return order, nil
}

// Fulfill 管理员完成订单: → done。
// FULFILL_REQUIRE_PAID=false（默认，与原有行为一致）时允许从任意非终态完成，
// true 时只允许从 paid_waiting 完成。成功后尽力通知下单用户。
func (s *OrderService) Fulfill(orderID, requesterID int64) (*model.Order, error) {
	if !s.isAdmin(requesterID) {
		return nil, ErrUnauthorized
	}

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}

	if order.Status == model.StatusDone {
		return nil, ErrAlreadyDone
	}

	fromStatuses := []string{model.StatusPending, model.StatusPaidWaiting}
	if s.fulfillRequirePaid {
		fromStatuses = []string{model.StatusPaidWaiting}
	}

	ok, err := s.orderRepo.UpdateStatusIf(orderID, model.StatusDone, fromStatuses...)
	if err != nil {
		return nil, fmt.Errorf("更新订单状态失败: %w", err)
	}
	if !ok {
		// 条件不满足：要么已被并发完成，要么状态不在允许列表
		current, err := s.orderRepo.FindByID(orderID)
		if err == nil && current.Status == model.StatusDone {
			return nil, ErrAlreadyDone
		}
		return nil, ErrInvalidState
	}
	order.Status = model.StatusDone

	s.notify(order.UserID, fmt.Sprintf("Sizning buyurtmangiz #%d bajarildi — rahmat!", order.ID))

	s.publishEvent(order)
	return order, nil
}

// GetOrder 根据 id 查询订单
func (s *OrderService) GetOrder(orderID int64) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	return order, nil
}

// ListOrders 查询用户的全部订单，最新在前。没有订单时返回空列表。
func (s *OrderService) ListOrders(userID int64) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("查询订单列表失败: %w", err)
	}
	return orders, nil
}

// RecordDirectPayment 外部支付确认直接落单，订单一步到 done，
// 不经过 pending / paid_waiting。
func (s *OrderService) RecordDirectPayment(userID int64, username, payload string, amount int64) (*model.Order, error) {
	return s.CreateOrder(userID, username, payload, amount, model.StatusDone, "")
}

// BroadcastToAdmins 尽力给所有管理员广播消息，单个失败只记日志
func (s *OrderService) BroadcastToAdmins(text string) {
	for _, adminID := range s.adminIDs {
		s.notify(adminID, text)
	}
}

// notify 尽力发送单条消息
func (s *OrderService) notify(chatID int64, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMessage(chatID, text, nil); err != nil {
		logger.Logger.Debug().Err(err).Int64("chat_id", chatID).Msg("发送通知失败（忽略）")
	}
}

// publishEvent 尽力发布订单事件到 MQ
func (s *OrderService) publishEvent(order *model.Order) {
	if s.mqClient == nil {
		return
	}

	msg := &mq.OrderEventMessage{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Username:  order.Username,
		Option:    order.Option,
		Amount:    order.Amount,
		Status:    order.Status,
		Timestamp: time.Now().Unix(),
	}

	if err := s.mqClient.PublishEvent(msg); err != nil {
		logger.Logger.Warn().Err(err).Int64("order_id", order.ID).Msg("发布订单事件失败（忽略）")
	}
}

func (s *OrderService) isAdmin(id int64) bool {
	for _, adminID := range s.adminIDs {
		if adminID == id {
			return true
		}
	}
	return false
}
