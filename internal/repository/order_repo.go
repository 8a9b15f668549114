package repository

import (
	"errors"

	"uc-donate-bot/internal/model"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("订单不存在")

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create 创建订单，自增 id 由存储引擎分配
func (r *OrderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

// FindByID 根据 id 查找订单
func (r *OrderRepository) FindByID(id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatusIf 条件更新状态：仅当前状态在 fromStatuses 中才流转到 toStatus。
// 返回 false 表示当前状态不满足条件（并发竞争时最多一方成功）。
func (r *OrderRepository) UpdateStatusIf(id int64, toStatus string, fromStatuses ...string) (bool, error) {
	res := r.db.Model(&model.Order{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Update("status", toStatus)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByUser 按用户查询全部订单，id 倒序（最新在前）
func (r *OrderRepository) ListByUser(userID int64) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.Where("user_id = ?", userID).Order("id DESC").Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderFilter 订单查询过滤条件
type OrderFilter struct {
	UserID   int64
	Status   string
	Page     int
	PageSize int
}

// ListOrders 分页查询订单列表（管理接口用）
func (r *OrderRepository) ListOrders(filter OrderFilter) ([]model.Order, int64, error) {
	query := r.db.Model(&model.Order{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	// 查询总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页参数默认值
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	offset := (filter.Page - 1) * filter.PageSize

	var orders []model.Order
	if err := query.Order("id DESC").Offset(offset).Limit(filter.PageSize).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
