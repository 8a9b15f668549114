package model

import (
	"time"
)

// 订单状态（单向流转: pending → paid_waiting → done，done 为终态）
const (
	StatusPending     = "pending"      // 待付款
	StatusPaidWaiting = "paid_waiting" // 用户已报告付款，等待管理员确认
	StatusDone        = "done"         // 已完成
)

type Order struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Username  string    `gorm:"type:varchar(64);default:''" json:"username"`
	Option    string    `gorm:"type:varchar(64);not null" json:"option"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Status    string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Note      string    `gorm:"type:text;default:''" json:"note"`
}

func (Order) TableName() string {
	return "orders"
}
