package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentStatusCompleted = "Completed"
)

// Payment 支付记录，只在网关回调确认后创建
//
// 【关键点】transaction_id 上有唯一索引，网关重复回调时由数据库拒绝第二次写入，
// 不依赖应用层的先查后写
type Payment struct {
	ID            uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        int64           `gorm:"index;not null" json:"user_id"`
	AdoptionID    int64           `gorm:"index;not null" json:"adoption_id"` // 关联 AdoptionHistory.ID
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	TransactionID string          `gorm:"type:varchar(64);uniqueIndex:uk_payment_tran_id;not null" json:"transaction_id"`
	Status        string          `gorm:"type:varchar(20);not null;default:Completed" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Payment) TableName() string {
	return "payment"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PaymentStatusCompleted
	}
	return nil
}

const (
	PaymentSessionStatusInitiated = "INITIATED"
	PaymentSessionStatusCompleted = "COMPLETED"
	PaymentSessionStatusExpired   = "EXPIRED"
)

var validSessionTransitions = map[string][]string{
	PaymentSessionStatusInitiated: {PaymentSessionStatusCompleted, PaymentSessionStatusExpired},
	// 过期后网关仍可能回调成功，允许补记
	PaymentSessionStatusExpired: {PaymentSessionStatusCompleted},
}

func CanSessionTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := validSessionTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// PaymentSession 网关会话，发起支付时写入，用于追踪未回调的支付
type PaymentSession struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TranID     string          `gorm:"type:varchar(64);uniqueIndex:uk_session_tran_id;not null" json:"tran_id"`
	UserID     int64           `gorm:"index;not null" json:"user_id"`
	AdoptionID int64           `gorm:"index;not null" json:"adoption_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency   string          `gorm:"type:varchar(8);not null" json:"currency"`
	GatewayURL string          `gorm:"type:varchar(512)" json:"gateway_url"`
	Status     string          `gorm:"type:varchar(20);index;not null" json:"status"`
	ExpiredAt  time.Time       `gorm:"not null" json:"expired_at"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentSession) TableName() string {
	return "payment_session"
}
