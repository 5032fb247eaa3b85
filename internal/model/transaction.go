package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 余额变动类型
// ============================================================================

const (
	BalanceTxTypeDeposit = "DEPOSIT" // 充值
	BalanceTxTypeAdopt   = "ADOPT"   // 领养扣款
)

// ============================================================================
// 余额流水实体
// ============================================================================

// BalanceTransaction 余额流水表
// 记录钱包的每一笔变动，是对账的依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除
// 2. 每笔流水关联业务单号（领养为 ADOPT-<领养会话ID>-<宠物ID>，充值为充值单号）
// 3. 记录变动前后余额，便于校验余额一致性
type BalanceTransaction struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string          `gorm:"type:varchar(64);uniqueIndex:uk_balance_tx_no;not null" json:"transaction_no"`
	UserID        int64           `gorm:"index;not null" json:"user_id"`
	RefNo         string          `gorm:"type:varchar(64);index;not null" json:"ref_no"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"` // 正数入账，负数出账
	Type          string          `gorm:"type:varchar(20);not null" json:"type"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"balance_after"`
	Remark        string          `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (BalanceTransaction) TableName() string {
	return "balance_transaction"
}
