package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User 用户表
// 注册、登录由身份服务负责，本服务只读取身份字段并维护钱包余额
type User struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Email          string          `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	FirstName      string          `gorm:"type:varchar(64)" json:"first_name"`
	LastName       string          `gorm:"type:varchar(64)" json:"last_name"`
	PhoneNumber    string          `gorm:"type:varchar(32)" json:"phone_number"`
	Address        string          `gorm:"type:varchar(256)" json:"address"`
	City           string          `gorm:"type:varchar(64)" json:"city"`
	Country        string          `gorm:"type:varchar(64)" json:"country"`
	AccountBalance decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"account_balance"` // 可用余额，永不为负
	Version        int             `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
