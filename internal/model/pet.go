package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(64);not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (Category) TableName() string {
	return "category"
}

// Pet 可领养的宠物
// Availability 只会在领养成功时由 true 变为 false，之后不再回退
type Pet struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string          `gorm:"type:varchar(100);not null" json:"name"`
	CategoryID   int64           `gorm:"index;not null" json:"-"`
	Category     *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Breed        string          `gorm:"type:varchar(100)" json:"breed,omitempty"`
	Age          int             `gorm:"not null;default:0" json:"age"`
	Description  string          `gorm:"type:text" json:"description,omitempty"`
	Availability bool            `gorm:"not null" json:"availability"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Pet) TableName() string {
	return "pet"
}
