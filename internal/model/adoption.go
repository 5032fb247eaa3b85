package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Adopt 领养会话，每个用户至多一条，由 uk_adopt_user 唯一索引保证
// 第一次领养时在领养事务内惰性创建
type Adopt struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:uk_adopt_user;not null" json:"user_id"`
	AdoptedAt time.Time `gorm:"autoCreateTime" json:"adopted_at"`
}

func (Adopt) TableName() string {
	return "adopt"
}

func (a *Adopt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AdoptionHistory 领养记录，创建后不可修改
//
// 【重要】Price 是领养当时的价格快照，之后宠物改价不影响历史记录
// (adopt_id, pet_id) 唯一，同一用户不能重复领养同一只宠物
type AdoptionHistory struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AdoptID   uuid.UUID       `gorm:"type:char(36);uniqueIndex:uk_adopt_pet,priority:1;not null" json:"-"`
	Adopt     *Adopt          `gorm:"foreignKey:AdoptID" json:"-"`
	PetID     int64           `gorm:"uniqueIndex:uk_adopt_pet,priority:2;index;not null" json:"-"`
	Pet       *Pet            `gorm:"foreignKey:PetID" json:"pet,omitempty"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (AdoptionHistory) TableName() string {
	return "adoption_history"
}
