package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"petadopt/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var seq atomic.Int64

// CreateUser 插入一个指定余额的用户
func CreateUser(t *testing.T, db *gorm.DB, balance string) *model.User {
	t.Helper()

	n := seq.Add(1)
	user := &model.User{
		Email:          fmt.Sprintf("user%d@example.com", n),
		FirstName:      "Test",
		LastName:       fmt.Sprintf("User%d", n),
		PhoneNumber:    "01700000000",
		Address:        "House 1, Road 2",
		City:           "Dhaka",
		Country:        "Bangladesh",
		AccountBalance: decimal.RequireFromString(balance),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreatePet 插入一只可领养的宠物
func CreatePet(t *testing.T, db *gorm.DB, price string) *model.Pet {
	t.Helper()

	n := seq.Add(1)
	category := &model.Category{Name: fmt.Sprintf("Category%d", n)}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}

	pet := &model.Pet{
		Name:         fmt.Sprintf("Pet%d", n),
		CategoryID:   category.ID,
		Breed:        "Mixed",
		Age:          2,
		Availability: true,
		Price:        decimal.RequireFromString(price),
	}
	if err := db.Omit("Category").Create(pet).Error; err != nil {
		t.Fatalf("create pet: %v", err)
	}
	return pet
}

// ReloadUser 重新读取用户，用于断言余额
func ReloadUser(t *testing.T, db *gorm.DB, id int64) *model.User {
	t.Helper()

	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return &user
}

func ReloadPet(t *testing.T, db *gorm.DB, id int64) *model.Pet {
	t.Helper()

	var pet model.Pet
	if err := db.First(&pet, id).Error; err != nil {
		t.Fatalf("reload pet: %v", err)
	}
	return &pet
}

func Count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()

	var n int64
	if err := db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
