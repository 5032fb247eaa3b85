package service

import (
	"context"
	"errors"
	"fmt"

	"petadopt/internal/logging"
	"petadopt/internal/metrics"
	"petadopt/internal/model"
	"petadopt/internal/repository"
	"petadopt/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxAmount 金额列为 decimal(10,2)
var maxAmount = decimal.RequireFromString("99999999.99")

// validAmount 金额为正、最多两位小数且不超出列范围
// 超过两位小数的金额落库时会被四舍五入，直接拒绝
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() &&
		amount.Equal(amount.Truncate(2)) &&
		amount.LessThanOrEqual(maxAmount)
}

// LedgerService 钱包余额
//
// 【关键点】余额只有两条变动路径：
//   - Debit 只在领养事务内调用
//   - Credit 对应充值
//
// 两者都先对用户行加锁，再做条件更新，并写一条带前后余额的流水
type LedgerService struct {
	db              *gorm.DB
	userRepo        *repository.UserRepository
	transactionRepo *repository.TransactionRepository
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		db:              db,
		userRepo:        repository.NewUserRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// Debit 扣款。tx 为调用方事务；传 nil 时自行开启事务
func (s *LedgerService) Debit(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal, refNo, remark string) (*model.BalanceTransaction, error) {
	if tx != nil {
		return s.debit(ctx, tx, userID, amount, refNo, remark)
	}

	var entry *model.BalanceTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.debit(ctx, tx, userID, amount, refNo, remark)
		return err
	})
	return entry, err
}

func (s *LedgerService) debit(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal, refNo, remark string) (*model.BalanceTransaction, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if amount.GreaterThan(user.AccountBalance) {
		return nil, ErrInsufficientFunds
	}

	if err := s.userRepo.Debit(ctx, tx, userID, amount); err != nil {
		if errors.Is(err, repository.ErrBalanceNotEnough) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("扣款失败: %w", err)
	}

	entry := &model.BalanceTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		UserID:        userID,
		RefNo:         refNo,
		Amount:        amount.Neg(),
		Type:          model.BalanceTxTypeAdopt,
		BalanceBefore: user.AccountBalance,
		BalanceAfter:  user.AccountBalance.Sub(amount),
		Remark:        remark,
	}
	if err := s.transactionRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("记录流水失败: %w", err)
	}

	return entry, nil
}

// Credit 充值
func (s *LedgerService) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (*model.BalanceTransaction, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}

	depositNo := idgen.GenerateDepositNo()
	var entry *model.BalanceTransaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("查询用户失败: %w", err)
		}

		if user.AccountBalance.Add(amount).GreaterThan(maxAmount) {
			return ErrInvalidAmount
		}

		if err := s.userRepo.Credit(ctx, tx, userID, amount); err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}

		entry = &model.BalanceTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        userID,
			RefNo:         depositNo,
			Amount:        amount,
			Type:          model.BalanceTxTypeDeposit,
			BalanceBefore: user.AccountBalance,
			BalanceAfter:  user.AccountBalance.Add(amount),
			Remark:        "余额充值",
		}
		if err := s.transactionRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDeposit()
	logging.FromContext(ctx).Info("充值成功",
		"user_id", userID,
		"amount", amount.StringFixed(2),
		"balance_after", entry.BalanceAfter.StringFixed(2),
	)
	return entry, nil
}

func (s *LedgerService) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, err
	}
	return user.AccountBalance, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.BalanceTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}
