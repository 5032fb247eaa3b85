package repository

import (
	"context"
	"errors"
	"time"

	"petadopt/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create 写入支付记录
// transaction_id 唯一索引冲突时返回 ErrDuplicateTransaction，其余错误原样返回
func (r *PaymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *model.Payment) error {
	if tx == nil {
		tx = r.db
	}

	err := tx.WithContext(ctx).Create(payment).Error
	if IsDuplicateKey(err) {
		return ErrDuplicateTransaction
	}
	return err
}

// GetByTransactionID 查询支付记录，不存在返回 nil, nil
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ============================================================================
// 支付会话
// ============================================================================

type PaymentSessionRepository struct {
	db *gorm.DB
}

func NewPaymentSessionRepository(db *gorm.DB) *PaymentSessionRepository {
	return &PaymentSessionRepository{db: db}
}

// Upsert 同一 tran_id 重复发起时刷新金额、跳转地址与过期时间，并重置为 INITIATED
func (r *PaymentSessionRepository) Upsert(ctx context.Context, session *model.PaymentSession) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tran_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"amount", "currency", "gateway_url", "status", "expired_at", "updated_at",
			}),
		}).
		Create(session).Error
}

// MarkCompleted 回调确认后标记会话完成，会话不存在时（例如网关直接回调）不视为错误
func (r *PaymentSessionRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, tranID string) error {
	if tx == nil {
		tx = r.db
	}

	return tx.WithContext(ctx).
		Model(&model.PaymentSession{}).
		Where("tran_id = ? AND status IN ?", tranID, []string{
			model.PaymentSessionStatusInitiated,
			model.PaymentSessionStatusExpired,
		}).
		Update("status", model.PaymentSessionStatusCompleted).Error
}

func (r *PaymentSessionRepository) GetExpiredSessions(ctx context.Context, limit int) ([]*model.PaymentSession, error) {
	var sessions []*model.PaymentSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND expired_at < ?", model.PaymentSessionStatusInitiated, time.Now()).
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// UpdateStatus 带状态前置条件的状态流转
func (r *PaymentSessionRepository) UpdateStatus(ctx context.Context, tranID, fromStatus, toStatus string) error {
	if !model.CanSessionTransitionTo(fromStatus, toStatus) {
		return ErrSessionStatusInvalid
	}

	result := r.db.WithContext(ctx).
		Model(&model.PaymentSession{}).
		Where("tran_id = ? AND status = ?", tranID, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSessionStatusInvalid
	}

	return nil
}
