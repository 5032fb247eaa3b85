package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"petadopt/internal/config"
	"petadopt/internal/infrastructure/gateway"
	"petadopt/internal/logging"
	"petadopt/internal/metrics"
	"petadopt/internal/model"
	"petadopt/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const tranIDPrefix = "txn_"

// PaymentGateway 托管支付页的网关会话接口
type PaymentGateway interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.SessionResponse, error)
}

// FormatTransactionID 领养记录 ID -> 网关交易号
func FormatTransactionID(adoptionID int64) string {
	return tranIDPrefix + strconv.FormatInt(adoptionID, 10)
}

// ParseTransactionID 网关交易号 -> 领养记录 ID
// 只接受 FormatTransactionID 的规范写法，txn_01 这类前导零也视为非法：
// 支付幂等依赖 transaction_id 字符串唯一，同一 ID 只能有一种写法
func ParseTransactionID(tranID string) (int64, error) {
	raw, ok := strings.CutPrefix(tranID, tranIDPrefix)
	if !ok || raw == "" {
		return 0, ErrMalformedTransactionID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrMalformedTransactionID
	}
	if FormatTransactionID(id) != tranID {
		return 0, ErrMalformedTransactionID
	}
	return id, nil
}

type PaymentService struct {
	db             *gorm.DB
	gateway        PaymentGateway
	gatewayCfg     config.GatewayConfig
	topics         config.KafkaTopicConfig
	sessionTimeout time.Duration
	userRepo       *repository.UserRepository
	adoptRepo      *repository.AdoptRepository
	paymentRepo    *repository.PaymentRepository
	sessionRepo    *repository.PaymentSessionRepository
	outboxRepo     *repository.OutboxRepository
}

func NewPaymentService(db *gorm.DB, gw PaymentGateway, gatewayCfg config.GatewayConfig, topics config.KafkaTopicConfig, sessionTimeout time.Duration) *PaymentService {
	if sessionTimeout <= 0 {
		sessionTimeout = 30 * time.Minute
	}
	return &PaymentService{
		db:             db,
		gateway:        gw,
		gatewayCfg:     gatewayCfg,
		topics:         topics,
		sessionTimeout: sessionTimeout,
		userRepo:       repository.NewUserRepository(db),
		adoptRepo:      repository.NewAdoptRepository(db),
		paymentRepo:    repository.NewPaymentRepository(db),
		sessionRepo:    repository.NewPaymentSessionRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
	}
}

// ============================================================================
// 发起支付
// ============================================================================

// Initiate 为一条领养记录向网关申请支付会话，返回托管支付页地址
//
// 【关键点】
//   - 领养记录必须属于当前用户，否则按不存在处理
//   - 金额必须与领养时记录的价格一致
//   - 已经确认过的交易号不再发起
func (s *PaymentService) Initiate(ctx context.Context, userID int64, amount decimal.Decimal, adoptionID int64) (string, error) {
	log := logging.FromContext(ctx).With("user_id", userID, "adoption_id", adoptionID)

	if !validAmount(amount) {
		return "", ErrInvalidAmount
	}

	history, err := s.adoptRepo.GetHistoryByID(ctx, adoptionID)
	if err != nil {
		if errors.Is(err, repository.ErrHistoryNotFound) {
			return "", ErrAdoptionNotFound
		}
		return "", fmt.Errorf("查询领养记录失败: %w", err)
	}
	if history.Adopt == nil || history.Adopt.UserID != userID {
		return "", ErrAdoptionNotFound
	}

	if !amount.Equal(history.Price) {
		return "", ErrAmountMismatch
	}

	tranID := FormatTransactionID(history.ID)

	existing, err := s.paymentRepo.GetByTransactionID(ctx, tranID)
	if err != nil {
		return "", fmt.Errorf("查询支付记录失败: %w", err)
	}
	if existing != nil {
		return "", ErrDuplicateTransaction
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("查询用户失败: %w", err)
	}

	productName := s.gatewayCfg.ProductName
	if history.Pet != nil && history.Pet.Name != "" {
		productName = history.Pet.Name
	}

	resp, err := s.gateway.CreateSession(ctx, gateway.SessionRequest{
		TranID:      tranID,
		TotalAmount: amount,
		CusName:     user.FullName(),
		CusEmail:    user.Email,
		CusPhone:    user.PhoneNumber,
		CusAdd1:     user.Address,
		CusCity:     user.City,
		CusCountry:  user.Country,
		ProductName: productName,
	})
	if err != nil {
		metrics.RecordPayment("initiate", "failed")
		log.Warn("创建网关会话失败", "tran_id", tranID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrPaymentInitiationFailed, err)
	}

	session := &model.PaymentSession{
		TranID:     tranID,
		UserID:     userID,
		AdoptionID: history.ID,
		Amount:     amount,
		Currency:   s.gatewayCfg.Currency,
		GatewayURL: resp.GatewayPageURL,
		Status:     model.PaymentSessionStatusInitiated,
		ExpiredAt:  time.Now().Add(s.sessionTimeout),
	}
	if err := s.sessionRepo.Upsert(ctx, session); err != nil {
		// 网关会话已创建，本地追踪记录写失败不影响用户跳转
		log.Error("保存支付会话失败", "tran_id", tranID, "error", err)
	}

	metrics.RecordPayment("initiate", "success")
	log.Info("支付会话已创建", "tran_id", tranID, "amount", amount.StringFixed(2))

	return resp.GatewayPageURL, nil
}

// ============================================================================
// 支付回调确认
// ============================================================================

// Confirm 网关回调确认，写入支付记录
//
// 【关键点】幂等依赖 payment.transaction_id 唯一索引：
// 网关重复回调时第二次插入被数据库拒绝，返回 ErrDuplicateTransaction
func (s *PaymentService) Confirm(ctx context.Context, tranID string) (*model.Payment, error) {
	log := logging.FromContext(ctx).With("tran_id", tranID)

	adoptionID, err := ParseTransactionID(tranID)
	if err != nil {
		metrics.RecordPayment("confirm", "malformed")
		return nil, err
	}

	history, err := s.adoptRepo.GetHistoryByID(ctx, adoptionID)
	if err != nil {
		if errors.Is(err, repository.ErrHistoryNotFound) {
			metrics.RecordPayment("confirm", "not_found")
			return nil, ErrAdoptionNotFound
		}
		log.Error("查询领养记录失败", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentRecordingError, err)
	}

	payment := &model.Payment{
		UserID:        history.Adopt.UserID,
		AdoptionID:    history.ID,
		Amount:        history.Price,
		TransactionID: tranID,
		Status:        model.PaymentStatusCompleted,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return err
		}

		if err := s.sessionRepo.MarkCompleted(ctx, tx, tranID); err != nil {
			return fmt.Errorf("更新支付会话失败: %w", err)
		}

		payload, err := json.Marshal(map[string]interface{}{
			"payment_id":     payment.ID.String(),
			"transaction_id": tranID,
			"adoption_id":    history.ID,
			"user_id":        payment.UserID,
			"amount":         payment.Amount.StringFixed(2),
			"status":         payment.Status,
		})
		if err != nil {
			return fmt.Errorf("序列化消息失败: %w", err)
		}

		return s.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
			MessageKey: tranID,
			EventType:  model.EventPaymentCompleted,
			Topic:      s.topics.PaymentCompleted,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		})
	})

	if err != nil {
		if errors.Is(err, repository.ErrDuplicateTransaction) {
			metrics.RecordPayment("confirm", "duplicate")
			log.Info("重复回调，支付已记录")
			return nil, ErrDuplicateTransaction
		}
		metrics.RecordPayment("confirm", "failed")
		log.Error("记录支付失败", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentRecordingError, err)
	}

	metrics.RecordPayment("confirm", "success")
	log.Info("支付确认成功", "payment_id", payment.ID, "amount", payment.Amount.StringFixed(2))

	return payment, nil
}

// Abandon 网关 fail/cancel 回调，会话直接置为过期
// 交易号非法或会话不存在时忽略，回调方只需要被重定向
func (s *PaymentService) Abandon(ctx context.Context, tranID, reason string) {
	if _, err := ParseTransactionID(tranID); err != nil {
		return
	}

	err := s.sessionRepo.UpdateStatus(ctx, tranID, model.PaymentSessionStatusInitiated, model.PaymentSessionStatusExpired)
	if err != nil && !errors.Is(err, repository.ErrSessionStatusInvalid) {
		logging.FromContext(ctx).Warn("关闭支付会话失败", "tran_id", tranID, "reason", reason, "error", err)
		return
	}

	metrics.RecordPayment(reason, "received")
}

// ExpireSessions 把超时未回调的会话置为 EXPIRED，返回处理条数
func (s *PaymentService) ExpireSessions(ctx context.Context, limit int) (int, error) {
	sessions, err := s.sessionRepo.GetExpiredSessions(ctx, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, session := range sessions {
		err := s.sessionRepo.UpdateStatus(ctx, session.TranID, model.PaymentSessionStatusInitiated, model.PaymentSessionStatusExpired)
		if err != nil {
			// 回调与超时并发，会话已被确认
			if errors.Is(err, repository.ErrSessionStatusInvalid) {
				continue
			}
			logging.FromContext(ctx).Error("会话超时处理失败", "tran_id", session.TranID, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		metrics.RecordSessionExpired(expired)
	}
	return expired, nil
}
