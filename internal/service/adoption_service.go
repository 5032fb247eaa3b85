package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"petadopt/internal/config"
	"petadopt/internal/logging"
	"petadopt/internal/metrics"
	"petadopt/internal/model"
	"petadopt/internal/repository"
	"petadopt/pkg/idgen"

	"gorm.io/gorm"
)

// Locker 用户维度的互斥锁，Redis 未启用时为 nil
type Locker interface {
	Acquire(ctx context.Context, userID int64, token string) (func(context.Context) error, error)
}

type AdoptionService struct {
	db         *gorm.DB
	locker     Locker
	topics     config.KafkaTopicConfig
	ledger     *LedgerService
	userRepo   *repository.UserRepository
	petRepo    *repository.PetRepository
	adoptRepo  *repository.AdoptRepository
	outboxRepo *repository.OutboxRepository
}

func NewAdoptionService(db *gorm.DB, locker Locker, ledger *LedgerService, topics config.KafkaTopicConfig) *AdoptionService {
	return &AdoptionService{
		db:         db,
		locker:     locker,
		topics:     topics,
		ledger:     ledger,
		userRepo:   repository.NewUserRepository(db),
		petRepo:    repository.NewPetRepository(db),
		adoptRepo:  repository.NewAdoptRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
	}
}

// Adopt 领养宠物
//
// 【关键点】前置校验依次为：
//  1. 宠物存在，否则 ErrNotFound
//  2. 该用户没有领养过这只宠物，否则 ErrAlreadyAdopted
//  3. 余额足够，否则 ErrInsufficientFunds
//  4. 宠物仍可领养，否则 ErrPetUnavailable
//
// 校验通过后在同一个事务内：创建/复用领养会话、扣款、写领养记录（价格快照）、
// 宠物置为不可领养、写 outbox 事件。任一步失败整体回滚。
//
// 并发控制：事务内先锁宠物行再锁用户行，同一用户的请求在用户行上串行，
// 同一宠物的请求在宠物行上串行；加锁顺序固定，不会互相等待成环。
func (s *AdoptionService) Adopt(ctx context.Context, userID, petID int64) (*model.AdoptionHistory, error) {
	log := logging.FromContext(ctx).With("user_id", userID, "pet_id", petID)

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, userID, idgen.GenerateRequestID())
		if err != nil {
			metrics.RecordAdoption("busy")
			log.Warn("获取领养锁失败", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrSystemBusy, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("释放领养锁失败", "error", err)
			}
		}()
	}

	var history *model.AdoptionHistory

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pet, err := s.petRepo.GetByIDForUpdate(ctx, tx, petID)
		if err != nil {
			if errors.Is(err, repository.ErrPetNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("查询宠物失败: %w", err)
		}

		user, err := s.userRepo.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("查询用户失败: %w", err)
		}

		adopted, err := s.hasAdopted(ctx, tx, userID, pet.ID)
		if err != nil {
			return err
		}
		if adopted {
			return ErrAlreadyAdopted
		}

		if pet.Price.GreaterThan(user.AccountBalance) {
			return ErrInsufficientFunds
		}

		if !pet.Availability {
			return ErrPetUnavailable
		}

		adopt, err := s.adoptRepo.Upsert(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("创建领养会话失败: %w", err)
		}

		refNo := fmt.Sprintf("ADOPT-%s-%d", adopt.ID, pet.ID)
		if _, err := s.ledger.Debit(ctx, tx, userID, pet.Price, refNo, fmt.Sprintf("领养-%s", pet.Name)); err != nil {
			return err
		}

		history = &model.AdoptionHistory{
			AdoptID: adopt.ID,
			PetID:   pet.ID,
			Price:   pet.Price,
		}
		if err := s.adoptRepo.CreateHistory(ctx, tx, history); err != nil {
			if errors.Is(err, repository.ErrDuplicateHistory) {
				return ErrAlreadyAdopted
			}
			return fmt.Errorf("写入领养记录失败: %w", err)
		}

		if err := s.petRepo.SetAvailability(ctx, tx, pet.ID, false); err != nil {
			return fmt.Errorf("更新宠物状态失败: %w", err)
		}

		payload, err := json.Marshal(map[string]interface{}{
			"adoption_id": history.ID,
			"adopt_id":    adopt.ID.String(),
			"user_id":     userID,
			"pet_id":      pet.ID,
			"price":       pet.Price.StringFixed(2),
			"adopted_at":  history.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("序列化消息失败: %w", err)
		}

		outboxMsg := &model.OutboxMessage{
			MessageKey: fmt.Sprintf("adoption-%d", history.ID),
			EventType:  model.EventAdoptionCreated,
			Topic:      s.topics.AdoptionCreated,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		metrics.RecordAdoption(adoptionResult(err))
		return nil, err
	}

	metrics.RecordAdoption("success")
	log.Info("领养成功", "adoption_id", history.ID, "price", history.Price.StringFixed(2))

	return s.adoptRepo.GetHistoryByID(ctx, history.ID)
}

func (s *AdoptionService) hasAdopted(ctx context.Context, tx *gorm.DB, userID, petID int64) (bool, error) {
	adopt, err := s.adoptRepo.GetByUserID(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAdoptNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("查询领养会话失败: %w", err)
	}

	exists, err := s.adoptRepo.HistoryExists(ctx, tx, adopt.ID, petID)
	if err != nil {
		return false, fmt.Errorf("查询领养记录失败: %w", err)
	}
	return exists, nil
}

// HasAdopted 当前用户是否领养过该宠物
func (s *AdoptionService) HasAdopted(ctx context.Context, userID, petID int64) (bool, error) {
	return s.adoptRepo.UserHasAdoptedPet(ctx, userID, petID)
}

// ListAdoptions 用户的全部领养记录，最新的在前
func (s *AdoptionService) ListAdoptions(ctx context.Context, userID int64) ([]*model.AdoptionHistory, error) {
	return s.adoptRepo.ListHistoryByUserID(ctx, userID)
}

func adoptionResult(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrAlreadyAdopted):
		return "already_adopted"
	case errors.Is(err, ErrPetUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
