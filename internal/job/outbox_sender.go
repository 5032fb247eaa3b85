package job

import (
	"context"
	"log/slog"
	"time"

	"petadopt/internal/infrastructure/mq"
	"petadopt/internal/metrics"
	"petadopt/internal/model"
	"petadopt/internal/repository"

	"gorm.io/gorm"
)

// OutboxSender 轮询 outbox 表，把领养/支付事件投递到 Kafka
//
// 【关键点】事件与业务数据在同一事务内落库，这里只负责至少一次投递，
// 下游按 MessageKey 去重
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	publisher     mq.Publisher
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
	maxRetryCount int
}

func NewOutboxSender(db *gorm.DB, publisher mq.Publisher, batchSize, maxRetryCount int) *OutboxSender {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxRetryCount <= 0 {
		maxRetryCount = 5
	}
	return &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(db),
		publisher:     publisher,
		stopCh:        make(chan struct{}),
		interval:      100 * time.Millisecond,
		batchSize:     batchSize,
		maxRetryCount: maxRetryCount,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	slog.Info("[OutboxSender] 消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("[OutboxSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			slog.Info("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		slog.Error("[OutboxSender] 查询消息失败", "error", err)
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.publisher.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		metrics.RecordOutbox("sent")
		if updateErr := s.outboxRepo.MarkAsSent(ctx, msg.ID); updateErr != nil {
			slog.Error("[OutboxSender] 更新消息状态失败", "id", msg.ID, "error", updateErr)
		} else {
			slog.Debug("[OutboxSender] 消息发送成功", "id", msg.ID, "topic", msg.Topic, "key", msg.MessageKey)
		}
		return
	}

	metrics.RecordOutbox("retry")
	slog.Warn("[OutboxSender] 消息发送失败", "id", msg.ID, "event_type", msg.EventType, "error", err)

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		slog.Error("[OutboxSender] 增加重试次数失败", "id", msg.ID, "error", err)
	}

	if msg.RetryCount+1 >= s.maxRetryCount {
		metrics.RecordOutbox("failed")
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			slog.Error("[OutboxSender] 标记消息失败状态失败", "id", msg.ID, "error", err)
		} else {
			slog.Error("[OutboxSender] 消息超过最大重试次数，标记为失败", "id", msg.ID, "key", msg.MessageKey)
		}
	}
}
