package job

import (
	"context"
	"log/slog"
	"time"
)

// SessionExpirer 由 PaymentService 实现
type SessionExpirer interface {
	ExpireSessions(ctx context.Context, limit int) (int, error)
}

// PaymentSessionTimeoutJob 定期关闭超时未回调的支付会话
type PaymentSessionTimeoutJob struct {
	expirer   SessionExpirer
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
}

func NewPaymentSessionTimeoutJob(expirer SessionExpirer, interval time.Duration) *PaymentSessionTimeoutJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PaymentSessionTimeoutJob{
		expirer:   expirer,
		stopCh:    make(chan struct{}),
		interval:  interval,
		batchSize: 100,
	}
}

func (j *PaymentSessionTimeoutJob) Start(ctx context.Context) {
	slog.Info("[PaymentSessionTimeoutJob] 支付会话超时任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("[PaymentSessionTimeoutJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			slog.Info("[PaymentSessionTimeoutJob] 任务停止")
			return
		case <-ticker.C:
			j.expireSessions(ctx)
		}
	}
}

func (j *PaymentSessionTimeoutJob) Stop() {
	close(j.stopCh)
}

func (j *PaymentSessionTimeoutJob) expireSessions(ctx context.Context) int {
	n, err := j.expirer.ExpireSessions(ctx, j.batchSize)
	if err != nil {
		slog.Error("[PaymentSessionTimeoutJob] 查询超时会话失败", "error", err)
		return 0
	}
	if n > 0 {
		slog.Info("[PaymentSessionTimeoutJob] 本次关闭超时会话", "count", n)
	}
	return n
}
