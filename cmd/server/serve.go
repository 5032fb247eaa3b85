package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petadopt/internal/config"
	"petadopt/internal/handler"
	"petadopt/internal/infrastructure/cache"
	"petadopt/internal/infrastructure/database"
	"petadopt/internal/infrastructure/gateway"
	"petadopt/internal/infrastructure/lock"
	"petadopt/internal/infrastructure/mq"
	"petadopt/internal/job"
	"petadopt/internal/logging"
	"petadopt/internal/service"
	"petadopt/pkg/idgen"

	"gorm.io/gorm"
)

// bootstrap 加载配置、初始化日志与数据库
func bootstrap(configPath string) (*config.Config, *slog.Logger, *gorm.DB, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	config.GlobalConfig = cfg

	logger := logging.Init(cfg.App.Name, cfg.App.LogLevel, cfg.App.Env)

	// 初始化 ID 生成器
	if err := idgen.Init(cfg.App.WorkerID); err != nil {
		return nil, nil, nil, err
	}

	// 初始化 MySQL
	db, err := database.InitMySQL(&cfg.MySQL)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, logger, db, nil
}

func runMigrate(configPath string) error {
	_, logger, db, err := bootstrap(configPath)
	if err != nil {
		return err
	}

	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Info("数据库迁移完成")
	return nil
}

func runServe(configPath string) error {
	cfg, logger, db, err := bootstrap(configPath)
	if err != nil {
		return err
	}

	if err := database.Migrate(db); err != nil {
		return err
	}

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis 可选：未启用时领养只依赖数据库行锁
	var locker service.Locker
	if cfg.Redis.Enabled {
		redisClient, err := cache.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker = lock.NewAdoptLocker(redisClient)
	}

	ledgerService := service.NewLedgerService(db)
	adoptionService := service.NewAdoptionService(db, locker, ledgerService, cfg.Kafka.Topic)
	paymentService := service.NewPaymentService(
		db,
		gateway.NewClient(cfg.Gateway),
		cfg.Gateway,
		cfg.Kafka.Topic,
		time.Duration(cfg.Business.PaymentSessionTimeoutMinutes)*time.Minute,
	)

	// 启动后台任务
	// Kafka 未启用时不投递，outbox 消息保持 PENDING，启用后补发
	var outboxSender *job.OutboxSender
	if cfg.Kafka.Enabled {
		producer, err := mq.InitKafka(&cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()

		outboxSender = job.NewOutboxSender(db, producer, cfg.Business.OutboxBatchSize, cfg.Business.MaxRetryCount)
		go outboxSender.Start(ctx)
	}

	sessionTimeoutJob := job.NewPaymentSessionTimeoutJob(paymentService, 30*time.Second)
	go sessionTimeoutJob.Start(ctx)

	// 设置路由
	h := handler.NewHandler(adoptionService, paymentService, ledgerService, cfg.Gateway)
	router := handler.SetupRouter(h, cfg, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务启动", "port", cfg.Server.Port, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	}

	logger.Info("正在关闭服务...")

	// 停止后台任务
	if outboxSender != nil {
		outboxSender.Stop()
	}
	sessionTimeoutJob.Stop()
	cancel()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务关闭异常", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("服务已关闭")
	return nil
}
