package handler

import (
	"log/slog"
	"net/http"
	"time"

	"petadopt/internal/auth"
	"petadopt/internal/config"
	"petadopt/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	if cfg.App.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		// 需要登录
		authed := api.Group("")
		authed.Use(auth.Middleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
		{
			authed.POST("/adoptions", h.CreateAdoption)
			authed.GET("/adoptions", h.ListAdoptions)
			authed.GET("/has-adopted/:pet_id", h.HasAdopted)

			balance := authed.Group("/balance")
			{
				balance.GET("", h.GetBalance)
				balance.POST("/deposit", h.Deposit)
				balance.GET("/transactions", h.ListTransactions)
			}

			authed.POST("/payment/initiate", h.InitiatePayment)
		}

		// 网关回调，不带用户令牌
		callback := api.Group("/payment")
		if cfg.RateLimit.Enabled {
			callback.Use(RateLimitMiddleware(NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 3*time.Minute)))
		}
		{
			callback.Match([]string{http.MethodGet, http.MethodPost}, "/success", h.PaymentSuccess)
			callback.Match([]string{http.MethodGet, http.MethodPost}, "/fail", h.PaymentFail)
			callback.Match([]string{http.MethodGet, http.MethodPost}, "/cancel", h.PaymentCancel)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "接口不存在")
	})

	return r
}
