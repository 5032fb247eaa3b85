package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"petadopt/internal/auth"
	"petadopt/internal/config"
	"petadopt/internal/model"
	"petadopt/internal/service"
	"petadopt/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	adoptionService *service.AdoptionService
	paymentService  *service.PaymentService
	ledgerService   *service.LedgerService
	gatewayCfg      config.GatewayConfig
}

// NewHandler 创建处理器实例
func NewHandler(adoption *service.AdoptionService, payment *service.PaymentService, ledger *service.LedgerService, gatewayCfg config.GatewayConfig) *Handler {
	return &Handler{
		adoptionService: adoption,
		paymentService:  payment,
		ledgerService:   ledger,
		gatewayCfg:      gatewayCfg,
	}
}

func currentUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "未登录")
		return 0, false
	}
	return userID, true
}

// ============================================================
// 领养相关接口
// ============================================================

// AdoptionResponse 领养记录
type AdoptionResponse struct {
	ID        int64           `json:"id"`
	Pet       *model.Pet      `json:"pet,omitempty"`
	Price     decimal.Decimal `json:"price"`
	AdoptedAt time.Time       `json:"adopted_at"`
	CreatedAt time.Time       `json:"created_at"`
}

func toAdoptionResponse(h *model.AdoptionHistory) AdoptionResponse {
	resp := AdoptionResponse{
		ID:        h.ID,
		Pet:       h.Pet,
		Price:     h.Price,
		CreatedAt: h.CreatedAt,
	}
	if h.Adopt != nil {
		resp.AdoptedAt = h.Adopt.AdoptedAt
	}
	return resp
}

// CreateAdoptionRequest 领养请求
type CreateAdoptionRequest struct {
	PetID int64 `json:"pet_id" binding:"required,gt=0"`
}

// CreateAdoption 领养宠物
// POST /api/v1/adoptions
//
// 【关键点】扣款、写领养记录、宠物下架在同一事务内完成，
// 任何一个前置校验失败都不会留下部分修改
func (h *Handler) CreateAdoption(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateAdoptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	history, err := h.adoptionService.Adopt(c.Request.Context(), userID, req.PetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, toAdoptionResponse(history))
}

// ListAdoptions 当前用户的领养记录
// GET /api/v1/adoptions
func (h *Handler) ListAdoptions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	histories, err := h.adoptionService.ListAdoptions(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	list := make([]AdoptionResponse, 0, len(histories))
	for _, history := range histories {
		list = append(list, toAdoptionResponse(history))
	}
	response.Success(c, list)
}

// HasAdopted 是否领养过某只宠物
// GET /api/v1/has-adopted/:pet_id
func (h *Handler) HasAdopted(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	petID, err := strconv.ParseInt(c.Param("pet_id"), 10, 64)
	if err != nil || petID <= 0 {
		response.ParamError(c, "pet_id 参数错误")
		return
	}

	adopted, err := h.adoptionService.HasAdopted(c.Request.Context(), userID, petID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"hasAdopted": adopted})
}

// ============================================================
// 余额相关接口
// ============================================================

// DepositRequest 充值请求
type DepositRequest struct {
	Values decimal.Decimal `json:"values"`
}

// Deposit 余额充值
// POST /api/v1/balance/deposit
func (h *Handler) Deposit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	entry, err := h.ledgerService.Credit(c.Request.Context(), userID, req.Values)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"account_balance": entry.BalanceAfter,
		"transaction_no":  entry.TransactionNo,
	})
}

// GetBalance 查询余额
// GET /api/v1/balance
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":         userID,
		"account_balance": balance,
	})
}

// ListTransactions 余额流水
// GET /api/v1/balance/transactions?page=1&page_size=20
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.ledgerService.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 支付相关接口
// ============================================================

// InitiatePaymentRequest 发起支付请求
type InitiatePaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	AdoptionID int64           `json:"adoptionId" binding:"required,gt=0"`
}

// InitiatePayment 发起网关支付，返回托管支付页地址
// POST /api/v1/payment/initiate
func (h *Handler) InitiatePayment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	paymentURL, err := h.paymentService.Initiate(c.Request.Context(), userID, req.Amount, req.AdoptionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"payment_url": paymentURL})
}

// PaymentSuccess 网关成功回调
// POST|GET /api/v1/payment/success
//
// 【关键点】网关可能重复回调，幂等由 payment.transaction_id 唯一索引保证，
// 第二次回调返回 400，业务码 1007
func (h *Handler) PaymentSuccess(c *gin.Context) {
	tranID := callbackTranID(c)
	if tranID == "" {
		response.ParamError(c, "tran_id 不能为空")
		return
	}

	if _, err := h.paymentService.Confirm(c.Request.Context(), tranID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Redirect(http.StatusFound, redirectURL(h.gatewayCfg.FrontendSuccessURL, tranID))
}

// PaymentFail 网关失败回调
// POST|GET /api/v1/payment/fail
func (h *Handler) PaymentFail(c *gin.Context) {
	tranID := callbackTranID(c)
	h.paymentService.Abandon(c.Request.Context(), tranID, "fail")
	c.Redirect(http.StatusFound, redirectURL(h.gatewayCfg.FrontendFailURL, tranID))
}

// PaymentCancel 用户在网关页面取消
// POST|GET /api/v1/payment/cancel
func (h *Handler) PaymentCancel(c *gin.Context) {
	tranID := callbackTranID(c)
	h.paymentService.Abandon(c.Request.Context(), tranID, "cancel")
	c.Redirect(http.StatusFound, redirectURL(h.gatewayCfg.FrontendCancelURL, tranID))
}

// callbackTranID 网关 POST 表单回调，浏览器跳转则带在 query 上
func callbackTranID(c *gin.Context) string {
	if tranID := c.PostForm("tran_id"); tranID != "" {
		return tranID
	}
	return c.Query("tran_id")
}

func redirectURL(base, tranID string) string {
	if tranID == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("tran_id", tranID)
	u.RawQuery = q.Encode()
	return u.String()
}
