package handler

import (
	"errors"
	"net/http"

	"petadopt/internal/logging"
	"petadopt/internal/service"
	"petadopt/pkg/response"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	code   int
}

// 按顺序匹配，未列出的错误一律 500
var errorMappings = []errorMapping{
	{service.ErrNotFound, http.StatusNotFound, response.CodeNotFound},
	{service.ErrUserNotFound, http.StatusNotFound, response.CodeNotFound},
	{service.ErrAdoptionNotFound, http.StatusNotFound, response.CodeNotFound},
	{service.ErrInsufficientFunds, http.StatusBadRequest, response.CodeInsufficientFunds},
	{service.ErrAlreadyAdopted, http.StatusBadRequest, response.CodeAlreadyAdopted},
	{service.ErrPetUnavailable, http.StatusBadRequest, response.CodePetUnavailable},
	{service.ErrInvalidAmount, http.StatusBadRequest, response.CodeInvalidAmount},
	{service.ErrAmountMismatch, http.StatusBadRequest, response.CodeAmountMismatch},
	{service.ErrMalformedTransactionID, http.StatusBadRequest, response.CodeMalformedTransactionID},
	{service.ErrPaymentInitiationFailed, http.StatusBadRequest, response.CodePaymentInitiationFailed},
	{service.ErrDuplicateTransaction, http.StatusBadRequest, response.CodeDuplicateTransaction},
	{service.ErrSystemBusy, http.StatusTooManyRequests, response.CodeSystemBusy},
}

// handleServiceError 业务错误转 HTTP 响应
// 500 只返回通用提示，原始错误写日志
func handleServiceError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			response.Error(c, m.status, m.code, m.err.Error())
			return
		}
	}

	code := response.CodeServerError
	if errors.Is(err, service.ErrPaymentRecordingError) {
		code = response.CodePaymentRecordingError
	}

	logging.FromContext(c.Request.Context()).Error("请求处理失败",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	response.Error(c, http.StatusInternalServerError, code, "服务器内部错误")
}
