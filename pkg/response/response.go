package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码：HTTP 状态码表达错误大类，code 细分具体业务原因
const (
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeNotFound     = 404
	CodeTooMany      = 429
	CodeServerError  = 500
)

const (
	CodeInsufficientFunds       = 1001
	CodeAlreadyAdopted          = 1002
	CodeInvalidAmount           = 1003
	CodePetUnavailable          = 1004
	CodeMalformedTransactionID  = 1005
	CodePaymentInitiationFailed = 1006
	CodeDuplicateTransaction    = 1007
	CodePaymentRecordingError   = 1008
	CodeAmountMismatch          = 1009
	CodeSystemBusy              = 1010
)

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Success 成功时直接返回业务数据
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error 失败时返回 {code, message}，并设置真实的 HTTP 状态码
func Error(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeParamError, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// ServerError 对外只返回通用提示，具体错误由调用方写日志
func ServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeServerError, "服务器内部错误")
}
