package service

import "errors"

// 业务错误，handler 层通过 errors.Is 映射为 HTTP 状态码
var (
	ErrNotFound                = errors.New("宠物不存在")
	ErrUserNotFound            = errors.New("用户不存在")
	ErrInsufficientFunds       = errors.New("余额不足")
	ErrAlreadyAdopted          = errors.New("您已经领养过这只宠物")
	ErrPetUnavailable          = errors.New("该宠物已被领养")
	ErrInvalidAmount           = errors.New("金额必须大于0且最多两位小数")
	ErrMalformedTransactionID  = errors.New("交易号格式错误")
	ErrAdoptionNotFound        = errors.New("领养记录不存在")
	ErrAmountMismatch          = errors.New("支付金额与领养价格不一致")
	ErrPaymentInitiationFailed = errors.New("支付发起失败")
	ErrDuplicateTransaction    = errors.New("该交易已记录")
	ErrPaymentRecordingError   = errors.New("支付记录失败")
	ErrSystemBusy              = errors.New("系统繁忙，请稍后重试")
)
