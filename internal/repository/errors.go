package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound         = errors.New("用户不存在")
	ErrBalanceNotEnough     = errors.New("余额不足")
	ErrPetNotFound          = errors.New("宠物不存在")
	ErrAdoptNotFound        = errors.New("领养会话不存在")
	ErrHistoryNotFound      = errors.New("领养记录不存在")
	ErrDuplicateHistory     = errors.New("重复的领养记录")
	ErrDuplicateTransaction = errors.New("重复的交易号")
	ErrSessionStatusInvalid = errors.New("支付会话状态不合法")
)

// mysqlErrDuplicateEntry ER_DUP_ENTRY
const mysqlErrDuplicateEntry = 1062

// IsDuplicateKey 判断是否唯一索引冲突
// 开启 TranslateError 后 gorm 会翻译成 ErrDuplicatedKey，直接拿到驱动错误时再按错误码判断
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return false
}
