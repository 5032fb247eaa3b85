package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB gorm(MySQL 方言) + sqlmock，用来断言加锁与条件更新的 SQL 形状
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestUserRepository_GetByIDForUpdate_LocksRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `user` WHERE id = \\? .*FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "account_balance"}).AddRow(7, "a@example.com", "500.00"))

	user, err := repo.GetByIDForUpdate(context.Background(), db, 7)
	require.NoError(t, err)
	assert.True(t, user.AccountBalance.Equal(decimal.NewFromInt(500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPetRepository_GetByIDForUpdate_LocksRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPetRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `pet` WHERE id = \\? .*FOR UPDATE").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByIDForUpdate(context.Background(), db, 3)
	assert.ErrorIs(t, err, ErrPetNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Debit_IsConditional(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	update := regexp.QuoteMeta("UPDATE `user` SET `account_balance`=account_balance - ?") + ".*" +
		regexp.QuoteMeta("WHERE id = ? AND account_balance >= ?")

	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Debit(context.Background(), nil, 7, decimal.NewFromInt(300)))

	// 余额不足时条件不成立，再确认用户是否存在
	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `user` WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	assert.ErrorIs(t, repo.Debit(context.Background(), nil, 7, decimal.NewFromInt(300)), ErrBalanceNotEnough)

	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `user` WHERE id = ?")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	assert.ErrorIs(t, repo.Debit(context.Background(), nil, 8, decimal.NewFromInt(1)), ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_Create_DuplicateEntry(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payment`")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'txn_42' for key 'uk_payment_tran_id'"})

	err := repo.Create(context.Background(), nil, newPayment("txn_42"))
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsDuplicateKey(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsDuplicateKey(gorm.ErrRecordNotFound))
}
