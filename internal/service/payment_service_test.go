package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"petadopt/internal/config"
	"petadopt/internal/infrastructure/gateway"
	"petadopt/internal/model"
	"petadopt/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	err      error
	url      string
	requests []gateway.SessionRequest
}

func (g *fakeGateway) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.SessionResponse, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.SessionResponse{Status: "SUCCESS", GatewayPageURL: g.url}, nil
}

var testGatewayCfg = config.GatewayConfig{
	StoreID:     "store",
	StorePass:   "pass",
	Currency:    "BDT",
	ProductName: "Pet Adoption",
}

func newPaymentService(db *gorm.DB, gw PaymentGateway) *PaymentService {
	return NewPaymentService(db, gw, testGatewayCfg, testTopics, 30*time.Minute)
}

// adoptPet 走完整领养流程，返回领养记录
func adoptPet(t *testing.T, db *gorm.DB, balance, price string) (*model.User, *model.AdoptionHistory) {
	t.Helper()

	user := testutil.CreateUser(t, db, balance)
	pet := testutil.CreatePet(t, db, price)
	history, err := newAdoptionService(db, nil).Adopt(context.Background(), user.ID, pet.ID)
	require.NoError(t, err)
	return user, history
}

func TestTransactionID_RoundTrip(t *testing.T) {
	assert.Equal(t, "txn_42", FormatTransactionID(42))

	id, err := ParseTransactionID(FormatTransactionID(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseTransactionID_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"malformed",
		"txn_",
		"txn_abc",
		"txn_-1",
		"txn_0",
		"txn_+5",
		"txn_01",
		"txn_001",
		"txn_ 1",
		"txn_1_2",
		"TXN_1",
		"order_1",
		"txn_99999999999999999999",
	} {
		_, err := ParseTransactionID(in)
		assert.ErrorIs(t, err, ErrMalformedTransactionID, in)
	}
}

func TestInitiate_Success(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	gw := &fakeGateway{url: "https://sandbox.example.com/pay/abc"}
	svc := newPaymentService(db, gw)

	user, history := adoptPet(t, db, "500", "100")

	payURL, err := svc.Initiate(context.Background(), user.ID, decimal.NewFromInt(100), history.ID)
	require.NoError(t, err)
	assert.Equal(t, gw.url, payURL)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Equal(t, FormatTransactionID(history.ID), req.TranID)
	assert.True(t, req.TotalAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, user.Email, req.CusEmail)
	assert.Equal(t, user.FullName(), req.CusName)
	assert.Equal(t, "Dhaka", req.CusCity)
	assert.Equal(t, "Bangladesh", req.CusCountry)
	assert.Equal(t, history.Pet.Name, req.ProductName)

	var session model.PaymentSession
	require.NoError(t, db.Where("tran_id = ?", req.TranID).First(&session).Error)
	assert.Equal(t, model.PaymentSessionStatusInitiated, session.Status)
	assert.Equal(t, "BDT", session.Currency)
	assert.Equal(t, gw.url, session.GatewayURL)
	assert.True(t, session.ExpiredAt.After(time.Now()))

	// 重复发起只刷新会话
	_, err = svc.Initiate(context.Background(), user.ID, decimal.NewFromInt(100), history.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.PaymentSession{}))
}

func TestInitiate_Rejections(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	user, history := adoptPet(t, db, "500", "100")
	stranger := testutil.CreateUser(t, db, "0")

	tests := []struct {
		name       string
		userID     int64
		amount     int64
		adoptionID int64
		gwErr      error
		wantErr    error
	}{
		{"zero amount", user.ID, 0, history.ID, nil, ErrInvalidAmount},
		{"negative amount", user.ID, -1, history.ID, nil, ErrInvalidAmount},
		{"unknown adoption", user.ID, 100, history.ID + 1000, nil, ErrAdoptionNotFound},
		{"someone else's adoption", stranger.ID, 100, history.ID, nil, ErrAdoptionNotFound},
		{"amount differs from adoption price", user.ID, 99, history.ID, nil, ErrAmountMismatch},
		{"gateway rejects", user.ID, 100, history.ID, gateway.ErrSessionRejected, ErrPaymentInitiationFailed},
		{"gateway unreachable", user.ID, 100, history.ID, errors.New("dial tcp: timeout"), ErrPaymentInitiationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newPaymentService(db, &fakeGateway{err: tt.gwErr, url: "https://x"})

			_, err := svc.Initiate(context.Background(), tt.userID, decimal.NewFromInt(tt.amount), tt.adoptionID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, int64(0), testutil.Count(t, db, &model.PaymentSession{}))
}

func TestInitiate_AlreadyPaid(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	gw := &fakeGateway{url: "https://x"}
	svc := newPaymentService(db, gw)

	user, history := adoptPet(t, db, "500", "100")

	_, err := svc.Confirm(context.Background(), FormatTransactionID(history.ID))
	require.NoError(t, err)

	_, err = svc.Initiate(context.Background(), user.ID, decimal.NewFromInt(100), history.ID)
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
	assert.Empty(t, gw.requests)
}

func TestConfirm_Success(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := newPaymentService(db, &fakeGateway{url: "https://x"})
	ctx := context.Background()

	user, history := adoptPet(t, db, "500", "300")
	tranID := FormatTransactionID(history.ID)

	_, err := svc.Initiate(ctx, user.ID, decimal.NewFromInt(300), history.ID)
	require.NoError(t, err)

	payment, err := svc.Confirm(ctx, tranID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, tranID, payment.TransactionID)
	assert.Equal(t, user.ID, payment.UserID)
	assert.Equal(t, history.ID, payment.AdoptionID)
	assert.True(t, payment.Amount.Equal(history.Price))

	var session model.PaymentSession
	require.NoError(t, db.Where("tran_id = ?", tranID).First(&session).Error)
	assert.Equal(t, model.PaymentSessionStatusCompleted, session.Status)

	var msg model.OutboxMessage
	require.NoError(t, db.Where("event_type = ?", model.EventPaymentCompleted).First(&msg).Error)
	assert.Equal(t, tranID, msg.MessageKey)
	assert.Equal(t, "payment_completed", msg.Topic)

	// 确认支付不影响余额
	assert.True(t, testutil.ReloadUser(t, db, user.ID).AccountBalance.Equal(decimal.NewFromInt(200)))
}

func TestConfirm_WithoutInitiatedSession(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := newPaymentService(db, &fakeGateway{})

	_, history := adoptPet(t, db, "500", "300")

	_, err := svc.Confirm(context.Background(), FormatTransactionID(history.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Payment{}))
}

func TestConfirm_IsIdempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := newPaymentService(db, &fakeGateway{})

	_, history := adoptPet(t, db, "500", "300")
	tranID := FormatTransactionID(history.ID)

	_, err := svc.Confirm(context.Background(), tranID)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), tranID)
	assert.ErrorIs(t, err, ErrDuplicateTransaction)

	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Payment{}))

	var events int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).Where("event_type = ?", model.EventPaymentCompleted).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestConfirm_RejectsNonCanonicalSpellings(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := newPaymentService(db, &fakeGateway{})
	ctx := context.Background()

	_, history := adoptPet(t, db, "500", "300")
	canonical := FormatTransactionID(history.ID)

	_, err := svc.Confirm(ctx, canonical)
	require.NoError(t, err)

	for _, tranID := range []string{"txn_0" + canonical[len("txn_"):], "txn_00" + canonical[len("txn_"):]} {
		_, err := svc.Confirm(ctx, tranID)
		assert.ErrorIs(t, err, ErrMalformedTransactionID, tranID)
	}

	var payments []model.Payment
	require.NoError(t, db.Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, canonical, payments[0].TransactionID)
}

func TestConfirm_Failures(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := newPaymentService(db, &fakeGateway{})

	_, err := svc.Confirm(context.Background(), "malformed")
	assert.ErrorIs(t, err, ErrMalformedTransactionID)

	_, err = svc.Confirm(context.Background(), "txn_42")
	assert.ErrorIs(t, err, ErrAdoptionNotFound)

	assert.Equal(t, int64(0), testutil.Count(t, db, &model.Payment{}))
}

func TestConfirm_PersistenceErrorIsWrapped(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := newPaymentService(db, &fakeGateway{})

	_, history := adoptPet(t, db, "500", "300")

	boom := errors.New("disk full")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_payment", func(tx *gorm.DB) {
		if tx.Statement.Table == "payment" {
			_ = tx.AddError(boom)
		}
	}))

	_, err := svc.Confirm(context.Background(), FormatTransactionID(history.ID))
	assert.ErrorIs(t, err, ErrPaymentRecordingError)
	assert.Equal(t, int64(0), testutil.Count(t, db, &model.Payment{}))
}

func TestAbandonAndExpireSessions(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := newPaymentService(db, &fakeGateway{url: "https://x"})
	ctx := context.Background()

	user, h1 := adoptPet(t, db, "500", "100")
	pet := testutil.CreatePet(t, db, "100")
	h2, err := newAdoptionService(db, nil).Adopt(ctx, user.ID, pet.ID)
	require.NoError(t, err)

	for _, h := range []*model.AdoptionHistory{h1, h2} {
		_, err := svc.Initiate(ctx, user.ID, decimal.NewFromInt(100), h.ID)
		require.NoError(t, err)
	}

	svc.Abandon(ctx, FormatTransactionID(h1.ID), "cancel")
	svc.Abandon(ctx, "garbage", "fail")

	var s1 model.PaymentSession
	require.NoError(t, db.Where("tran_id = ?", FormatTransactionID(h1.ID)).First(&s1).Error)
	assert.Equal(t, model.PaymentSessionStatusExpired, s1.Status)

	require.NoError(t, db.Model(&model.PaymentSession{}).
		Where("tran_id = ?", FormatTransactionID(h2.ID)).
		Update("expired_at", time.Now().Add(-time.Minute)).Error)

	n, err := svc.ExpireSessions(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 过期后网关仍回调成功，照常记账
	_, err = svc.Confirm(ctx, FormatTransactionID(h2.ID))
	require.NoError(t, err)

	var s2 model.PaymentSession
	require.NoError(t, db.Where("tran_id = ?", FormatTransactionID(h2.ID)).First(&s2).Error)
	assert.Equal(t, model.PaymentSessionStatusCompleted, s2.Status)
}
