package service

import (
	"errors"
	"fmt"
	"testing"

	"uc-donate-bot/internal/model"
	"uc-donate-bot/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testUserID  = int64(111)
	testAdminID = int64(999)
	otherAdmin  = int64(888)
)

// fakeNotifier 记录出站消息，可配置为总是失败
type fakeNotifier struct {
	sent []sentMessage
	fail bool
}

type sentMessage struct {
	chatID int64
	text   string
}

func (f *fakeNotifier) SendMessage(chatID int64, text string, _ interface{}) error {
	if f.fail {
		return errors.New("transport down")
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func setupService(t *testing.T, requirePaid bool) (*OrderService, *fakeNotifier) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Order{}))

	notifier := &fakeNotifier{}
	repo := repository.NewOrderRepository(db)
	svc := NewOrderService(repo, notifier, nil, []int64{testAdminID, otherAdmin}, requirePaid)
	return svc, notifier
}

func TestCreateOrder_DefaultsToPending(t *testing.T) {
	svc, _ := setupService(t, false)

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, order.Status)
	require.Equal(t, testUserID, order.UserID)
	require.False(t, order.CreatedAt.IsZero())
}

func TestCreateOrder_IncreasingIDs(t *testing.T) {
	svc, _ := setupService(t, false)

	var lastID int64
	for i := 0; i < 5; i++ {
		order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
		require.NoError(t, err)
		require.Greater(t, order.ID, lastID)
		lastID = order.ID
	}
}

func TestCreateOrder_DuplicatesAllowed(t *testing.T) {
	svc, _ := setupService(t, false)

	first, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)
	second, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestReportPayment(t *testing.T) {
	svc, notifier := setupService(t, false)

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)

	updated, err := svc.ReportPayment(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPaidWaiting, updated.Status)

	// 所有管理员收到广播
	require.Len(t, notifier.sent, 2)
	require.Equal(t, testAdminID, notifier.sent[0].chatID)
	require.Equal(t, otherAdmin, notifier.sent[1].chatID)
	require.Contains(t, notifier.sent[0].text, fmt.Sprintf("/fulfill %d", order.ID))
}

func TestReportPayment_SecondCallInvalidState(t *testing.T) {
	svc, _ := setupService(t, false)

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)

	_, err = svc.ReportPayment(order.ID)
	require.NoError(t, err)

	// 第二次不再流转
	_, err = svc.ReportPayment(order.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	current, err := svc.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPaidWaiting, current.Status)
}

func TestReportPayment_NotFound(t *testing.T) {
	svc, _ := setupService(t, false)

	_, err := svc.ReportPayment(12345)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReportPayment_NotifierFailureSwallowed(t *testing.T) {
	svc, notifier := setupService(t, false)
	notifier.fail = true

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)

	// 通知失败不影响状态流转
	updated, err := svc.ReportPayment(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPaidWaiting, updated.Status)
}

func TestFulfill(t *testing.T) {
	svc, notifier := setupService(t, false)

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)
	_, err = svc.ReportPayment(order.ID)
	require.NoError(t, err)
	notifier.sent = nil

	done, err := svc.Fulfill(order.ID, testAdminID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDone, done.Status)

	// 下单用户收到完成通知
	require.Len(t, notifier.sent, 1)
	require.Equal(t, testUserID, notifier.sent[0].chatID)
}

func TestFulfill_AlreadyDone(t *testing.T) {
	svc, _ := setupService(t, false)

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)
	_, err = svc.Fulfill(order.ID, testAdminID)
	require.NoError(t, err)

	_, err = svc.Fulfill(order.ID, testAdminID)
	require.ErrorIs(t, err, ErrAlreadyDone)

	current, err := svc.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDone, current.Status)
}

func TestFulfill_Unauthorized(t *testing.T) {
	svc, _ := setupService(t, false)

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)

	_, err = svc.Fulfill(order.ID, testUserID)
	require.ErrorIs(t, err, ErrUnauthorized)

	// 状态保持不变
	current, err := svc.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, current.Status)
}

func TestFulfill_NotFound(t *testing.T) {
	svc, _ := setupService(t, false)

	_, err := svc.Fulfill(12345, testAdminID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFulfill_FromPendingAllowedByDefault(t *testing.T) {
	svc, _ := setupService(t, false)

	// 默认行为：未经 paid_waiting 也可以完成
	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)

	done, err := svc.Fulfill(order.ID, testAdminID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDone, done.Status)
}

func TestFulfill_RequirePaid(t *testing.T) {
	svc, _ := setupService(t, true)

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)

	// 严格模式：pending 不可直接完成
	_, err = svc.Fulfill(order.ID, testAdminID)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.ReportPayment(order.ID)
	require.NoError(t, err)

	done, err := svc.Fulfill(order.ID, testAdminID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDone, done.Status)
}

func TestListOrders(t *testing.T) {
	svc, _ := setupService(t, false)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
		require.NoError(t, err)
	}
	_, err := svc.CreateOrder(int64(222), "other", "500 UC", 400, "", "")
	require.NoError(t, err)

	orders, err := svc.ListOrders(testUserID)
	require.NoError(t, err)
	require.Len(t, orders, 3)

	// 最新在前，且只包含本人的订单
	for i := 1; i < len(orders); i++ {
		require.Greater(t, orders[i-1].ID, orders[i].ID)
	}
	for _, o := range orders {
		require.Equal(t, testUserID, o.UserID)
	}
}

func TestListOrders_Empty(t *testing.T) {
	svc, _ := setupService(t, false)

	orders, err := svc.ListOrders(testUserID)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestRecordDirectPayment(t *testing.T) {
	svc, _ := setupService(t, false)

	order, err := svc.RecordDirectPayment(testUserID, "tester", "pay_100_111", 100)
	require.NoError(t, err)

	// 直接落为 done，不经过中间状态
	require.Equal(t, model.StatusDone, order.Status)
	require.Equal(t, "pay_100_111", order.Option)

	current, err := svc.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDone, current.Status)
}

func TestEndToEnd_ManualFlow(t *testing.T) {
	svc, _ := setupService(t, false)

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, order.Status)

	order, err = svc.ReportPayment(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPaidWaiting, order.Status)

	order, err = svc.Fulfill(order.ID, testAdminID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDone, order.Status)

	_, err = svc.Fulfill(order.ID, testAdminID)
	require.ErrorIs(t, err, ErrAlreadyDone)

	current, err := svc.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDone, current.Status)
}

func TestEndToEnd_NonAdminOnFreshOrder(t *testing.T) {
	svc, _ := setupService(t, false)

	order, err := svc.CreateOrder(testUserID, "tester", "100 UC", 100, "", "")
	require.NoError(t, err)

	_, err = svc.Fulfill(order.ID, testUserID)
	require.ErrorIs(t, err, ErrUnauthorized)

	current, err := svc.GetOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, current.Status)
}
