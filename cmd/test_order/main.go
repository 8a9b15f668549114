package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"uc-donate-bot/internal/model"
	"uc-donate-bot/internal/repository"
	"uc-donate-bot/internal/service"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// consoleNotifier 把出站通知打到控制台，代替真实的聊天传输
type consoleNotifier struct{}

func (consoleNotifier) SendMessage(chatID int64, text string, _ interface{}) error {
	log.Printf("[通知 → %d] %s", chatID, text)
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("========== UC Donate Bot 状态机端到端测试 ==========")

	const (
		userID  = int64(111)
		adminID = int64(999)
	)

	// 1. 打开临时 sqlite 数据库
	dbPath := "test_orders.db"
	defer os.Remove(dbPath)

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("打开数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Order{}); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("[OK] 数据库就绪")

	repo := repository.NewOrderRepository(db)
	svc := service.NewOrderService(repo, consoleNotifier{}, nil, []int64{adminID}, false)

	// 2. 创建订单 → pending
	order, err := svc.CreateOrder(userID, "tester", "100 UC", 100, "", "")
	if err != nil {
		log.Fatalf("创建订单失败: %v", err)
	}
	log.Printf("[OK] 订单已创建: id=%d status=%s", order.ID, order.Status)

	// 3. 上报付款 → paid_waiting
	order, err = svc.ReportPayment(order.ID)
	if err != nil {
		log.Fatalf("付款上报失败: %v", err)
	}
	log.Printf("[OK] 付款已上报: id=%d status=%s", order.ID, order.Status)

	// 重复上报应返回状态错误
	if _, err = svc.ReportPayment(order.ID); !errors.Is(err, service.ErrInvalidState) {
		log.Fatalf("重复上报未按预期失败: %v", err)
	}
	log.Println("[OK] 重复上报被拒绝 (InvalidState)")

	// 4. 非管理员完成应被拒绝
	if _, err = svc.Fulfill(order.ID, userID); !errors.Is(err, service.ErrUnauthorized) {
		log.Fatalf("非管理员完成未按预期失败: %v", err)
	}
	log.Println("[OK] 非管理员被拒绝 (Unauthorized)")

	// 5. 管理员完成 → done
	order, err = svc.Fulfill(order.ID, adminID)
	if err != nil {
		log.Fatalf("完成订单失败: %v", err)
	}
	log.Printf("[OK] 订单已完成: id=%d status=%s", order.ID, order.Status)

	// 重复完成应返回已完成
	if _, err = svc.Fulfill(order.ID, adminID); !errors.Is(err, service.ErrAlreadyDone) {
		log.Fatalf("重复完成未按预期失败: %v", err)
	}
	log.Println("[OK] 重复完成被拒绝 (AlreadyDone)")

	// 6. 外部支付直接落单 → done
	direct, err := svc.RecordDirectPayment(userID, "tester", fmt.Sprintf("pay_100_%d", userID), 100)
	if err != nil {
		log.Fatalf("记录外部支付失败: %v", err)
	}
	log.Printf("[OK] 外部支付订单: id=%d status=%s", direct.ID, direct.Status)

	// 7. 订单列表，最新在前
	orders, err := svc.ListOrders(userID)
	if err != nil {
		log.Fatalf("查询订单列表失败: %v", err)
	}
	for _, o := range orders {
		log.Printf("    #%d — %s — %d — %s", o.ID, o.Option, o.Amount, o.Status)
	}

	log.Println("========== 全部通过 ==========")
}
