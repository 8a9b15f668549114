package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"uc-donate-bot/internal/bot"
	"uc-donate-bot/internal/config"
	"uc-donate-bot/internal/logger"
	"uc-donate-bot/internal/model"
	"uc-donate-bot/internal/mq"
	"uc-donate-bot/internal/repository"
	"uc-donate-bot/internal/server"
	"uc-donate-bot/internal/service"
	"uc-donate-bot/pkg/telegram"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// 1. 加载配置（缺少 BOT_TOKEN 直接启动失败）
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("加载配置失败")
	}

	// 2. 初始化日志
	logger.Init(cfg.LogLevel, cfg.LogToFile)
	logger.Logger.Info().Ints64("admin_ids", cfg.AdminIDs).Msg("配置加载成功")

	// 3. 连接数据库（Silent 模式不输出 SQL，只有错误时输出）
	db, err := openDB(cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("连接数据库失败")
	}
	logger.Logger.Info().Msg("数据库连接成功")

	// 自动迁移
	if err := db.AutoMigrate(&model.Order{}); err != nil {
		logger.Logger.Fatal().Err(err).Msg("数据库迁移失败")
	}

	// 4. 可选：连接 RabbitMQ（未配置则不发布订单事件）
	var mqClient *mq.RabbitMQ
	if cfg.RabbitMQURL != "" {
		mqClient, err = mq.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("连接 RabbitMQ 失败")
		}
		defer mqClient.Close()
	}

	// 5. 初始化各组件
	orderRepo := repository.NewOrderRepository(db)
	tgClient := telegram.NewClient(telegram.DefaultBaseURL, cfg.BotToken)
	orderService := service.NewOrderService(orderRepo, tgClient, mqClient, cfg.AdminIDs, cfg.FulfillRequirePaid)
	chatBot := bot.New(tgClient, orderService, cfg)

	// 6. 创建可取消的 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 7. 启动机器人长轮询
	go chatBot.Run(ctx)

	// 8. 启动只读管理 HTTP 服务
	httpServer := server.NewHTTPServer(orderRepo, cfg.HTTPPort)
	go func() {
		logger.Logger.Info().Int("port", cfg.HTTPPort).Msg("HTTP 服务已启动")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal().Err(err).Msg("HTTP 服务异常")
		}
	}()

	// 9. 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Logger.Info().Str("signal", sig.String()).Msg("收到退出信号")

	cancel()
	if err := httpServer.Shutdown(context.Background()); err != nil {
		logger.Logger.Warn().Err(err).Msg("HTTP 服务关闭异常")
	}
	logger.Logger.Info().Msg("服务已优雅退出")
}

// openDB 打开存储：默认本地 sqlite 文件，配置 DATABASE_URL 时用 Postgres
func openDB(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	}
	return gorm.Open(sqlite.Open(cfg.DBPath), gormCfg)
}
