package bot

import (
	"context"
	"time"

	"uc-donate-bot/internal/config"
	"uc-donate-bot/internal/logger"
	"uc-donate-bot/internal/service"
	"uc-donate-bot/pkg/telegram"
)

// API 机器人用到的 Bot API 子集
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
	SendMessage(chatID int64, text string, replyMarkup interface{}) error
	SendInvoice(params telegram.InvoiceParams) error
	SendPhoto(chatID int64, photo []byte, filename, caption string) error
	AnswerCallbackQuery(callbackQueryID string) error
	AnswerPreCheckoutQuery(preCheckoutQueryID string, ok bool, errorMessage string) error
}

// Bot 长轮询聊天前端，把入站事件翻译成订单操作并把结果转回文本
type Bot struct {
	api    API
	orders *service.OrderService
	cfg    *config.Config
}

func New(api API, orders *service.OrderService, cfg *config.Config) *Bot {
	return &Bot{
		api:    api,
		orders: orders,
		cfg:    cfg,
	}
}

// Run 启动长轮询循环，直到 ctx 取消
func (b *Bot) Run(ctx context.Context) {
	logger.Logger.Info().Int("poll_timeout", b.cfg.PollTimeout).Msg("机器人长轮询已启动")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info().Msg("机器人长轮询已停止")
			return
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Logger.Warn().Err(err).Msg("获取更新失败，稍后重试")
			time.Sleep(2 * time.Second)
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.handleUpdate(update)
		}
	}
}

// send 尽力发送消息，失败只记日志
func (b *Bot) send(chatID int64, text string, replyMarkup interface{}) {
	if err := b.api.SendMessage(chatID, text, replyMarkup); err != nil {
		logger.Logger.Debug().Err(err).Int64("chat_id", chatID).Msg("发送消息失败（忽略）")
	}
}
