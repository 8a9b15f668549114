package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"uc-donate-bot/internal/catalog"
	"uc-donate-bot/internal/logger"
	"uc-donate-bot/internal/service"
	"uc-donate-bot/pkg/telegram"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	btnDonate   = "Donat qilish"
	btnMyOrders = "Buyurtmalarim"

	callbackManualPay = "manual_pay"
)

// handleUpdate 路由单条更新
func (b *Bot) handleUpdate(update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(*update.CallbackQuery)
	case update.PreCheckoutQuery != nil:
		b.handlePreCheckout(*update.PreCheckoutQuery)
	case update.Message != nil:
		b.handleMessage(*update.Message)
	}
}

func (b *Bot) handleMessage(msg telegram.Message) {
	if msg.From == nil {
		return
	}

	if msg.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		b.cmdStart(msg)
	case text == btnDonate:
		b.showOptions(msg)
	case text == btnMyOrders:
		b.myOrders(msg)
	case strings.HasPrefix(text, "/paid"):
		b.cmdPaid(msg)
	case strings.HasPrefix(text, "/fulfill"):
		b.cmdFulfill(msg)
	default:
		b.send(msg.Chat.ID,
			"Noma'lum buyruq. /start bilan boshlang yoki 'Donat qilish' tugmasini bosing.", nil)
	}
}

func (b *Bot) cmdStart(msg telegram.Message) {
	keyboard := telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: btnDonate}, {Text: btnMyOrders}},
		},
		ResizeKeyboard: true,
	}
	b.send(msg.Chat.ID,
		"Assalomu alaykum! 🎮\n"+
			"PUBG donat qilish botiga xush kelibsiz.\n\n"+
			"Buyurtma berish uchun quyidagilardan birini tanlang:",
		keyboard)
}

// showOptions 套餐选择按钮
func (b *Bot) showOptions(msg telegram.Message) {
	var row []telegram.InlineKeyboardButton
	for _, pkg := range catalog.Packages {
		row = append(row, telegram.InlineKeyboardButton{
			Text:         pkg.Label(),
			CallbackData: pkg.CallbackData(),
		})
	}

	keyboard := telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			row,
			{{Text: "Qo'lda/karta orqali to'lash", CallbackData: callbackManualPay}},
		},
	}
	b.send(msg.Chat.ID,
		"Qaysi paketni xohlaysiz?\n(US Dollar ko'rsatilgan: misol uchun)", keyboard)
}

func (b *Bot) handleCallback(cb telegram.CallbackQuery) {
	if err := b.api.AnswerCallbackQuery(cb.ID); err != nil {
		logger.Logger.Debug().Err(err).Msg("应答回调失败（忽略）")
	}

	switch {
	case strings.HasPrefix(cb.Data, "opt_"):
		b.processOption(cb)
	case cb.Data == callbackManualPay:
		b.send(cb.From.ID, b.requisitesText(0), nil)
	}
}

// processOption 用户选择了套餐：配置了支付网关就发账单，
// 否则创建 pending 订单并引导手动付款
func (b *Bot) processOption(cb telegram.CallbackQuery) {
	uc, amount, err := catalog.ParseCallback(cb.Data)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("data", cb.Data).Msg("无效的套餐回调")
		return
	}
	option := uc + " UC"
	user := cb.From

	if b.cfg.ProviderToken != "" {
		invoice := telegram.InvoiceParams{
			ChatID:        user.ID,
			Title:         option,
			Description:   "Buyurtma: " + option,
			Payload:       fmt.Sprintf("pay_%s_%d", uc, user.ID),
			ProviderToken: b.cfg.ProviderToken,
			Currency:      b.cfg.Currency,
			Prices:        []telegram.LabeledPrice{{Label: option, Amount: amount}},
		}
		if err := b.api.SendInvoice(invoice); err != nil {
			logger.Logger.Warn().Err(err).Int64("user_id", user.ID).Msg("发送账单失败（忽略）")
		}
		return
	}

	order, err := b.orders.CreateOrder(user.ID, user.Username, option, amount, "", "")
	if err != nil {
		logger.Logger.Error().Err(err).Int64("user_id", user.ID).Msg("创建订单失败")
		b.send(user.ID, "Xatolik yuz berdi, keyinroq urinib ko'ring.", nil)
		return
	}

	b.send(user.ID, b.requisitesText(order.ID), nil)
	b.sendRequisitesQR(user.ID)

	b.orders.BroadcastToAdmins(fmt.Sprintf(
		"Yangi buyurtma #%d by @%s\nPaket: %s\nSumma: %d",
		order.ID, user.Username, option, amount))
}

// requisitesText 手动付款说明，orderID 为 0 时不带订单引导
func (b *Bot) requisitesText(orderID int64) string {
	card := b.cfg.CardNumber
	if card == "" {
		card = "[SIZNING REKVIZIT]"
	}
	holder := b.cfg.CardHolder
	if holder == "" {
		holder = "[SIZNING ISM]"
	}

	text := "Iltimos, quyidagi ma'lumotlar bo'yicha to'lovni amalga oshiring:\n" +
		"- Bank karta: " + card + "\n" +
		"- Muxbir: " + holder
	if orderID == 0 {
		return text
	}
	return fmt.Sprintf("Buyurtma qabul qilindi (id: %d).\n%s\n\n"+
		"To'lovni amalga oshirganingizdan so'ng, to'lov kvitansiyasini yuboring yoki /paid %d komandasini yuboring.",
		orderID, text, orderID)
}

// sendRequisitesQR 配置了卡号时附带一张收款二维码
func (b *Bot) sendRequisitesQR(chatID int64) {
	if b.cfg.CardNumber == "" {
		return
	}
	png, err := qrcode.Encode(b.cfg.CardNumber, qrcode.Medium, 256)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("生成收款二维码失败（忽略）")
		return
	}
	if err := b.api.SendPhoto(chatID, png, "card.png", "Bank karta"); err != nil {
		logger.Logger.Debug().Err(err).Int64("chat_id", chatID).Msg("发送二维码失败（忽略）")
	}
}

// cmdPaid 用户自报付款: /paid <buyurtma_id>
func (b *Bot) cmdPaid(msg telegram.Message) {
	orderID, ok := parseIDArg(msg.Text)
	if !ok {
		b.send(msg.Chat.ID, "Foydalanish: /paid <buyurtma_id>", nil)
		return
	}

	_, err := b.orders.ReportPayment(orderID)
	switch {
	case err == nil:
		b.send(msg.Chat.ID, "To'lov qabul qilindi. Admin tasdiqlaydi — bir oz kuting.", nil)
	case errors.Is(err, service.ErrNotFound):
		b.send(msg.Chat.ID, "Buyurtma topilmadi.", nil)
	case errors.Is(err, service.ErrInvalidState):
		status := "?"
		if order, err := b.orders.GetOrder(orderID); err == nil {
			status = order.Status
		}
		b.send(msg.Chat.ID, fmt.Sprintf(
			"Buyurtma holati: %s. Agar muammo bo'lsa admin bilan bog'laning.", status), nil)
	default:
		logger.Logger.Error().Err(err).Int64("order_id", orderID).Msg("付款上报失败")
		b.send(msg.Chat.ID, "Xatolik yuz berdi, keyinroq urinib ko'ring.", nil)
	}
}

// cmdFulfill 管理员完成订单: /fulfill <order_id>
func (b *Bot) cmdFulfill(msg telegram.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.send(msg.Chat.ID, "Foydalanuvchi emas.", nil)
		return
	}

	orderID, ok := parseIDArg(msg.Text)
	if !ok {
		b.send(msg.Chat.ID, "Foydalanish: /fulfill <order_id>", nil)
		return
	}

	order, err := b.orders.Fulfill(orderID, msg.From.ID)
	switch {
	case err == nil:
		b.send(msg.Chat.ID, fmt.Sprintf("Buyurtma #%d bajarildi.", order.ID), nil)
	case errors.Is(err, service.ErrUnauthorized):
		b.send(msg.Chat.ID, "Foydalanuvchi emas.", nil)
	case errors.Is(err, service.ErrNotFound):
		b.send(msg.Chat.ID, "Buyurtma topilmadi.", nil)
	case errors.Is(err, service.ErrAlreadyDone):
		b.send(msg.Chat.ID, "Buyurtma allaqachon bajarilgan.", nil)
	case errors.Is(err, service.ErrInvalidState):
		b.send(msg.Chat.ID, "Buyurtma hali to'lanmagan — avval to'lov tasdiqlansin.", nil)
	default:
		logger.Logger.Error().Err(err).Int64("order_id", orderID).Msg("完成订单失败")
		b.send(msg.Chat.ID, "Xatolik yuz berdi, keyinroq urinib ko'ring.", nil)
	}
}

// myOrders 用户订单列表，最新在前
func (b *Bot) myOrders(msg telegram.Message) {
	orders, err := b.orders.ListOrders(msg.From.ID)
	if err != nil {
		logger.Logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("查询订单列表失败")
		b.send(msg.Chat.ID, "Xatolik yuz berdi, keyinroq urinib ko'ring.", nil)
		return
	}

	if len(orders) == 0 {
		b.send(msg.Chat.ID, "Sizda buyurtma yo'q.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("Sizning buyurtmalaringiz:\n\n")
	for _, o := range orders {
		sb.WriteString(fmt.Sprintf("#%d — %s — %d — %s — %s\n",
			o.ID, o.Option, o.Amount, o.Status, o.CreatedAt.Format("2006-01-02 15:04:05")))
	}
	b.send(msg.Chat.ID, sb.String(), nil)
}

// handlePreCheckout 支付前确认一律放行
func (b *Bot) handlePreCheckout(query telegram.PreCheckoutQuery) {
	if err := b.api.AnswerPreCheckoutQuery(query.ID, true, ""); err != nil {
		logger.Logger.Warn().Err(err).Msg("应答支付前确认失败（忽略）")
	}
}

// handleSuccessfulPayment 平台支付成功事件，订单直接落为 done
func (b *Bot) handleSuccessfulPayment(msg telegram.Message) {
	payment := msg.SuccessfulPayment
	_, err := b.orders.RecordDirectPayment(msg.From.ID, msg.From.Username,
		payment.InvoicePayload, payment.TotalAmount)
	if err != nil {
		logger.Logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("记录支付订单失败")
		return
	}

	b.send(msg.Chat.ID, "To'lov qabul qilindi. Buyurtmangiz bajariladi. Rahmat!", nil)

	b.orders.BroadcastToAdmins(fmt.Sprintf(
		"Yangi to'lov qabul qilindi by @%s: %s", msg.From.Username, payment.InvoicePayload))
}

// parseIDArg 解析 "/cmd <id>" 形式的命令参数
func parseIDArg(text string) (int64, bool) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
