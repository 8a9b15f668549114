package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Package UC 充值套餐，Amount 为货币最小单位（美分）
type Package struct {
	UC     int
	Amount int64
}

// Packages 可购买的套餐列表（与机器人按钮一一对应）
var Packages = []Package{
	{UC: 100, Amount: 100},
	{UC: 500, Amount: 400},
}

// Option 套餐的展示名，如 "100 UC"
func (p Package) Option() string {
	return fmt.Sprintf("%d UC", p.UC)
}

// Label 按钮文案，如 "100 UC — $1"
func (p Package) Label() string {
	price := decimal.NewFromInt(p.Amount).Div(decimal.NewFromInt(100))
	return fmt.Sprintf("%d UC — $%s", p.UC, price.String())
}

// CallbackData 回调数据，格式 opt_<uc>_<cents>
func (p Package) CallbackData() string {
	return fmt.Sprintf("opt_%d_%d", p.UC, p.Amount)
}

// InvoicePayload 平台支付的 payload，格式 pay_<uc>_<user_id>
func (p Package) InvoicePayload(userID int64) string {
	return fmt.Sprintf("pay_%d_%d", p.UC, userID)
}

// ParseCallback 解析 opt_<uc>_<cents> 回调数据。
// 与原有行为一致：不校验是否在套餐列表中，只要求格式合法。
func ParseCallback(data string) (uc string, amount int64, err error) {
	parts := strings.Split(data, "_")
	if len(parts) != 3 || parts[0] != "opt" {
		return "", 0, fmt.Errorf("无效的回调数据: %s", data)
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return "", 0, fmt.Errorf("无效的 UC 数量: %s", parts[1])
	}
	amount, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("无效的金额: %s", parts[2])
	}
	return parts[1], amount, nil
}
