package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config 进程启动时构造一次的不可变配置，之后显式传入各个组件
type Config struct {
	BotToken      string  `env:"BOT_TOKEN,required"`
	AdminIDs      []int64 `env:"ADMIN_IDS" envSeparator:","`
	ProviderToken string  `env:"PROVIDER_TOKEN"`
	Currency      string  `env:"CURRENCY" envDefault:"USD"`

	DBPath      string `env:"DB_PATH" envDefault:"orders.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	RabbitMQURL string `env:"RABBITMQ_URL"`

	HTTPPort    int `env:"HTTP_PORT" envDefault:"8080"`
	PollTimeout int `env:"POLL_TIMEOUT" envDefault:"30"`

	// 手动付款的收款信息（展示给用户）
	CardNumber string `env:"CARD_NUMBER"`
	CardHolder string `env:"CARD_HOLDER"`

	// true 时只允许从 paid_waiting 完成订单，false 保持原有宽松行为
	FulfillRequirePaid bool `env:"FULFILL_REQUIRE_PAID" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogToFile bool   `env:"LOG_TO_FILE" envDefault:"false"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() // 忽略 .env 不存在的错误
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	return cfg, nil
}

// IsAdmin 检查 id 是否在管理员白名单中
func (c *Config) IsAdmin(id int64) bool {
	for _, admin := range c.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}
