package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置，main 中加载一次后以只读方式传给各组件
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Shopify  ShopifyConfig  `mapstructure:"shopify"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Sync     SyncConfig     `mapstructure:"sync"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Tenant   TenantConfig   `mapstructure:"tenant"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// 手动同步运维接口密钥，为空时接口关闭
	AdminKey        string        `mapstructure:"admin_key"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// ShopifyConfig 上游 API 配置
type ShopifyConfig struct {
	APIVersion string        `mapstructure:"api_version"`
	Scheme     string        `mapstructure:"scheme"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	RateBurst  int           `mapstructure:"rate_burst"`
	PageSize   int           `mapstructure:"page_size"`
	MaxPages   int           `mapstructure:"max_pages"`
}

// WebhookConfig Webhook 配置
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
	// 订单事件是否先写入内嵌客户
	UpsertEmbeddedCustomer bool `mapstructure:"upsert_embedded_customer"`
}

// SyncConfig 同步调度配置
type SyncConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Cron        string        `mapstructure:"cron"`
	RunOnStart  bool          `mapstructure:"run_on_start"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	OnlyDomain  string        `mapstructure:"only_domain"`
}

// JWTConfig 租户身份令牌配置
type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// TenantConfig 默认租户引导配置
type TenantConfig struct {
	DefaultName   string `mapstructure:"default_name"`
	DefaultDomain string `mapstructure:"default_domain"`
	DefaultToken  string `mapstructure:"default_token"`
}

// Load 读取配置文件（可选）与 MIRROR_ 前缀的环境变量
// 例如 MIRROR_DATABASE_HOST 覆盖 database.host
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret 未配置，可通过 MIRROR_JWT_SECRET 设置")
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("sync.max_attempts 必须 >= 1, 当前 %d", c.Sync.MaxAttempts)
	}
	if c.Sync.BaseDelay <= 0 || c.Sync.MaxDelay < c.Sync.BaseDelay {
		return fmt.Errorf("sync.base_delay/max_delay 配置无效: %v/%v", c.Sync.BaseDelay, c.Sync.MaxDelay)
	}
	if c.Shopify.PageSize < 1 || c.Shopify.PageSize > 250 {
		return fmt.Errorf("shopify.page_size 必须在 1..250 之间, 当前 %d", c.Shopify.PageSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.admin_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "shopify_mirror")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("shopify.api_version", "2024-04")
	v.SetDefault("shopify.scheme", "https")
	v.SetDefault("shopify.timeout", 30*time.Second)
	v.SetDefault("shopify.rate_limit", 2.0)
	v.SetDefault("shopify.rate_burst", 4)
	v.SetDefault("shopify.page_size", 250)
	v.SetDefault("shopify.max_pages", 0)

	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.upsert_embedded_customer", false)

	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.cron", "0 * * * * *")
	v.SetDefault("sync.run_on_start", true)
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.base_delay", 2*time.Second)
	v.SetDefault("sync.max_delay", 30*time.Second)
	v.SetDefault("sync.cooldown", 30*time.Second)
	v.SetDefault("sync.only_domain", "")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "shopify-mirror")
	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)

	v.SetDefault("tenant.default_name", "")
	v.SetDefault("tenant.default_domain", "")
	v.SetDefault("tenant.default_token", "")
}
