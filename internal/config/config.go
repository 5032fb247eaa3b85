package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Business  BusinessConfig  `mapstructure:"business"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	WorkerID int64  `mapstructure:"worker_id" validate:"gte=0,lte=1023"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host" validate:"required"`
	Port         int    `mapstructure:"port" validate:"required"`
	User         string `mapstructure:"user" validate:"required"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

// DSN 拼接 MySQL 连接串
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	AdoptionCreated  string `mapstructure:"adoption_created"`
	PaymentCompleted string `mapstructure:"payment_completed"`
}

// GatewayConfig 第三方支付网关配置
// 商户凭证只从这里注入，代码中不出现任何字面量
type GatewayConfig struct {
	StoreID    string        `mapstructure:"store_id" validate:"required"`
	StorePass  string        `mapstructure:"store_pass" validate:"required"`
	SessionURL string        `mapstructure:"session_url" validate:"required,url"`
	Currency   string        `mapstructure:"currency" validate:"required,len=3"`
	Timeout    time.Duration `mapstructure:"timeout"`

	// 网关回调地址（指向本服务）
	SuccessURL string `mapstructure:"success_url" validate:"required,url"`
	FailURL    string `mapstructure:"fail_url" validate:"required,url"`
	CancelURL  string `mapstructure:"cancel_url" validate:"required,url"`

	// 回调处理完成后重定向的前端页面
	FrontendSuccessURL string `mapstructure:"frontend_success_url" validate:"required,url"`
	FrontendFailURL    string `mapstructure:"frontend_fail_url" validate:"required,url"`
	FrontendCancelURL  string `mapstructure:"frontend_cancel_url" validate:"required,url"`

	ProductName     string `mapstructure:"product_name"`
	ProductCategory string `mapstructure:"product_category"`
	ShippingMethod  string `mapstructure:"shipping_method"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=16"`
	Issuer    string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type BusinessConfig struct {
	PaymentSessionTimeoutMinutes int `mapstructure:"payment_session_timeout_minutes"`
	MaxRetryCount                int `mapstructure:"max_retry_count"`
	OutboxBatchSize              int `mapstructure:"outbox_batch_size"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
// 优先级：环境变量(PETADOPT_ 前缀) > .env > config.yaml > 默认值
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在时忽略，线上通常直接注入环境变量
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PETADOPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return cfg, nil
}

// Validate 校验配置完整性
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "petadopt")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.worker_id", 1)

	v.SetDefault("server.port", 8080)

	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.log_level", "warn")

	v.SetDefault("kafka.topic.adoption_created", "petadopt.adoption.created")
	v.SetDefault("kafka.topic.payment_completed", "petadopt.payment.completed")

	v.SetDefault("gateway.currency", "BDT")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("gateway.product_name", "Pet Adoption")
	v.SetDefault("gateway.product_category", "Pet")
	v.SetDefault("gateway.shipping_method", "NO")

	v.SetDefault("auth.issuer", "petadopt")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("business.payment_session_timeout_minutes", 30)
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.outbox_batch_size", 100)
}
