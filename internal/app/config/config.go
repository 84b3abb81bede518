package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	MySQL       MySQLConfig       `mapstructure:"mysql"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Flow        FlowConfig        `mapstructure:"flow"`
	MercadoPago MercadoPagoConfig `mapstructure:"mercadopago"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Transcriber TranscriberConfig `mapstructure:"transcriber"`
	AI          AIConfig          `mapstructure:"ai"`
	Render      RenderConfig      `mapstructure:"render"`
	Runner      RunnerConfig      `mapstructure:"runner"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	Admin       AdminConfig       `mapstructure:"admin"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Env         string `mapstructure:"env"`
	LogLevel    string `mapstructure:"log_level"`
	BaseURL     string `mapstructure:"base_url"`     // 对外可达的 API 根地址
	FrontendURL string `mapstructure:"frontend_url"` // 支付回跳目标
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type FlowConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

type MercadoPagoConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	AccessToken string `mapstructure:"access_token"`
	Sandbox     bool   `mapstructure:"sandbox"`
}

type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	From          string `mapstructure:"from"`
	OperatorEmail string `mapstructure:"operator_email"` // 流水线失败通知收件人
}

type StorageConfig struct {
	UploadBase string `mapstructure:"upload_base"`
	PublicBase string `mapstructure:"public_base"`
	Bucket     string `mapstructure:"bucket"`
	Token      string `mapstructure:"token"`
}

type TranscriberConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type AIConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

type RenderConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type RunnerConfig struct {
	Workers    int `mapstructure:"workers"`
	BufferSize int `mapstructure:"buffer_size"`
}

// PricingConfig 各服务类型标价（CLP）
type PricingConfig struct {
	Transcription int `mapstructure:"transcription"`
	Exam          int `mapstructure:"exam"`
	Meeting       int `mapstructure:"meeting"`
}

type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Load 从配置文件加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	// 兼容性处理：如果 server.port 为空，使用默认值
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}

	return &cfg, nil
}

// LoadDefault 加载默认配置文件路径
func LoadDefault() (*Config, error) {
	return Load("config/config.yaml")
}

// Validate 验证配置完整性
func (c *Config) Validate() error {
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql dsn is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.App.BaseURL == "" {
		return fmt.Errorf("app base_url is required")
	}
	if c.Flow.APIKey == "" || c.Flow.APISecret == "" {
		return fmt.Errorf("flow credentials are required")
	}
	if c.MercadoPago.AccessToken == "" {
		return fmt.Errorf("mercadopago access token is required")
	}
	if c.SMTP.Host == "" {
		return fmt.Errorf("smtp host is required")
	}
	if c.Pricing.Transcription <= 0 || c.Pricing.Exam <= 0 || c.Pricing.Meeting <= 0 {
		return fmt.Errorf("pricing must be positive for every service type")
	}
	return nil
}

// GetServerPort 获取服务端口
func (c *Config) GetServerPort() string {
	if c.Server.Port != "" {
		return c.Server.Port
	}
	return "8080"
}
