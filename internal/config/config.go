package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
	Postgres PostgresConfig `mapstructure:"postgres"` // 主存储（PostgreSQL）
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`   // 嵌入式存储（SQLite 单文件）
	Local    LocalConfig    `mapstructure:"local"`    // 本地兜底存储（内存/文件或 Redis）
	Storage  StorageConfig  `mapstructure:"storage"`  // 分层存储通用参数
	Payment  PaymentConfig  `mapstructure:"payment"`  // 支付（模拟/Worldcoin/链上校验）
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port  int    `mapstructure:"port"`  // 服务端口
	Mode  string `mapstructure:"mode"`  // Gin运行模式：debug/release/test
	Pprof bool   `mapstructure:"pprof"` // 是否注册 pprof 路由
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`     // logrus 级别：debug/info/warn/error
	GormInfo bool   `mapstructure:"gorm_info"` // 是否打印 SQL（gorm Info 级别）
}

// PostgresConfig PostgreSQL数据库配置（主存储）
type PostgresConfig struct {
	Enabled         bool          `mapstructure:"enabled"`           // 是否启用主存储
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL 形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// SQLiteConfig 嵌入式数据库配置
type SQLiteConfig struct {
	Enabled bool   `mapstructure:"enabled"` // 是否启用嵌入式存储
	Path    string `mapstructure:"path"`    // 数据库文件路径
}

// LocalConfig 本地兜底存储配置
type LocalConfig struct {
	Backend       string `mapstructure:"backend"`        // memory / redis
	KeyPrefix     string `mapstructure:"key_prefix"`     // 键前缀，默认 anitmarket_
	SnapshotPath  string `mapstructure:"snapshot_path"`  // memory 后端的 JSON 快照文件，可空
	RedisAddr     string `mapstructure:"redis_addr"`     // redis 地址
	RedisPassword string `mapstructure:"redis_password"` // redis 密码
	RedisDB       int    `mapstructure:"redis_db"`       // redis 库号
}

// StorageConfig 分层存储通用配置
type StorageConfig struct {
	TierTimeout time.Duration `mapstructure:"tier_timeout"` // 单层尝试超时，0 表示只依赖请求 ctx
}

// PaymentConfig 支付配置
type PaymentConfig struct {
	Verifier        string `mapstructure:"verifier"`         // simulated / worldcoin / chain
	Recipient       string `mapstructure:"recipient"`        // 收款地址
	AppID           string `mapstructure:"app_id"`           // Worldcoin app_id
	DevPortalAPIKey string `mapstructure:"dev_portal_key"`   // Worldcoin 开发者平台 API Key
	DevPortalURL    string `mapstructure:"dev_portal_url"`   // Worldcoin 开发者平台地址
	RPCURL          string `mapstructure:"rpc_url"`          // 链上校验 RPC
	Timeout         int    `mapstructure:"timeout"`          // 外部请求超时（秒）
	Proxy           string `mapstructure:"proxy"`            // 代理地址
	Listener        bool   `mapstructure:"listener"`         // 是否订阅链上 TransferReference 事件
	WSURL           string `mapstructure:"ws_url"`           // 事件订阅 WebSocket RPC
	ContractAddress string `mapstructure:"contract_address"` // 发出 TransferReference 事件的合约地址
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("./config")
}

// LoadConfigFrom 从指定目录加载 config.yaml；文件不存在时使用默认值
func LoadConfigFrom(dir string) (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	v := viper.New()
	setDefaults(v)

	// 2. 读取 config.yaml（可不存在）
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	v.SetTypeByDefaultValue(true)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.pprof", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("postgres.enabled", true)
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("sqlite.enabled", true)
	v.SetDefault("sqlite.path", "anitmarket.db")
	v.SetDefault("local.backend", "memory")
	v.SetDefault("local.key_prefix", "anitmarket_")
	v.SetDefault("storage.tier_timeout", 3*time.Second)
	v.SetDefault("payment.verifier", "simulated")
	v.SetDefault("payment.recipient", "0x0000000000000000000000000000000000000000")
	v.SetDefault("payment.dev_portal_url", "https://developer.worldcoin.org")
	v.SetDefault("payment.timeout", 10)
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Local.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Local.RedisPassword = v
	}
	if v := os.Getenv("WORLDCOIN_APP_ID"); v != "" {
		cfg.Payment.AppID = v
	}
	if v := os.Getenv("DEV_PORTAL_API_KEY"); v != "" {
		cfg.Payment.DevPortalAPIKey = v
	}
	if v := os.Getenv("PAYMENT_RECIPIENT"); v != "" {
		cfg.Payment.Recipient = v
	}
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		cfg.Payment.RPCURL = v
	}
	if v := os.Getenv("CHAIN_WS_URL"); v != "" {
		cfg.Payment.WSURL = v
	}
}
