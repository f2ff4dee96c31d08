package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"flight-tui/i18n"
	"flight-tui/model"
)

// 播放时钟间隔范围（毫秒）
const (
	MinTickMillis     = 20
	MaxTickMillis     = 2000
	DefaultTickMillis = 100
)

// Config 应用配置，环境变量 FLIGHT_TUI_* 覆盖文件中的值
type Config struct {
	LastFlight string `json:"last_flight" env:"FLIGHT_TUI_LAST_FLIGHT"` // 上次播放的路线
	Language   string `json:"language" env:"FLIGHT_TUI_LANG"`           // 界面语言 en / de
	Chime      bool   `json:"chime" env:"FLIGHT_TUI_CHIME"`             // 状态变化时播放提示音
	AutoPlay   bool   `json:"autoplay" env:"FLIGHT_TUI_AUTOPLAY"`       // 启动时继续播放上次的路线
	TickMillis int    `json:"tick_ms" env:"FLIGHT_TUI_TICK_MS"`         // 播放时钟间隔
	LogFile    string `json:"log_file" env:"FLIGHT_TUI_LOG_FILE"`       // 日志文件，空则使用配置目录
	Port       int    `json:"port" env:"FLIGHT_TUI_PORT"`               // 服务器端口
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		LastFlight: model.DefaultFlight,
		Language:   i18n.Default().String(),
		Chime:      true,
		TickMillis: DefaultTickMillis,
		Port:       8080,
	}
}

// Dir 获取配置目录，不存在则创建
func Dir() (string, error) {
	// 获取用户配置目录
	configDir, err := os.UserConfigDir()
	if err != nil {
		// 如果获取失败，使用当前目录
		configDir = "."
	}

	appConfigDir := filepath.Join(configDir, "flight-tui")
	if err := os.MkdirAll(appConfigDir, 0755); err != nil {
		return "", err
	}
	return appConfigDir, nil
}

// getConfigPath 获取配置文件路径
func getConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load 加载配置
func Load() (Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，返回默认配置
			return DefaultConfig(), nil
		}
		return DefaultConfig(), err
	}

	// 以默认值为底，缺失的字段保持默认
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg.Normalize(), nil
}

// ApplyEnv 用环境变量覆盖配置，未设置的变量不影响原值
func ApplyEnv(cfg Config) (Config, error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg.Normalize(), nil
}

// Normalize 校正越界或无效的值
func (c Config) Normalize() Config {
	// 时钟间隔
	if c.TickMillis <= 0 {
		c.TickMillis = DefaultTickMillis
	} else if c.TickMillis < MinTickMillis {
		c.TickMillis = MinTickMillis
	} else if c.TickMillis > MaxTickMillis {
		c.TickMillis = MaxTickMillis
	}

	// 语言不支持时使用默认语言
	tag, _ := i18n.Parse(c.Language)
	c.Language = tag.String()

	// 路线不存在时使用默认路线
	if _, ok := model.FindFlight(c.LastFlight); !ok {
		c.LastFlight = model.DefaultFlight
	}

	if c.Port <= 0 || c.Port > 65535 {
		c.Port = 8080
	}
	return c
}

// Save 保存配置
func Save(cfg Config) error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveLastFlight 保存上次播放的路线，保留其他设置
func SaveLastFlight(name string) error {
	existing, _ := Load()
	existing.LastFlight = name
	return Save(existing)
}
