package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 配置管理器，基于 viper 封装
// 所有读写方法都是并发安全的
type Config struct {
	viper *viper.Viper
	mu    sync.RWMutex

	// 配置文件相关
	configFile  string
	configName  string
	configType  string
	configPaths []string

	// 监控相关
	autoWatch bool
	watching  bool
	onChange  func(e fsnotify.Event)
	onError   func(error)

	// 其他选项
	defaults       map[string]any
	envPrefix      string
	envKeyReplacer *strings.Replacer
}

// New 创建新的配置管理器
func New(opts ...Option) *Config {
	c := &Config{
		viper: viper.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Load 加载配置文件
// 依次应用默认值、环境变量覆盖，再读取配置文件
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 设置默认值
	for k, v := range c.defaults {
		c.viper.SetDefault(k, v)
	}

	// 设置环境变量
	if c.envPrefix != "" {
		c.viper.SetEnvPrefix(c.envPrefix)
		c.viper.AutomaticEnv()
	}
	if c.envKeyReplacer != nil {
		c.viper.SetEnvKeyReplacer(c.envKeyReplacer)
	}

	// 设置配置文件
	if c.configFile != "" {
		c.viper.SetConfigFile(c.configFile)
	} else {
		if c.configName != "" {
			c.viper.SetConfigName(c.configName)
		}
		if c.configType != "" {
			c.viper.SetConfigType(c.configType)
		}
		for _, path := range c.configPaths {
			c.viper.AddConfigPath(path)
		}
	}

	// 读取配置文件
	if err := c.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return fmt.Errorf("%w: %w", ErrConfigNotFound, err)
		}
		return fmt.Errorf("%w: %w", ErrConfigReadFailed, err)
	}

	// 自动开启监控
	if c.autoWatch {
		c.startWatch()
	}

	return nil
}

// GetString 获取字符串配置值
func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetString(key)
}

// GetInt 获取整数配置值
func (c *Config) GetInt(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetInt(key)
}

// GetInt64 获取 int64 配置值
func (c *Config) GetInt64(key string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetInt64(key)
}

// GetBool 获取布尔配置值
func (c *Config) GetBool(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetBool(key)
}

// GetDuration 获取时间间隔配置值
func (c *Config) GetDuration(key string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetDuration(key)
}

// GetStringSlice 获取字符串切片配置值
func (c *Config) GetStringSlice(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetStringSlice(key)
}

// Set 设置配置值
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viper.Set(key, value)
}

// IsSet 检查配置键是否存在
func (c *Config) IsSet(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.IsSet(key)
}

// Sub 获取子配置
// 返回的实例为只读轻量实例，不继承监控等属性
func (c *Config) Sub(key string) *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sub := c.viper.Sub(key)
	if sub == nil {
		return nil
	}

	return &Config{
		viper: sub,
	}
}

// Unmarshal 将配置反序列化到结构体
func (c *Config) Unmarshal(rawVal any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.Unmarshal(rawVal)
}

// UnmarshalKey 将指定 key 的配置反序列化到结构体
func (c *Config) UnmarshalKey(key string, rawVal any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.UnmarshalKey(key, rawVal)
}

// Close 关闭配置管理器，停止监控
func (c *Config) Close() {
	c.StopWatch()
}

// Viper 获取底层 viper 实例（用于高级操作）
// 注意：直接操作 viper 实例不受 Config 的并发锁保护
func (c *Config) Viper() *viper.Viper {
	return c.viper
}
