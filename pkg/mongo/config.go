package mongo

import "time"

// Config MongoDB 连接配置
type Config struct {
	// URI 连接字符串，如 mongodb://localhost:27017
	URI string

	// Database 默认数据库名
	Database string

	// ConnectTimeout 连接超时时间，默认 10 秒
	ConnectTimeout time.Duration

	// MaxPoolSize 连接池最大连接数，0 表示使用驱动默认值
	MaxPoolSize uint64

	// MinPoolSize 连接池最小连接数
	MinPoolSize uint64

	// TLS 是否启用 TLS 连接
	TLS bool
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}
