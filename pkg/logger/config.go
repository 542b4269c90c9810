package logger

// Format 日志格式
type Format string

const (
	// JSONFormat JSON 格式（生产环境推荐）
	JSONFormat Format = "json"
	// ConsoleFormat 控制台格式（开发环境推荐）
	ConsoleFormat Format = "console"
)

// Config 日志配置
type Config struct {
	// 基础配置
	Level  Level  // 日志级别（默认 InfoLevel）
	Format Format // 日志格式（json/console，默认 json）

	// 输出配置
	Console bool          // 是否输出到控制台（默认 true）
	File    string        // 文件路径（空则不输出到文件）
	Rotate  *RotateConfig // 轮转配置（nil 则不轮转）

	// 功能配置
	EnableCaller     bool // 是否记录调用位置
	EnableStacktrace bool // 是否记录堆栈（Error 及以上）
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Format == "" {
		c.Format = JSONFormat
	}
	// 未配置任何输出时默认输出到控制台
	if !c.Console && c.File == "" && c.Rotate == nil {
		c.Console = true
	}
}

// RotateConfig 文件轮转配置
type RotateConfig struct {
	Filename   string // 日志文件路径
	MaxSize    int    // 单文件最大大小（MB，默认 100MB）
	MaxAge     int    // 文件保留天数（默认 30 天）
	MaxBackups int    // 最多保留文件数（默认 10 个）
	Compress   bool   // 是否压缩（默认 false）
}

// setDefaults 设置默认值
func (r *RotateConfig) setDefaults() {
	if r.MaxSize == 0 {
		r.MaxSize = 100
	}
	if r.MaxAge == 0 {
		r.MaxAge = 30
	}
	if r.MaxBackups == 0 {
		r.MaxBackups = 10
	}
}
