// =============================================================================
// 📦 pixelagent 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("PIXELAGENT").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/pixelagent/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 pixelagent 的完整配置结构
type Config struct {
	// Client 游戏客户端窗口与布局
	Client ClientConfig `yaml:"client" env:"CLIENT"`

	// Vision 模板匹配默认参数
	Vision VisionConfig `yaml:"vision" env:"VISION"`

	// Navigation 小地图导航
	Navigation NavigationConfig `yaml:"navigation" env:"NAVIGATION"`

	// Input 鼠标键盘模拟
	Input InputConfig `yaml:"input" env:"INPUT"`

	// Session 会话与休息调度
	Session SessionConfig `yaml:"session" env:"SESSION"`

	// Agent 控制循环
	Agent AgentConfig `yaml:"agent" env:"AGENT"`

	// Credentials 登录凭据文件
	Credentials CredentialsConfig `yaml:"credentials" env:"CREDENTIALS"`

	// Ledger 会话记录存储
	Ledger LedgerConfig `yaml:"ledger" env:"LEDGER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics Prometheus 指标
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ClientConfig 客户端窗口配置。所有布局区域都相对于 Origin。
type ClientConfig struct {
	// 客户端左上角在显示器上的坐标
	Origin types.Point `yaml:"origin" env:"ORIGIN"`
	// 客户端尺寸
	Size types.Point `yaml:"size" env:"SIZE"`
	// 整个显示器区域
	Display types.Region `yaml:"display" env:"DISPLAY"`
	// 非空时启动阶段在显示器上搜索该图像以确定 Origin
	AnchorNeedle string `yaml:"anchor_needle" env:"ANCHOR_NEEDLE"`
	// 锚点图像左上角相对客户端左上角的偏移
	AnchorOffset types.Point `yaml:"anchor_offset" env:"ANCHOR_OFFSET"`
	// 各界面区域偏移
	Layout LayoutConfig `yaml:"layout" env:"LAYOUT"`
}

// LayoutConfig 客户端内各区域，坐标相对客户端左上角
type LayoutConfig struct {
	GameScreen    types.Region `yaml:"game_screen" env:"GAME_SCREEN"`
	Inventory     types.Region `yaml:"inventory" env:"INVENTORY"`
	SideStones    types.Region `yaml:"side_stones" env:"SIDE_STONES"`
	ChatMenu      types.Region `yaml:"chat_menu" env:"CHAT_MENU"`
	ChatRecent    types.Region `yaml:"chat_recent" env:"CHAT_RECENT"`
	Minimap       types.Region `yaml:"minimap" env:"MINIMAP"`
	MinimapSlice  types.Region `yaml:"minimap_slice" env:"MINIMAP_SLICE"`
	LoginField    types.Region `yaml:"login_field" env:"LOGIN_FIELD"`
	PasswordField types.Region `yaml:"password_field" env:"PASSWORD_FIELD"`
}

// VisionConfig 模板匹配配置
type VisionConfig struct {
	// 模板图片根目录
	NeedleDir string `yaml:"needle_dir" env:"NEEDLE_DIR"`
	// 默认置信度阈值 (0, 1]
	Confidence float64 `yaml:"confidence" env:"CONFIDENCE"`
	// 默认尝试次数
	Attempts int `yaml:"attempts" env:"ATTEMPTS"`
	// 两次尝试之间的随机等待
	Poll types.Range `yaml:"poll" env:"POLL"`
	// 小地图定位的匹配后端: ncc, pyramid。
	// pyramid 是近似搜索，只用于参考地图；屏幕上的模板查询始终用 ncc 全局搜索。
	Backend string `yaml:"backend" env:"BACKEND"`
	// 金字塔缩放倍数
	PyramidScale int `yaml:"pyramid_scale" env:"PYRAMID_SCALE"`
	// 金字塔粗匹配保留的候选数
	PyramidCandidates int `yaml:"pyramid_candidates" env:"PYRAMID_CANDIDATES"`
}

// NavigationConfig 小地图导航配置
type NavigationConfig struct {
	// 每个路点的最大尝试次数
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// 小地图定位的置信度阈值
	Confidence float64 `yaml:"confidence" env:"CONFIDENCE"`
	// 点击时按住的奔跑键
	RunKey string `yaml:"run_key" env:"RUN_KEY"`
	// 路线文件未指定时的默认容差
	Tolerance types.Point `yaml:"tolerance" env:"TOLERANCE"`
	// 路线文件未指定时的默认点击后等待
	Sleep types.Range `yaml:"sleep" env:"SLEEP"`
	// 参考地图目录
	MapDir string `yaml:"map_dir" env:"MAP_DIR"`
}

// InputConfig 输入模拟配置
type InputConfig struct {
	// 点击前等待
	PreClick types.Range `yaml:"pre_click" env:"PRE_CLICK"`
	// 点击后等待
	PostClick types.Range `yaml:"post_click" env:"POST_CLICK"`
	// 鼠标移动耗时
	MoveDuration types.Range `yaml:"move_duration" env:"MOVE_DURATION"`
	// 打字时每个按键的间隔
	KeyDelay types.Range `yaml:"key_delay" env:"KEY_DELAY"`
	// 每秒最多动作数
	ActionsPerSecond float64 `yaml:"actions_per_second" env:"ACTIONS_PER_SECOND"`
	// 限流突发量
	Burst int `yaml:"burst" env:"BURST"`
}

// SessionConfig 会话与休息配置
type SessionConfig struct {
	// 第一个检查点距会话开始的时间
	MinSession time.Duration `yaml:"min_session" env:"MIN_SESSION"`
	// 第五个检查点距会话开始的时间
	MaxSession time.Duration `yaml:"max_session" env:"MAX_SESSION"`
	// 最短休息
	MinBreak time.Duration `yaml:"min_break" env:"MIN_BREAK"`
	// 最长休息
	MaxBreak time.Duration `yaml:"max_break" env:"MAX_BREAK"`
	// 会话总数，用完后进程以 0 退出
	TotalSessions int `yaml:"total_sessions" env:"TOTAL_SESSIONS"`
	// 检查点 1-4 的掷骰面数
	RollChance int `yaml:"roll_chance" env:"ROLL_CHANCE"`
	// 检查点 5 的掷骰面数，只能为 1
	ForcedChance int `yaml:"forced_chance" env:"FORCED_CHANCE"`
	// 致命错误策略: logout, crash
	OnFatal string `yaml:"on_fatal" env:"ON_FATAL"`
	// 启动时先登录
	LoginOnStart bool `yaml:"login_on_start" env:"LOGIN_ON_START"`
	// 登录后按住视角键的时长
	CameraHold types.Range `yaml:"camera_hold" env:"CAMERA_HOLD"`
	// 视角键
	CameraKey string `yaml:"camera_key" env:"CAMERA_KEY"`
}

// AgentConfig 控制循环配置
type AgentConfig struct {
	// 例程文件
	Routine string `yaml:"routine" env:"ROUTINE"`
	// 最大迭代次数，0 表示不限
	MaxIterations int `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	// 两次迭代之间的等待
	Pause types.Range `yaml:"pause" env:"PAUSE"`
}

// CredentialsConfig 凭据文件
type CredentialsConfig struct {
	UsernameFile string `yaml:"username_file" env:"USERNAME_FILE"`
	PasswordFile string `yaml:"password_file" env:"PASSWORD_FILE"`
}

// LedgerConfig 会话记录存储
type LedgerConfig struct {
	// 存储类型: memory, file, redis, sql
	Type string `yaml:"type" env:"TYPE"`
	// file 存储目录
	BaseDir string `yaml:"base_dir" env:"BASE_DIR"`
	// redis 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// Redis 连接
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	// 数据库连接
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 使用 TLS 连接 (TLS 1.2+)
	TLS bool `yaml:"tls" env:"TLS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名，sqlite 时为文件路径
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用 /metrics
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "PIXELAGENT",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 嵌套结构体（包括 types.Point / types.Region / types.Range）
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置。任何错误都以 ConfigurationError 返回，
// 在会话开始前拦截。
func (c *Config) Validate() error {
	var errs []string

	// Vision
	if c.Vision.Confidence <= 0 || c.Vision.Confidence > 1 {
		errs = append(errs, "vision.confidence must be in (0, 1]")
	}
	if c.Vision.Attempts < 1 {
		errs = append(errs, "vision.attempts must be at least 1")
	}
	if err := c.Vision.Poll.Validate(); err != nil {
		errs = append(errs, "vision.poll: "+err.Error())
	}
	switch c.Vision.Backend {
	case "ncc", "pyramid":
	default:
		errs = append(errs, fmt.Sprintf("vision.backend %q is not one of ncc, pyramid", c.Vision.Backend))
	}
	if c.Vision.Backend == "pyramid" && c.Vision.PyramidScale < 2 {
		errs = append(errs, "vision.pyramid_scale must be at least 2")
	}

	// Navigation
	if c.Navigation.MaxAttempts < 1 {
		errs = append(errs, "navigation.max_attempts must be at least 1")
	}
	if c.Navigation.Confidence <= 0 || c.Navigation.Confidence > 1 {
		errs = append(errs, "navigation.confidence must be in (0, 1]")
	}
	if err := c.Navigation.Sleep.Validate(); err != nil {
		errs = append(errs, "navigation.sleep: "+err.Error())
	}

	// Input
	for name, r := range map[string]types.Range{
		"input.pre_click":     c.Input.PreClick,
		"input.post_click":    c.Input.PostClick,
		"input.move_duration": c.Input.MoveDuration,
		"input.key_delay":     c.Input.KeyDelay,
	} {
		if err := r.Validate(); err != nil {
			errs = append(errs, name+": "+err.Error())
		}
	}

	// Session
	s := c.Session
	if s.MinSession <= 0 || s.MinSession >= s.MaxSession {
		errs = append(errs, "session: min_session must be positive and below max_session")
	}
	if s.MinBreak < 0 || s.MinBreak >= s.MaxBreak {
		errs = append(errs, "session: min_break must be non-negative and below max_break")
	}
	if s.TotalSessions < 1 {
		errs = append(errs, "session.total_sessions must be at least 1")
	}
	if s.RollChance < 1 {
		errs = append(errs, "session.roll_chance must be at least 1")
	}
	if s.ForcedChance != 1 {
		errs = append(errs, fmt.Sprintf("session.forced_chance must be 1, got %d", s.ForcedChance))
	}
	switch s.OnFatal {
	case "logout", "crash":
	default:
		errs = append(errs, fmt.Sprintf("session.on_fatal %q is not one of logout, crash", s.OnFatal))
	}

	// Ledger
	switch c.Ledger.Type {
	case "memory", "file", "redis", "sql":
	default:
		errs = append(errs, fmt.Sprintf("ledger.type %q is not one of memory, file, redis, sql", c.Ledger.Type))
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return types.NewConfigurationError("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
