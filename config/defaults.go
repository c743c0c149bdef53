// =============================================================================
// 📦 pixelagent 默认配置
// =============================================================================
// 提供所有配置项的合理默认值。布局默认值对应 765x503 的固定尺寸客户端。
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/pixelagent/types"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Client:      DefaultClientConfig(),
		Vision:      DefaultVisionConfig(),
		Navigation:  DefaultNavigationConfig(),
		Input:       DefaultInputConfig(),
		Session:     DefaultSessionConfig(),
		Agent:       DefaultAgentConfig(),
		Credentials: DefaultCredentialsConfig(),
		Ledger:      DefaultLedgerConfig(),
		Log:         DefaultLogConfig(),
		Metrics:     DefaultMetricsConfig(),
		Telemetry:   DefaultTelemetryConfig(),
	}
}

// DefaultClientConfig 返回默认客户端布局
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Origin:  types.Pt(0, 0),
		Size:    types.Pt(765, 503),
		Display: types.NewRegion(0, 0, 1920, 1080),
		Layout: LayoutConfig{
			GameScreen:    types.NewRegion(4, 4, 512, 334),
			Inventory:     types.NewRegion(553, 205, 190, 261),
			SideStones:    types.NewRegion(521, 168, 244, 335),
			ChatMenu:      types.NewRegion(0, 480, 520, 23),
			ChatRecent:    types.NewRegion(0, 339, 520, 141),
			Minimap:       types.NewRegion(521, 4, 244, 162),
			MinimapSlice:  types.NewRegion(592, 35, 100, 100),
			LoginField:    types.NewRegion(273, 243, 220, 15),
			PasswordField: types.NewRegion(273, 258, 220, 15),
		},
	}
}

// DefaultVisionConfig 返回默认匹配参数
func DefaultVisionConfig() VisionConfig {
	return VisionConfig{
		NeedleDir:         "./needles",
		Confidence:        0.95,
		Attempts:          10,
		Poll:              types.Millis(0, 100),
		Backend:           "ncc",
		PyramidScale:      4,
		PyramidCandidates: 3,
	}
}

// DefaultNavigationConfig 返回默认导航参数
func DefaultNavigationConfig() NavigationConfig {
	return NavigationConfig{
		MaxAttempts: 50,
		Confidence:  0.7,
		RunKey:      "ctrl",
		Tolerance:   types.Pt(3, 3),
		Sleep:       types.Millis(600, 1400),
		MapDir:      "./maps",
	}
}

// DefaultInputConfig 返回默认输入参数
func DefaultInputConfig() InputConfig {
	return InputConfig{
		PreClick:         types.Millis(50, 200),
		PostClick:        types.Millis(50, 200),
		MoveDuration:     types.Millis(80, 400),
		KeyDelay:         types.Millis(40, 120),
		ActionsPerSecond: 12,
		Burst:            4,
	}
}

// DefaultSessionConfig 返回默认会话参数
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MinSession:    time.Hour,
		MaxSession:    3 * time.Hour,
		MinBreak:      10 * time.Minute,
		MaxBreak:      45 * time.Minute,
		TotalSessions: 4,
		RollChance:    5,
		ForcedChance:  1,
		OnFatal:       "logout",
		LoginOnStart:  true,
		CameraHold:    types.Millis(1000, 2500),
		CameraKey:     "up",
	}
}

// DefaultAgentConfig 返回默认控制循环参数
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations: 0,
		Pause:         types.Millis(500, 2000),
	}
}

// DefaultCredentialsConfig 返回默认凭据文件路径
func DefaultCredentialsConfig() CredentialsConfig {
	return CredentialsConfig{
		UsernameFile: "./credentials/username",
		PasswordFile: "./credentials/password",
	}
}

// DefaultLedgerConfig 返回默认会话记录存储
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Type:      "memory",
		BaseDir:   "./data/ledger",
		KeyPrefix: "pixelagent:ledger",
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     "localhost:6379",
		Password: "",
		DB:       0,
		PoolSize: 4,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "pixelagent",
		Password:        "",
		Name:            "./data/pixelagent.db",
		SSLMode:         "disable",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "pixelagent",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "pixelagent",
		SampleRate:   0.1,
	}
}
