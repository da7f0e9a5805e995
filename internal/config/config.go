// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Oracle  OracleConfig  `mapstructure:"oracle" yaml:"oracle"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
}

// LoggerConfig controls the zap logger construction.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File output (rotated by lumberjack). Disabled when LogFile is empty.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ChromePath        string        `mapstructure:"chrome_path" yaml:"chrome_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// OracleConfig controls the reasoning oracle client and its retry policy.
type OracleConfig struct {
	Model      string        `mapstructure:"model" yaml:"model"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`

	// MaxAttempts bounds calls per decision, including the first attempt.
	MaxAttempts    int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`

	// MaxPromptChars bounds the visible-text excerpt sent with each decision
	// request.
	MaxPromptChars int `mapstructure:"max_prompt_chars" yaml:"max_prompt_chars"`
}

// AgentConfig controls the perceive/decide/act loop and element resolution.
type AgentConfig struct {
	// MaxTurns bounds the number of loop iterations; <= 0 means unbounded.
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`

	StepDelay       time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
	WaitDelay       time.Duration `mapstructure:"wait_delay" yaml:"wait_delay"`
	StrategyTimeout time.Duration `mapstructure:"strategy_timeout" yaml:"strategy_timeout"`
	ScanTimeout     time.Duration `mapstructure:"scan_timeout" yaml:"scan_timeout"`
	MaxScanElements int           `mapstructure:"max_scan_elements" yaml:"max_scan_elements"`
	TypeKeyDelay    time.Duration `mapstructure:"type_key_delay" yaml:"type_key_delay"`

	// MaxObservedChars bounds the visible-text snapshot captured per step.
	MaxObservedChars int    `mapstructure:"max_observed_chars" yaml:"max_observed_chars"`
	ArtifactsDir     string `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
}

// SessionConfig controls persisted authentication state.
type SessionConfig struct {
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`
}

// NewDefaultConfig returns a Config populated with production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "webpilot",
			MaxSize:     50,
			MaxBackups:  3,
			MaxAge:      14,
		},
		Browser: BrowserConfig{
			Headless:          false,
			NavigationTimeout: 90 * time.Second,
			PostLoadWait:      1500 * time.Millisecond,
		},
		Oracle: OracleConfig{
			Model:          "gemini-2.0-flash",
			APITimeout:     120 * time.Second,
			MaxAttempts:    3,
			RetryBaseDelay: time.Second,
			MaxPromptChars: 6000,
		},
		Agent: AgentConfig{
			MaxTurns:         40,
			StepDelay:        1500 * time.Millisecond,
			WaitDelay:        2 * time.Second,
			StrategyTimeout:  4 * time.Second,
			ScanTimeout:      10 * time.Second,
			MaxScanElements:  40,
			TypeKeyDelay:     20 * time.Millisecond,
			MaxObservedChars: 8000,
			ArtifactsDir:     "screenshots",
		},
		Session: SessionConfig{
			StateDir: ".webpilot/sessions",
		},
	}
}

// Load reads the configuration file (if any) and environment variables into a
// Config. Values resolve in the usual viper order: explicit flag bindings,
// environment, config file, defaults.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WEBPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}

	cfg := NewDefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Oracle.APIKey == "" {
		// The Gemini SDK also honors GEMINI_API_KEY; leave validation to the
		// client so offline commands keep working without a key.
		cfg.Oracle.APIKey = viper.GetString("oracle.api_key")
	}
	return cfg, nil
}
