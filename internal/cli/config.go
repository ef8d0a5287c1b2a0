package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/courses/internal/paths"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "COURSES"
)

// Config keys.
const (
	cfgKeyServiceName     = "service_name"
	cfgKeyHost            = "host"
	cfgKeyPort            = "port"
	cfgKeyDataDir         = "data_dir"
	cfgKeyLogLevel        = "log_level"
	cfgKeyLogFormat       = "log_format"
	cfgKeyResetOnStart    = "reset_on_start"
	cfgKeyDefaultUser     = "default_user"
	cfgKeyShutdownTimeout = "shutdown_timeout"
)

var configDefaults = map[string]any{
	cfgKeyServiceName:     "courses",
	cfgKeyHost:            "0.0.0.0",
	cfgKeyPort:            8000,
	cfgKeyDataDir:         "",
	cfgKeyLogLevel:        "info",
	cfgKeyLogFormat:       "json",
	cfgKeyResetOnStart:    true,
	cfgKeyDefaultUser:     "demo_user",
	cfgKeyShutdownTimeout: 10 * time.Second,
}

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Courses service configuration.
# Every key can be overridden with a COURSES_<KEY> environment variable.

service_name: courses
host: 0.0.0.0
port: 8000

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# debug, info, warn or error
log_level: info
# json or text
log_format: json

# Replace the catalog with the demo courses on every start.
reset_on_start: true

default_user: demo_user
shutdown_timeout: 10s
`

// settings is the typed view of the configuration used by serve.
type settings struct {
	ServiceName     string        `mapstructure:"service_name" yaml:"service_name"`
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	DataDir         string        `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string        `mapstructure:"log_format" yaml:"log_format"`
	ResetOnStart    bool          `mapstructure:"reset_on_start" yaml:"reset_on_start"`
	DefaultUser     string        `mapstructure:"default_user" yaml:"default_user"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// loadConfig resolves the config directory and reads config.yaml with
// Viper. The directory and a default config.yaml are created on first run.
func (a *app) loadConfig() error {
	dir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError("resolve config dir: %w", err)
	}
	a.configDir = dir

	v, err := loadConfig(dir)
	if err != nil {
		return sysError("%w", err)
	}
	a.v = v
	return nil
}

func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	for k, val := range configDefaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates config.yaml unless it already exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func (a *app) settings() (settings, error) {
	var s settings
	if err := a.v.Unmarshal(&s); err != nil {
		return s, userError("invalid configuration: %w", err)
	}
	if s.Port < 0 || s.Port > 65535 {
		return s, userError("invalid configuration: port %d out of range", s.Port)
	}
	if s.ShutdownTimeout <= 0 {
		return s, userError("invalid configuration: shutdown_timeout must be positive")
	}
	return s, nil
}
