package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Tutortoise/object-detection-service/detections"
)

const EnvPrefix = "DETECT"

type Config struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`

	ModelPath      string        `mapstructure:"model_path"`
	OnnxRuntimeLib string        `mapstructure:"onnxruntime_lib"`
	PoolSize       int           `mapstructure:"pool_size"`
	IntraOpThreads int           `mapstructure:"intra_op_threads"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	InputSize      int           `mapstructure:"input_size"`
	ConfThreshold  float64       `mapstructure:"conf_threshold"`
	IoUThreshold   float64       `mapstructure:"iou_threshold"`
	MaxDetections  int           `mapstructure:"max_detections"`
	Preload        bool          `mapstructure:"preload"`
	WarmUp         bool          `mapstructure:"warmup"`

	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Defaults reproduce the behavior of the service with no configuration at all.
var Defaults = map[string]any{
	"host":             "0.0.0.0",
	"port":             8000,
	"environment":      "dev",
	"debug":            false,
	"model_path":       "models/yolov8n.onnx",
	"onnxruntime_lib":  "",
	"pool_size":        detections.DefaultPoolSize,
	"intra_op_threads": 0,
	"acquire_timeout":  detections.DefaultAcquireTimeout,
	"input_size":       detections.DefaultInputSize,
	"conf_threshold":   detections.DefaultConfThreshold,
	"iou_threshold":    detections.DefaultIoUThreshold,
	"max_detections":   detections.DefaultMaxDetections,
	"preload":          false,
	"warmup":           true,
	"max_upload_bytes": int64(0),
	"read_timeout":     60 * time.Second,
	"write_timeout":    60 * time.Second,
	"shutdown_timeout": 3 * time.Second,
}

// Setup registers defaults and environment bindings on v.
// Environment variables use the DETECT_ prefix (DETECT_MODEL_PATH, ...);
// DEBUG is also honoured without the prefix.
func Setup(v *viper.Viper) {
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(
		`-`, `_`,
		`.`, `_`,
	))
	v.AutomaticEnv()
	_ = v.BindEnv("debug", EnvPrefix+"_DEBUG", "DEBUG")
}

// LoadFiles reads an optional .env file into the process environment and an
// optional config file into v. Empty paths are skipped.
func LoadFiles(v *viper.Viper, envFile, configFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.ModelPath == "" {
		errs = append(errs, errors.New("model_path is required"))
	}
	if c.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("pool_size must be positive: %d", c.PoolSize))
	}
	if c.IntraOpThreads < 0 {
		errs = append(errs, fmt.Errorf("intra_op_threads must not be negative: %d", c.IntraOpThreads))
	}
	if c.AcquireTimeout <= 0 {
		errs = append(errs, fmt.Errorf("acquire_timeout must be positive: %s", c.AcquireTimeout))
	}
	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		errs = append(errs, fmt.Errorf("input_size must be a positive multiple of 32: %d", c.InputSize))
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		errs = append(errs, fmt.Errorf("conf_threshold must be in [0,1]: %g", c.ConfThreshold))
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		errs = append(errs, fmt.Errorf("iou_threshold must be in [0,1]: %g", c.IoUThreshold))
	}
	if c.MaxDetections <= 0 {
		errs = append(errs, fmt.Errorf("max_detections must be positive: %d", c.MaxDetections))
	}
	if c.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("max_upload_bytes must not be negative: %d", c.MaxUploadBytes))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
