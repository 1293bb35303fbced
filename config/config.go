package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Upload UploadConfig `mapstructure:"upload"`
	Split  SplitConfig  `mapstructure:"split"`
	Merge  MergeConfig  `mapstructure:"merge"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	UploadDir    string   `mapstructure:"upload_dir"`
	OutputDir    string   `mapstructure:"output_dir"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// SplitConfig 分割参数，层数、每层圆数与半径除数是整次运行的常量
type SplitConfig struct {
	Layers           int  `mapstructure:"layers"`
	CirclesPerLayer  int  `mapstructure:"circles_per_layer"`
	RadiusDivisor    int  `mapstructure:"radius_divisor"`
	MaxConcurrent    int  `mapstructure:"max_concurrent"`
	QueueTimeout     int  `mapstructure:"queue_timeout"`
	CleanupTempFiles bool `mapstructure:"cleanup_temp_files"`
}

type MergeConfig struct {
	UseManifest bool `mapstructure:"use_manifest"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 加载指定路径的配置，失败时返回默认配置
func New(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.upload_dir", "./uploads")
	v.SetDefault("upload.output_dir", "./output")
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg"})

	v.SetDefault("split.layers", 10)
	v.SetDefault("split.circles_per_layer", 400)
	v.SetDefault("split.radius_divisor", 60)
	v.SetDefault("split.max_concurrent", 3)
	v.SetDefault("split.queue_timeout", 30)
	v.SetDefault("split.cleanup_temp_files", true)

	v.SetDefault("merge.use_manifest", true)
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			UploadDir:    "./uploads",
			OutputDir:    "./output",
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg"},
		},
		Split: SplitConfig{
			Layers:           10,
			CirclesPerLayer:  400,
			RadiusDivisor:    60,
			MaxConcurrent:    3,
			QueueTimeout:     30,
			CleanupTempFiles: true,
		},
		Merge: MergeConfig{
			UseManifest: true,
		},
	}
}
