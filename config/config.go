package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用程序配置
type Config struct {
	APIPort       int
	LogLevel      string
	LogFile       LogFileConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Blob          BlobConfig
	CacheTTL      time.Duration
	MaxUploadSize int64 // 单次请求体最大字节数
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Enabled    bool
	Path       string
	MaxSize    int // 单个文件最大大小，单位MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string // mysql / postgres / sqlite
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Path     string // sqlite 数据库文件
}

// RedisConfig Redis配置，Host 为空时使用进程内缓存
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// BlobConfig 附件存储配置
type BlobConfig struct {
	Backend   string // local / minio
	UploadDir string
	Minio     MinioConfig
}

// MinioConfig MinIO 对象存储配置
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 加载.env文件，文件不存在时直接使用环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	driver := getEnv("DB_DRIVER", "mysql")
	defaultDBPort := 3306
	if driver == "postgres" {
		defaultDBPort = 5432
	}

	cacheTTL, err := time.ParseDuration(os.Getenv("CACHE_TTL"))
	if err != nil || cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	cfg := &Config{
		APIPort:  getEnvInt("API_PORT", 8080),
		LogLevel: os.Getenv("LOG_LEVEL"),
		LogFile: LogFileConfig{
			Enabled:    getEnvBool("LOG_FILE_ENABLED", false),
			Path:       getEnv("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:    getEnvInt("LOG_FILE_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 7),
			MaxAge:     getEnvInt("LOG_FILE_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", false),
		},
		Database: DatabaseConfig{
			Driver:   driver,
			Host:     os.Getenv("DB_HOST"),
			Port:     getEnvInt("DB_PORT", defaultDBPort),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
			Path:     getEnv("DB_PATH", "noticeboard.db"),
		},
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Blob: BlobConfig{
			Backend:   getEnv("BLOB_BACKEND", "local"),
			UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
			Minio: MinioConfig{
				Endpoint:  os.Getenv("MINIO_ENDPOINT"),
				AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				Bucket:    getEnv("MINIO_BUCKET", "notices"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		CacheTTL:      cacheTTL,
		MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE", 10<<20)),
	}

	switch cfg.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	switch cfg.Blob.Backend {
	case "local", "minio":
	default:
		return nil, fmt.Errorf("unsupported BLOB_BACKEND %q", cfg.Blob.Backend)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
