package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/kazz187/taskboard/pkg/storage"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type APIEnv struct {
	BaseURL     string        `envconfig:"API_BASE_URL" default:"http://localhost:3200"`
	AccessToken string        `envconfig:"ACCESS_TOKEN"`
	TokenFile   string        `envconfig:"TOKEN_FILE" default:".taskboard/token"`
	Timeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	UserID      string        `envconfig:"USER_ID"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskboard/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskboard/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
	// Redis settings (used when Type == "redis")
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPrefix string `envconfig:"REDIS_PREFIX" default:"taskboard:"`
}

type FakeAPIEnv struct {
	Host      string `envconfig:"FAKEAPI_HOST" default:""`
	Port      string `envconfig:"FAKEAPI_PORT" default:"3200"`
	JWTSecret string `envconfig:"FAKEAPI_JWT_SECRET"`
}

type Env struct {
	BaseEnv
	APIEnv
	StorageEnv
	FakeAPIEnv
}

const namespace = "TASKBOARD"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

// Local reports whether logs should be human readable.
func (e *BaseEnv) Local() bool {
	return e == nil || e.Env == "local"
}

// NewStorage opens the backend selected by STORAGE_TYPE.
func (e *StorageEnv) NewStorage(ctx context.Context) (storage.Storage, error) {
	switch e.Type {
	case "s3":
		s, err := storage.NewS3Storage(ctx, e.S3Bucket, e.S3Prefix, e.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return s, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: e.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", e.RedisAddr, err)
		}
		return storage.NewRedisStorage(client, e.RedisPrefix), nil
	case "local", "":
		s, err := storage.NewLocalStorage(e.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage type %q", e.Type)
}
