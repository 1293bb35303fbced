package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HerbertGao/PicStitch/config"
	"github.com/HerbertGao/PicStitch/model"
	"github.com/HerbertGao/PicStitch/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisService 缓存分割结果。nil 接收者表示缓存已禁用。
type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SplitKey 分割结果的缓存键
func SplitKey(md5 string, seed int64, p SplitParams) string {
	return fmt.Sprintf("split:%s:%d:%d:%d:%d", md5, seed, p.Layers, p.CirclesPerLayer, p.RadiusDivisor)
}

// GetSplitResult 从缓存获取分割结果
func (s *RedisService) GetSplitResult(ctx context.Context, key string) (*model.SplitResult, error) {
	if s == nil {
		return nil, nil
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 缓存未命中
		}
		return nil, err
	}

	var result model.SplitResult
	if err := json.Unmarshal(data, &result); err != nil {
		utils.Logger.Error("failed to unmarshal split result",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}

	return &result, nil
}

// SetSplitResult 设置分割结果到缓存
func (s *RedisService) SetSplitResult(ctx context.Context, key string, result *model.SplitResult) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, s.ttl).Err()
}

func (s *RedisService) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
