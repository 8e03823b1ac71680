package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"NoteFM/model"

	"github.com/go-redis/redis/v8"
)

// 元数据缓存按附件UUID存储，重命名附件不会使缓存失效
const metadataTTL = 24 * time.Hour

// GetMetadataKey 根据附件ID生成元数据的Redis键
func GetMetadataKey(attachmentID string) string {
	return fmt.Sprintf("meta:%s", attachmentID)
}

// SetTrackMeta 缓存附件的音乐元数据，后写覆盖先写
func SetTrackMeta(ctx context.Context, attachmentID string, meta *model.TrackMeta) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal track meta: %w", err)
	}

	err = RedisClient.Set(ctx, GetMetadataKey(attachmentID), data, metadataTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache track meta: %w", err)
	}

	return nil
}

// GetTrackMeta 读取附件缓存的元数据，未命中返回 (nil, nil)
func GetTrackMeta(ctx context.Context, attachmentID string) (*model.TrackMeta, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := RedisClient.Get(ctx, GetMetadataKey(attachmentID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track meta: %w", err)
	}

	var meta model.TrackMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal track meta: %w", err)
	}

	return &meta, nil
}

// DeleteTrackMeta 删除附件的元数据缓存
func DeleteTrackMeta(ctx context.Context, attachmentID string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	return RedisClient.Del(ctx, GetMetadataKey(attachmentID)).Err()
}
