package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"NoteFM/model"

	"github.com/go-redis/redis/v8"
)

// 播放队列镜像：有序集合，分数为队列位置，24小时过期
const queueTTL = 24 * time.Hour

// GetQueueKey 根据用户ID生成播放队列的Redis键
func GetQueueKey(userID int64) string {
	return fmt.Sprintf("queue:%d", userID)
}

// ReplaceQueue 用给定条目整体替换用户的播放队列
// 播放器切换曲目时队列整体重建，不做去重
func ReplaceQueue(ctx context.Context, userID int64, entries []model.QueueEntry) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	queueKey := GetQueueKey(userID)

	pipe := RedisClient.TxPipeline()
	pipe.Del(ctx, queueKey)

	for i, entry := range entries {
		entryJSON, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal queue entry: %w", err)
		}
		pipe.ZAdd(ctx, queueKey, &redis.Z{
			Score:  float64(i),
			Member: entryJSON,
		})
	}

	if len(entries) > 0 {
		pipe.Expire(ctx, queueKey, queueTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace queue: %w", err)
	}

	return nil
}

// GetQueue 按位置顺序读取用户的播放队列
func GetQueue(ctx context.Context, userID int64) ([]model.QueueEntry, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	queueKey := GetQueueKey(userID)

	members, err := RedisClient.ZRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	entries := make([]model.QueueEntry, 0, len(members))
	for _, member := range members {
		var entry model.QueueEntry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queue entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// ClearQueue 清空用户的播放队列
func ClearQueue(ctx context.Context, userID int64) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	return RedisClient.Del(ctx, GetQueueKey(userID)).Err()
}
