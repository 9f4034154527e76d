package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/schoolshop/internal/model"
)

const (
	defaultKeyPrefix = "schoolshop:notifications:"
	defaultTTL       = 7 * 24 * time.Hour
)

// RedisStore хранит уведомления в Redis. Тело лежит строкой с TTL, порядок задаёт отсортированное множество.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	limit     int
}

// NewRedisStore подключается к Redis по адресу addr и проверяет соединение.
func NewRedisStore(ctx context.Context, addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ""), nil
}

// NewRedisStoreWithClient создаёт хранилище поверх готового клиента.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       defaultTTL,
		limit:     DefaultCapacity,
	}
}

// Close закрывает соединение с Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) indexKey() string { return s.keyPrefix + "index" }

func (s *RedisStore) itemKey(id string) string { return s.keyPrefix + "item:" + id }

// Add добавляет уведомление.
func (s *RedisStore) Add(ctx context.Context, n model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.itemKey(n.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(n.CreatedAt.UnixMilli()), Member: n.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add notification: %w", err)
	}

	return s.trim(ctx)
}

// trim вытесняет самые старые уведомления сверх лимита вместе с их телами.
func (s *RedisStore) trim(ctx context.Context) error {
	overflow, err := s.client.ZRange(ctx, s.indexKey(), 0, -int64(s.limit)-1).Result()
	if err != nil {
		return fmt.Errorf("list overflow notifications: %w", err)
	}
	if len(overflow) == 0 {
		return nil
	}

	keys := make([]string, len(overflow))
	members := make([]any, len(overflow))
	for i, id := range overflow {
		keys[i] = s.itemKey(id)
		members[i] = id
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, s.indexKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("trim notifications: %w", err)
	}
	return nil
}

// List возвращает уведомления, начиная с самых новых. Истёкшие записи убираются из индекса.
func (s *RedisStore) List(ctx context.Context) ([]model.Notification, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, int64(s.limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list notification ids: %w", err)
	}
	if len(ids) == 0 {
		return []model.Notification{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.itemKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}

	res := make([]model.Notification, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var n model.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", ids[i], err)
		}
		res = append(res, n)
	}

	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), expired...).Err(); err != nil {
			return nil, fmt.Errorf("drop expired notifications: %w", err)
		}
	}

	return res, nil
}

// MarkRead отмечает уведомление прочитанным, сохраняя его TTL.
func (s *RedisStore) MarkRead(ctx context.Context, id string) error {
	raw, err := s.client.Get(ctx, s.itemKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("get notification: %w", err)
	}

	var n model.Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return fmt.Errorf("decode notification %s: %w", id, err)
	}
	if n.Read {
		return nil
	}
	n.Read = true

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := s.client.Set(ctx, s.itemKey(id), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return nil
}

// MarkAllRead отмечает прочитанными все хранимые уведомления.
func (s *RedisStore) MarkAllRead(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("list notification ids: %w", err)
	}
	for _, id := range ids {
		if err := s.MarkRead(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// Clear удаляет все уведомления.
func (s *RedisStore) Clear(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("list notification ids: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.itemKey(id))
	}
	keys = append(keys, s.indexKey())

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}
