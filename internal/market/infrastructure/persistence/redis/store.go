// Package redis 提供 Store 的 Redis 实现，订单簿与账本的权威存储。
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/bondmarket/internal/market/domain"
)

// scanBatchSize 单次 SCAN 返回的建议键数
const scanBatchSize = 512

type Store struct {
	client redis.UniversalClient
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) DocPut(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return storeErr("set "+key, err)
	}
	return nil
}

func (s *Store) DocGet(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, storeErr("get "+key, err)
	}
	return value, true, nil
}

func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return storeErr("zadd "+key, err)
	}
	return nil
}

func (s *Store) ZRangeAsc(ctx context.Context, key string) ([]domain.ScoredEntry, error) {
	vals, err := s.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, storeErr("zrange "+key, err)
	}
	entries := make([]domain.ScoredEntry, 0, len(vals))
	for _, z := range vals {
		entries = append(entries, domain.ScoredEntry{Score: z.Score, Member: z.Member.(string)})
	}
	return entries, nil
}

// ZRangeDesc 按分值降序输出。ZREVRANGE 在同分值内部按成员字节序降序，
// 会把同价位的后入簿者排到前面，因此这里改为升序取回后按档位整段倒序，
// 档位内部保持升序，先入簿者仍然在前。
func (s *Store) ZRangeDesc(ctx context.Context, key string) ([]domain.ScoredEntry, error) {
	vals, err := s.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, storeErr("zrange "+key, err)
	}
	entries := make([]domain.ScoredEntry, 0, len(vals))
	for hi := len(vals); hi > 0; {
		lo := hi
		for lo > 0 && vals[lo-1].Score == vals[hi-1].Score {
			lo--
		}
		for i := lo; i < hi; i++ {
			entries = append(entries, domain.ScoredEntry{Score: vals[i].Score, Member: vals[i].Member.(string)})
		}
		hi = lo
	}
	return entries, nil
}

func (s *Store) ZRem(ctx context.Context, key, member string) error {
	if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
		return storeErr("zrem "+key, err)
	}
	return nil
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, member := range members {
		args[i] = member
	}
	if err := s.client.SAdd(ctx, key, args...).Err(); err != nil {
		return storeErr("sadd "+key, err)
	}
	return nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, storeErr("smembers "+key, err)
	}
	return members, nil
}

// ScanPrefix 以 SCAN 游标遍历匹配键。SCAN 可能重复返回同一键，结果去重。
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	pattern := prefix + "*"
	seen := make(map[string]struct{})
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, storeErr("scan "+pattern, err)
		}
		for _, key := range batch {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (s *Store) NextSequence(ctx context.Context, instrument string) (uint64, error) {
	seq, err := s.client.Incr(ctx, domain.SequenceKey(instrument)).Result()
	if err != nil {
		return 0, storeErr("incr "+domain.SequenceKey(instrument), err)
	}
	return uint64(seq), nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
