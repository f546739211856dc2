// Package memory 提供 Store 的进程内实现，用于本地运行与测试。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/huandu/skiplist"

	"github.com/wyfcoding/bondmarket/internal/market/domain"
)

// scoreComparable 以 float64 分值升序组织跳表档位。
type scoreComparable struct{}

func (scoreComparable) Compare(lhs, rhs interface{}) int {
	a, b := lhs.(float64), rhs.(float64)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (scoreComparable) CalcScore(key interface{}) float64 {
	return key.(float64)
}

// level 同一分值下的成员档位，members 始终保持字节序升序。
type level struct {
	score   float64
	members []string
}

// zset 单个有序集合：跳表按分值定位档位，scores 记录成员当前分值。
type zset struct {
	levels *skiplist.SkipList
	scores map[string]float64
}

func newZSet() *zset {
	return &zset{
		levels: skiplist.New(scoreComparable{}),
		scores: make(map[string]float64),
	}
}

type memoryStore struct {
	mu    sync.RWMutex
	docs  map[string]string
	sets  map[string]map[string]struct{}
	zsets map[string]*zset
	seqs  map[string]uint64
}

// NewStore 创建空的进程内存储
func NewStore() domain.Store {
	return &memoryStore{
		docs:  make(map[string]string),
		sets:  make(map[string]map[string]struct{}),
		zsets: make(map[string]*zset),
		seqs:  make(map[string]uint64),
	}
}

func (s *memoryStore) DocPut(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = value
	return nil
}

func (s *memoryStore) DocGet(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.docs[key]
	return value, ok, nil
}

func (s *memoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zsets[key]
	if !ok {
		z = newZSet()
		s.zsets[key] = z
	}

	if old, exists := z.scores[member]; exists {
		if old == score {
			return nil
		}
		z.removeMember(old, member)
	}

	var lv *level
	if elem := z.levels.Get(score); elem != nil {
		lv = elem.Value.(*level)
	} else {
		lv = &level{score: score}
		z.levels.Set(score, lv)
	}
	pos := sort.SearchStrings(lv.members, member)
	lv.members = append(lv.members, "")
	copy(lv.members[pos+1:], lv.members[pos:])
	lv.members[pos] = member
	z.scores[member] = score
	return nil
}

func (s *memoryStore) ZRangeAsc(ctx context.Context, key string) ([]domain.ScoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, ok := s.zsets[key]
	if !ok {
		return nil, nil
	}
	entries := make([]domain.ScoredEntry, 0, len(z.scores))
	for elem := z.levels.Front(); elem != nil; elem = elem.Next() {
		lv := elem.Value.(*level)
		for _, member := range lv.members {
			entries = append(entries, domain.ScoredEntry{Score: lv.score, Member: member})
		}
	}
	return entries, nil
}

func (s *memoryStore) ZRangeDesc(ctx context.Context, key string) ([]domain.ScoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, ok := s.zsets[key]
	if !ok {
		return nil, nil
	}
	var levels []*level
	for elem := z.levels.Front(); elem != nil; elem = elem.Next() {
		levels = append(levels, elem.Value.(*level))
	}
	entries := make([]domain.ScoredEntry, 0, len(z.scores))
	// 档位按分值降序输出，档位内保持先入簿者在前。
	for i := len(levels) - 1; i >= 0; i-- {
		lv := levels[i]
		for _, member := range lv.members {
			entries = append(entries, domain.ScoredEntry{Score: lv.score, Member: member})
		}
	}
	return entries, nil
}

func (s *memoryStore) ZRem(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zsets[key]
	if !ok {
		return nil
	}
	score, exists := z.scores[member]
	if !exists {
		return nil
	}
	z.removeMember(score, member)
	if len(z.scores) == 0 {
		delete(s.zsets, key)
	}
	return nil
}

func (s *memoryStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (s *memoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[key]
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (s *memoryStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.docs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for key := range s.sets {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for key := range s.zsets {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for key := range s.seqs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memoryStore) NextSequence(ctx context.Context, instrument string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.SequenceKey(instrument)
	s.seqs[key]++
	return s.seqs[key], nil
}

// removeMember 从档位中移除成员，档位清空后随之移除。
// 调用方需持有写锁并保证成员存在。
func (z *zset) removeMember(score float64, member string) {
	elem := z.levels.Get(score)
	if elem == nil {
		delete(z.scores, member)
		return
	}
	lv := elem.Value.(*level)
	pos := sort.SearchStrings(lv.members, member)
	if pos < len(lv.members) && lv.members[pos] == member {
		lv.members = append(lv.members[:pos], lv.members[pos+1:]...)
	}
	if len(lv.members) == 0 {
		z.levels.Remove(score)
	}
	delete(z.scores, member)
}
