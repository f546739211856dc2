package domain

import "context"

// ScoredEntry 有序集合遍历结果中的一项。
// Member 保留存储中的原始字节，移除成员时必须原样传回。
type ScoredEntry struct {
	Score  float64
	Member string
}

// Store 撮合与账本共用的存储抽象。
// 同一实现内混合三类结构：文档（订单、成交）、有序集合（订单簿）、
// 集合（账本索引）。所有操作失败时返回携带 ErrStoreUnavailable 的错误。
type Store interface {
	// DocPut 写入文档，已存在则整体覆盖
	DocPut(ctx context.Context, key, value string) error
	// DocGet 读取文档，第二返回值指示文档是否存在
	DocGet(ctx context.Context, key string) (string, bool, error)

	// ZAdd 将成员按分值放入有序集合，成员已存在时更新其分值
	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRangeAsc 按分值升序遍历全部成员，同分值按成员字节序升序
	ZRangeAsc(ctx context.Context, key string) ([]ScoredEntry, error)
	// ZRangeDesc 按分值降序遍历全部成员，同分值仍按成员字节序升序，
	// 保证同价位先入簿者先被访问
	ZRangeDesc(ctx context.Context, key string) ([]ScoredEntry, error)
	// ZRem 按成员原始字节精确移除，成员不存在时静默成功
	ZRem(ctx context.Context, key, member string) error

	// SAdd 向集合添加成员，重复添加幂等
	SAdd(ctx context.Context, key string, members ...string) error
	// SMembers 返回集合全部成员，顺序不保证
	SMembers(ctx context.Context, key string) ([]string, error)

	// ScanPrefix 枚举具有给定前缀的全部键
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)

	// NextSequence 返回品种内单调递增的序列号，从 1 开始
	NextSequence(ctx context.Context, instrument string) (uint64, error)
}

// ComplianceGate 合规检查接口，撮合前置关卡与成交上报出口。
type ComplianceGate interface {
	// IsUserCompliant 用户级合规检查
	IsUserCompliant(ctx context.Context, userID string) (bool, error)
	// IsAuthorizedForInstrument 用户对指定品种的交易资格检查
	IsAuthorizedForInstrument(ctx context.Context, userID, instrument string) (bool, error)
	// PreTradeCheck 订单级事前合规检查
	PreTradeCheck(ctx context.Context, order *Order) (bool, error)
	// ReportTrade 向监管方上报一笔成交
	ReportTrade(ctx context.Context, trade *Trade) error
}

// TradePublisher 成交事件对外发布接口。发布失败不影响撮合结果。
type TradePublisher interface {
	PublishTrade(ctx context.Context, trade *Trade) error
}

// TradeArchive 成交归档接口，面向批量写入的旁路存储。
type TradeArchive interface {
	ArchiveTrades(ctx context.Context, trades []*Trade) error
}
