package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/bondmarket/internal/market/domain"
	"github.com/wyfcoding/bondmarket/pkg/metrics"
)

// dayFormat 账本日索引的日期格式（YYYYMMDD）
const dayFormat = "20060102"

// LedgerFilter 账本查询条件，零值字段表示不过滤。
// 金额边界用指针区分「未提供」与「等于零」。
type LedgerFilter struct {
	UserID     string
	Instrument string
	// StartDay / EndDay 形如 20260824，按字节序闭区间比较
	StartDay string
	EndDay   string
	// MinAmount / MaxAmount 按成交金额（价格 × 数量）闭区间过滤
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// LedgerService 成交账本：写路径维护倒排索引，读路径按索引播种后过滤。
type LedgerService struct {
	store     domain.Store
	collector metrics.Collector
	logger    *slog.Logger
}

func NewLedgerService(store domain.Store, collector metrics.Collector, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		store:     store,
		collector: collector,
		logger:    logger.With("module", "ledger"),
	}
}

// RecordTrade 将成交键写入买方用户、卖方用户、品种、当日四类索引。
// 当日索引取索引时刻的自然日，而非成交时间戳。
func (s *LedgerService) RecordTrade(ctx context.Context, trade *domain.Trade) error {
	if trade == nil {
		return fmt.Errorf("%w: trade must not be nil", domain.ErrInvalidInput)
	}
	tradeKey := domain.TradeKey(trade.ID)

	buyerUser, err := s.resolveOrderUser(ctx, trade.BuyerOrderID)
	if err != nil {
		return err
	}
	if buyerUser != "" {
		if err := s.store.SAdd(ctx, domain.UserTradesKey(buyerUser), tradeKey); err != nil {
			return err
		}
	}

	sellerUser, err := s.resolveOrderUser(ctx, trade.SellerOrderID)
	if err != nil {
		return err
	}
	if sellerUser != "" {
		if err := s.store.SAdd(ctx, domain.UserTradesKey(sellerUser), tradeKey); err != nil {
			return err
		}
	}

	if err := s.store.SAdd(ctx, domain.InstrumentTradesKey(trade.Instrument), tradeKey); err != nil {
		return err
	}
	day := time.Now().Format(dayFormat)
	if err := s.store.SAdd(ctx, domain.DailyTradesKey(day), tradeKey); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "trade indexed",
		"trade_id", trade.ID,
		"instrument", trade.Instrument,
		"buyer_user", buyerUser,
		"seller_user", sellerUser,
		"day", day,
	)
	return nil
}

// Query 按条件查询成交。
// 先用最具选择性的索引播种候选集（用户 > 品种 > 起始日 > 全量扫描），
// 再逐笔加载成交文档并应用全部给定过滤条件。结果顺序不作保证。
func (s *LedgerService) Query(ctx context.Context, filter LedgerFilter) ([]*domain.Trade, error) {
	start := time.Now()
	defer func() {
		s.collector.ObserveLedgerQuery(time.Since(start).Seconds())
	}()

	keys, err := s.seedKeys(ctx, filter)
	if err != nil {
		return nil, err
	}

	trades := make([]*domain.Trade, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := s.store.DocGet(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.WarnContext(ctx, "indexed trade document missing", "key", key)
			continue
		}
		trade, err := domain.DecodeTrade(raw)
		if err != nil {
			s.collector.RecordMalformedRecord()
			s.logger.WarnContext(ctx, "skipping malformed trade document", "key", key, "error", err)
			continue
		}

		match, err := s.matches(ctx, trade, filter)
		if err != nil {
			return nil, err
		}
		if match {
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

// QueryByUser 查询某用户参与的全部成交
func (s *LedgerService) QueryByUser(ctx context.Context, userID string) ([]*domain.Trade, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId must not be blank", domain.ErrInvalidInput)
	}
	return s.Query(ctx, LedgerFilter{UserID: userID})
}

// QueryByInstrument 查询某品种的全部成交
func (s *LedgerService) QueryByInstrument(ctx context.Context, instrument string) ([]*domain.Trade, error) {
	if strings.TrimSpace(instrument) == "" {
		return nil, fmt.Errorf("%w: instrument must not be blank", domain.ErrInvalidInput)
	}
	return s.Query(ctx, LedgerFilter{Instrument: instrument})
}

// QueryToday 查询当日成交
func (s *LedgerService) QueryToday(ctx context.Context) ([]*domain.Trade, error) {
	today := time.Now().Format(dayFormat)
	return s.Query(ctx, LedgerFilter{StartDay: today, EndDay: today})
}

func (s *LedgerService) seedKeys(ctx context.Context, filter LedgerFilter) ([]string, error) {
	switch {
	case filter.UserID != "":
		return s.store.SMembers(ctx, domain.UserTradesKey(filter.UserID))
	case filter.Instrument != "":
		return s.store.SMembers(ctx, domain.InstrumentTradesKey(filter.Instrument))
	case filter.StartDay != "":
		return s.store.SMembers(ctx, domain.DailyTradesKey(filter.StartDay))
	default:
		return s.store.ScanPrefix(ctx, domain.TradeKeyPrefix())
	}
}

func (s *LedgerService) matches(ctx context.Context, trade *domain.Trade, filter LedgerFilter) (bool, error) {
	if filter.UserID != "" {
		buyerUser, err := s.resolveOrderUser(ctx, trade.BuyerOrderID)
		if err != nil {
			return false, err
		}
		sellerUser, err := s.resolveOrderUser(ctx, trade.SellerOrderID)
		if err != nil {
			return false, err
		}
		if buyerUser != filter.UserID && sellerUser != filter.UserID {
			return false, nil
		}
	}
	if filter.Instrument != "" && trade.Instrument != filter.Instrument {
		return false, nil
	}
	if filter.StartDay != "" || filter.EndDay != "" {
		day := trade.TradeDay()
		if filter.StartDay != "" && day < filter.StartDay {
			return false, nil
		}
		if filter.EndDay != "" && day > filter.EndDay {
			return false, nil
		}
	}
	if filter.MinAmount != nil || filter.MaxAmount != nil {
		value := trade.Value()
		if filter.MinAmount != nil && value.LessThan(*filter.MinAmount) {
			return false, nil
		}
		if filter.MaxAmount != nil && value.GreaterThan(*filter.MaxAmount) {
			return false, nil
		}
	}
	return true, nil
}

// resolveOrderUser 通过订单文档反查下单用户。
// 文档缺失或损坏时返回空串，视为用户未知；存储错误原样返回。
func (s *LedgerService) resolveOrderUser(ctx context.Context, orderID string) (string, error) {
	raw, ok, err := s.store.DocGet(ctx, domain.OrderKey(orderID))
	if err != nil {
		return "", err
	}
	if !ok {
		s.logger.WarnContext(ctx, "order document missing for ledger lookup", "order_id", orderID)
		return "", nil
	}
	order, err := domain.DecodeOrder(raw)
	if err != nil {
		s.collector.RecordMalformedRecord()
		s.logger.WarnContext(ctx, "malformed order document in ledger lookup", "order_id", orderID, "error", err)
		return "", nil
	}
	return order.UserID, nil
}
