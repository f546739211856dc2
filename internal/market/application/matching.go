package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/bondmarket/internal/market/domain"
	"github.com/wyfcoding/bondmarket/pkg/metrics"
)

// MatchingService 限价订单撮合引擎。
// 价格优先、时间优先：买方主动单按卖盘价格升序吃单，卖方主动单按买盘
// 价格降序吃单，成交价始终取被动方挂单价。同一品种的提交全程持有品种级
// 互斥锁串行执行，不同品种并行互不干扰。
type MatchingService struct {
	store  domain.Store
	gate   domain.ComplianceGate
	ledger *LedgerService
	// publisher 成交事件发布器，可为 nil（发布失败不影响撮合结果）
	publisher domain.TradePublisher
	// archive 成交归档旁路，可为 nil
	archive   domain.TradeArchive
	collector metrics.Collector
	logger    *slog.Logger
	locks     sync.Map // instrument -> *sync.Mutex
}

func NewMatchingService(
	store domain.Store,
	gate domain.ComplianceGate,
	ledger *LedgerService,
	publisher domain.TradePublisher,
	archive domain.TradeArchive,
	collector metrics.Collector,
	logger *slog.Logger,
) *MatchingService {
	return &MatchingService{
		store:     store,
		gate:      gate,
		ledger:    ledger,
		publisher: publisher,
		archive:   archive,
		collector: collector,
		logger:    logger.With("module", "matching"),
	}
}

// SubmitOrder 构建并提交一笔新订单，返回订单终态与本次提交产生的成交。
func (s *MatchingService) SubmitOrder(ctx context.Context, instrument string, side domain.OrderSide, price, quantity decimal.Decimal, userID string) (*domain.Order, []*domain.Trade, error) {
	order, err := domain.NewOrder(instrument, side, price, quantity, userID)
	if err != nil {
		s.collector.RecordOrderRejected()
		return nil, nil, err
	}
	trades, err := s.ProcessOrder(ctx, order)
	if err != nil {
		return nil, nil, err
	}
	return order, trades, nil
}

// ProcessOrder 执行一笔主动单的完整撮合流程，返回按撮合先后排列的成交。
// 合规拒绝不产生任何状态变更；撮合中途的存储错误直接上浮，调用方应视
// 本次提交结果未定，通过订单文档核对实际状态。
func (s *MatchingService) ProcessOrder(ctx context.Context, aggressor *domain.Order) ([]*domain.Trade, error) {
	if err := validateAggressor(aggressor); err != nil {
		s.collector.RecordOrderRejected()
		return nil, err
	}

	mu := s.instrumentLock(aggressor.Instrument)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	defer func() {
		s.collector.ObserveMatchDuration(time.Since(start).Seconds())
	}()

	if ok, err := s.gate.IsUserCompliant(ctx, aggressor.UserID); err != nil {
		s.collector.RecordOrderRejected()
		return nil, err
	} else if !ok {
		s.collector.RecordOrderRejected()
		return nil, fmt.Errorf("%w: user %s", domain.ErrComplianceRejected, aggressor.UserID)
	}
	if ok, err := s.gate.PreTradeCheck(ctx, aggressor); err != nil {
		s.collector.RecordOrderRejected()
		return nil, err
	} else if !ok {
		s.collector.RecordOrderRejected()
		return nil, fmt.Errorf("%w: order %s failed pre-trade check", domain.ErrComplianceRejected, aggressor.ID)
	}

	// 撮合前先落订单文档，保证账本在撮合过程中反查买卖双方用户可命中。
	if err := s.persistOrder(ctx, aggressor); err != nil {
		return nil, err
	}

	trades, err := s.matchAgainstBook(ctx, aggressor)
	if err != nil {
		return nil, err
	}

	if !aggressor.IsFilled() {
		if len(trades) > 0 {
			aggressor.Status = domain.OrderStatusPartiallyFilled
		}
		if err := s.insertIntoBook(ctx, aggressor); err != nil {
			return nil, err
		}
	} else {
		aggressor.Status = domain.OrderStatusFilled
	}

	if err := s.persistOrder(ctx, aggressor); err != nil {
		return nil, err
	}

	// 成交上报按撮合顺序逐笔执行，失败不回滚已完成的撮合。
	for _, trade := range trades {
		if err := s.gate.ReportTrade(ctx, trade); err != nil {
			s.logger.WarnContext(ctx, "trade reporting failed", "trade_id", trade.ID, "error", err)
		}
	}

	s.publishTrades(ctx, trades)
	s.archiveTrades(ctx, trades)

	s.collector.RecordOrderSubmitted()
	s.logger.InfoContext(ctx, "order processed",
		"order_id", aggressor.ID,
		"instrument", aggressor.Instrument,
		"side", aggressor.Side,
		"status", aggressor.Status,
		"trades", len(trades),
		"remaining", aggressor.RemainingQuantity.String(),
	)
	return trades, nil
}

// GetOrder 按 ID 读取订单文档
func (s *MatchingService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: orderId must not be blank", domain.ErrInvalidInput)
	}
	raw, ok, err := s.store.DocGet(ctx, domain.OrderKey(orderID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return domain.DecodeOrder(raw)
}

// matchAgainstBook 按价格优先遍历对手盘并撮合，直到价格不再交叉或主动单吃完。
func (s *MatchingService) matchAgainstBook(ctx context.Context, aggressor *domain.Order) ([]*domain.Trade, error) {
	oppositeKey := domain.OppositeBookKey(aggressor.Instrument, aggressor.Side)

	var entries []domain.ScoredEntry
	var err error
	if aggressor.Side == domain.OrderSideBuy {
		entries, err = s.store.ZRangeAsc(ctx, oppositeKey)
	} else {
		entries, err = s.store.ZRangeDesc(ctx, oppositeKey)
	}
	if err != nil {
		return nil, err
	}

	var trades []*domain.Trade
	for _, entry := range entries {
		bookEntry, derr := domain.DecodeBookEntry(entry.Member)
		if derr != nil {
			// 单条损坏成员不阻塞撮合，跳过后继续。
			s.collector.RecordMalformedRecord()
			s.logger.WarnContext(ctx, "skipping malformed book entry", "book", oppositeKey, "error", derr)
			continue
		}
		resting := bookEntry.Order

		// 价格不交叉即可终止：后续成员价格只会更差。
		if !aggressor.CrossesPrice(resting.Price) {
			break
		}
		if aggressor.IsFilled() {
			break
		}

		quantity := decimal.Min(aggressor.RemainingQuantity, resting.RemainingQuantity)
		aggressor.ApplyFill(quantity)
		resting.ApplyFill(quantity)

		trade := domain.NewTrade(aggressor, resting, quantity)
		if err := s.persistTrade(ctx, trade); err != nil {
			return nil, err
		}
		if err := s.ledger.RecordTrade(ctx, trade); err != nil {
			return nil, err
		}

		// 精确移除刚消耗的簿内成员；剩量的被动单带原序列号重新挂回，
		// 保持其时间优先位置。
		if err := s.store.ZRem(ctx, oppositeKey, entry.Member); err != nil {
			return nil, err
		}
		if !resting.IsFilled() {
			resting.Status = domain.OrderStatusPartiallyFilled
			member, eerr := bookEntry.Encode()
			if eerr != nil {
				return nil, eerr
			}
			if err := s.store.ZAdd(ctx, oppositeKey, resting.Price.InexactFloat64(), member); err != nil {
				return nil, err
			}
		} else {
			resting.Status = domain.OrderStatusFilled
		}
		if err := s.persistOrder(ctx, resting); err != nil {
			return nil, err
		}

		trades = append(trades, trade)
		s.collector.RecordTradeExecuted()
		s.logger.InfoContext(ctx, "orders matched",
			"trade_id", trade.ID,
			"instrument", trade.Instrument,
			"price", trade.Price.String(),
			"quantity", trade.Quantity.String(),
			"aggressor_order_id", trade.AggressorOrderID,
			"resting_order_id", trade.RestingOrderID,
		)
	}
	return trades, nil
}

// insertIntoBook 将剩量订单挂入己方订单簿。
// 序列号在首次入簿时领取，同价位成员按序列号先后排序。
func (s *MatchingService) insertIntoBook(ctx context.Context, order *domain.Order) error {
	seq, err := s.store.NextSequence(ctx, order.Instrument)
	if err != nil {
		return err
	}
	member, err := domain.NewBookEntry(seq, order).Encode()
	if err != nil {
		return err
	}
	bookKey := domain.BookKey(order.Instrument, order.Side)
	return s.store.ZAdd(ctx, bookKey, order.Price.InexactFloat64(), member)
}

func (s *MatchingService) persistOrder(ctx context.Context, order *domain.Order) error {
	doc, err := order.Encode()
	if err != nil {
		return err
	}
	return s.store.DocPut(ctx, domain.OrderKey(order.ID), doc)
}

func (s *MatchingService) persistTrade(ctx context.Context, trade *domain.Trade) error {
	doc, err := trade.Encode()
	if err != nil {
		return err
	}
	return s.store.DocPut(ctx, domain.TradeKey(trade.ID), doc)
}

func (s *MatchingService) publishTrades(ctx context.Context, trades []*domain.Trade) {
	if s.publisher == nil {
		return
	}
	for _, trade := range trades {
		if err := s.publisher.PublishTrade(ctx, trade); err != nil {
			s.collector.RecordFeedPublishFailure()
			s.logger.WarnContext(ctx, "trade publish failed", "trade_id", trade.ID, "error", err)
		}
	}
}

func (s *MatchingService) archiveTrades(ctx context.Context, trades []*domain.Trade) {
	if s.archive == nil || len(trades) == 0 {
		return
	}
	if err := s.archive.ArchiveTrades(ctx, trades); err != nil {
		s.logger.WarnContext(ctx, "trade archive failed", "trades", len(trades), "error", err)
	}
}

func (s *MatchingService) instrumentLock(instrument string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(instrument, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// validateAggressor 校验主动单的入场前置条件
func validateAggressor(order *domain.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order must not be nil", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(order.ID) == "" {
		return fmt.Errorf("%w: order id must not be blank", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(order.Instrument) == "" {
		return fmt.Errorf("%w: instrument must not be blank", domain.ErrInvalidInput)
	}
	if !order.Side.IsValid() {
		return fmt.Errorf("%w: side must be BUY or SELL, got %q", domain.ErrInvalidInput, order.Side)
	}
	if !order.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", domain.ErrInvalidInput, order.Price)
	}
	if !order.InitialQuantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", domain.ErrInvalidInput, order.InitialQuantity)
	}
	if !order.RemainingQuantity.Equal(order.InitialQuantity) {
		return fmt.Errorf("%w: remaining quantity must equal initial quantity on submission", domain.ErrInvalidInput)
	}
	if order.Status != domain.OrderStatusOpen {
		return fmt.Errorf("%w: order status must be OPEN on submission, got %q", domain.ErrInvalidInput, order.Status)
	}
	if strings.TrimSpace(order.UserID) == "" {
		return fmt.Errorf("%w: userId must not be blank", domain.ErrInvalidInput)
	}
	return nil
}
