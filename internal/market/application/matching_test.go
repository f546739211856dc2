package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/bondmarket/internal/market/domain"
	"github.com/wyfcoding/bondmarket/internal/market/infrastructure/persistence/memory"
	"github.com/wyfcoding/bondmarket/pkg/metrics"
)

// bookEntries 按撮合优先级读取订单簿成员（买盘价格降序、卖盘价格升序）。
func bookEntries(t *testing.T, store domain.Store, instrument string, side domain.OrderSide) []*domain.BookEntry {
	t.Helper()
	ctx := context.Background()
	key := domain.BookKey(instrument, side)

	var scored []domain.ScoredEntry
	var err error
	if side == domain.OrderSideBuy {
		scored, err = store.ZRangeDesc(ctx, key)
	} else {
		scored, err = store.ZRangeAsc(ctx, key)
	}
	require.NoError(t, err)

	entries := make([]*domain.BookEntry, 0, len(scored))
	for _, item := range scored {
		entry, derr := domain.DecodeBookEntry(item.Member)
		require.NoError(t, derr)
		entries = append(entries, entry)
	}
	return entries
}

func loadOrder(t *testing.T, store domain.Store, orderID string) *domain.Order {
	t.Helper()
	raw, ok, err := store.DocGet(context.Background(), domain.OrderKey(orderID))
	require.NoError(t, err)
	require.True(t, ok, "order document %s not persisted", orderID)
	order, err := domain.DecodeOrder(raw)
	require.NoError(t, err)
	return order
}

func TestSubmitOrderRestsWhenBookEmpty(t *testing.T) {
	ctx := context.Background()
	engine, store := newMemoryEngine()

	order, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("50"), "alice")
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, domain.OrderStatusOpen, order.Status)
	assert.True(t, order.RemainingQuantity.Equal(dec("50")))

	bids := bookEntries(t, store, "GOVT-10Y", domain.OrderSideBuy)
	require.Len(t, bids, 1)
	assert.Equal(t, order.ID, bids[0].Order.ID)
	assert.Len(t, bids[0].Sequence, 20)

	persisted := loadOrder(t, store, order.ID)
	assert.Equal(t, domain.OrderStatusOpen, persisted.Status)
}

func TestSubmitOrderInvalid(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	collector := &captureCollector{}
	gate := NewComplianceService(decimal.Zero, metrics.NopCollector{}, testLogger())
	engine := NewMatchingService(store, gate, newTestLedger(store), nil, nil, collector, testLogger())

	_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, decimal.Zero, dec("50"), "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, collector.ordersRejected)
	assert.Zero(t, collector.ordersSubmitted)
}

func TestExactFill(t *testing.T) {
	ctx := context.Background()
	engine, store := newMemoryEngine()

	sell, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("50"), "bob")
	require.NoError(t, err)

	buy, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("50"), "alice")
	require.NoError(t, err)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.True(t, trade.Price.Equal(dec("100")))
	assert.True(t, trade.Quantity.Equal(dec("50")))
	assert.Equal(t, buy.ID, trade.AggressorOrderID)
	assert.Equal(t, sell.ID, trade.RestingOrderID)
	assert.Equal(t, buy.ID, trade.BuyerOrderID)
	assert.Equal(t, sell.ID, trade.SellerOrderID)

	assert.Equal(t, domain.OrderStatusFilled, buy.Status)
	assert.True(t, buy.RemainingQuantity.IsZero())
	assert.Equal(t, domain.OrderStatusFilled, loadOrder(t, store, sell.ID).Status)

	assert.Empty(t, bookEntries(t, store, "GOVT-10Y", domain.OrderSideBuy))
	assert.Empty(t, bookEntries(t, store, "GOVT-10Y", domain.OrderSideSell))

	// 成交文档已落盘
	raw, ok, err := store.DocGet(ctx, domain.TradeKey(trade.ID))
	require.NoError(t, err)
	require.True(t, ok)
	decoded, err := domain.DecodeTrade(raw)
	require.NoError(t, err)
	assert.Equal(t, trade.ID, decoded.ID)
}

func TestPartialFillAggressorRests(t *testing.T) {
	ctx := context.Background()
	engine, store := newMemoryEngine()

	sell, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("30"), "bob")
	require.NoError(t, err)

	buy, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("50"), "alice")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(dec("30")))

	assert.Equal(t, domain.OrderStatusPartiallyFilled, buy.Status)
	assert.True(t, buy.RemainingQuantity.Equal(dec("20")))

	bids := bookEntries(t, store, "GOVT-10Y", domain.OrderSideBuy)
	require.Len(t, bids, 1)
	assert.Equal(t, buy.ID, bids[0].Order.ID)
	assert.True(t, bids[0].Order.RemainingQuantity.Equal(dec("20")))

	assert.Empty(t, bookEntries(t, store, "GOVT-10Y", domain.OrderSideSell))
	assert.Equal(t, domain.OrderStatusFilled, loadOrder(t, store, sell.ID).Status)
}

func TestPartialFillRestingKeepsSequence(t *testing.T) {
	ctx := context.Background()
	engine, store := newMemoryEngine()

	sell, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("50"), "bob")
	require.NoError(t, err)

	before := bookEntries(t, store, "GOVT-10Y", domain.OrderSideSell)
	require.Len(t, before, 1)
	originalSeq := before[0].Sequence

	buy, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("30"), "alice")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.OrderStatusFilled, buy.Status)

	// 剩量被动单带原序列号回到簿内，时间优先位次不变
	after := bookEntries(t, store, "GOVT-10Y", domain.OrderSideSell)
	require.Len(t, after, 1)
	assert.Equal(t, sell.ID, after[0].Order.ID)
	assert.Equal(t, originalSeq, after[0].Sequence)
	assert.True(t, after[0].Order.RemainingQuantity.Equal(dec("20")))
	assert.Equal(t, domain.OrderStatusPartiallyFilled, after[0].Order.Status)

	persisted := loadOrder(t, store, sell.ID)
	assert.Equal(t, domain.OrderStatusPartiallyFilled, persisted.Status)
	assert.True(t, persisted.RemainingQuantity.Equal(dec("20")))
}

func TestNoMatchWhenPricesDoNotCross(t *testing.T) {
	ctx := context.Background()
	engine, store := newMemoryEngine()

	sell, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("101"), dec("10"), "bob")
	require.NoError(t, err)

	buy, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, domain.OrderStatusOpen, buy.Status)

	require.Len(t, bookEntries(t, store, "GOVT-10Y", domain.OrderSideSell), 1)
	require.Len(t, bookEntries(t, store, "GOVT-10Y", domain.OrderSideBuy), 1)
	assert.Equal(t, domain.OrderStatusOpen, loadOrder(t, store, sell.ID).Status)
}

func TestExecutionAtRestingPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("buy aggressor gets price improvement", func(t *testing.T) {
		engine, _ := newMemoryEngine()
		_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("99"), dec("10"), "bob")
		require.NoError(t, err)

		_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("101"), dec("10"), "alice")
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.True(t, trades[0].Price.Equal(dec("99")))
	})

	t.Run("sell aggressor gets price improvement", func(t *testing.T) {
		engine, _ := newMemoryEngine()
		_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("101"), dec("10"), "alice")
		require.NoError(t, err)

		_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("99"), dec("10"), "bob")
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.True(t, trades[0].Price.Equal(dec("101")))
	})
}

func TestSweepMultipleLevels(t *testing.T) {
	ctx := context.Background()
	engine, store := newMemoryEngine()

	s1, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("99"), dec("10"), "bob")
	require.NoError(t, err)
	s2, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("10"), "carol")
	require.NoError(t, err)
	s3, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("101"), dec("10"), "dave")
	require.NoError(t, err)

	buy, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("30"), "alice")
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// 先吃 99，再吃 100，101 不交叉保持挂单
	assert.Equal(t, s1.ID, trades[0].RestingOrderID)
	assert.True(t, trades[0].Price.Equal(dec("99")))
	assert.Equal(t, s2.ID, trades[1].RestingOrderID)
	assert.True(t, trades[1].Price.Equal(dec("100")))

	assert.Equal(t, domain.OrderStatusPartiallyFilled, buy.Status)
	assert.True(t, buy.RemainingQuantity.Equal(dec("10")))

	asks := bookEntries(t, store, "GOVT-10Y", domain.OrderSideSell)
	require.Len(t, asks, 1)
	assert.Equal(t, s3.ID, asks[0].Order.ID)

	bids := bookEntries(t, store, "GOVT-10Y", domain.OrderSideBuy)
	require.Len(t, bids, 1)
	assert.Equal(t, buy.ID, bids[0].Order.ID)
}

func TestFifoAtEqualPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("buy aggressor hits earlier sell first", func(t *testing.T) {
		engine, store := newMemoryEngine()
		s1, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("10"), "bob")
		require.NoError(t, err)
		s2, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("10"), "carol")
		require.NoError(t, err)

		_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, s1.ID, trades[0].RestingOrderID)

		asks := bookEntries(t, store, "GOVT-10Y", domain.OrderSideSell)
		require.Len(t, asks, 1)
		assert.Equal(t, s2.ID, asks[0].Order.ID)
	})

	t.Run("sell aggressor hits earlier buy first", func(t *testing.T) {
		engine, store := newMemoryEngine()
		b1, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
		require.NoError(t, err)
		b2, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "carol")
		require.NoError(t, err)

		_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("10"), "bob")
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, b1.ID, trades[0].RestingOrderID)

		bids := bookEntries(t, store, "GOVT-10Y", domain.OrderSideBuy)
		require.Len(t, bids, 1)
		assert.Equal(t, b2.ID, bids[0].Order.ID)
	})
}

func TestRequeuedPartialKeepsPriority(t *testing.T) {
	ctx := context.Background()
	engine, _ := newMemoryEngine()

	b1, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("100"), "alice")
	require.NoError(t, err)

	// b1 部分成交 30，剩 70 带原序列号回簿
	_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("30"), "bob")
	require.NoError(t, err)
	require.Len(t, trades, 1)

	b2, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("50"), "carol")
	require.NoError(t, err)

	// 同价位 b1 仍排在 b2 之前
	sell, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("100"), "dave")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, b1.ID, trades[0].RestingOrderID)
	assert.True(t, trades[0].Quantity.Equal(dec("70")))
	assert.Equal(t, b2.ID, trades[1].RestingOrderID)
	assert.True(t, trades[1].Quantity.Equal(dec("30")))

	assert.Equal(t, domain.OrderStatusFilled, sell.Status)
}

func TestComplianceRejection(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	collector := &captureCollector{}
	engine := NewMatchingService(store, denyGate{}, newTestLedger(store), nil, nil, collector, testLogger())

	order, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
	assert.ErrorIs(t, err, domain.ErrComplianceRejected)
	assert.Nil(t, order)
	assert.Nil(t, trades)

	// 拒绝不产生任何状态变更
	keys, err := store.ScanPrefix(ctx, "bonds:")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, 1, collector.ordersRejected)
	assert.Zero(t, collector.ordersSubmitted)
}

func TestMalformedBookEntrySkipped(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	collector := &captureCollector{}
	gate := NewComplianceService(decimal.Zero, metrics.NopCollector{}, testLogger())
	engine := NewMatchingService(store, gate, newTestLedger(store), nil, nil, collector, testLogger())

	sell, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("99"), dec("10"), "bob")
	require.NoError(t, err)

	// 更优价位上的损坏成员不阻塞撮合
	asksKey := domain.AsksKey("GOVT-10Y")
	require.NoError(t, store.ZAdd(ctx, asksKey, 98, "garbage"))

	_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, sell.ID, trades[0].RestingOrderID)
	assert.Equal(t, 1, collector.malformedRecords)

	// 损坏成员留在簿内，撮合只跳过不清理
	remaining, err := store.ZRangeAsc(ctx, asksKey)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "garbage", remaining[0].Member)
}

func TestProcessOrderValidation(t *testing.T) {
	ctx := context.Background()

	validOrder := func() *domain.Order {
		return &domain.Order{
			ID:                "order-1",
			Instrument:        "GOVT-10Y",
			Side:              domain.OrderSideBuy,
			Price:             dec("100"),
			InitialQuantity:   dec("10"),
			RemainingQuantity: dec("10"),
			Timestamp:         time.Now().Format(time.RFC3339Nano),
			Status:            domain.OrderStatusOpen,
			UserID:            "alice",
		}
	}

	cases := []struct {
		name   string
		mutate func(*domain.Order)
	}{
		{"blank id", func(o *domain.Order) { o.ID = " " }},
		{"blank instrument", func(o *domain.Order) { o.Instrument = "" }},
		{"invalid side", func(o *domain.Order) { o.Side = "HOLD" }},
		{"zero price", func(o *domain.Order) { o.Price = decimal.Zero }},
		{"negative quantity", func(o *domain.Order) {
			o.InitialQuantity = dec("-1")
			o.RemainingQuantity = dec("-1")
		}},
		{"remaining diverges from initial", func(o *domain.Order) { o.RemainingQuantity = dec("5") }},
		{"status not open", func(o *domain.Order) { o.Status = domain.OrderStatusFilled }},
		{"blank user", func(o *domain.Order) { o.UserID = "  " }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, store := newMemoryEngine()
			order := validOrder()
			tc.mutate(order)

			_, err := engine.ProcessOrder(ctx, order)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)

			keys, err := store.ScanPrefix(ctx, "bonds:")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}

	t.Run("nil order", func(t *testing.T) {
		engine, _ := newMemoryEngine()
		_, err := engine.ProcessOrder(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestMatchingRecordsLedgerIndexes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := newTestLedger(store)
	gate := NewComplianceService(decimal.Zero, metrics.NopCollector{}, testLogger())
	engine := NewMatchingService(store, gate, ledger, nil, nil, metrics.NopCollector{}, testLogger())

	_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("10"), "bob")
	require.NoError(t, err)
	_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
	require.NoError(t, err)
	require.Len(t, trades, 1)

	for _, userID := range []string{"alice", "bob"} {
		result, err := ledger.QueryByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, result, 1, "user %s", userID)
		assert.Equal(t, trades[0].ID, result[0].ID)
	}

	result, err := ledger.QueryByInstrument(ctx, "GOVT-10Y")
	require.NoError(t, err)
	require.Len(t, result, 1)

	result, err = ledger.QueryToday(ctx)
	require.NoError(t, err)
	require.Len(t, result, 1)
}

func TestStoreErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.NewStore(), failDocPut: true}
	engine := newTestEngine(store)

	_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestReportTradeFollowsMatchOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gate := &recordingGate{}
	engine := NewMatchingService(store, gate, newTestLedger(store), nil, nil, metrics.NopCollector{}, testLogger())

	_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("99"), dec("10"), "bob")
	require.NoError(t, err)
	_, _, err = engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("10"), "carol")
	require.NoError(t, err)

	_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("20"), "alice")
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, []string{trades[0].ID, trades[1].ID}, gate.reported)
}

func TestPublisherAndArchiveSidecars(t *testing.T) {
	ctx := context.Background()

	t.Run("publish failure does not fail submission", func(t *testing.T) {
		store := memory.NewStore()
		collector := &captureCollector{}
		gate := NewComplianceService(decimal.Zero, metrics.NopCollector{}, testLogger())
		engine := NewMatchingService(store, gate, newTestLedger(store), failingPublisher{}, nil, collector, testLogger())

		_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("10"), "bob")
		require.NoError(t, err)
		_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, 1, collector.feedPublishFailures)
	})

	t.Run("trades flow to publisher and archive", func(t *testing.T) {
		store := memory.NewStore()
		publisher := &capturePublisher{}
		archive := &captureArchive{}
		gate := NewComplianceService(decimal.Zero, metrics.NopCollector{}, testLogger())
		engine := NewMatchingService(store, gate, newTestLedger(store), publisher, archive, metrics.NopCollector{}, testLogger())

		// 无成交时不触发归档
		_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("99"), dec("10"), "bob")
		require.NoError(t, err)
		assert.Empty(t, archive.batches)

		_, _, err = engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("10"), "carol")
		require.NoError(t, err)

		_, trades, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("20"), "alice")
		require.NoError(t, err)
		require.Len(t, trades, 2)

		assert.Equal(t, []string{trades[0].ID, trades[1].ID}, publisher.published)
		require.Len(t, archive.batches, 1)
		assert.Len(t, archive.batches[0], 2)
	})
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()
	engine, _ := newMemoryEngine()

	submitted, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
	require.NoError(t, err)

	found, err := engine.GetOrder(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted.ID, found.ID)
	assert.Equal(t, submitted.UserID, found.UserID)
	assert.True(t, found.Price.Equal(dec("100")))

	_, err = engine.GetOrder(ctx, "no-such-order")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = engine.GetOrder(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInstrumentsAreIsolated(t *testing.T) {
	ctx := context.Background()
	engine, store := newMemoryEngine()

	_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideSell, dec("100"), dec("10"), "bob")
	require.NoError(t, err)

	// 相同价格但不同品种，互不撮合
	_, trades, err := engine.SubmitOrder(ctx, "CORP-5Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
	require.NoError(t, err)
	assert.Empty(t, trades)

	require.Len(t, bookEntries(t, store, "GOVT-10Y", domain.OrderSideSell), 1)
	require.Len(t, bookEntries(t, store, "CORP-5Y", domain.OrderSideBuy), 1)
}

func TestConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	engine, store := newMemoryEngine()

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := engine.SubmitOrder(ctx, "GOVT-10Y", domain.OrderSideBuy, dec("100"), dec("10"), "alice")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	bids := bookEntries(t, store, "GOVT-10Y", domain.OrderSideBuy)
	require.Len(t, bids, workers)

	// 每笔挂单领取了独立的序列号
	seen := make(map[string]bool, workers)
	for _, entry := range bids {
		assert.False(t, seen[entry.Sequence], "duplicate sequence %s", entry.Sequence)
		seen[entry.Sequence] = true
	}
}
