package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/bondmarket/internal/market/domain"
	"github.com/wyfcoding/bondmarket/internal/market/infrastructure/persistence/memory"
	"github.com/wyfcoding/bondmarket/pkg/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustOrder(t *testing.T, instrument string, side domain.OrderSide, price, quantity, userID string) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(instrument, side, dec(price), dec(quantity), userID)
	require.NoError(t, err)
	return order
}

func newTestLedger(store domain.Store) *LedgerService {
	return NewLedgerService(store, metrics.NopCollector{}, testLogger())
}

func newTestEngine(store domain.Store) *MatchingService {
	gate := NewComplianceService(decimal.Zero, metrics.NopCollector{}, testLogger())
	return NewMatchingService(store, gate, newTestLedger(store), nil, nil, metrics.NopCollector{}, testLogger())
}

func newMemoryEngine() (*MatchingService, domain.Store) {
	store := memory.NewStore()
	return newTestEngine(store), store
}

// captureCollector 记录关键指标调用次数，仅用于串行测试。
type captureCollector struct {
	metrics.NopCollector
	ordersSubmitted     int
	ordersRejected      int
	tradesExecuted      int
	malformedRecords    int
	complianceReports   int
	enhancedReports     int
	feedPublishFailures int
}

func (c *captureCollector) RecordOrderSubmitted() { c.ordersSubmitted++ }
func (c *captureCollector) RecordOrderRejected()  { c.ordersRejected++ }
func (c *captureCollector) RecordTradeExecuted()  { c.tradesExecuted++ }
func (c *captureCollector) RecordMalformedRecord() {
	c.malformedRecords++
}
func (c *captureCollector) RecordComplianceReport(enhanced bool) {
	c.complianceReports++
	if enhanced {
		c.enhancedReports++
	}
}
func (c *captureCollector) RecordFeedPublishFailure() { c.feedPublishFailures++ }

// denyGate 拒绝所有用户的合规关卡
type denyGate struct{}

func (denyGate) IsUserCompliant(context.Context, string) (bool, error) { return false, nil }
func (denyGate) IsAuthorizedForInstrument(context.Context, string, string) (bool, error) {
	return true, nil
}
func (denyGate) PreTradeCheck(context.Context, *domain.Order) (bool, error) { return true, nil }
func (denyGate) ReportTrade(context.Context, *domain.Trade) error           { return nil }

// recordingGate 放行所有检查并记录成交上报顺序
type recordingGate struct {
	reported []string
}

func (g *recordingGate) IsUserCompliant(context.Context, string) (bool, error) { return true, nil }
func (g *recordingGate) IsAuthorizedForInstrument(context.Context, string, string) (bool, error) {
	return true, nil
}
func (g *recordingGate) PreTradeCheck(context.Context, *domain.Order) (bool, error) {
	return true, nil
}
func (g *recordingGate) ReportTrade(_ context.Context, trade *domain.Trade) error {
	g.reported = append(g.reported, trade.ID)
	return nil
}

// failingPublisher 发布总是失败
type failingPublisher struct{}

func (failingPublisher) PublishTrade(context.Context, *domain.Trade) error {
	return errors.New("broker unreachable")
}

// capturePublisher 记录发布顺序
type capturePublisher struct {
	published []string
}

func (p *capturePublisher) PublishTrade(_ context.Context, trade *domain.Trade) error {
	p.published = append(p.published, trade.ID)
	return nil
}

// captureArchive 记录归档批次
type captureArchive struct {
	batches [][]*domain.Trade
}

func (a *captureArchive) ArchiveTrades(_ context.Context, trades []*domain.Trade) error {
	a.batches = append(a.batches, trades)
	return nil
}

// failingStore 包装底层存储，对选定操作注入失败
type failingStore struct {
	domain.Store
	failDocPut bool
	failZAdd   bool
}

func (f *failingStore) DocPut(ctx context.Context, key, value string) error {
	if f.failDocPut {
		return fmt.Errorf("%w: injected docput failure", domain.ErrStoreUnavailable)
	}
	return f.Store.DocPut(ctx, key, value)
}

func (f *failingStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if f.failZAdd {
		return fmt.Errorf("%w: injected zadd failure", domain.ErrStoreUnavailable)
	}
	return f.Store.ZAdd(ctx, key, score, member)
}

// spyStore 记录被查询的集合键，用于验证播种路径
type spyStore struct {
	domain.Store
	smembersKeys []string
	scanPrefixes []string
}

func (s *spyStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.smembersKeys = append(s.smembersKeys, key)
	return s.Store.SMembers(ctx, key)
}

func (s *spyStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	s.scanPrefixes = append(s.scanPrefixes, prefix)
	return s.Store.ScanPrefix(ctx, prefix)
}
