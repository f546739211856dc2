// Package application 实现债券撮合市场的应用服务。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/bondmarket/internal/market/domain"
	"github.com/wyfcoding/bondmarket/pkg/metrics"
)

// ComplianceService 合规关卡的默认实现。
// 当前为通过型策略：参数合法即放行（生产环境对接外部合规供应商）。
// 成交上报按金额阈值区分普通与增强两级。
type ComplianceService struct {
	// enhancedThreshold 增强上报金额阈值，非正值表示关闭增强上报
	enhancedThreshold decimal.Decimal
	collector         metrics.Collector
	logger            *slog.Logger
}

func NewComplianceService(enhancedThreshold decimal.Decimal, collector metrics.Collector, logger *slog.Logger) *ComplianceService {
	return &ComplianceService{
		enhancedThreshold: enhancedThreshold,
		collector:         collector,
		logger:            logger.With("module", "compliance"),
	}
}

// IsUserCompliant 用户级合规检查
func (s *ComplianceService) IsUserCompliant(ctx context.Context, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, fmt.Errorf("%w: userId must not be blank", domain.ErrInvalidInput)
	}
	// Mock compliance logic: accept all well-formed users (in reality, call external vendor)
	s.logger.DebugContext(ctx, "user compliance check passed", "user_id", userID)
	return true, nil
}

// IsAuthorizedForInstrument 用户对品种的交易资格检查
func (s *ComplianceService) IsAuthorizedForInstrument(ctx context.Context, userID, instrument string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, fmt.Errorf("%w: userId must not be blank", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(instrument) == "" {
		return false, fmt.Errorf("%w: instrument must not be blank", domain.ErrInvalidInput)
	}
	// Mock authorization logic: all users may trade all instruments
	return true, nil
}

// PreTradeCheck 订单级事前合规检查，聚合用户与品种两级检查。
func (s *ComplianceService) PreTradeCheck(ctx context.Context, order *domain.Order) (bool, error) {
	if order == nil {
		return false, fmt.Errorf("%w: order must not be nil", domain.ErrInvalidInput)
	}
	ok, err := s.IsUserCompliant(ctx, order.UserID)
	if err != nil || !ok {
		return ok, err
	}
	return s.IsAuthorizedForInstrument(ctx, order.UserID, order.Instrument)
}

// ReportTrade 向监管方上报成交。金额超过阈值的成交走增强上报通道。
func (s *ComplianceService) ReportTrade(ctx context.Context, trade *domain.Trade) error {
	if trade == nil {
		return fmt.Errorf("%w: trade must not be nil", domain.ErrInvalidInput)
	}
	enhanced := s.enhancedThreshold.IsPositive() && trade.Value().GreaterThan(s.enhancedThreshold)
	s.logger.InfoContext(ctx, "trade reported to regulator",
		"trade_id", trade.ID,
		"instrument", trade.Instrument,
		"price", trade.Price.String(),
		"quantity", trade.Quantity.String(),
		"value", trade.Value().String(),
		"enhanced", enhanced,
	)
	s.collector.RecordComplianceReport(enhanced)
	return nil
}
