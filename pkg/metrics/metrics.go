// Package metrics 提供 Prometheus helper，包含撮合与台账业务指标模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/bondmarket/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 订单提交计数
	OrdersSubmittedTotal prometheus.Counter
	// 订单拒绝计数（参数非法或合规拦截）
	OrdersRejectedTotal prometheus.Counter
	// 成交计数
	TradesExecutedTotal prometheus.Counter
	// 撮合耗时
	MatchDuration prometheus.Histogram

	// 台账查询耗时
	LedgerQueryDuration prometheus.Histogram
	// 损坏记录跳过计数
	MalformedRecordsTotal prometheus.Counter

	// 合规上报计数
	ComplianceReportsTotal prometheus.Counter
	// 大额成交增强上报计数
	EnhancedReportsTotal prometheus.Counter

	// 成交事件发布失败计数
	FeedPublishFailuresTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		OrdersSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "orders_submitted_total",
			Help:      "Total orders accepted for matching",
		}),
		OrdersRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "orders_rejected_total",
			Help:      "Total orders rejected before matching",
		}),
		TradesExecutedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "trades_executed_total",
			Help:      "Total trades executed",
		}),
		MatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "match_duration_seconds",
			Help:      "Order matching duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		LedgerQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "ledger_query_duration_seconds",
			Help:      "Ledger query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		MalformedRecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "malformed_records_total",
			Help:      "Total malformed records skipped during enumeration",
		}),

		ComplianceReportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "compliance_reports_total",
			Help:      "Total trades reported to the compliance gate",
		}),
		EnhancedReportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "enhanced_reports_total",
			Help:      "Total trades flagged for enhanced regulatory reporting",
		}),

		FeedPublishFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bondmarket",
			Subsystem: serviceName,
			Name:      "feed_publish_failures_total",
			Help:      "Total trade feed publish failures",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	metrics := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OrdersSubmittedTotal,
		m.OrdersRejectedTotal,
		m.TradesExecutedTotal,
		m.MatchDuration,
		m.LedgerQueryDuration,
		m.MalformedRecordsTotal,
		m.ComplianceReportsTotal,
		m.EnhancedReportsTotal,
		m.FeedPublishFailuresTotal,
	}

	for _, metric := range metrics {
		if err := prometheus.DefaultRegisterer.Register(metric); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}

// Collector 指标收集器接口
type Collector interface {
	// 记录 HTTP 请求
	RecordHTTPRequest(duration float64)
	// 记录接受的订单提交
	RecordOrderSubmitted()
	// 记录被拒绝的订单提交
	RecordOrderRejected()
	// 记录成交
	RecordTradeExecuted()
	// 记录撮合耗时
	ObserveMatchDuration(seconds float64)
	// 记录台账查询耗时
	ObserveLedgerQuery(seconds float64)
	// 记录跳过的损坏记录
	RecordMalformedRecord()
	// 记录合规上报
	RecordComplianceReport(enhanced bool)
	// 记录成交事件发布失败
	RecordFeedPublishFailure()
}

// DefaultCollector 默认指标收集器实现
type DefaultCollector struct {
	metrics *Metrics
}

// NewDefaultCollector 创建默认指标收集器
func NewDefaultCollector(metrics *Metrics) *DefaultCollector {
	return &DefaultCollector{
		metrics: metrics,
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (dc *DefaultCollector) RecordHTTPRequest(duration float64) {
	dc.metrics.HTTPRequestsTotal.Inc()
	dc.metrics.HTTPRequestDuration.Observe(duration)
}

// RecordOrderSubmitted 记录接受的订单提交
func (dc *DefaultCollector) RecordOrderSubmitted() {
	dc.metrics.OrdersSubmittedTotal.Inc()
}

// RecordOrderRejected 记录被拒绝的订单提交
func (dc *DefaultCollector) RecordOrderRejected() {
	dc.metrics.OrdersRejectedTotal.Inc()
}

// RecordTradeExecuted 记录成交
func (dc *DefaultCollector) RecordTradeExecuted() {
	dc.metrics.TradesExecutedTotal.Inc()
}

// ObserveMatchDuration 记录撮合耗时
func (dc *DefaultCollector) ObserveMatchDuration(seconds float64) {
	dc.metrics.MatchDuration.Observe(seconds)
}

// ObserveLedgerQuery 记录台账查询耗时
func (dc *DefaultCollector) ObserveLedgerQuery(seconds float64) {
	dc.metrics.LedgerQueryDuration.Observe(seconds)
}

// RecordMalformedRecord 记录跳过的损坏记录
func (dc *DefaultCollector) RecordMalformedRecord() {
	dc.metrics.MalformedRecordsTotal.Inc()
}

// RecordComplianceReport 记录合规上报
func (dc *DefaultCollector) RecordComplianceReport(enhanced bool) {
	dc.metrics.ComplianceReportsTotal.Inc()
	if enhanced {
		dc.metrics.EnhancedReportsTotal.Inc()
	}
}

// RecordFeedPublishFailure 记录成交事件发布失败
func (dc *DefaultCollector) RecordFeedPublishFailure() {
	dc.metrics.FeedPublishFailuresTotal.Inc()
}

// NopCollector 空实现，用于测试或禁用指标的场景
type NopCollector struct{}

func (NopCollector) RecordHTTPRequest(duration float64) {}
func (NopCollector) RecordOrderSubmitted()              {}
func (NopCollector) RecordOrderRejected()               {}
func (NopCollector) RecordTradeExecuted()               {}

func (NopCollector) ObserveMatchDuration(seconds float64) {}
func (NopCollector) ObserveLedgerQuery(seconds float64)   {}
func (NopCollector) RecordMalformedRecord()               {}

func (NopCollector) RecordComplianceReport(enhanced bool) {}
func (NopCollector) RecordFeedPublishFailure()            {}
