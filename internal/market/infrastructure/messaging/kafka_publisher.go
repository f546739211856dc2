// Package messaging 将成交事件发布到消息队列，供行情与清算侧消费。
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/bondmarket/internal/market/domain"
	"github.com/wyfcoding/bondmarket/pkg/mq"
	"github.com/wyfcoding/bondmarket/pkg/utils"
)

// EventTypeTradeExecuted 成交事件类型
const EventTypeTradeExecuted = "trade.executed"

const (
	publishMaxAttempts    = 3
	publishInitialBackoff = 100 * time.Millisecond
	publishMaxBackoff     = time.Second
)

// tradeExecutedEvent 成交事件载荷
type tradeExecutedEvent struct {
	EventType        string `json:"event_type"`
	TradeID          string `json:"trade_id"`
	Instrument       string `json:"instrument"`
	Price            string `json:"price"`
	Quantity         string `json:"quantity"`
	AggressorOrderID string `json:"aggressor_order_id"`
	RestingOrderID   string `json:"resting_order_id"`
	BuyerOrderID     string `json:"buyer_order_id"`
	SellerOrderID    string `json:"seller_order_id"`
	ExecutedAt       string `json:"executed_at"`
}

// KafkaTradePublisher 基于 Kafka 的成交事件发布器。
// 以品种作为消息键，同一品种的成交事件落入同一分区，保持撮合顺序。
type KafkaTradePublisher struct {
	producer *mq.KafkaProducer
	topic    string
	logger   *slog.Logger
}

func NewKafkaTradePublisher(producer *mq.KafkaProducer, topic string, logger *slog.Logger) *KafkaTradePublisher {
	return &KafkaTradePublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.With("module", "trade_feed"),
	}
}

// PublishTrade 发布一笔成交事件，短暂故障按退避重试。
func (p *KafkaTradePublisher) PublishTrade(ctx context.Context, trade *domain.Trade) error {
	if trade == nil {
		return nil
	}
	event := &tradeExecutedEvent{
		EventType:        EventTypeTradeExecuted,
		TradeID:          trade.ID,
		Instrument:       trade.Instrument,
		Price:            trade.Price.String(),
		Quantity:         trade.Quantity.String(),
		AggressorOrderID: trade.AggressorOrderID,
		RestingOrderID:   trade.RestingOrderID,
		BuyerOrderID:     trade.BuyerOrderID,
		SellerOrderID:    trade.SellerOrderID,
		ExecutedAt:       trade.Timestamp,
	}

	err := utils.RetryWithBackoff(publishMaxAttempts, publishInitialBackoff, publishMaxBackoff, func() error {
		return p.producer.SendMessage(ctx, p.topic, trade.Instrument, event)
	})
	if err != nil {
		return fmt.Errorf("failed to publish trade event: %w", err)
	}
	p.logger.DebugContext(ctx, "trade event published", "trade_id", trade.ID, "topic", p.topic)
	return nil
}
