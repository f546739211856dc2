package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade 成交记录。一次撮合产生一笔成交，价格取被动方挂单价。
// 字段名与存储文档的 JSON 形态一一对应，不可改名。
type Trade struct {
	// 成交 ID
	ID string `json:"id"`
	// 债券品种标识
	Instrument string `json:"instrument"`
	// 成交价（被动方挂单价）
	Price decimal.Decimal `json:"price"`
	// 成交数量
	Quantity decimal.Decimal `json:"quantity"`
	// 主动方订单 ID
	AggressorOrderID string `json:"aggressorOrderId"`
	// 被动方订单 ID
	RestingOrderID string `json:"restingOrderId"`
	// 买方订单 ID
	BuyerOrderID string `json:"buyerOrderId"`
	// 卖方订单 ID
	SellerOrderID string `json:"sellerOrderId"`
	// 成交时间（ISO-8601）
	Timestamp string `json:"timestamp"`
}

// NewTrade 由主动方与被动方订单生成成交记录。
// 买卖双方按订单方向归位：买单一侧记为买方，另一侧记为卖方。
func NewTrade(aggressor, resting *Order, quantity decimal.Decimal) *Trade {
	trade := &Trade{
		ID:               uuid.NewString(),
		Instrument:       aggressor.Instrument,
		Price:            resting.Price,
		Quantity:         quantity,
		AggressorOrderID: aggressor.ID,
		RestingOrderID:   resting.ID,
		Timestamp:        time.Now().Format(time.RFC3339Nano),
	}
	if aggressor.Side == OrderSideBuy {
		trade.BuyerOrderID = aggressor.ID
		trade.SellerOrderID = resting.ID
	} else {
		trade.BuyerOrderID = resting.ID
		trade.SellerOrderID = aggressor.ID
	}
	return trade
}

// Value 成交金额（价格 × 数量）
func (t *Trade) Value() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

// InvolvesOrder 判断某订单是否参与了本笔成交
func (t *Trade) InvolvesOrder(orderID string) bool {
	return t.AggressorOrderID == orderID || t.RestingOrderID == orderID
}

// TradeDay 返回成交日（YYYYMMDD），由成交时间戳前 10 位日期去掉连字符得到。
// 时间戳过短时返回空串。
func (t *Trade) TradeDay() string {
	if len(t.Timestamp) < 10 {
		return ""
	}
	return strings.ReplaceAll(t.Timestamp[:10], "-", "")
}

// Encode 序列化为存储文档
func (t *Trade) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("%w: trade %s: %v", ErrInternalEncode, t.ID, err)
	}
	return string(data), nil
}

// DecodeTrade 从存储文档反序列化成交记录
func DecodeTrade(raw string) (*Trade, error) {
	var trade Trade
	if err := json.Unmarshal([]byte(raw), &trade); err != nil {
		return nil, fmt.Errorf("%w: trade document: %v", ErrMalformedRecord, err)
	}
	return &trade, nil
}
