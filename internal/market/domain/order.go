// Package domain 包含债券撮合与成交账本的领域模型。
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSide 订单方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// IsValid 是否为合法方向
func (s OrderSide) IsValid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "OPEN"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// Order 限价订单实体。
// 字段名与存储文档的 JSON 形态一一对应，存量数据依赖该形态，不可改名。
type Order struct {
	// 订单 ID
	ID string `json:"id"`
	// 债券品种标识
	Instrument string `json:"instrument"`
	// 买卖方向
	Side OrderSide `json:"side"`
	// 限价
	Price decimal.Decimal `json:"price"`
	// 原始数量
	InitialQuantity decimal.Decimal `json:"initialQuantity"`
	// 剩余未成交数量
	RemainingQuantity decimal.Decimal `json:"remainingQuantity"`
	// 创建时间（ISO-8601）
	Timestamp string `json:"timestamp"`
	// 订单状态
	Status OrderStatus `json:"status"`
	// 下单用户 ID
	UserID string `json:"userId"`
}

// NewOrder 创建一笔新订单，校验并填充初始状态。
func NewOrder(instrument string, side OrderSide, price, quantity decimal.Decimal, userID string) (*Order, error) {
	if strings.TrimSpace(instrument) == "" {
		return nil, fmt.Errorf("%w: instrument must not be blank", ErrInvalidInput)
	}
	if !side.IsValid() {
		return nil, fmt.Errorf("%w: side must be BUY or SELL, got %q", ErrInvalidInput, side)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive, got %s", ErrInvalidInput, price)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidInput, quantity)
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId must not be blank", ErrInvalidInput)
	}

	return &Order{
		ID:                uuid.NewString(),
		Instrument:        instrument,
		Side:              side,
		Price:             price,
		InitialQuantity:   quantity,
		RemainingQuantity: quantity,
		Timestamp:         time.Now().Format(time.RFC3339Nano),
		Status:            OrderStatusOpen,
		UserID:            userID,
	}, nil
}

// CrossesPrice 判断本方价格是否与对手盘挂单价可成交。
// 买单在自身限价不低于挂单价时成交，卖单在不高于挂单价时成交，价格相等视为可成交。
func (o *Order) CrossesPrice(restingPrice decimal.Decimal) bool {
	if o.Side == OrderSideBuy {
		return o.Price.GreaterThanOrEqual(restingPrice)
	}
	return o.Price.LessThanOrEqual(restingPrice)
}

// ApplyFill 按成交数量扣减剩余数量
func (o *Order) ApplyFill(quantity decimal.Decimal) {
	o.RemainingQuantity = o.RemainingQuantity.Sub(quantity)
}

// IsFilled 是否已完全成交
func (o *Order) IsFilled() bool {
	return o.RemainingQuantity.IsZero()
}

// FilledQuantity 已成交数量
func (o *Order) FilledQuantity() decimal.Decimal {
	return o.InitialQuantity.Sub(o.RemainingQuantity)
}

// Encode 序列化为存储文档
func (o *Order) Encode() (string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("%w: order %s: %v", ErrInternalEncode, o.ID, err)
	}
	return string(data), nil
}

// DecodeOrder 从存储文档反序列化订单
func DecodeOrder(raw string) (*Order, error) {
	var order Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("%w: order document: %v", ErrMalformedRecord, err)
	}
	return &order, nil
}
