package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrders(t *testing.T) (buy, sell *Order) {
	t.Helper()
	var err error
	buy, err = NewOrder("GOVT-10Y", OrderSideBuy, decimal.RequireFromString("99"), decimal.RequireFromString("100"), "buyer")
	require.NoError(t, err)
	sell, err = NewOrder("GOVT-10Y", OrderSideSell, decimal.RequireFromString("98.50"), decimal.RequireFromString("100"), "seller")
	require.NoError(t, err)
	return buy, sell
}

func TestNewTradeBuyAggressor(t *testing.T) {
	buy, sell := newTestOrders(t)

	trade := NewTrade(buy, sell, decimal.RequireFromString("60"))
	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, "GOVT-10Y", trade.Instrument)
	// 成交价取被动方挂单价
	assert.True(t, trade.Price.Equal(sell.Price))
	assert.True(t, trade.Quantity.Equal(decimal.RequireFromString("60")))
	assert.Equal(t, buy.ID, trade.AggressorOrderID)
	assert.Equal(t, sell.ID, trade.RestingOrderID)
	assert.Equal(t, buy.ID, trade.BuyerOrderID)
	assert.Equal(t, sell.ID, trade.SellerOrderID)
	assert.NotEmpty(t, trade.Timestamp)
}

func TestNewTradeSellAggressor(t *testing.T) {
	buy, sell := newTestOrders(t)

	trade := NewTrade(sell, buy, decimal.RequireFromString("30"))
	assert.True(t, trade.Price.Equal(buy.Price))
	assert.Equal(t, sell.ID, trade.AggressorOrderID)
	assert.Equal(t, buy.ID, trade.RestingOrderID)
	assert.Equal(t, buy.ID, trade.BuyerOrderID)
	assert.Equal(t, sell.ID, trade.SellerOrderID)
}

func TestTradeValue(t *testing.T) {
	trade := &Trade{
		Price:    decimal.RequireFromString("98.50"),
		Quantity: decimal.RequireFromString("100"),
	}
	assert.True(t, trade.Value().Equal(decimal.RequireFromString("9850")))
}

func TestInvolvesOrder(t *testing.T) {
	trade := &Trade{AggressorOrderID: "agg-1", RestingOrderID: "rest-1"}
	assert.True(t, trade.InvolvesOrder("agg-1"))
	assert.True(t, trade.InvolvesOrder("rest-1"))
	assert.False(t, trade.InvolvesOrder("other"))
}

func TestTradeDay(t *testing.T) {
	trade := &Trade{Timestamp: "2026-08-24T10:15:30.123456789Z"}
	assert.Equal(t, "20260824", trade.TradeDay())

	trade.Timestamp = "short"
	assert.Equal(t, "", trade.TradeDay())
}

func TestTradeWireFormat(t *testing.T) {
	buy, sell := newTestOrders(t)
	trade := NewTrade(buy, sell, decimal.RequireFromString("10"))

	doc, err := trade.Encode()
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(doc), &fields))

	for _, key := range []string{"id", "instrument", "price", "quantity", "aggressorOrderId", "restingOrderId", "buyerOrderId", "sellerOrderId", "timestamp"} {
		assert.Contains(t, fields, key)
	}
	assert.Len(t, fields, 9)
}

func TestDecodeTrade(t *testing.T) {
	buy, sell := newTestOrders(t)
	trade := NewTrade(buy, sell, decimal.RequireFromString("10"))
	doc, err := trade.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTrade(doc)
	require.NoError(t, err)
	assert.Equal(t, trade.ID, decoded.ID)
	assert.True(t, decoded.Price.Equal(trade.Price))

	_, err = DecodeTrade("][")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
