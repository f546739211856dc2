package domain

// 存储键命名空间。全部记录共享 "bonds:" 前缀，与既有数据布局保持兼容，
// 任何改动都会造成存量订单簿与账本不可见。
const (
	orderKeyPrefix            = "bonds:orders:"
	tradeKeyPrefix            = "bonds:trades:"
	bidsKeyPrefix             = "bonds:bids:"
	asksKeyPrefix             = "bonds:asks:"
	userTradesKeyPrefix       = "bonds:user-trades:"
	instrumentTradesKeyPrefix = "bonds:instrument-trades:"
	dailyTradesKeyPrefix      = "bonds:daily-trades:"
	sequenceKeyPrefix         = "bonds:seq:"
)

// OrderKey 订单文档键
func OrderKey(orderID string) string {
	return orderKeyPrefix + orderID
}

// TradeKey 成交文档键
func TradeKey(tradeID string) string {
	return tradeKeyPrefix + tradeID
}

// TradeKeyPrefix 成交文档键前缀，账本全量扫描使用
func TradeKeyPrefix() string {
	return tradeKeyPrefix
}

// BidsKey 买盘订单簿键
func BidsKey(instrument string) string {
	return bidsKeyPrefix + instrument
}

// AsksKey 卖盘订单簿键
func AsksKey(instrument string) string {
	return asksKeyPrefix + instrument
}

// BookKey 返回某方向订单挂入的订单簿键（买单挂买盘，卖单挂卖盘）
func BookKey(instrument string, side OrderSide) string {
	if side == OrderSideBuy {
		return BidsKey(instrument)
	}
	return AsksKey(instrument)
}

// OppositeBookKey 返回某方向订单撮合时扫描的对手盘键
func OppositeBookKey(instrument string, side OrderSide) string {
	if side == OrderSideBuy {
		return AsksKey(instrument)
	}
	return BidsKey(instrument)
}

// UserTradesKey 用户成交索引键
func UserTradesKey(userID string) string {
	return userTradesKeyPrefix + userID
}

// InstrumentTradesKey 债券品种成交索引键
func InstrumentTradesKey(instrument string) string {
	return instrumentTradesKeyPrefix + instrument
}

// DailyTradesKey 当日成交索引键，day 形如 20260824
func DailyTradesKey(day string) string {
	return dailyTradesKeyPrefix + day
}

// SequenceKey 品种级单调序列键，用于同价位的时间优先排序
func SequenceKey(instrument string) string {
	return sequenceKeyPrefix + instrument
}
