// Package mysql 提供成交记录的关系型归档，供离线对账与报表使用。
package mysql

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/bondmarket/internal/market/domain"
	"github.com/wyfcoding/bondmarket/pkg/db"
)

// archiveBatchSize 单批写入的最大行数
const archiveBatchSize = 100

// TradeModel MySQL 成交归档表映射
type TradeModel struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	TradeID          string          `gorm:"column:trade_id;type:varchar(36);uniqueIndex;not null"`
	Instrument       string          `gorm:"column:instrument;type:varchar(20);index;not null"`
	Price            decimal.Decimal `gorm:"column:price;type:decimal(20,8);not null"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:decimal(20,8);not null"`
	AggressorOrderID string          `gorm:"column:aggressor_order_id;type:varchar(36);index;not null"`
	RestingOrderID   string          `gorm:"column:resting_order_id;type:varchar(36);index;not null"`
	BuyerOrderID     string          `gorm:"column:buyer_order_id;type:varchar(36);not null"`
	SellerOrderID    string          `gorm:"column:seller_order_id;type:varchar(36);not null"`
	ExecutedAt       string          `gorm:"column:executed_at;type:varchar(40);index;not null"`
}

func (TradeModel) TableName() string { return "bond_trades" }

func toTradeModel(t *domain.Trade) *TradeModel {
	if t == nil {
		return nil
	}
	return &TradeModel{
		TradeID:          t.ID,
		Instrument:       t.Instrument,
		Price:            t.Price,
		Quantity:         t.Quantity,
		AggressorOrderID: t.AggressorOrderID,
		RestingOrderID:   t.RestingOrderID,
		BuyerOrderID:     t.BuyerOrderID,
		SellerOrderID:    t.SellerOrderID,
		ExecutedAt:       t.Timestamp,
	}
}

// TradeArchive 成交归档仓储
type TradeArchive struct {
	db *db.DB
}

func NewTradeArchive(database *db.DB) *TradeArchive {
	return &TradeArchive{db: database}
}

// ArchiveTrades 批量归档成交记录
func (a *TradeArchive) ArchiveTrades(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	models := make([]*TradeModel, 0, len(trades))
	for _, trade := range trades {
		if trade == nil {
			continue
		}
		models = append(models, toTradeModel(trade))
	}
	return a.db.BatchInsert(ctx, models, archiveBatchSize)
}
