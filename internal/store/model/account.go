package model

import (
	"time"

	"gorm.io/datatypes"
)

// AccountSnapshotModel 记录一次成功刷新的账户快照。
type AccountSnapshotModel struct {
	ID                  string         `gorm:"column:id;primaryKey;size:36"`
	RefreshID           string         `gorm:"column:refresh_id;index"`
	AccountID           string         `gorm:"column:account_id;index"`
	TakenAt             time.Time      `gorm:"column:taken_at;index"`
	BalanceUSD          float64        `gorm:"column:balance_usd"`
	EquityUSD           float64        `gorm:"column:equity_usd"`
	AggregateUnrealized float64        `gorm:"column:aggregate_unrealized_pnl_usd"`
	AggregateMarginUsed float64        `gorm:"column:aggregate_margin_used_usd"`
	EffectiveLeverage   float64        `gorm:"column:effective_leverage"`
	PositionCount       int            `gorm:"column:position_count"`
	OrderCount          int            `gorm:"column:order_count"`
	WorkingOrderCount   int            `gorm:"column:working_order_count"`
	PositionsJSON       datatypes.JSON `gorm:"column:positions_json"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (AccountSnapshotModel) TableName() string { return "account_snapshots" }
