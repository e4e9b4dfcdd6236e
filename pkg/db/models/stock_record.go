package models

import "time"

// StockRecord holds the units available for one catalog product.
type StockRecord struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"column:product_id;not null;uniqueIndex:idx_inventory_product_id" json:"productId"`
	Quantity  int       `gorm:"column:quantity;not null;check:chk_inventory_quantity,quantity >= 0" json:"quantity"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (StockRecord) TableName() string {
	return "inventory"
}
