package models

import "time"

// Transaction 成交流水表（写入后不可变更）
type Transaction struct {
	ID          uint      `gorm:"primarykey" json:"id"`                             // 主键
	TxnNo       string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"txn_no"` // 外部成交单号（幂等键）
	PropertyRef string    `gorm:"type:varchar(128);default:''" json:"property_ref"` // 房源编号
	AssociateID uint      `gorm:"not null;index" json:"associate_id"`               // 成交经纪人ID
	Amount      int64     `gorm:"not null" json:"amount"`                           // 成交金额（最小货币单位）
	ClosedAt    time.Time `gorm:"not null;index" json:"closed_at"`                  // 成交时间
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                          // 创建时间

	Associate Associate `gorm:"foreignKey:AssociateID" json:"associate,omitempty"` // 成交经纪人
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "transactions"
}
