package models

import "time"

// LedgerEntry 佣金账目表（仅追加：计算器创建、状态机流转，永不删除）
type LedgerEntry struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                                                    // 主键
	TransactionID    *uint      `gorm:"index;index:idx_ledger_commission_unique,unique" json:"transaction_id,omitempty"`         // 关联成交（固定奖金为 NULL）
	AssociateID      uint       `gorm:"not null;index;index:idx_ledger_commission_unique,unique" json:"associate_id"`            // 受益经纪人ID
	EntryType        string     `gorm:"type:varchar(20);not null;index" json:"entry_type"`                                       // 账目类型
	Level            int        `gorm:"not null;default:0;index:idx_ledger_commission_unique,unique" json:"level"`               // 佣金层级（奖金为 0）
	RatePercent      Percent    `gorm:"type:decimal(5,2);not null;default:0" json:"rate_percent"`                                // 适用费率（固定奖金为 0）
	Amount           int64      `gorm:"not null" json:"amount"`                                                                  // 金额（最小货币单位，冲销为负数）
	Status           string     `gorm:"type:varchar(20);not null;index" json:"status"`                                           // 支付状态
	PaymentReference string     `gorm:"type:varchar(128);default:''" json:"payment_reference"`                                   // 支付凭证号
	BonusKey         *string    `gorm:"type:varchar(64);uniqueIndex" json:"-"`                                                   // 固定奖金幂等键
	ReversalOf       *uint      `gorm:"index" json:"reversal_of,omitempty"`                                                      // 冲销的原账目ID
	VoidReason       string     `gorm:"type:varchar(255);default:''" json:"void_reason,omitempty"`                               // 作废/冲销原因
	ApprovedAt       *time.Time `gorm:"index" json:"approved_at,omitempty"`                                                      // 核准时间
	PaidAt           *time.Time `gorm:"index" json:"paid_at,omitempty"`                                                          // 支付时间
	VoidedAt         *time.Time `gorm:"index" json:"voided_at,omitempty"`                                                        // 作废时间
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                                                 // 创建时间
	UpdatedAt        time.Time  `gorm:"index" json:"updated_at"`                                                                 // 更新时间

	Transaction *Transaction `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"` // 关联成交
	Associate   Associate    `gorm:"foreignKey:AssociateID" json:"associate,omitempty"`     // 受益经纪人
}

// TableName 指定表名
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
