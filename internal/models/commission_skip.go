package models

import "time"

// CommissionSkip 佣金跳过记录（受益人未激活等情况的审计留痕，仅追加）
type CommissionSkip struct {
	ID            uint      `gorm:"primarykey" json:"id"`                    // 主键
	TransactionID uint      `gorm:"not null;index" json:"transaction_id"`    // 关联成交ID
	AssociateID   uint      `gorm:"not null;index" json:"associate_id"`      // 被跳过的经纪人ID
	Level         int       `gorm:"not null" json:"level"`                   // 对应佣金层级
	Reason        string    `gorm:"type:varchar(64);not null" json:"reason"` // 跳过原因
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                 // 创建时间
}

// TableName 指定表名
func (CommissionSkip) TableName() string {
	return "commission_skips"
}
