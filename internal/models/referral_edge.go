package models

import "time"

// ReferralEdge 推荐关系边（child → sponsor，写入后不可变更）
type ReferralEdge struct {
	ID        uint      `gorm:"primarykey" json:"id"`                  // 主键
	ChildID   uint      `gorm:"not null;uniqueIndex" json:"child_id"`  // 被推荐人ID（唯一，单一推荐人约束）
	SponsorID uint      `gorm:"not null;index" json:"sponsor_id"`      // 推荐人ID
	CreatedAt time.Time `gorm:"index" json:"created_at"`               // 创建时间

	Child   Associate `gorm:"foreignKey:ChildID" json:"child,omitempty"`     // 被推荐人
	Sponsor Associate `gorm:"foreignKey:SponsorID" json:"sponsor,omitempty"` // 推荐人
}

// TableName 指定表名
func (ReferralEdge) TableName() string {
	return "referral_edges"
}
