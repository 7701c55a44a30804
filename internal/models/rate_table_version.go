package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateTableVersion 佣金费率表版本（不可变，替换时写入新版本）
type RateTableVersion struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                        // 主键
	Level1Percent  Percent    `gorm:"type:decimal(5,2);not null;default:0" json:"level1_percent"`  // 一级费率（成交人本人）
	Level2Percent  Percent    `gorm:"type:decimal(5,2);not null;default:0" json:"level2_percent"`  // 二级费率
	Level3Percent  Percent    `gorm:"type:decimal(5,2);not null;default:0" json:"level3_percent"`  // 三级费率
	Level4Percent  Percent    `gorm:"type:decimal(5,2);not null;default:0" json:"level4_percent"`  // 四级费率
	Level5Percent  Percent    `gorm:"type:decimal(5,2);not null;default:0" json:"level5_percent"`  // 五级费率
	ReferralBonus  int64      `gorm:"not null;default:0" json:"referral_bonus"`                    // 推荐奖金（最小货币单位）
	MilestoneBonus int64      `gorm:"not null;default:0" json:"milestone_bonus"`                   // 里程碑奖金（最小货币单位，暂无触发规则）
	EffectiveFrom  time.Time  `gorm:"not null;index" json:"effective_from"`                        // 生效时间
	SupersededAt   *time.Time `gorm:"index" json:"superseded_at,omitempty"`                        // 被替换时间（NULL 表示当前生效）
	CreatedBy      uint       `gorm:"index" json:"created_by"`                                     // 提案管理员ID
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                     // 创建时间
}

// TableName 指定表名
func (RateTableVersion) TableName() string {
	return "rate_table_versions"
}

// LevelPercent 返回指定层级的费率，层级越界返回 0
func (v *RateTableVersion) LevelPercent(level int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	switch level {
	case 1:
		return v.Level1Percent.Decimal
	case 2:
		return v.Level2Percent.Decimal
	case 3:
		return v.Level3Percent.Decimal
	case 4:
		return v.Level4Percent.Decimal
	case 5:
		return v.Level5Percent.Decimal
	default:
		return decimal.Zero
	}
}
