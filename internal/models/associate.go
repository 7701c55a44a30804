package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/investorsdeaal/referral-engine/internal/constants"
)

// Associate 经纪人档案表
type Associate struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                     // 主键
	Name         string         `gorm:"type:varchar(128);not null" json:"name"`                   // 姓名
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`                        // 邮箱
	Phone        string         `gorm:"type:varchar(32);default:''" json:"phone"`                 // 联系电话
	ReferralCode string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"referral_code"` // 推荐码
	Status       string         `gorm:"type:varchar(20);not null;index" json:"status"`            // 状态（pending/active/inactive）
	PasswordHash string         `gorm:"not null" json:"-"`                                        // 密码哈希（不返回给前端）
	TokenVersion uint64         `gorm:"not null;default:0" json:"-"`                              // Token 版本（用于全量失效）
	JoinedAt     time.Time      `gorm:"index" json:"joined_at"`                                   // 加入时间
	ActivatedAt  *time.Time     `gorm:"index" json:"activated_at,omitempty"`                      // 激活时间
	LastLoginAt  *time.Time     `json:"last_login_at"`                                            // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (Associate) TableName() string {
	return "associates"
}

// IsActive 经纪人是否处于激活状态
func (a *Associate) IsActive() bool {
	return a != nil && a.Status == constants.AssociateStatusActive
}
