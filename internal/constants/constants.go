package constants

// 经纪人状态常量
const (
	AssociateStatusPending  = "pending"
	AssociateStatusActive   = "active"
	AssociateStatusInactive = "inactive"
)

// 佣金账目状态常量
const (
	LedgerStatusPending  = "pending"
	LedgerStatusApproved = "approved"
	LedgerStatusPaid     = "paid"
	LedgerStatusVoid     = "void"
)

// 佣金账目类型常量
const (
	LedgerEntryTypeCommission    = "commission"
	LedgerEntryTypeReferralBonus = "referral_bonus"
	LedgerEntryTypeReversal      = "reversal"
)

// 佣金层级常量
const (
	// CommissionMaxLevel 佣金链最大层级（第 1 级为成交人本人）
	CommissionMaxLevel = 5
	// BonusLevel 固定奖金账目使用的层级值
	BonusLevel = 0
)

// 跳过原因常量
const (
	SkipReasonInactiveBeneficiary = "inactive_beneficiary"
	SkipReasonZeroAmount          = "zero_amount"
)

// 队列常量
const (
	QueueCommission        = "commission"
	TaskTransactionClosed  = "commission:transaction_closed"
	TaskAssociateActivated = "commission:associate_activated"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "ce"
)

// 默认费率常量（种子数据，百分比与最小货币单位金额）
const (
	DefaultRateLevel1Percent = "2"
	DefaultRateLevel2Percent = "1"
	DefaultRateLevel3Percent = "0.5"
	DefaultRateLevel4Percent = "0.25"
	DefaultRateLevel5Percent = "0.15"
	DefaultReferralBonus     = int64(500000)
	DefaultMilestoneBonus    = int64(1000000)
)

// 推荐码常量
const (
	ReferralCodeLength = 8
)
