package repository

import "time"

// AssociateListFilter 查询经纪人列表的过滤条件
type AssociateListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	SponsorID   uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TransactionListFilter 查询成交流水列表的过滤条件
type TransactionListFilter struct {
	Page        int
	PageSize    int
	AssociateID uint
	TxnNo       string
	ClosedFrom  *time.Time
	ClosedTo    *time.Time
}

// LedgerListFilter 查询佣金账目列表的过滤条件
type LedgerListFilter struct {
	Page          int
	PageSize      int
	AssociateID   uint
	TransactionID uint
	EntryType     string
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// CommissionSkipListFilter 查询佣金跳过记录的过滤条件
type CommissionSkipListFilter struct {
	Page          int
	PageSize      int
	TransactionID uint
	AssociateID   uint
}

// RateVersionListFilter 查询费率版本历史的过滤条件
type RateVersionListFilter struct {
	Page     int
	PageSize int
}
