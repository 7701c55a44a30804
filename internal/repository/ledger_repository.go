package repository

import (
	"errors"
	"strings"

	"github.com/investorsdeaal/referral-engine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository 成交流水与佣金账目数据访问接口
type LedgerRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) LedgerRepository

	GetTransactionByID(id uint) (*models.Transaction, error)
	GetTransactionByTxnNo(txnNo string) (*models.Transaction, error)
	CreateTransaction(txn *models.Transaction) error
	ListTransactions(filter TransactionListFilter) ([]models.Transaction, int64, error)

	GetEntryByID(id uint) (*models.LedgerEntry, error)
	GetEntryByIDForUpdate(id uint) (*models.LedgerEntry, error)
	GetEntryByBonusKey(bonusKey string) (*models.LedgerEntry, error)
	GetEntryByReversalOf(entryID uint) (*models.LedgerEntry, error)
	CreateEntry(entry *models.LedgerEntry) error
	CreateEntries(entries []*models.LedgerEntry) error
	UpdateEntry(entry *models.LedgerEntry) error
	CountEntriesByTransaction(transactionID uint) (int64, error)
	ListEntriesByTransaction(transactionID uint) ([]models.LedgerEntry, error)
	ListEntries(filter LedgerListFilter) ([]models.LedgerEntry, int64, error)
	SumEntriesByAssociate(associateID uint, statuses []string) (int64, error)

	CreateSkip(skip *models.CommissionSkip) error
	CreateSkips(skips []*models.CommissionSkip) error
	CountSkipsByTransaction(transactionID uint) (int64, error)
	ListSkips(filter CommissionSkipListFilter) ([]models.CommissionSkip, int64, error)
}

// GormLedgerRepository GORM 账本仓储
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建账本仓储
func NewLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLedgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	if tx == nil {
		return r
	}
	return &GormLedgerRepository{db: tx}
}

// Transaction 执行事务
func (r *GormLedgerRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetTransactionByID 按ID获取成交流水
func (r *GormLedgerRepository) GetTransactionByID(id uint) (*models.Transaction, error) {
	if id == 0 {
		return nil, nil
	}
	var txn models.Transaction
	if err := r.db.First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// GetTransactionByTxnNo 按成交单号获取成交流水
func (r *GormLedgerRepository) GetTransactionByTxnNo(txnNo string) (*models.Transaction, error) {
	normalized := strings.TrimSpace(txnNo)
	if normalized == "" {
		return nil, nil
	}
	var txn models.Transaction
	if err := r.db.Where("txn_no = ?", normalized).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// CreateTransaction 写入成交流水
func (r *GormLedgerRepository) CreateTransaction(txn *models.Transaction) error {
	return r.db.Create(txn).Error
}

// ListTransactions 分页查询成交流水
func (r *GormLedgerRepository) ListTransactions(filter TransactionListFilter) ([]models.Transaction, int64, error) {
	query := r.db.Model(&models.Transaction{})

	if filter.AssociateID != 0 {
		query = query.Where("associate_id = ?", filter.AssociateID)
	}
	if txnNo := strings.TrimSpace(filter.TxnNo); txnNo != "" {
		query = query.Where("txn_no = ?", txnNo)
	}
	if filter.ClosedFrom != nil {
		query = query.Where("closed_at >= ?", filter.ClosedFrom)
	}
	if filter.ClosedTo != nil {
		query = query.Where("closed_at <= ?", filter.ClosedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	txns := make([]models.Transaction, 0)
	err := applyPagination(query.Order("closed_at DESC"), filter.Page, filter.PageSize).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// GetEntryByID 按ID获取账目
func (r *GormLedgerRepository) GetEntryByID(id uint) (*models.LedgerEntry, error) {
	if id == 0 {
		return nil, nil
	}
	var entry models.LedgerEntry
	if err := r.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetEntryByIDForUpdate 按ID获取账目并加行锁（状态流转时使用）
func (r *GormLedgerRepository) GetEntryByIDForUpdate(id uint) (*models.LedgerEntry, error) {
	if id == 0 {
		return nil, nil
	}
	var entry models.LedgerEntry
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetEntryByBonusKey 按奖金幂等键获取账目
func (r *GormLedgerRepository) GetEntryByBonusKey(bonusKey string) (*models.LedgerEntry, error) {
	normalized := strings.TrimSpace(bonusKey)
	if normalized == "" {
		return nil, nil
	}
	var entry models.LedgerEntry
	if err := r.db.Where("bonus_key = ?", normalized).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetEntryByReversalOf 查询冲销某账目的冲销账目
func (r *GormLedgerRepository) GetEntryByReversalOf(entryID uint) (*models.LedgerEntry, error) {
	if entryID == 0 {
		return nil, nil
	}
	var entry models.LedgerEntry
	if err := r.db.Where("reversal_of = ?", entryID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// CreateEntry 写入单条账目
func (r *GormLedgerRepository) CreateEntry(entry *models.LedgerEntry) error {
	return r.db.Create(entry).Error
}

// CreateEntries 批量写入账目
func (r *GormLedgerRepository) CreateEntries(entries []*models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.Create(entries).Error
}

// UpdateEntry 更新账目
func (r *GormLedgerRepository) UpdateEntry(entry *models.LedgerEntry) error {
	return r.db.Save(entry).Error
}

// CountEntriesByTransaction 统计某笔成交已生成的账目数
func (r *GormLedgerRepository) CountEntriesByTransaction(transactionID uint) (int64, error) {
	if transactionID == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.LedgerEntry{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListEntriesByTransaction 查询某笔成交的全部账目
func (r *GormLedgerRepository) ListEntriesByTransaction(transactionID uint) ([]models.LedgerEntry, error) {
	entries := make([]models.LedgerEntry, 0)
	if transactionID == 0 {
		return entries, nil
	}
	err := r.db.Where("transaction_id = ?", transactionID).
		Order("level ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListEntries 分页查询账目（新账目在前）
func (r *GormLedgerRepository) ListEntries(filter LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	query := r.db.Model(&models.LedgerEntry{})

	if filter.AssociateID != 0 {
		query = query.Where("associate_id = ?", filter.AssociateID)
	}
	if filter.TransactionID != 0 {
		query = query.Where("transaction_id = ?", filter.TransactionID)
	}
	if entryType := strings.TrimSpace(filter.EntryType); entryType != "" {
		query = query.Where("entry_type = ?", entryType)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]models.LedgerEntry, 0)
	err := applyPagination(query.Order("created_at DESC").Order("id DESC"), filter.Page, filter.PageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SumEntriesByAssociate 按状态汇总经纪人账目金额（最小货币单位）
func (r *GormLedgerRepository) SumEntriesByAssociate(associateID uint, statuses []string) (int64, error) {
	if associateID == 0 {
		return 0, nil
	}
	query := r.db.Model(&models.LedgerEntry{}).
		Where("associate_id = ?", associateID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var total int64
	err := query.Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// CreateSkip 写入佣金跳过记录
func (r *GormLedgerRepository) CreateSkip(skip *models.CommissionSkip) error {
	return r.db.Create(skip).Error
}

// CreateSkips 批量写入佣金跳过记录
func (r *GormLedgerRepository) CreateSkips(skips []*models.CommissionSkip) error {
	if len(skips) == 0 {
		return nil
	}
	return r.db.Create(skips).Error
}

// CountSkipsByTransaction 统计某笔成交的跳过记录数
func (r *GormLedgerRepository) CountSkipsByTransaction(transactionID uint) (int64, error) {
	if transactionID == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.CommissionSkip{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListSkips 分页查询佣金跳过记录
func (r *GormLedgerRepository) ListSkips(filter CommissionSkipListFilter) ([]models.CommissionSkip, int64, error) {
	query := r.db.Model(&models.CommissionSkip{})

	if filter.TransactionID != 0 {
		query = query.Where("transaction_id = ?", filter.TransactionID)
	}
	if filter.AssociateID != 0 {
		query = query.Where("associate_id = ?", filter.AssociateID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	skips := make([]models.CommissionSkip, 0)
	err := applyPagination(query.Order("created_at DESC"), filter.Page, filter.PageSize).
		Find(&skips).Error
	if err != nil {
		return nil, 0, err
	}
	return skips, total, nil
}
