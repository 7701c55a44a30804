package repository

import (
	"errors"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateTableRepository 费率版本数据访问接口
type RateTableRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) RateTableRepository

	GetActive() (*models.RateTableVersion, error)
	GetActiveForUpdate() (*models.RateTableVersion, error)
	GetByID(id uint) (*models.RateTableVersion, error)
	GetVersionAt(at time.Time) (*models.RateTableVersion, error)
	Create(version *models.RateTableVersion) error
	Supersede(id uint, at time.Time) error
	List(filter RateVersionListFilter) ([]models.RateTableVersion, int64, error)
}

// GormRateTableRepository GORM 费率版本仓储
type GormRateTableRepository struct {
	db *gorm.DB
}

// NewRateTableRepository 创建费率版本仓储
func NewRateTableRepository(db *gorm.DB) *GormRateTableRepository {
	return &GormRateTableRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRateTableRepository) WithTx(tx *gorm.DB) RateTableRepository {
	if tx == nil {
		return r
	}
	return &GormRateTableRepository{db: tx}
}

// Transaction 执行事务
func (r *GormRateTableRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetActive 获取当前生效版本
func (r *GormRateTableRepository) GetActive() (*models.RateTableVersion, error) {
	var version models.RateTableVersion
	err := r.db.Where("superseded_at IS NULL").
		Order("effective_from DESC").
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

// GetActiveForUpdate 获取当前生效版本并加行锁（版本替换时使用）
func (r *GormRateTableRepository) GetActiveForUpdate() (*models.RateTableVersion, error) {
	var version models.RateTableVersion
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("superseded_at IS NULL").
		Order("effective_from DESC").
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

// GetByID 按ID获取费率版本
func (r *GormRateTableRepository) GetByID(id uint) (*models.RateTableVersion, error) {
	if id == 0 {
		return nil, nil
	}
	var version models.RateTableVersion
	if err := r.db.First(&version, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

// GetVersionAt 获取指定时间点生效的费率版本
func (r *GormRateTableRepository) GetVersionAt(at time.Time) (*models.RateTableVersion, error) {
	var version models.RateTableVersion
	err := r.db.Where("effective_from <= ?", at).
		Where("superseded_at IS NULL OR superseded_at > ?", at).
		Order("effective_from DESC").
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

// Create 写入新费率版本
func (r *GormRateTableRepository) Create(version *models.RateTableVersion) error {
	return r.db.Create(version).Error
}

// Supersede 标记版本被替换
func (r *GormRateTableRepository) Supersede(id uint, at time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.RateTableVersion{}).
		Where("id = ?", id).
		Update("superseded_at", at).Error
}

// List 分页查询费率版本历史（新版本在前）
func (r *GormRateTableRepository) List(filter RateVersionListFilter) ([]models.RateTableVersion, int64, error) {
	query := r.db.Model(&models.RateTableVersion{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	versions := make([]models.RateTableVersion, 0)
	err := applyPagination(query.Order("effective_from DESC"), filter.Page, filter.PageSize).
		Find(&versions).Error
	if err != nil {
		return nil, 0, err
	}
	return versions, total, nil
}
