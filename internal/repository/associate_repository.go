package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/models"

	"gorm.io/gorm"
)

// AssociateRepository 经纪人与推荐关系数据访问接口
type AssociateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AssociateRepository

	GetByID(id uint) (*models.Associate, error)
	GetByEmail(email string) (*models.Associate, error)
	GetByReferralCode(code string) (*models.Associate, error)
	Create(associate *models.Associate) error
	Update(associate *models.Associate) error
	UpdateStatus(id uint, status string, activatedAt *time.Time) error
	List(filter AssociateListFilter) ([]models.Associate, int64, error)
	ListByIDs(ids []uint) ([]models.Associate, error)
	CountByStatus(status string) (int64, error)

	GetEdgeByChildID(childID uint) (*models.ReferralEdge, error)
	CreateEdge(edge *models.ReferralEdge) error
	ListEdgesBySponsors(sponsorIDs []uint) ([]models.ReferralEdge, error)
	CountChildren(sponsorID uint) (int64, error)
}

// GormAssociateRepository GORM 经纪人仓储
type GormAssociateRepository struct {
	db *gorm.DB
}

// NewAssociateRepository 创建经纪人仓储
func NewAssociateRepository(db *gorm.DB) *GormAssociateRepository {
	return &GormAssociateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAssociateRepository) WithTx(tx *gorm.DB) AssociateRepository {
	if tx == nil {
		return r
	}
	return &GormAssociateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAssociateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取经纪人
func (r *GormAssociateRepository) GetByID(id uint) (*models.Associate, error) {
	if id == 0 {
		return nil, nil
	}
	var associate models.Associate
	if err := r.db.First(&associate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &associate, nil
}

// GetByEmail 按邮箱获取经纪人
func (r *GormAssociateRepository) GetByEmail(email string) (*models.Associate, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}
	var associate models.Associate
	if err := r.db.Where("email = ?", normalized).First(&associate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &associate, nil
}

// GetByReferralCode 按推荐码获取经纪人
func (r *GormAssociateRepository) GetByReferralCode(code string) (*models.Associate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var associate models.Associate
	if err := r.db.Where("referral_code = ?", normalized).First(&associate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &associate, nil
}

// Create 创建经纪人
func (r *GormAssociateRepository) Create(associate *models.Associate) error {
	return r.db.Create(associate).Error
}

// Update 更新经纪人
func (r *GormAssociateRepository) Update(associate *models.Associate) error {
	return r.db.Save(associate).Error
}

// UpdateStatus 更新经纪人状态
func (r *GormAssociateRepository) UpdateStatus(id uint, status string, activatedAt *time.Time) error {
	if id == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"status":     strings.TrimSpace(status),
		"updated_at": time.Now(),
	}
	if activatedAt != nil {
		updates["activated_at"] = activatedAt
	}
	return r.db.Model(&models.Associate{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// List 分页查询经纪人列表
func (r *GormAssociateRepository) List(filter AssociateListFilter) ([]models.Associate, int64, error) {
	query := r.db.Model(&models.Associate{})

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildKeywordLikeCondition(r.db, []string{"name", "email", "referral_code"})
		if condition != "" {
			like := "%" + keyword + "%"
			query = query.Where(condition, repeatLikeArgs(like, argCount)...)
		}
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.SponsorID != 0 {
		query = query.Where("id IN (?)", r.db.Model(&models.ReferralEdge{}).
			Select("child_id").
			Where("sponsor_id = ?", filter.SponsorID))
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

	associates := make([]models.Associate, 0)
	err := applyPagination(query.Order("created_at DESC"), filter.Page, filter.PageSize).
		Find(&associates).Error
	if err != nil {
		return nil, 0, err
	}
	return associates, total, nil
}

// ListByIDs 批量按ID查询经纪人
func (r *GormAssociateRepository) ListByIDs(ids []uint) ([]models.Associate, error) {
	associates := make([]models.Associate, 0)
	if len(ids) == 0 {
		return associates, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&associates).Error; err != nil {
		return nil, err
	}
	return associates, nil
}

// CountByStatus 按状态统计经纪人数量
func (r *GormAssociateRepository) CountByStatus(status string) (int64, error) {
	query := r.db.Model(&models.Associate{})
	if normalized := strings.TrimSpace(status); normalized != "" {
		query = query.Where("status = ?", normalized)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetEdgeByChildID 获取经纪人的推荐关系边
func (r *GormAssociateRepository) GetEdgeByChildID(childID uint) (*models.ReferralEdge, error) {
	if childID == 0 {
		return nil, nil
	}
	var edge models.ReferralEdge
	if err := r.db.Where("child_id = ?", childID).First(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &edge, nil
}

// CreateEdge 创建推荐关系边
func (r *GormAssociateRepository) CreateEdge(edge *models.ReferralEdge) error {
	return r.db.Create(edge).Error
}

// ListEdgesBySponsors 批量查询多个推荐人的直接下级边
func (r *GormAssociateRepository) ListEdgesBySponsors(sponsorIDs []uint) ([]models.ReferralEdge, error) {
	edges := make([]models.ReferralEdge, 0)
	if len(sponsorIDs) == 0 {
		return edges, nil
	}
	err := r.db.Where("sponsor_id IN ?", sponsorIDs).
		Order("created_at ASC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// CountChildren 统计直接下级数量
func (r *GormAssociateRepository) CountChildren(sponsorID uint) (int64, error) {
	if sponsorID == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.ReferralEdge{}).
		Where("sponsor_id = ?", sponsorID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
