package service

import (
	"time"

	"github.com/investorsdeaal/referral-engine/internal/constants"
	"github.com/investorsdeaal/referral-engine/internal/logger"
	"github.com/investorsdeaal/referral-engine/internal/models"
	"github.com/investorsdeaal/referral-engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateService 佣金费率表业务服务
type RateService struct {
	repo repository.RateTableRepository
}

// NewRateService 创建费率服务
func NewRateService(repo repository.RateTableRepository) *RateService {
	return &RateService{repo: repo}
}

// ProposeRateInput 费率版本提案输入
type ProposeRateInput struct {
	Level1Percent  decimal.Decimal
	Level2Percent  decimal.Decimal
	Level3Percent  decimal.Decimal
	Level4Percent  decimal.Decimal
	Level5Percent  decimal.Decimal
	ReferralBonus  int64
	MilestoneBonus int64
	CreatedBy      uint
}

// ActiveVersion 获取当前生效的费率版本
func (s *RateService) ActiveVersion() (*models.RateTableVersion, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	version, err := s.repo.GetActive()
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, ErrNotFound
	}
	return version, nil
}

// VersionAt 获取指定时间点生效的费率版本
// 早于首个版本生效时间的成交回退到当前生效版本
func (s *RateService) VersionAt(at time.Time) (*models.RateTableVersion, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	version, err := s.repo.GetVersionAt(at)
	if err != nil {
		return nil, err
	}
	if version != nil {
		return version, nil
	}
	return s.ActiveVersion()
}

// GetVersion 按ID获取费率版本（审计用途）
func (s *RateService) GetVersion(id uint) (*models.RateTableVersion, error) {
	if s.repo == nil || id == 0 {
		return nil, ErrNotFound
	}
	version, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, ErrNotFound
	}
	return version, nil
}

// History 分页查询费率版本历史
func (s *RateService) History(filter repository.RateVersionListFilter) ([]models.RateTableVersion, int64, error) {
	if s.repo == nil {
		return nil, 0, ErrNotFound
	}
	return s.repo.List(filter)
}

// Propose 提案新费率版本：校验后原子替换当前生效版本
func (s *RateService) Propose(input ProposeRateInput) (*models.RateTableVersion, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	percents := []decimal.Decimal{
		input.Level1Percent,
		input.Level2Percent,
		input.Level3Percent,
		input.Level4Percent,
		input.Level5Percent,
	}
	hundred := decimal.NewFromInt(100)
	for _, percent := range percents {
		if percent.IsNegative() || percent.GreaterThan(hundred) {
			return nil, ErrInvalidRate
		}
	}
	if input.ReferralBonus < 0 || input.MilestoneBonus < 0 {
		return nil, ErrInvalidRate
	}

	now := time.Now()
	version := &models.RateTableVersion{
		Level1Percent:  models.NewPercentFromDecimal(input.Level1Percent),
		Level2Percent:  models.NewPercentFromDecimal(input.Level2Percent),
		Level3Percent:  models.NewPercentFromDecimal(input.Level3Percent),
		Level4Percent:  models.NewPercentFromDecimal(input.Level4Percent),
		Level5Percent:  models.NewPercentFromDecimal(input.Level5Percent),
		ReferralBonus:  input.ReferralBonus,
		MilestoneBonus: input.MilestoneBonus,
		EffectiveFrom:  now,
		CreatedBy:      input.CreatedBy,
	}

	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		active, err := txRepo.GetActiveForUpdate()
		if err != nil {
			return err
		}
		if active != nil {
			if err := txRepo.Supersede(active.ID, now); err != nil {
				return err
			}
		}
		return txRepo.Create(version)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("rate_version_proposed",
		"version_id", version.ID,
		"created_by", input.CreatedBy,
		"referral_bonus", input.ReferralBonus,
		"milestone_bonus", input.MilestoneBonus,
	)
	return version, nil
}

// EnsureDefaultVersion 启动时无任何版本则写入默认费率（种子）
func (s *RateService) EnsureDefaultVersion() error {
	if s.repo == nil {
		return ErrNotFound
	}
	active, err := s.repo.GetActive()
	if err != nil {
		return err
	}
	if active != nil {
		return nil
	}

	version, err := defaultRateVersion()
	if err != nil {
		return err
	}
	if err := s.repo.Create(version); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	logger.Infow("rate_version_seeded", "version_id", version.ID)
	return nil
}

func defaultRateVersion() (*models.RateTableVersion, error) {
	percents := make([]models.Percent, 0, constants.CommissionMaxLevel)
	for _, raw := range []string{
		constants.DefaultRateLevel1Percent,
		constants.DefaultRateLevel2Percent,
		constants.DefaultRateLevel3Percent,
		constants.DefaultRateLevel4Percent,
		constants.DefaultRateLevel5Percent,
	} {
		percent, err := models.NewPercentFromString(raw)
		if err != nil {
			return nil, err
		}
		percents = append(percents, percent)
	}
	return &models.RateTableVersion{
		Level1Percent:  percents[0],
		Level2Percent:  percents[1],
		Level3Percent:  percents[2],
		Level4Percent:  percents[3],
		Level5Percent:  percents[4],
		ReferralBonus:  constants.DefaultReferralBonus,
		MilestoneBonus: constants.DefaultMilestoneBonus,
		EffectiveFrom:  time.Now(),
	}, nil
}
