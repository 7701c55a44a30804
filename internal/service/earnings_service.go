package service

import (
	"github.com/investorsdeaal/referral-engine/internal/constants"
	"github.com/investorsdeaal/referral-engine/internal/models"
	"github.com/investorsdeaal/referral-engine/internal/repository"
)

// EarningsService 收益汇总服务（每次调用实时聚合，不维护派生状态）
type EarningsService struct {
	repo          repository.LedgerRepository
	associateRepo repository.AssociateRepository
}

// NewEarningsService 创建收益汇总服务
func NewEarningsService(repo repository.LedgerRepository, associateRepo repository.AssociateRepository) *EarningsService {
	return &EarningsService{
		repo:          repo,
		associateRepo: associateRepo,
	}
}

// EarningsSummary 经纪人收益汇总（最小货币单位）
type EarningsSummary struct {
	AssociateID uint  `json:"associate_id"`
	TotalEarned int64 `json:"total_earned"`
	Paid        int64 `json:"paid"`
	Pending     int64 `json:"pending"`
}

// Summarize 汇总经纪人收益：总收益（非作废）、已支付、待支付（pending+approved）
func (s *EarningsService) Summarize(associateID uint) (*EarningsSummary, error) {
	if s.repo == nil || s.associateRepo == nil {
		return nil, ErrNotFound
	}
	if associateID == 0 {
		return nil, ErrValidation
	}
	associate, err := s.associateRepo.GetByID(associateID)
	if err != nil {
		return nil, err
	}
	if associate == nil {
		return nil, ErrNotFound
	}

	totalEarned, err := s.repo.SumEntriesByAssociate(associateID, []string{
		constants.LedgerStatusPending,
		constants.LedgerStatusApproved,
		constants.LedgerStatusPaid,
	})
	if err != nil {
		return nil, err
	}
	paid, err := s.repo.SumEntriesByAssociate(associateID, []string{
		constants.LedgerStatusPaid,
	})
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.SumEntriesByAssociate(associateID, []string{
		constants.LedgerStatusPending,
		constants.LedgerStatusApproved,
	})
	if err != nil {
		return nil, err
	}

	return &EarningsSummary{
		AssociateID: associateID,
		TotalEarned: totalEarned,
		Paid:        paid,
		Pending:     pending,
	}, nil
}

// ListEntries 查询经纪人账目明细（新账目在前）
func (s *EarningsService) ListEntries(associateID uint, filter repository.LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	if s.repo == nil {
		return nil, 0, ErrNotFound
	}
	if associateID == 0 {
		return nil, 0, ErrValidation
	}
	filter.AssociateID = associateID
	return s.repo.ListEntries(filter)
}
