package service

import (
	"strings"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/constants"
	"github.com/investorsdeaal/referral-engine/internal/logger"
	"github.com/investorsdeaal/referral-engine/internal/models"
	"github.com/investorsdeaal/referral-engine/internal/repository"

	"gorm.io/gorm"
)

// payoutTransitions 支付状态机：pending→approved/void，approved→paid/void，paid/void 终态
var payoutTransitions = map[string]map[string]bool{
	constants.LedgerStatusPending: {
		constants.LedgerStatusApproved: true,
		constants.LedgerStatusVoid:     true,
	},
	constants.LedgerStatusApproved: {
		constants.LedgerStatusPaid: true,
		constants.LedgerStatusVoid: true,
	},
	constants.LedgerStatusPaid: {},
	constants.LedgerStatusVoid: {},
}

// payoutStatusRank 正常流转路径上的顺序，用于幂等判断（目标态已达成或已越过）
var payoutStatusRank = map[string]int{
	constants.LedgerStatusPending:  0,
	constants.LedgerStatusApproved: 1,
	constants.LedgerStatusPaid:     2,
}

// PayoutService 佣金支付状态机
type PayoutService struct {
	repo repository.LedgerRepository
}

// NewPayoutService 创建支付状态机服务
func NewPayoutService(repo repository.LedgerRepository) *PayoutService {
	return &PayoutService{repo: repo}
}

// Approve 核准账目（pending → approved）
func (s *PayoutService) Approve(entryID uint) (*models.LedgerEntry, error) {
	return s.transition(entryID, constants.LedgerStatusApproved, func(entry *models.LedgerEntry, now time.Time) error {
		entry.ApprovedAt = &now
		return nil
	})
}

// MarkPaid 标记账目已支付（approved → paid），必须提供支付凭证号
func (s *PayoutService) MarkPaid(entryID uint, paymentRef string) (*models.LedgerEntry, error) {
	normalizedRef := strings.TrimSpace(paymentRef)
	if normalizedRef == "" {
		return nil, ErrPaymentRefRequired
	}
	return s.transition(entryID, constants.LedgerStatusPaid, func(entry *models.LedgerEntry, now time.Time) error {
		entry.PaidAt = &now
		entry.PaymentReference = normalizedRef
		return nil
	})
}

// Void 作废账目（pending/approved → void）
func (s *PayoutService) Void(entryID uint, reason string) (*models.LedgerEntry, error) {
	normalizedReason := strings.TrimSpace(reason)
	return s.transition(entryID, constants.LedgerStatusVoid, func(entry *models.LedgerEntry, now time.Time) error {
		entry.VoidedAt = &now
		entry.VoidReason = normalizedReason
		return nil
	})
}

// ReversePaid 冲销已支付账目：已支付账目不可作废，以负数金额新账目保留完整历史
func (s *PayoutService) ReversePaid(entryID uint, reason string) (*models.LedgerEntry, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	if entryID == 0 {
		return nil, ErrValidation
	}

	var reversal *models.LedgerEntry
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		entry, err := txRepo.GetEntryByIDForUpdate(entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrNotFound
		}
		if entry.Status != constants.LedgerStatusPaid {
			return ErrInvalidTransition
		}

		// 已存在冲销账目则幂等返回
		existing, err := txRepo.GetEntryByReversalOf(entry.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			reversal = existing
			return nil
		}

		reversal = &models.LedgerEntry{
			TransactionID: entry.TransactionID,
			AssociateID:   entry.AssociateID,
			EntryType:     constants.LedgerEntryTypeReversal,
			Level:         constants.BonusLevel,
			Amount:        -entry.Amount,
			Status:        constants.LedgerStatusPending,
			ReversalOf:    &entry.ID,
			VoidReason:    strings.TrimSpace(reason),
		}
		return txRepo.CreateEntry(reversal)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("ledger_entry_reversed",
		"entry_id", entryID,
		"reversal_id", reversal.ID,
		"amount", reversal.Amount,
	)
	return reversal, nil
}

// transition 在行锁保护下执行单条账目的状态流转，目标态已达成时幂等成功
func (s *PayoutService) transition(entryID uint, target string, mutate func(entry *models.LedgerEntry, now time.Time) error) (*models.LedgerEntry, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	if entryID == 0 {
		return nil, ErrValidation
	}

	var result *models.LedgerEntry
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		entry, err := txRepo.GetEntryByIDForUpdate(entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrNotFound
		}

		if entry.Status == target {
			result = entry
			return nil
		}
		if targetRank, ok := payoutStatusRank[target]; ok {
			if currentRank, ok := payoutStatusRank[entry.Status]; ok && currentRank > targetRank {
				// 已越过目标态（如对 paid 账目再次 approve），视为幂等成功
				result = entry
				return nil
			}
		}
		if !payoutTransitions[entry.Status][target] {
			return ErrInvalidTransition
		}

		now := time.Now()
		entry.Status = target
		if mutate != nil {
			if err := mutate(entry, now); err != nil {
				return err
			}
		}
		if err := txRepo.UpdateEntry(entry); err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("ledger_entry_transitioned",
		"entry_id", entryID,
		"status", result.Status,
	)
	return result, nil
}
