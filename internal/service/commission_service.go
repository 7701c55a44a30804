package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/constants"
	"github.com/investorsdeaal/referral-engine/internal/logger"
	"github.com/investorsdeaal/referral-engine/internal/models"
	"github.com/investorsdeaal/referral-engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 佣金计算器：成交与激活事件的唯一入口
type CommissionService struct {
	ledgerRepo      repository.LedgerRepository
	associateRepo   repository.AssociateRepository
	referralService *ReferralService
	rateService     *RateService
}

// NewCommissionService 创建佣金计算服务
func NewCommissionService(
	ledgerRepo repository.LedgerRepository,
	associateRepo repository.AssociateRepository,
	referralService *ReferralService,
	rateService *RateService,
) *CommissionService {
	return &CommissionService{
		ledgerRepo:      ledgerRepo,
		associateRepo:   associateRepo,
		referralService: referralService,
		rateService:     rateService,
	}
}

// TransactionClosedInput 成交事件输入
type TransactionClosedInput struct {
	TxnNo       string
	PropertyRef string
	AssociateID uint
	Amount      int64
	ClosedAt    time.Time
}

// AssociateActivatedInput 经纪人激活事件输入
type AssociateActivatedInput struct {
	AssociateID uint
	ActivatedAt time.Time
}

// CommissionResult 一次成交计算的产出
type CommissionResult struct {
	Transaction *models.Transaction     `json:"transaction"`
	Entries     []models.LedgerEntry    `json:"entries"`
	Skips       []models.CommissionSkip `json:"skips"`
	Replayed    bool                    `json:"replayed"`
}

// HandleTransactionClosed 处理成交事件：沿推荐链生成至多 5 级佣金账目
// 幂等：同一成交单号重放不产生新账目
func (s *CommissionService) HandleTransactionClosed(input TransactionClosedInput) (*CommissionResult, error) {
	if s.ledgerRepo == nil || s.associateRepo == nil || s.referralService == nil || s.rateService == nil {
		return nil, ErrNotFound
	}
	txnNo := strings.TrimSpace(input.TxnNo)
	if txnNo == "" || input.AssociateID == 0 || input.Amount <= 0 || input.ClosedAt.IsZero() {
		return nil, ErrInvalidTransaction
	}

	initiator, err := s.associateRepo.GetByID(input.AssociateID)
	if err != nil {
		return nil, err
	}
	if initiator == nil {
		return nil, ErrInvalidTransaction
	}

	// 重放检测：成交已入库且已有账目或跳过记录时直接返回
	if existing, err := s.ledgerRepo.GetTransactionByTxnNo(txnNo); err != nil {
		return nil, err
	} else if existing != nil {
		return s.replayResult(existing)
	}

	version, err := s.rateService.VersionAt(input.ClosedAt)
	if err != nil {
		return nil, err
	}

	// 第 1 级为成交人本人，第 2..5 级为其祖先链
	beneficiaries := []models.Associate{*initiator}
	ancestors, err := s.referralService.Ancestors(initiator.ID, constants.CommissionMaxLevel-1)
	if err != nil {
		return nil, err
	}
	beneficiaries = append(beneficiaries, ancestors...)

	txn := &models.Transaction{
		TxnNo:       txnNo,
		PropertyRef: strings.TrimSpace(input.PropertyRef),
		AssociateID: initiator.ID,
		Amount:      input.Amount,
		ClosedAt:    input.ClosedAt,
	}

	entries := make([]*models.LedgerEntry, 0, len(beneficiaries))
	skips := make([]*models.CommissionSkip, 0)
	for i, beneficiary := range beneficiaries {
		level := i + 1
		percent := version.LevelPercent(level)
		amount := commissionAmount(input.Amount, percent)

		if !beneficiary.IsActive() {
			skips = append(skips, &models.CommissionSkip{
				AssociateID: beneficiary.ID,
				Level:       level,
				Reason:      constants.SkipReasonInactiveBeneficiary,
			})
			continue
		}
		if amount == 0 {
			skips = append(skips, &models.CommissionSkip{
				AssociateID: beneficiary.ID,
				Level:       level,
				Reason:      constants.SkipReasonZeroAmount,
			})
			continue
		}
		entries = append(entries, &models.LedgerEntry{
			AssociateID: beneficiary.ID,
			EntryType:   constants.LedgerEntryTypeCommission,
			Level:       level,
			RatePercent: models.NewPercentFromDecimal(percent),
			Amount:      amount,
			Status:      constants.LedgerStatusPending,
		})
	}

	err = s.ledgerRepo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.ledgerRepo.WithTx(tx)
		if err := txRepo.CreateTransaction(txn); err != nil {
			return err
		}
		for _, entry := range entries {
			entry.TransactionID = &txn.ID
		}
		if err := txRepo.CreateEntries(entries); err != nil {
			return err
		}
		for _, skip := range skips {
			skip.TransactionID = txn.ID
		}
		return txRepo.CreateSkips(skips)
	})
	if err != nil {
		// 并发重放：唯一约束兜底，已有结果视为成功
		if isUniqueViolation(err) {
			logger.Infow("transaction_closed_replay_detected",
				"txn_no", txnNo,
				"error", err,
			)
			existing, getErr := s.ledgerRepo.GetTransactionByTxnNo(txnNo)
			if getErr != nil {
				return nil, getErr
			}
			if existing != nil {
				return s.replayResult(existing)
			}
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}

	logger.Infow("transaction_closed_processed",
		"txn_no", txnNo,
		"transaction_id", txn.ID,
		"initiator_id", initiator.ID,
		"amount", input.Amount,
		"rate_version_id", version.ID,
		"entries", len(entries),
		"skips", len(skips),
	)

	result := &CommissionResult{Transaction: txn}
	for _, entry := range entries {
		result.Entries = append(result.Entries, *entry)
	}
	for _, skip := range skips {
		result.Skips = append(result.Skips, *skip)
	}
	return result, nil
}

// HandleAssociateActivated 处理激活事件：向直接推荐人发放固定推荐奖金
// 幂等：同一经纪人的激活奖金只发放一次（bonus_key 唯一）
func (s *CommissionService) HandleAssociateActivated(input AssociateActivatedInput) (*models.LedgerEntry, error) {
	if s.ledgerRepo == nil || s.associateRepo == nil || s.rateService == nil {
		return nil, ErrNotFound
	}
	if input.AssociateID == 0 {
		return nil, ErrValidation
	}

	associate, err := s.associateRepo.GetByID(input.AssociateID)
	if err != nil {
		return nil, err
	}
	if associate == nil {
		return nil, ErrNotFound
	}

	edge, err := s.associateRepo.GetEdgeByChildID(associate.ID)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		// 根经纪人没有推荐人，无奖金可发
		return nil, nil
	}

	bonusKey := referralBonusKey(associate.ID)
	if existing, err := s.ledgerRepo.GetEntryByBonusKey(bonusKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	version, err := s.rateService.ActiveVersion()
	if err != nil {
		return nil, err
	}
	if version.ReferralBonus <= 0 {
		return nil, nil
	}

	sponsor, err := s.associateRepo.GetByID(edge.SponsorID)
	if err != nil {
		return nil, err
	}
	if sponsor == nil || !sponsor.IsActive() {
		skip := &models.CommissionSkip{
			AssociateID: edge.SponsorID,
			Level:       constants.BonusLevel,
			Reason:      constants.SkipReasonInactiveBeneficiary,
		}
		if err := s.ledgerRepo.CreateSkip(skip); err != nil {
			return nil, err
		}
		logger.Infow("referral_bonus_skipped",
			"associate_id", associate.ID,
			"sponsor_id", edge.SponsorID,
		)
		return nil, nil
	}

	entry := &models.LedgerEntry{
		AssociateID: sponsor.ID,
		EntryType:   constants.LedgerEntryTypeReferralBonus,
		Level:       constants.BonusLevel,
		Amount:      version.ReferralBonus,
		Status:      constants.LedgerStatusPending,
		BonusKey:    &bonusKey,
	}
	if err := s.ledgerRepo.CreateEntry(entry); err != nil {
		if isUniqueViolation(err) {
			return s.ledgerRepo.GetEntryByBonusKey(bonusKey)
		}
		return nil, err
	}

	logger.Infow("referral_bonus_granted",
		"associate_id", associate.ID,
		"sponsor_id", sponsor.ID,
		"amount", version.ReferralBonus,
	)
	return entry, nil
}

func (s *CommissionService) replayResult(txn *models.Transaction) (*CommissionResult, error) {
	entries, err := s.ledgerRepo.ListEntriesByTransaction(txn.ID)
	if err != nil {
		return nil, err
	}
	return &CommissionResult{
		Transaction: txn,
		Entries:     entries,
		Replayed:    true,
	}, nil
}

// commissionAmount 按百分比费率计算佣金金额（最小货币单位，四舍五入）
func commissionAmount(amount int64, percent decimal.Decimal) int64 {
	if amount <= 0 || percent.IsZero() {
		return 0
	}
	return decimal.NewFromInt(amount).
		Mul(percent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

func referralBonusKey(associateID uint) string {
	return fmt.Sprintf("referral-bonus:%d", associateID)
}
