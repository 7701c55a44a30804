package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/constants"
	"github.com/investorsdeaal/referral-engine/internal/models"
	"github.com/investorsdeaal/referral-engine/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupCommissionServiceTest(t *testing.T) (*CommissionService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:commission_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Associate{},
		&models.ReferralEdge{},
		&models.RateTableVersion{},
		&models.Transaction{},
		&models.LedgerEntry{},
		&models.CommissionSkip{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	associateRepo := repository.NewAssociateRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	rateService := NewRateService(repository.NewRateTableRepository(db))
	if err := rateService.EnsureDefaultVersion(); err != nil {
		t.Fatalf("ensure default rate version failed: %v", err)
	}
	referralService := NewReferralService(associateRepo, nil, 0)
	return NewCommissionService(ledgerRepo, associateRepo, referralService, rateService), db
}

// createCommissionChain 构建 size 层推荐链，返回顺序为 [顶层 ... 底层成交人]
func createCommissionChain(t *testing.T, db *gorm.DB, size int) []*models.Associate {
	t.Helper()
	now := time.Now()
	chain := make([]*models.Associate, 0, size)
	for i := 0; i < size; i++ {
		associate := &models.Associate{
			Name:         fmt.Sprintf("member%d", i),
			Email:        fmt.Sprintf("member%d@example.com", i),
			ReferralCode: fmt.Sprintf("CODE%04d", i),
			Status:       constants.AssociateStatusActive,
			PasswordHash: "hash",
			JoinedAt:     now,
			ActivatedAt:  &now,
		}
		if err := db.Create(associate).Error; err != nil {
			t.Fatalf("create chain member %d failed: %v", i, err)
		}
		if i > 0 {
			edge := &models.ReferralEdge{ChildID: associate.ID, SponsorID: chain[i-1].ID}
			if err := db.Create(edge).Error; err != nil {
				t.Fatalf("create chain edge %d failed: %v", i, err)
			}
		}
		chain = append(chain, associate)
	}
	return chain
}

func TestHandleTransactionClosedFiveLevels(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	chain := createCommissionChain(t, db, 5)
	closer := chain[4]

	result, err := svc.HandleTransactionClosed(TransactionClosedInput{
		TxnNo:       "TXN-5LVL",
		PropertyRef: "PROP-001",
		AssociateID: closer.ID,
		Amount:      1000000,
		ClosedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("handle transaction failed: %v", err)
	}
	if result.Replayed {
		t.Fatalf("first run should not be a replay")
	}
	if result.Transaction == nil || result.Transaction.ID == 0 {
		t.Fatalf("expected persisted transaction, got=%+v", result.Transaction)
	}
	if len(result.Entries) != 5 {
		t.Fatalf("entries want 5, got=%d", len(result.Entries))
	}
	if len(result.Skips) != 0 {
		t.Fatalf("skips want 0, got=%d", len(result.Skips))
	}

	// 默认费率 2/1/0.5/0.25/0.15：第 1 级为成交人本人，依次向上
	wantByLevel := map[int]struct {
		associateID uint
		amount      int64
		percent     string
	}{
		1: {chain[4].ID, 20000, "2.00"},
		2: {chain[3].ID, 10000, "1.00"},
		3: {chain[2].ID, 5000, "0.50"},
		4: {chain[1].ID, 2500, "0.25"},
		5: {chain[0].ID, 1500, "0.15"},
	}
	for _, entry := range result.Entries {
		want, ok := wantByLevel[entry.Level]
		if !ok {
			t.Fatalf("unexpected entry level %d", entry.Level)
		}
		if entry.AssociateID != want.associateID {
			t.Fatalf("level %d associate want %d, got=%d", entry.Level, want.associateID, entry.AssociateID)
		}
		if entry.Amount != want.amount {
			t.Fatalf("level %d amount want %d, got=%d", entry.Level, want.amount, entry.Amount)
		}
		if entry.RatePercent.String() != want.percent {
			t.Fatalf("level %d percent want %s, got=%s", entry.Level, want.percent, entry.RatePercent)
		}
		if entry.Status != constants.LedgerStatusPending {
			t.Fatalf("level %d status want pending, got=%s", entry.Level, entry.Status)
		}
		if entry.EntryType != constants.LedgerEntryTypeCommission {
			t.Fatalf("level %d entry type want commission, got=%s", entry.Level, entry.EntryType)
		}
	}
}

func TestHandleTransactionClosedSkipsInactiveBeneficiary(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	chain := createCommissionChain(t, db, 5)

	// 第 2 级受益人停用：账目跳过但层级不压缩
	inactive := chain[3]
	if err := db.Model(&models.Associate{}).Where("id = ?", inactive.ID).
		Update("status", constants.AssociateStatusInactive).Error; err != nil {
		t.Fatalf("deactivate beneficiary failed: %v", err)
	}

	result, err := svc.HandleTransactionClosed(TransactionClosedInput{
		TxnNo:       "TXN-SKIP",
		AssociateID: chain[4].ID,
		Amount:      1000000,
		ClosedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("handle transaction failed: %v", err)
	}
	if len(result.Entries) != 4 {
		t.Fatalf("entries want 4, got=%d", len(result.Entries))
	}
	if len(result.Skips) != 1 {
		t.Fatalf("skips want 1, got=%d", len(result.Skips))
	}
	skip := result.Skips[0]
	if skip.AssociateID != inactive.ID || skip.Level != 2 || skip.Reason != constants.SkipReasonInactiveBeneficiary {
		t.Fatalf("unexpected skip: %+v", skip)
	}
	for _, entry := range result.Entries {
		if entry.Level == 2 {
			t.Fatalf("level 2 should be skipped")
		}
		// 上游层级保持原位（chain[2] 仍是第 3 级）
		if entry.Level == 3 && entry.AssociateID != chain[2].ID {
			t.Fatalf("level 3 associate want %d, got=%d", chain[2].ID, entry.AssociateID)
		}
	}
}

func TestHandleTransactionClosedReplayIsIdempotent(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	chain := createCommissionChain(t, db, 3)

	input := TransactionClosedInput{
		TxnNo:       "TXN-REPLAY",
		AssociateID: chain[2].ID,
		Amount:      500000,
		ClosedAt:    time.Now(),
	}
	first, err := svc.HandleTransactionClosed(input)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := svc.HandleTransactionClosed(input)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("expected replay flag on second run")
	}
	if second.Transaction.ID != first.Transaction.ID {
		t.Fatalf("replay transaction id want %d, got=%d", first.Transaction.ID, second.Transaction.ID)
	}

	var entryCount int64
	if err := db.Model(&models.LedgerEntry{}).Count(&entryCount).Error; err != nil {
		t.Fatalf("count entries failed: %v", err)
	}
	if entryCount != int64(len(first.Entries)) {
		t.Fatalf("replay must not create entries: want %d, got=%d", len(first.Entries), entryCount)
	}
}

func TestHandleTransactionClosedRoundsAndSkipsZeroAmount(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	chain := createCommissionChain(t, db, 3)

	// 99 × 2% = 1.98 → 2；99 × 1% = 0.99 → 1；99 × 0.5% = 0.495 → 0（跳过）
	result, err := svc.HandleTransactionClosed(TransactionClosedInput{
		TxnNo:       "TXN-ROUND",
		AssociateID: chain[2].ID,
		Amount:      99,
		ClosedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("handle transaction failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("entries want 2, got=%d", len(result.Entries))
	}
	amounts := map[int]int64{}
	for _, entry := range result.Entries {
		amounts[entry.Level] = entry.Amount
	}
	if amounts[1] != 2 || amounts[2] != 1 {
		t.Fatalf("unexpected rounded amounts: %+v", amounts)
	}
	if len(result.Skips) != 1 {
		t.Fatalf("skips want 1, got=%d", len(result.Skips))
	}
	if result.Skips[0].Level != 3 || result.Skips[0].Reason != constants.SkipReasonZeroAmount {
		t.Fatalf("unexpected zero amount skip: %+v", result.Skips[0])
	}
}

func TestHandleTransactionClosedValidation(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	chain := createCommissionChain(t, db, 1)

	cases := []TransactionClosedInput{
		{TxnNo: "", AssociateID: chain[0].ID, Amount: 100, ClosedAt: time.Now()},
		{TxnNo: "TXN-X", AssociateID: chain[0].ID, Amount: 0, ClosedAt: time.Now()},
		{TxnNo: "TXN-X", AssociateID: chain[0].ID, Amount: 100},
		{TxnNo: "TXN-X", AssociateID: 9999, Amount: 100, ClosedAt: time.Now()},
	}
	for i, input := range cases {
		if _, err := svc.HandleTransactionClosed(input); !errors.Is(err, ErrInvalidTransaction) {
			t.Fatalf("case %d want ErrInvalidTransaction, got=%v", i, err)
		}
	}
}

func TestHandleAssociateActivatedGrantsBonusOnce(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	chain := createCommissionChain(t, db, 2)
	sponsor, child := chain[0], chain[1]

	entry, err := svc.HandleAssociateActivated(AssociateActivatedInput{
		AssociateID: child.ID,
		ActivatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("handle activation failed: %v", err)
	}
	if entry == nil {
		t.Fatalf("expected bonus entry")
	}
	if entry.AssociateID != sponsor.ID {
		t.Fatalf("bonus beneficiary want %d, got=%d", sponsor.ID, entry.AssociateID)
	}
	if entry.EntryType != constants.LedgerEntryTypeReferralBonus || entry.Level != constants.BonusLevel {
		t.Fatalf("unexpected bonus entry: %+v", entry)
	}
	if entry.Amount != constants.DefaultReferralBonus {
		t.Fatalf("bonus amount want %d, got=%d", constants.DefaultReferralBonus, entry.Amount)
	}

	// 重复激活不重复发放
	replay, err := svc.HandleAssociateActivated(AssociateActivatedInput{
		AssociateID: child.ID,
		ActivatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("replay activation failed: %v", err)
	}
	if replay == nil || replay.ID != entry.ID {
		t.Fatalf("replay want entry id=%d, got=%+v", entry.ID, replay)
	}

	var bonusCount int64
	if err := db.Model(&models.LedgerEntry{}).
		Where("entry_type = ?", constants.LedgerEntryTypeReferralBonus).
		Count(&bonusCount).Error; err != nil {
		t.Fatalf("count bonus entries failed: %v", err)
	}
	if bonusCount != 1 {
		t.Fatalf("bonus entries want 1, got=%d", bonusCount)
	}
}

func TestHandleAssociateActivatedWithoutSponsor(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	chain := createCommissionChain(t, db, 1)

	entry, err := svc.HandleAssociateActivated(AssociateActivatedInput{
		AssociateID: chain[0].ID,
		ActivatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("root activation failed: %v", err)
	}
	if entry != nil {
		t.Fatalf("root associate has no sponsor, want nil entry")
	}
}

func TestHandleAssociateActivatedInactiveSponsorSkips(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)
	chain := createCommissionChain(t, db, 2)
	sponsor, child := chain[0], chain[1]

	if err := db.Model(&models.Associate{}).Where("id = ?", sponsor.ID).
		Update("status", constants.AssociateStatusInactive).Error; err != nil {
		t.Fatalf("deactivate sponsor failed: %v", err)
	}

	entry, err := svc.HandleAssociateActivated(AssociateActivatedInput{
		AssociateID: child.ID,
		ActivatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("activation with inactive sponsor failed: %v", err)
	}
	if entry != nil {
		t.Fatalf("inactive sponsor must not receive bonus")
	}

	var skipCount int64
	if err := db.Model(&models.CommissionSkip{}).
		Where("associate_id = ? AND reason = ?", sponsor.ID, constants.SkipReasonInactiveBeneficiary).
		Count(&skipCount).Error; err != nil {
		t.Fatalf("count skips failed: %v", err)
	}
	if skipCount != 1 {
		t.Fatalf("skip records want 1, got=%d", skipCount)
	}
}
