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

func setupPayoutServiceTest(t *testing.T) (*PayoutService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payout_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Transaction{}, &models.LedgerEntry{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPayoutService(repository.NewLedgerRepository(db)), db
}

func createPayoutTestEntry(t *testing.T, db *gorm.DB, status string, amount int64) *models.LedgerEntry {
	t.Helper()
	entry := &models.LedgerEntry{
		AssociateID: 1,
		EntryType:   constants.LedgerEntryTypeCommission,
		Level:       1,
		Amount:      amount,
		Status:      status,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("create ledger entry failed: %v", err)
	}
	return entry
}

func TestApproveThenMarkPaid(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	entry := createPayoutTestEntry(t, db, constants.LedgerStatusPending, 20000)

	approved, err := svc.Approve(entry.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != constants.LedgerStatusApproved || approved.ApprovedAt == nil {
		t.Fatalf("unexpected approved entry: %+v", approved)
	}

	if _, err := svc.MarkPaid(entry.ID, "   "); !errors.Is(err, ErrPaymentRefRequired) {
		t.Fatalf("blank payment ref want ErrPaymentRefRequired, got=%v", err)
	}

	paid, err := svc.MarkPaid(entry.ID, "PAY-2026-001")
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if paid.Status != constants.LedgerStatusPaid || paid.PaidAt == nil {
		t.Fatalf("unexpected paid entry: %+v", paid)
	}
	if paid.PaymentReference != "PAY-2026-001" {
		t.Fatalf("payment reference want PAY-2026-001, got=%s", paid.PaymentReference)
	}
}

func TestTransitionIsIdempotentAtOrPastTarget(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	entry := createPayoutTestEntry(t, db, constants.LedgerStatusPending, 20000)

	if _, err := svc.Approve(entry.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	// 目标态已达成
	again, err := svc.Approve(entry.ID)
	if err != nil {
		t.Fatalf("approve replay failed: %v", err)
	}
	if again.Status != constants.LedgerStatusApproved {
		t.Fatalf("status want approved, got=%s", again.Status)
	}

	if _, err := svc.MarkPaid(entry.ID, "PAY-X"); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	// 已越过目标态（对 paid 账目再次 approve）视为幂等成功
	past, err := svc.Approve(entry.ID)
	if err != nil {
		t.Fatalf("approve after paid failed: %v", err)
	}
	if past.Status != constants.LedgerStatusPaid {
		t.Fatalf("status want paid, got=%s", past.Status)
	}
}

func TestInvalidTransitions(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	pending := createPayoutTestEntry(t, db, constants.LedgerStatusPending, 20000)
	paid := createPayoutTestEntry(t, db, constants.LedgerStatusPaid, 20000)

	if _, err := svc.MarkPaid(pending.ID, "PAY-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pay pending want ErrInvalidTransition, got=%v", err)
	}
	if _, err := svc.Void(paid.ID, "mistake"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("void paid want ErrInvalidTransition, got=%v", err)
	}
	if _, err := svc.Approve(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown entry want ErrNotFound, got=%v", err)
	}
}

func TestVoidRecordsReason(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	entry := createPayoutTestEntry(t, db, constants.LedgerStatusApproved, 20000)

	voided, err := svc.Void(entry.ID, "  duplicate record  ")
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if voided.Status != constants.LedgerStatusVoid || voided.VoidedAt == nil {
		t.Fatalf("unexpected voided entry: %+v", voided)
	}
	if voided.VoidReason != "duplicate record" {
		t.Fatalf("void reason want trimmed, got=%q", voided.VoidReason)
	}
}

func TestReversePaidCreatesNegativeEntry(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)
	paid := createPayoutTestEntry(t, db, constants.LedgerStatusPaid, 20000)
	pending := createPayoutTestEntry(t, db, constants.LedgerStatusPending, 5000)

	reversal, err := svc.ReversePaid(paid.ID, "clawback")
	if err != nil {
		t.Fatalf("reverse paid failed: %v", err)
	}
	if reversal.Amount != -20000 {
		t.Fatalf("reversal amount want -20000, got=%d", reversal.Amount)
	}
	if reversal.EntryType != constants.LedgerEntryTypeReversal || reversal.Status != constants.LedgerStatusPending {
		t.Fatalf("unexpected reversal entry: %+v", reversal)
	}
	if reversal.ReversalOf == nil || *reversal.ReversalOf != paid.ID {
		t.Fatalf("reversal_of want %d, got=%v", paid.ID, reversal.ReversalOf)
	}

	// 原账目保持 paid，历史完整保留
	original, err := repository.NewLedgerRepository(db).GetEntryByID(paid.ID)
	if err != nil {
		t.Fatalf("reload original entry failed: %v", err)
	}
	if original.Status != constants.LedgerStatusPaid {
		t.Fatalf("original status want paid, got=%s", original.Status)
	}

	// 重复冲销幂等返回同一账目
	replay, err := svc.ReversePaid(paid.ID, "clawback")
	if err != nil {
		t.Fatalf("reverse replay failed: %v", err)
	}
	if replay.ID != reversal.ID {
		t.Fatalf("replay reversal id want %d, got=%d", reversal.ID, replay.ID)
	}

	if _, err := svc.ReversePaid(pending.ID, "too early"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reverse pending want ErrInvalidTransition, got=%v", err)
	}
}
