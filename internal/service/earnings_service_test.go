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

func setupEarningsServiceTest(t *testing.T) (*EarningsService, *gorm.DB, *models.Associate) {
	t.Helper()
	dsn := fmt.Sprintf("file:earnings_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Associate{}, &models.Transaction{}, &models.LedgerEntry{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	associate := &models.Associate{
		Name:         "earner",
		Email:        "earner@example.com",
		ReferralCode: "EARN0001",
		Status:       constants.AssociateStatusActive,
		PasswordHash: "hash",
		JoinedAt:     time.Now(),
	}
	if err := db.Create(associate).Error; err != nil {
		t.Fatalf("create associate failed: %v", err)
	}
	ledgerRepo := repository.NewLedgerRepository(db)
	associateRepo := repository.NewAssociateRepository(db)
	return NewEarningsService(ledgerRepo, associateRepo), db, associate
}

func createEarningsTestEntry(t *testing.T, db *gorm.DB, associateID uint, entryType, status string, level int, amount int64) {
	t.Helper()
	entry := &models.LedgerEntry{
		AssociateID: associateID,
		EntryType:   entryType,
		Level:       level,
		Amount:      amount,
		Status:      status,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("create ledger entry failed: %v", err)
	}
}

func TestSummarizeEarnings(t *testing.T) {
	svc, db, associate := setupEarningsServiceTest(t)
	createEarningsTestEntry(t, db, associate.ID, constants.LedgerEntryTypeCommission, constants.LedgerStatusPending, 1, 100)
	createEarningsTestEntry(t, db, associate.ID, constants.LedgerEntryTypeCommission, constants.LedgerStatusApproved, 2, 200)
	createEarningsTestEntry(t, db, associate.ID, constants.LedgerEntryTypeReferralBonus, constants.LedgerStatusPaid, 0, 300)
	// 作废账目不计入任何口径
	createEarningsTestEntry(t, db, associate.ID, constants.LedgerEntryTypeCommission, constants.LedgerStatusVoid, 3, 400)
	// 其他经纪人的账目不串账
	other := &models.Associate{
		Name:         "other",
		Email:        "other@example.com",
		ReferralCode: "OTHR0001",
		Status:       constants.AssociateStatusActive,
		PasswordHash: "hash",
		JoinedAt:     time.Now(),
	}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("create other associate failed: %v", err)
	}
	createEarningsTestEntry(t, db, other.ID, constants.LedgerEntryTypeCommission, constants.LedgerStatusPaid, 1, 999)

	summary, err := svc.Summarize(associate.ID)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary.TotalEarned != 600 {
		t.Fatalf("total earned want 600, got=%d", summary.TotalEarned)
	}
	if summary.Paid != 300 {
		t.Fatalf("paid want 300, got=%d", summary.Paid)
	}
	if summary.Pending != 300 {
		t.Fatalf("pending want 300, got=%d", summary.Pending)
	}
}

func TestSummarizeReflectsReversals(t *testing.T) {
	svc, db, associate := setupEarningsServiceTest(t)
	createEarningsTestEntry(t, db, associate.ID, constants.LedgerEntryTypeCommission, constants.LedgerStatusPaid, 1, 20000)
	// 冲销账目以负数金额抵减
	createEarningsTestEntry(t, db, associate.ID, constants.LedgerEntryTypeReversal, constants.LedgerStatusPaid, 0, -20000)

	summary, err := svc.Summarize(associate.ID)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary.TotalEarned != 0 || summary.Paid != 0 {
		t.Fatalf("reversal should net out: %+v", summary)
	}
}

func TestSummarizeValidation(t *testing.T) {
	svc, _, _ := setupEarningsServiceTest(t)

	if _, err := svc.Summarize(0); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero id want ErrValidation, got=%v", err)
	}
	if _, err := svc.Summarize(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown associate want ErrNotFound, got=%v", err)
	}
}

func TestListEntriesScopedToAssociate(t *testing.T) {
	svc, db, associate := setupEarningsServiceTest(t)
	createEarningsTestEntry(t, db, associate.ID, constants.LedgerEntryTypeCommission, constants.LedgerStatusPending, 1, 100)
	createEarningsTestEntry(t, db, associate.ID, constants.LedgerEntryTypeCommission, constants.LedgerStatusPaid, 2, 200)
	createEarningsTestEntry(t, db, associate.ID, constants.LedgerEntryTypeReferralBonus, constants.LedgerStatusPending, 0, 300)

	entries, total, err := svc.ListEntries(associate.ID, repository.LedgerListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if total != 3 || len(entries) != 3 {
		t.Fatalf("list want 3 entries, got total=%d len=%d", total, len(entries))
	}

	pending, total, err := svc.ListEntries(associate.ID, repository.LedgerListFilter{
		Page:     1,
		PageSize: 10,
		Status:   constants.LedgerStatusPending,
	})
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("pending total want 2, got=%d", total)
	}
	for _, entry := range pending {
		if entry.Status != constants.LedgerStatusPending {
			t.Fatalf("unexpected status in filtered list: %s", entry.Status)
		}
	}

	// 过滤条件中的 AssociateID 被强制覆盖为本人
	hijacked, total, err := svc.ListEntries(associate.ID, repository.LedgerListFilter{
		Page:        1,
		PageSize:    10,
		AssociateID: 9999,
	})
	if err != nil {
		t.Fatalf("list with foreign filter failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("scoped total want 3, got=%d", total)
	}
	for _, entry := range hijacked {
		if entry.AssociateID != associate.ID {
			t.Fatalf("entry leaked from associate %d", entry.AssociateID)
		}
	}
}
