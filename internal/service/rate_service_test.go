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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRateServiceTest(t *testing.T) *RateService {
	t.Helper()
	dsn := fmt.Sprintf("file:rate_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.RateTableVersion{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewRateService(repository.NewRateTableRepository(db))
}

func TestEnsureDefaultVersion(t *testing.T) {
	svc := setupRateServiceTest(t)

	if _, err := svc.ActiveVersion(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty table want ErrNotFound, got=%v", err)
	}
	if err := svc.EnsureDefaultVersion(); err != nil {
		t.Fatalf("ensure default failed: %v", err)
	}
	// 已有生效版本时不再写入
	if err := svc.EnsureDefaultVersion(); err != nil {
		t.Fatalf("ensure default replay failed: %v", err)
	}

	active, err := svc.ActiveVersion()
	if err != nil {
		t.Fatalf("active version failed: %v", err)
	}
	if active.Level1Percent.String() != "2.00" || active.Level5Percent.String() != "0.15" {
		t.Fatalf("unexpected default percents: %s / %s", active.Level1Percent, active.Level5Percent)
	}
	if active.ReferralBonus != constants.DefaultReferralBonus {
		t.Fatalf("referral bonus want %d, got=%d", constants.DefaultReferralBonus, active.ReferralBonus)
	}

	_, total, err := svc.History(repository.RateVersionListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("history total want 1, got=%d", total)
	}
}

func TestProposeSupersedesActiveVersion(t *testing.T) {
	svc := setupRateServiceTest(t)
	if err := svc.EnsureDefaultVersion(); err != nil {
		t.Fatalf("ensure default failed: %v", err)
	}
	previous, err := svc.ActiveVersion()
	if err != nil {
		t.Fatalf("active version failed: %v", err)
	}

	proposed, err := svc.Propose(ProposeRateInput{
		Level1Percent:  decimal.NewFromFloat(3),
		Level2Percent:  decimal.NewFromFloat(1.5),
		Level3Percent:  decimal.NewFromFloat(0.75),
		Level4Percent:  decimal.NewFromFloat(0.3),
		Level5Percent:  decimal.NewFromFloat(0.2),
		ReferralBonus:  600000,
		MilestoneBonus: 1200000,
		CreatedBy:      7,
	})
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if proposed.ID == previous.ID {
		t.Fatalf("expected a new version row")
	}

	active, err := svc.ActiveVersion()
	if err != nil {
		t.Fatalf("active after propose failed: %v", err)
	}
	if active.ID != proposed.ID {
		t.Fatalf("active want id=%d, got=%d", proposed.ID, active.ID)
	}
	if active.Level1Percent.String() != "3.00" || active.ReferralBonus != 600000 {
		t.Fatalf("unexpected active version: %+v", active)
	}
	if active.CreatedBy != 7 {
		t.Fatalf("created_by want 7, got=%d", active.CreatedBy)
	}

	superseded, err := svc.GetVersion(previous.ID)
	if err != nil {
		t.Fatalf("get superseded version failed: %v", err)
	}
	if superseded.SupersededAt == nil {
		t.Fatalf("previous version should be superseded")
	}

	_, total, err := svc.History(repository.RateVersionListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("history total want 2, got=%d", total)
	}
}

func TestProposeRejectsInvalidRates(t *testing.T) {
	svc := setupRateServiceTest(t)

	base := ProposeRateInput{
		Level1Percent: decimal.NewFromFloat(2),
		Level2Percent: decimal.NewFromFloat(1),
	}

	negative := base
	negative.Level3Percent = decimal.NewFromFloat(-0.5)
	if _, err := svc.Propose(negative); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("negative percent want ErrInvalidRate, got=%v", err)
	}

	excessive := base
	excessive.Level1Percent = decimal.NewFromFloat(101)
	if _, err := svc.Propose(excessive); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("percent above 100 want ErrInvalidRate, got=%v", err)
	}

	badBonus := base
	badBonus.ReferralBonus = -1
	if _, err := svc.Propose(badBonus); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("negative bonus want ErrInvalidRate, got=%v", err)
	}
}

func TestVersionAtSelectsHistoricalVersion(t *testing.T) {
	svc := setupRateServiceTest(t)
	if err := svc.EnsureDefaultVersion(); err != nil {
		t.Fatalf("ensure default failed: %v", err)
	}
	previous, err := svc.ActiveVersion()
	if err != nil {
		t.Fatalf("active version failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	midpoint := time.Now()
	time.Sleep(10 * time.Millisecond)

	proposed, err := svc.Propose(ProposeRateInput{
		Level1Percent: decimal.NewFromFloat(4),
	})
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	// 替换前的成交仍按旧版本计费
	historical, err := svc.VersionAt(midpoint)
	if err != nil {
		t.Fatalf("version at midpoint failed: %v", err)
	}
	if historical.ID != previous.ID {
		t.Fatalf("midpoint version want id=%d, got=%d", previous.ID, historical.ID)
	}

	current, err := svc.VersionAt(time.Now())
	if err != nil {
		t.Fatalf("version at now failed: %v", err)
	}
	if current.ID != proposed.ID {
		t.Fatalf("current version want id=%d, got=%d", proposed.ID, current.ID)
	}
}

func TestVersionAtFallsBackToActive(t *testing.T) {
	svc := setupRateServiceTest(t)
	if err := svc.EnsureDefaultVersion(); err != nil {
		t.Fatalf("ensure default failed: %v", err)
	}
	active, err := svc.ActiveVersion()
	if err != nil {
		t.Fatalf("active version failed: %v", err)
	}

	// 早于首个版本生效时间的成交回退到当前生效版本
	early, err := svc.VersionAt(active.EffectiveFrom.Add(-time.Hour))
	if err != nil {
		t.Fatalf("version at early time failed: %v", err)
	}
	if early.ID != active.ID {
		t.Fatalf("early lookup want active id=%d, got=%d", active.ID, early.ID)
	}

	current, err := svc.VersionAt(time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("version at current time failed: %v", err)
	}
	if current.ID != active.ID {
		t.Fatalf("current lookup want id=%d, got=%d", active.ID, current.ID)
	}
}
