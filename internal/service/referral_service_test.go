package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/constants"
	"github.com/investorsdeaal/referral-engine/internal/models"
	"github.com/investorsdeaal/referral-engine/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupReferralServiceTest(t *testing.T) (*ReferralService, repository.AssociateRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Associate{}, &models.ReferralEdge{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	repo := repository.NewAssociateRepository(db)
	return NewReferralService(repo, nil, 0), repo, db
}

func createReferralTestAssociate(t *testing.T, db *gorm.DB, name, code, status string) *models.Associate {
	t.Helper()
	associate := &models.Associate{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", strings.ToLower(name)),
		ReferralCode: code,
		Status:       status,
		PasswordHash: "hash",
		JoinedAt:     time.Now(),
	}
	if err := db.Create(associate).Error; err != nil {
		t.Fatalf("create associate %s failed: %v", name, err)
	}
	return associate
}

func createReferralTestEdge(t *testing.T, db *gorm.DB, childID, sponsorID uint) {
	t.Helper()
	if err := db.Create(&models.ReferralEdge{ChildID: childID, SponsorID: sponsorID}).Error; err != nil {
		t.Fatalf("create edge %d -> %d failed: %v", childID, sponsorID, err)
	}
}

func TestRegisterWithSponsorCode(t *testing.T) {
	svc, repo, db := setupReferralServiceTest(t)
	sponsor := createReferralTestAssociate(t, db, "sponsor", "SPONSOR1", constants.AssociateStatusActive)

	associate, err := svc.Register(RegisterAssociateInput{
		Name:        "Newcomer",
		Email:       "Newcomer@Example.com",
		Password:    "secret-pass",
		SponsorCode: "SPONSOR1",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if associate.ID == 0 {
		t.Fatalf("expected associate to be persisted")
	}
	if associate.Email != "newcomer@example.com" {
		t.Fatalf("email want lowercased, got=%s", associate.Email)
	}
	if associate.Status != constants.AssociateStatusPending {
		t.Fatalf("status want pending, got=%s", associate.Status)
	}
	if len(associate.ReferralCode) != constants.ReferralCodeLength {
		t.Fatalf("referral code length want %d, got=%q", constants.ReferralCodeLength, associate.ReferralCode)
	}

	edge, err := repo.GetEdgeByChildID(associate.ID)
	if err != nil {
		t.Fatalf("get edge failed: %v", err)
	}
	if edge == nil || edge.SponsorID != sponsor.ID {
		t.Fatalf("edge want sponsor %d, got=%+v", sponsor.ID, edge)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, db := setupReferralServiceTest(t)
	createReferralTestAssociate(t, db, "taken", "TAKEN001", constants.AssociateStatusActive)

	if _, err := svc.Register(RegisterAssociateInput{Name: "x", Email: "x@example.com", Password: "short"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("short password want ErrValidation, got=%v", err)
	}
	if _, err := svc.Register(RegisterAssociateInput{Name: "x", Email: "not-an-email", Password: "secret-pass"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad email want ErrValidation, got=%v", err)
	}
	if _, err := svc.Register(RegisterAssociateInput{Name: "x", Email: "taken@example.com", Password: "secret-pass"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate email want ErrValidation, got=%v", err)
	}
	if _, err := svc.Register(RegisterAssociateInput{
		Name:        "x",
		Email:       "fresh@example.com",
		Password:    "secret-pass",
		SponsorCode: "NOPE0000",
	}); !errors.Is(err, ErrReferralCodeInvalid) {
		t.Fatalf("unknown sponsor code want ErrReferralCodeInvalid, got=%v", err)
	}
}

func TestAddEdgeRejectsCycleAndDuplicate(t *testing.T) {
	svc, _, db := setupReferralServiceTest(t)
	top := createReferralTestAssociate(t, db, "top", "TOP00001", constants.AssociateStatusActive)
	mid := createReferralTestAssociate(t, db, "mid", "MID00001", constants.AssociateStatusActive)
	leaf := createReferralTestAssociate(t, db, "leaf", "LEAF0001", constants.AssociateStatusActive)
	createReferralTestEdge(t, db, mid.ID, top.ID)
	createReferralTestEdge(t, db, leaf.ID, mid.ID)

	if _, err := svc.AddEdge(top.ID, top.ID); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("self edge want ErrCycleDetected, got=%v", err)
	}
	// top 的新推荐人不能来自自身的下线
	if _, err := svc.AddEdge(top.ID, leaf.ID); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("descendant sponsor want ErrCycleDetected, got=%v", err)
	}
	if _, err := svc.AddEdge(leaf.ID, top.ID); !errors.Is(err, ErrDuplicateSponsor) {
		t.Fatalf("second sponsor want ErrDuplicateSponsor, got=%v", err)
	}
	if _, err := svc.AddEdge(leaf.ID, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown sponsor want ErrNotFound, got=%v", err)
	}
}

func TestAncestorsNearToFar(t *testing.T) {
	svc, _, db := setupReferralServiceTest(t)
	chain := make([]*models.Associate, 0, 5)
	for i := 0; i < 5; i++ {
		associate := createReferralTestAssociate(t, db,
			fmt.Sprintf("member%d", i),
			fmt.Sprintf("CHAIN00%d", i),
			constants.AssociateStatusActive,
		)
		if i > 0 {
			createReferralTestEdge(t, db, associate.ID, chain[i-1].ID)
		}
		chain = append(chain, associate)
	}

	ancestors, err := svc.Ancestors(chain[4].ID, 4)
	if err != nil {
		t.Fatalf("ancestors failed: %v", err)
	}
	if len(ancestors) != 4 {
		t.Fatalf("ancestors len want 4, got=%d", len(ancestors))
	}
	for i, want := range []uint{chain[3].ID, chain[2].ID, chain[1].ID, chain[0].ID} {
		if ancestors[i].ID != want {
			t.Fatalf("ancestors[%d] want id=%d, got=%d", i, want, ancestors[i].ID)
		}
	}

	limited, err := svc.Ancestors(chain[4].ID, 2)
	if err != nil {
		t.Fatalf("limited ancestors failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited ancestors len want 2, got=%d", len(limited))
	}
}

func TestActivateAndDeactivate(t *testing.T) {
	svc, _, db := setupReferralServiceTest(t)
	associate := createReferralTestAssociate(t, db, "pending", "PEND0001", constants.AssociateStatusPending)

	activated, err := svc.Activate(associate.ID)
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if activated.Status != constants.AssociateStatusActive {
		t.Fatalf("status want active, got=%s", activated.Status)
	}
	if activated.ActivatedAt == nil {
		t.Fatalf("expected activated_at to be set")
	}
	firstActivatedAt := *activated.ActivatedAt

	// 重复激活保持首次激活时间
	again, err := svc.Activate(associate.ID)
	if err != nil {
		t.Fatalf("re-activate failed: %v", err)
	}
	if again.ActivatedAt == nil || !again.ActivatedAt.Equal(firstActivatedAt) {
		t.Fatalf("activated_at changed on replay: %v vs %v", again.ActivatedAt, firstActivatedAt)
	}

	deactivated, err := svc.Deactivate(associate.ID)
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if deactivated.Status != constants.AssociateStatusInactive {
		t.Fatalf("status want inactive, got=%s", deactivated.Status)
	}

	if _, err := svc.Activate(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown associate want ErrNotFound, got=%v", err)
	}
}

func TestNetworkTreeAndStats(t *testing.T) {
	svc, _, db := setupReferralServiceTest(t)
	root := createReferralTestAssociate(t, db, "root", "ROOT0001", constants.AssociateStatusActive)
	left := createReferralTestAssociate(t, db, "left", "LEFT0001", constants.AssociateStatusActive)
	right := createReferralTestAssociate(t, db, "right", "RGHT0001", constants.AssociateStatusActive)
	grand := createReferralTestAssociate(t, db, "grand", "GRND0001", constants.AssociateStatusInactive)
	createReferralTestEdge(t, db, left.ID, root.ID)
	createReferralTestEdge(t, db, right.ID, root.ID)
	createReferralTestEdge(t, db, grand.ID, left.ID)

	tree, err := svc.NetworkTree(root.ID, 0)
	if err != nil {
		t.Fatalf("network tree failed: %v", err)
	}
	if tree.ID != root.ID || tree.Level != 0 {
		t.Fatalf("unexpected root node: %+v", tree)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("root children want 2, got=%d", len(tree.Children))
	}
	var leftNode *NetworkTreeNode
	for _, child := range tree.Children {
		if child.ID == left.ID {
			leftNode = child
		}
		if child.Level != 1 {
			t.Fatalf("child level want 1, got=%d", child.Level)
		}
	}
	if leftNode == nil || len(leftNode.Children) != 1 || leftNode.Children[0].ID != grand.ID {
		t.Fatalf("expected grand child under left, got=%+v", leftNode)
	}

	// depth=1 只展开直接下线
	shallow, err := svc.NetworkTree(root.ID, 1)
	if err != nil {
		t.Fatalf("shallow tree failed: %v", err)
	}
	for _, child := range shallow.Children {
		if len(child.Children) != 0 {
			t.Fatalf("depth 1 tree should not expand level 2")
		}
	}

	stats, err := svc.NetworkStats(root.ID)
	if err != nil {
		t.Fatalf("network stats failed: %v", err)
	}
	if stats.TotalMembers != 3 || stats.DirectMembers != 2 || stats.ActiveMembers != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.LevelCounts[1] != 2 || stats.LevelCounts[2] != 1 {
		t.Fatalf("unexpected level counts: %+v", stats.LevelCounts)
	}
}
