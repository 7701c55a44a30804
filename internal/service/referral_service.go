package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/constants"
	"github.com/investorsdeaal/referral-engine/internal/logger"
	"github.com/investorsdeaal/referral-engine/internal/models"
	"github.com/investorsdeaal/referral-engine/internal/queue"
	"github.com/investorsdeaal/referral-engine/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// ancestorWalkHardLimit 祖先链遍历的硬上限，防御数据损坏导致的死循环
	ancestorWalkHardLimit = 64
)

// ReferralService 推荐关系图业务服务
type ReferralService struct {
	repo         repository.AssociateRepository
	queueClient  *queue.Client
	treeMaxDepth int
}

// NewReferralService 创建推荐关系服务
func NewReferralService(repo repository.AssociateRepository, queueClient *queue.Client, treeMaxDepth int) *ReferralService {
	if treeMaxDepth <= 0 {
		treeMaxDepth = constants.CommissionMaxLevel
	}
	return &ReferralService{
		repo:         repo,
		queueClient:  queueClient,
		treeMaxDepth: treeMaxDepth,
	}
}

// RegisterAssociateInput 经纪人注册输入
type RegisterAssociateInput struct {
	Name        string
	Email       string
	Phone       string
	Password    string
	SponsorCode string
}

// NetworkTreeNode 推荐网络树节点
type NetworkTreeNode struct {
	ID           uint               `json:"id"`
	Name         string             `json:"name"`
	ReferralCode string             `json:"referral_code"`
	Status       string             `json:"status"`
	Level        int                `json:"level"`
	Children     []*NetworkTreeNode `json:"children"`
}

// NetworkStats 推荐网络统计
type NetworkStats struct {
	TotalMembers  int64         `json:"total_members"`
	ActiveMembers int64         `json:"active_members"`
	DirectMembers int64         `json:"direct_members"`
	LevelCounts   map[int]int64 `json:"level_counts"`
}

// Register 注册经纪人并挂载推荐关系（单事务）
func (s *ReferralService) Register(input RegisterAssociateInput) (*models.Associate, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	password := strings.TrimSpace(input.Password)
	if name == "" || email == "" || !strings.Contains(email, "@") || len(password) < 8 {
		return nil, ErrValidation
	}

	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrValidation
	}

	var sponsor *models.Associate
	if code := strings.TrimSpace(input.SponsorCode); code != "" {
		sponsor, err = s.repo.GetByReferralCode(code)
		if err != nil {
			return nil, err
		}
		if sponsor == nil {
			return nil, ErrReferralCodeInvalid
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	referralCode, err := s.newUniqueReferralCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	associate := &models.Associate{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		ReferralCode: referralCode,
		Status:       constants.AssociateStatusPending,
		PasswordHash: string(hash),
		JoinedAt:     now,
	}

	err = s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(associate); err != nil {
			if isUniqueViolation(err) {
				return ErrValidation
			}
			return err
		}
		if sponsor != nil {
			edge := &models.ReferralEdge{
				ChildID:   associate.ID,
				SponsorID: sponsor.ID,
			}
			if err := txRepo.CreateEdge(edge); err != nil {
				if isUniqueViolation(err) {
					return ErrDuplicateSponsor
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("associate_registered",
		"associate_id", associate.ID,
		"referral_code", associate.ReferralCode,
		"has_sponsor", sponsor != nil,
	)
	return associate, nil
}

// AddEdge 写入推荐关系边（child → sponsor）
// 同一经纪人只允许一个推荐人；新边不得构成环
func (s *ReferralService) AddEdge(childID, sponsorID uint) (*models.ReferralEdge, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	if childID == 0 || sponsorID == 0 {
		return nil, ErrValidation
	}
	if childID == sponsorID {
		return nil, ErrCycleDetected
	}

	child, err := s.repo.GetByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrNotFound
	}
	sponsor, err := s.repo.GetByID(sponsorID)
	if err != nil {
		return nil, err
	}
	if sponsor == nil {
		return nil, ErrNotFound
	}

	existing, err := s.repo.GetEdgeByChildID(childID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateSponsor
	}

	// 若 sponsor 的祖先链中出现 child，则新边构成环
	ancestorIDs, err := s.ancestorIDChain(sponsorID, ancestorWalkHardLimit)
	if err != nil {
		return nil, err
	}
	for _, id := range ancestorIDs {
		if id == childID {
			return nil, ErrCycleDetected
		}
	}

	edge := &models.ReferralEdge{
		ChildID:   childID,
		SponsorID: sponsorID,
	}
	if err := s.repo.CreateEdge(edge); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSponsor
		}
		return nil, err
	}

	logger.Infow("referral_edge_created",
		"child_id", childID,
		"sponsor_id", sponsorID,
	)
	return edge, nil
}

// Ancestors 返回经纪人的祖先链（由近及远，最多 maxDepth 层）
func (s *ReferralService) Ancestors(associateID uint, maxDepth int) ([]models.Associate, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	if associateID == 0 {
		return nil, ErrValidation
	}
	if maxDepth <= 0 || maxDepth > ancestorWalkHardLimit {
		maxDepth = ancestorWalkHardLimit
	}

	ids, err := s.ancestorIDChain(associateID, maxDepth)
	if err != nil {
		return nil, err
	}
	ancestors := make([]models.Associate, 0, len(ids))
	for _, id := range ids {
		associate, err := s.repo.GetByID(id)
		if err != nil {
			return nil, err
		}
		if associate == nil {
			break
		}
		ancestors = append(ancestors, *associate)
	}
	return ancestors, nil
}

// Activate 激活经纪人并发布激活事件
func (s *ReferralService) Activate(associateID uint) (*models.Associate, error) {
	associate, err := s.updateStatus(associateID, constants.AssociateStatusActive)
	if err != nil {
		return nil, err
	}
	if associate == nil {
		return nil, ErrNotFound
	}

	if s.queueClient != nil {
		activatedAt := time.Now()
		if associate.ActivatedAt != nil {
			activatedAt = *associate.ActivatedAt
		}
		payload := queue.AssociateActivatedPayload{
			AssociateID: associate.ID,
			ActivatedAt: activatedAt,
		}
		if err := s.queueClient.EnqueueAssociateActivated(payload); err != nil {
			logger.Warnw("associate_activated_enqueue_failed",
				"associate_id", associate.ID,
				"error", err,
			)
		}
	}
	return associate, nil
}

// Deactivate 停用经纪人（保留图中位置，后续佣金计算跳过）
func (s *ReferralService) Deactivate(associateID uint) (*models.Associate, error) {
	return s.updateStatus(associateID, constants.AssociateStatusInactive)
}

// NetworkTree 构建经纪人的推荐网络树（逐层展开，受最大深度限制）
func (s *ReferralService) NetworkTree(associateID uint, depth int) (*NetworkTreeNode, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	root, err := s.repo.GetByID(associateID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrNotFound
	}
	if depth <= 0 || depth > s.treeMaxDepth {
		depth = s.treeMaxDepth
	}

	rootNode := &NetworkTreeNode{
		ID:           root.ID,
		Name:         root.Name,
		ReferralCode: root.ReferralCode,
		Status:       root.Status,
		Level:        0,
		Children:     make([]*NetworkTreeNode, 0),
	}

	frontier := map[uint]*NetworkTreeNode{root.ID: rootNode}
	for level := 1; level <= depth && len(frontier) > 0; level++ {
		sponsorIDs := make([]uint, 0, len(frontier))
		for id := range frontier {
			sponsorIDs = append(sponsorIDs, id)
		}
		edges, err := s.repo.ListEdgesBySponsors(sponsorIDs)
		if err != nil {
			return nil, err
		}
		if len(edges) == 0 {
			break
		}

		childIDs := make([]uint, 0, len(edges))
		for _, edge := range edges {
			childIDs = append(childIDs, edge.ChildID)
		}
		children, err := s.repo.ListByIDs(childIDs)
		if err != nil {
			return nil, err
		}
		childByID := make(map[uint]models.Associate, len(children))
		for _, child := range children {
			childByID[child.ID] = child
		}

		next := make(map[uint]*NetworkTreeNode, len(edges))
		for _, edge := range edges {
			parent := frontier[edge.SponsorID]
			child, ok := childByID[edge.ChildID]
			if parent == nil || !ok {
				continue
			}
			node := &NetworkTreeNode{
				ID:           child.ID,
				Name:         child.Name,
				ReferralCode: child.ReferralCode,
				Status:       child.Status,
				Level:        level,
				Children:     make([]*NetworkTreeNode, 0),
			}
			parent.Children = append(parent.Children, node)
			next[node.ID] = node
		}
		frontier = next
	}
	return rootNode, nil
}

// NetworkStats 统计经纪人的推荐网络规模
func (s *ReferralService) NetworkStats(associateID uint) (*NetworkStats, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	root, err := s.repo.GetByID(associateID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrNotFound
	}

	stats := &NetworkStats{LevelCounts: make(map[int]int64)}
	frontier := []uint{associateID}
	for level := 1; level <= s.treeMaxDepth && len(frontier) > 0; level++ {
		edges, err := s.repo.ListEdgesBySponsors(frontier)
		if err != nil {
			return nil, err
		}
		if len(edges) == 0 {
			break
		}
		childIDs := make([]uint, 0, len(edges))
		for _, edge := range edges {
			childIDs = append(childIDs, edge.ChildID)
		}
		children, err := s.repo.ListByIDs(childIDs)
		if err != nil {
			return nil, err
		}

		stats.LevelCounts[level] = int64(len(children))
		stats.TotalMembers += int64(len(children))
		if level == 1 {
			stats.DirectMembers = int64(len(children))
		}
		for _, child := range children {
			if child.Status == constants.AssociateStatusActive {
				stats.ActiveMembers++
			}
		}
		frontier = childIDs
	}
	return stats, nil
}

func (s *ReferralService) updateStatus(associateID uint, nextStatus string) (*models.Associate, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	if associateID == 0 {
		return nil, ErrValidation
	}
	associate, err := s.repo.GetByID(associateID)
	if err != nil {
		return nil, err
	}
	if associate == nil {
		return nil, ErrNotFound
	}
	if associate.Status == nextStatus {
		return associate, nil
	}

	var activatedAt *time.Time
	if nextStatus == constants.AssociateStatusActive && associate.ActivatedAt == nil {
		now := time.Now()
		activatedAt = &now
	}
	if err := s.repo.UpdateStatus(associateID, nextStatus, activatedAt); err != nil {
		return nil, err
	}
	logger.Infow("associate_status_updated",
		"associate_id", associateID,
		"status", nextStatus,
	)
	return s.repo.GetByID(associateID)
}

// ancestorIDChain 沿推荐边向上收集祖先ID（由近及远）
func (s *ReferralService) ancestorIDChain(associateID uint, maxDepth int) ([]uint, error) {
	ids := make([]uint, 0, maxDepth)
	visited := map[uint]bool{associateID: true}
	current := associateID
	for len(ids) < maxDepth {
		edge, err := s.repo.GetEdgeByChildID(current)
		if err != nil {
			return nil, err
		}
		if edge == nil {
			break
		}
		if visited[edge.SponsorID] {
			// 已有数据中的环，停止遍历避免死循环
			logger.Warnw("referral_ancestor_cycle_detected",
				"associate_id", associateID,
				"sponsor_id", edge.SponsorID,
			)
			break
		}
		visited[edge.SponsorID] = true
		ids = append(ids, edge.SponsorID)
		current = edge.SponsorID
	}
	return ids, nil
}

// newUniqueReferralCode 生成未被占用的推荐码
func (s *ReferralService) newUniqueReferralCode() (string, error) {
	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, err := generateReferralCode()
		if err != nil {
			return "", err
		}
		existing, err := s.repo.GetByReferralCode(code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", ErrReferralCodeInvalid
}

func generateReferralCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(constants.ReferralCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < constants.ReferralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
