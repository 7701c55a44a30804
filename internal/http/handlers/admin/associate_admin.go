package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/http/response"
	"github.com/investorsdeaal/referral-engine/internal/models"
	"github.com/investorsdeaal/referral-engine/internal/repository"
	"github.com/investorsdeaal/referral-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminAssociateListItem 管理端经纪人列表返回
type AdminAssociateListItem struct {
	models.Associate
	SponsorID uint `json:"sponsor_id,omitempty"`
}

// AdminListAssociates 管理端经纪人列表
func (h *Handler) AdminListAssociates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	keyword := strings.TrimSpace(c.Query("keyword"))
	status := strings.TrimSpace(c.Query("status"))
	sponsorIDStr := strings.TrimSpace(c.Query("sponsor_id"))
	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var sponsorID uint
	if sponsorIDStr != "" {
		if parsed, err := strconv.ParseUint(sponsorIDStr, 10, 64); err == nil {
			sponsorID = uint(parsed)
		}
	}

	associates, total, err := h.AssociateRepo.List(repository.AssociateListFilter{
		Page:        page,
		PageSize:    pageSize,
		Keyword:     keyword,
		Status:      status,
		SponsorID:   sponsorID,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.associate_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, associates, pagination)
}

// AdminGetAssociate 管理端经纪人详情
func (h *Handler) AdminGetAssociate(c *gin.Context) {
	id, ok := parseAssociateIDParam(c)
	if !ok {
		return
	}

	associate, err := h.AssociateRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.associate_fetch_failed", err)
		return
	}
	if associate == nil {
		respondError(c, response.CodeNotFound, "error.associate_not_found", nil)
		return
	}

	edge, err := h.AssociateRepo.GetEdgeByChildID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.associate_fetch_failed", err)
		return
	}
	directCount, err := h.AssociateRepo.CountChildren(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.associate_fetch_failed", err)
		return
	}

	view := gin.H{
		"associate":      associate,
		"direct_members": directCount,
	}
	if edge != nil {
		view["sponsor_id"] = edge.SponsorID
	}
	response.Success(c, view)
}

// AdminActivateAssociate 激活经纪人（触发推荐奖金结算）
func (h *Handler) AdminActivateAssociate(c *gin.Context) {
	id, ok := parseAssociateIDParam(c)
	if !ok {
		return
	}

	associate, err := h.ReferralService.Activate(id)
	if err != nil {
		respondAssociateStatusError(c, err)
		return
	}
	response.Success(c, associate)
}

// AdminDeactivateAssociate 停用经纪人
func (h *Handler) AdminDeactivateAssociate(c *gin.Context) {
	id, ok := parseAssociateIDParam(c)
	if !ok {
		return
	}

	associate, err := h.ReferralService.Deactivate(id)
	if err != nil {
		respondAssociateStatusError(c, err)
		return
	}
	response.Success(c, associate)
}

// AdminGetAssociateNetwork 管理端查看经纪人推荐网络树
func (h *Handler) AdminGetAssociateNetwork(c *gin.Context) {
	id, ok := parseAssociateIDParam(c)
	if !ok {
		return
	}

	depth, _ := strconv.Atoi(c.DefaultQuery("depth", "0"))
	tree, err := h.ReferralService.NetworkTree(id, depth)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.associate_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.network_fetch_failed", err)
		return
	}
	response.Success(c, tree)
}

// AdminCreateReferralEdgeRequest 推荐关系创建请求
type AdminCreateReferralEdgeRequest struct {
	ChildID   uint `json:"child_id" binding:"required"`
	SponsorID uint `json:"sponsor_id" binding:"required"`
}

// AdminCreateReferralEdge 管理端写入推荐关系边
func (h *Handler) AdminCreateReferralEdge(c *gin.Context) {
	var req AdminCreateReferralEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	edge, err := h.ReferralService.AddEdge(req.ChildID, req.SponsorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.associate_not_found", nil)
		case errors.Is(err, service.ErrCycleDetected):
			respondError(c, response.CodeBadRequest, "error.referral_cycle_detected", nil)
		case errors.Is(err, service.ErrDuplicateSponsor):
			respondError(c, response.CodeBadRequest, "error.sponsor_exists", nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}
	response.Success(c, edge)
}

func respondAssociateStatusError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(c, response.CodeBadRequest, "error.associate_id_invalid", nil)
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "error.associate_not_found", nil)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}

func parseAssociateIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.associate_id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
