package admin

import (
	"errors"
	"strconv"

	"github.com/investorsdeaal/referral-engine/internal/http/response"
	"github.com/investorsdeaal/referral-engine/internal/repository"
	"github.com/investorsdeaal/referral-engine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdminGetRateTable 获取当前生效费率版本
func (h *Handler) AdminGetRateTable(c *gin.Context) {
	version, err := h.RateService.ActiveVersion()
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.rate_version_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.rate_fetch_failed", err)
		return
	}
	response.Success(c, version)
}

// AdminGetRateTableHistory 费率版本历史（新在前）
func (h *Handler) AdminGetRateTableHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	versions, total, err := h.RateService.History(repository.RateVersionListFilter{
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.rate_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, versions, pagination)
}

// AdminProposeRateTableRequest 费率版本提案请求
type AdminProposeRateTableRequest struct {
	Level1Percent  string `json:"level1_percent" binding:"required"`
	Level2Percent  string `json:"level2_percent" binding:"required"`
	Level3Percent  string `json:"level3_percent" binding:"required"`
	Level4Percent  string `json:"level4_percent" binding:"required"`
	Level5Percent  string `json:"level5_percent" binding:"required"`
	ReferralBonus  int64  `json:"referral_bonus"`
	MilestoneBonus int64  `json:"milestone_bonus"`
}

// AdminProposeRateTable 提交新费率版本（当前版本自动封存）
func (h *Handler) AdminProposeRateTable(c *gin.Context) {
	var req AdminProposeRateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	percents := make([]decimal.Decimal, 0, 5)
	for _, raw := range []string{
		req.Level1Percent,
		req.Level2Percent,
		req.Level3Percent,
		req.Level4Percent,
		req.Level5Percent,
	} {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.rate_invalid", nil)
			return
		}
		percents = append(percents, value)
	}

	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	version, err := h.RateService.Propose(service.ProposeRateInput{
		Level1Percent:  percents[0],
		Level2Percent:  percents[1],
		Level3Percent:  percents[2],
		Level4Percent:  percents[3],
		Level5Percent:  percents[4],
		ReferralBonus:  req.ReferralBonus,
		MilestoneBonus: req.MilestoneBonus,
		CreatedBy:      adminID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRate) {
			respondError(c, response.CodeBadRequest, "error.rate_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, version)
}
