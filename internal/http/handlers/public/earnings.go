package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/investorsdeaal/referral-engine/internal/http/response"
	"github.com/investorsdeaal/referral-engine/internal/repository"
	"github.com/investorsdeaal/referral-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMyEarnings 获取当前经纪人收益汇总
func (h *Handler) GetMyEarnings(c *gin.Context) {
	id, ok := getAssociateID(c)
	if !ok {
		return
	}

	summary, err := h.EarningsService.Summarize(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.associate_not_found", nil)
		case errors.Is(err, service.ErrValidation):
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		default:
			respondError(c, response.CodeInternal, "error.earnings_fetch_failed", err)
		}
		return
	}
	response.Success(c, summary)
}

// GetMyLedgerEntries 获取当前经纪人佣金账目列表
func (h *Handler) GetMyLedgerEntries(c *gin.Context) {
	id, ok := getAssociateID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	status := strings.TrimSpace(c.Query("status"))
	entryType := strings.TrimSpace(c.Query("entry_type"))

	entries, total, err := h.EarningsService.ListEntries(id, repository.LedgerListFilter{
		Page:      page,
		PageSize:  pageSize,
		Status:    status,
		EntryType: entryType,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.ledger_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, entries, pagination)
}
