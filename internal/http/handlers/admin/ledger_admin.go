package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/investorsdeaal/referral-engine/internal/http/response"
	"github.com/investorsdeaal/referral-engine/internal/repository"
	"github.com/investorsdeaal/referral-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminListLedgerEntries 管理端佣金账目列表
func (h *Handler) AdminListLedgerEntries(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	entryType := strings.TrimSpace(c.Query("entry_type"))
	associateID := parseUintQuery(c, "associate_id")
	transactionID := parseUintQuery(c, "transaction_id")
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

	entries, total, err := h.LedgerRepo.ListEntries(repository.LedgerListFilter{
		Page:          page,
		PageSize:      pageSize,
		AssociateID:   associateID,
		TransactionID: transactionID,
		EntryType:     entryType,
		Status:        status,
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
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

// AdminGetLedgerEntry 管理端佣金账目详情
func (h *Handler) AdminGetLedgerEntry(c *gin.Context) {
	id, ok := parseLedgerEntryIDParam(c)
	if !ok {
		return
	}

	entry, err := h.LedgerRepo.GetEntryByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.ledger_fetch_failed", err)
		return
	}
	if entry == nil {
		respondError(c, response.CodeNotFound, "error.ledger_entry_not_found", nil)
		return
	}
	response.Success(c, entry)
}

// AdminApproveLedgerEntry 审批佣金账目（pending → approved）
func (h *Handler) AdminApproveLedgerEntry(c *gin.Context) {
	id, ok := parseLedgerEntryIDParam(c)
	if !ok {
		return
	}

	entry, err := h.PayoutService.Approve(id)
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	response.Success(c, entry)
}

// AdminPayLedgerEntryRequest 支付标记请求
type AdminPayLedgerEntryRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

// AdminPayLedgerEntry 标记佣金已支付（approved → paid）
func (h *Handler) AdminPayLedgerEntry(c *gin.Context) {
	id, ok := parseLedgerEntryIDParam(c)
	if !ok {
		return
	}

	var req AdminPayLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.payment_reference_required", err)
		return
	}

	entry, err := h.PayoutService.MarkPaid(id, req.PaymentReference)
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	response.Success(c, entry)
}

// AdminVoidLedgerEntryRequest 作废请求
type AdminVoidLedgerEntryRequest struct {
	Reason string `json:"reason"`
}

// AdminVoidLedgerEntry 作废未支付账目（pending/approved → void）
func (h *Handler) AdminVoidLedgerEntry(c *gin.Context) {
	id, ok := parseLedgerEntryIDParam(c)
	if !ok {
		return
	}

	var req AdminVoidLedgerEntryRequest
	_ = c.ShouldBindJSON(&req)

	entry, err := h.PayoutService.Void(id, req.Reason)
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	response.Success(c, entry)
}

// AdminReverseLedgerEntryRequest 冲销请求
type AdminReverseLedgerEntryRequest struct {
	Reason string `json:"reason"`
}

// AdminReverseLedgerEntry 冲销已支付账目（生成负额冲销分录）
func (h *Handler) AdminReverseLedgerEntry(c *gin.Context) {
	id, ok := parseLedgerEntryIDParam(c)
	if !ok {
		return
	}

	var req AdminReverseLedgerEntryRequest
	_ = c.ShouldBindJSON(&req)

	entry, err := h.PayoutService.ReversePaid(id, req.Reason)
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	response.Success(c, entry)
}

// AdminListCommissionSkips 管理端佣金跳过记录列表
func (h *Handler) AdminListCommissionSkips(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	skips, total, err := h.LedgerRepo.ListSkips(repository.CommissionSkipListFilter{
		Page:          page,
		PageSize:      pageSize,
		TransactionID: parseUintQuery(c, "transaction_id"),
		AssociateID:   parseUintQuery(c, "associate_id"),
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
	response.SuccessWithPage(c, skips, pagination)
}

func respondPayoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "error.ledger_entry_not_found", nil)
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(c, response.CodeBadRequest, "error.ledger_transition_invalid", nil)
	case errors.Is(err, service.ErrPaymentRefRequired):
		respondError(c, response.CodeBadRequest, "error.payment_reference_required", nil)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}

func parseLedgerEntryIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.ledger_entry_id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}

func parseUintQuery(c *gin.Context, key string) uint {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(parsed)
}
