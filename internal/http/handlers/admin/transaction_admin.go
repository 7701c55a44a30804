package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/http/response"
	"github.com/investorsdeaal/referral-engine/internal/queue"
	"github.com/investorsdeaal/referral-engine/internal/repository"
	"github.com/investorsdeaal/referral-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminRecordTransactionRequest 成交流水录入请求
type AdminRecordTransactionRequest struct {
	TxnNo       string `json:"txn_no" binding:"required"`
	PropertyRef string `json:"property_ref"`
	AssociateID uint   `json:"associate_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	ClosedAt    string `json:"closed_at"`
	Async       bool   `json:"async"`
}

// AdminRecordTransaction 录入成交并触发佣金计算
// async=true 时仅入队，由 worker 异步结算
func (h *Handler) AdminRecordTransaction(c *gin.Context) {
	var req AdminRecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	closedAt := time.Now()
	if raw := strings.TrimSpace(req.ClosedAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.transaction_invalid", err)
			return
		}
		closedAt = parsed
	}

	if req.Async {
		if h.QueueClient == nil {
			respondError(c, response.CodeInternal, "error.queue_unavailable", nil)
			return
		}
		err := h.QueueClient.EnqueueTransactionClosed(queue.TransactionClosedPayload{
			TxnNo:       req.TxnNo,
			PropertyRef: req.PropertyRef,
			AssociateID: req.AssociateID,
			Amount:      req.Amount,
			ClosedAt:    closedAt,
		})
		if err != nil {
			respondError(c, response.CodeInternal, "error.queue_unavailable", err)
			return
		}
		response.Success(c, gin.H{"queued": true, "txn_no": req.TxnNo})
		return
	}

	result, err := h.CommissionService.HandleTransactionClosed(service.TransactionClosedInput{
		TxnNo:       req.TxnNo,
		PropertyRef: req.PropertyRef,
		AssociateID: req.AssociateID,
		Amount:      req.Amount,
		ClosedAt:    closedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTransaction):
			respondError(c, response.CodeBadRequest, "error.transaction_invalid", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.associate_not_found", nil)
		default:
			respondError(c, response.CodeInternal, "error.commission_failed", err)
		}
		return
	}
	response.Success(c, result)
}

// AdminListTransactions 管理端成交流水列表
func (h *Handler) AdminListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	txnNo := strings.TrimSpace(c.Query("txn_no"))
	associateIDStr := strings.TrimSpace(c.Query("associate_id"))
	closedFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("closed_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	closedTo, err := parseTimeNullable(strings.TrimSpace(c.Query("closed_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var associateID uint
	if associateIDStr != "" {
		if parsed, err := strconv.ParseUint(associateIDStr, 10, 64); err == nil {
			associateID = uint(parsed)
		}
	}

	txns, total, err := h.LedgerRepo.ListTransactions(repository.TransactionListFilter{
		Page:        page,
		PageSize:    pageSize,
		AssociateID: associateID,
		TxnNo:       txnNo,
		ClosedFrom:  closedFrom,
		ClosedTo:    closedTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.transaction_fetch_failed", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, txns, pagination)
}

// AdminGetTransaction 成交详情（含账目与跳过记录）
func (h *Handler) AdminGetTransaction(c *gin.Context) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.transaction_invalid", nil)
		return
	}

	txn, err := h.LedgerRepo.GetTransactionByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.transaction_fetch_failed", err)
		return
	}
	if txn == nil {
		respondError(c, response.CodeNotFound, "error.transaction_not_found", nil)
		return
	}

	entries, err := h.LedgerRepo.ListEntriesByTransaction(txn.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.transaction_fetch_failed", err)
		return
	}
	skips, _, err := h.LedgerRepo.ListSkips(repository.CommissionSkipListFilter{TransactionID: txn.ID})
	if err != nil {
		respondError(c, response.CodeInternal, "error.transaction_fetch_failed", err)
		return
	}

	response.Success(c, gin.H{
		"transaction": txn,
		"entries":     entries,
		"skips":       skips,
	})
}
