package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/investorsdeaal/referral-engine/internal/logger"
	"github.com/investorsdeaal/referral-engine/internal/provider"
	"github.com/investorsdeaal/referral-engine/internal/queue"
	"github.com/investorsdeaal/referral-engine/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskTransactionClosed, c.handleTransactionClosed)
	mux.HandleFunc(queue.TaskAssociateActivated, c.handleAssociateActivated)
}

func (c *Consumer) handleTransactionClosed(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_transaction_closed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.TransactionClosedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_transaction_closed_unmarshal_failed", "error", err)
		return err
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_transaction_closed_skip_service_nil", "txn_no", payload.TxnNo)
		return nil
	}
	result, err := c.CommissionService.HandleTransactionClosed(service.TransactionClosedInput{
		TxnNo:       payload.TxnNo,
		PropertyRef: payload.PropertyRef,
		AssociateID: payload.AssociateID,
		Amount:      payload.Amount,
		ClosedAt:    payload.ClosedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTransaction):
			// 载荷无效，重试不会成功，直接丢弃
			logger.Warnw("worker_transaction_closed_skip_invalid", "txn_no", payload.TxnNo, "error", err)
			return nil
		case errors.Is(err, service.ErrDuplicateEntry):
			logger.Debugw("worker_transaction_closed_skip_duplicate", "txn_no", payload.TxnNo)
			return nil
		default:
			logger.Warnw("worker_transaction_closed_failed", "txn_no", payload.TxnNo, "error", err)
			return err
		}
	}
	if result != nil && result.Replayed {
		logger.Debugw("worker_transaction_closed_replayed", "txn_no", payload.TxnNo)
	}
	return nil
}

func (c *Consumer) handleAssociateActivated(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_associate_activated_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AssociateActivatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_associate_activated_unmarshal_failed", "error", err)
		return err
	}
	if payload.AssociateID == 0 {
		logger.Debugw("worker_associate_activated_skip_invalid_payload", "associate_id", payload.AssociateID)
		return nil
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_associate_activated_skip_service_nil", "associate_id", payload.AssociateID)
		return nil
	}
	_, err := c.CommissionService.HandleAssociateActivated(service.AssociateActivatedInput{
		AssociateID: payload.AssociateID,
		ActivatedAt: payload.ActivatedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_associate_activated_skip_not_found", "associate_id", payload.AssociateID)
			return nil
		case errors.Is(err, service.ErrValidation):
			logger.Debugw("worker_associate_activated_skip_invalid", "associate_id", payload.AssociateID)
			return nil
		default:
			logger.Warnw("worker_associate_activated_failed", "associate_id", payload.AssociateID, "error", err)
			return err
		}
	}
	return nil
}
