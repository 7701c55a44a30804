package queue

import (
	"encoding/json"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskTransactionClosed 成交事件任务
	TaskTransactionClosed = constants.TaskTransactionClosed
	// TaskAssociateActivated 经纪人激活事件任务
	TaskAssociateActivated = constants.TaskAssociateActivated
)

// TransactionClosedPayload 成交事件任务载荷
type TransactionClosedPayload struct {
	TxnNo       string    `json:"txn_no"`
	PropertyRef string    `json:"property_ref"`
	AssociateID uint      `json:"associate_id"`
	Amount      int64     `json:"amount"`
	ClosedAt    time.Time `json:"closed_at"`
}

// AssociateActivatedPayload 经纪人激活事件任务载荷
type AssociateActivatedPayload struct {
	AssociateID uint      `json:"associate_id"`
	ActivatedAt time.Time `json:"activated_at"`
}

// NewTransactionClosedTask 创建成交事件任务
func NewTransactionClosedTask(payload TransactionClosedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTransactionClosed, body), nil
}

// NewAssociateActivatedTask 创建经纪人激活事件任务
func NewAssociateActivatedTask(payload AssociateActivatedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssociateActivated, body), nil
}
