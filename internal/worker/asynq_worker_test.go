package worker

import (
	"context"
	"testing"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/provider"
	"github.com/investorsdeaal/referral-engine/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleTransactionClosedInvalidPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskTransactionClosed, []byte("not-json"))
	if err := consumer.handleTransactionClosed(context.Background(), task); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}

func TestHandleTransactionClosedServiceUnavailable(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewTransactionClosedTask(queue.TransactionClosedPayload{
		TxnNo:       "TXN-1001",
		AssociateID: 1,
		Amount:      1000000,
		ClosedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleTransactionClosed(context.Background(), task); err != nil {
		t.Fatalf("expected nil when commission service missing, got %v", err)
	}
}

func TestHandleAssociateActivatedInvalidPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskAssociateActivated, []byte("{"))
	if err := consumer.handleAssociateActivated(context.Background(), task); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}

func TestHandleAssociateActivatedZeroID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewAssociateActivatedTask(queue.AssociateActivatedPayload{
		AssociateID: 0,
		ActivatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleAssociateActivated(context.Background(), task); err != nil {
		t.Fatalf("expected zero associate id to be dropped, got %v", err)
	}
}
