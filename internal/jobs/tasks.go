package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue every laundry task runs on.
	QueueDefault = "default"
	// TaskRepriceAudit recomputes one order and compares it with what was saved.
	TaskRepriceAudit = "order:reprice_audit"
	// TaskRepriceSweep audits every order changed within a recent window.
	TaskRepriceSweep = "order:reprice_sweep"
)

// RepriceAuditPayload identifies the order to audit.
type RepriceAuditPayload struct {
	OrderID string `json:"orderId"`
}

// NewRepriceAuditTask constructs an audit task for orderID.
func NewRepriceAuditTask(orderID string) (*asynq.Task, error) {
	if orderID == "" {
		return nil, fmt.Errorf("jobs: order id is required")
	}
	data, err := json.Marshal(RepriceAuditPayload{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRepriceAudit, data), nil
}

// RepriceSweepPayload bounds a sweep run.
type RepriceSweepPayload struct {
	WindowSeconds int64 `json:"windowSeconds"`
	Limit         int   `json:"limit"`
}

// NewRepriceSweepTask constructs the periodic sweep task.
func NewRepriceSweepTask(window time.Duration, limit int) (*asynq.Task, error) {
	data, err := json.Marshal(RepriceSweepPayload{WindowSeconds: int64(window / time.Second), Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRepriceSweep, data), nil
}
